package message

import (
	"bytes"
	"errors"
	"strings"

	"github.com/quickkly/tidyhttp/internal/classify"
	"github.com/quickkly/tidyhttp/internal/normalize"
)

// ErrNoBoundary is returned when a buffer has no header/body separator
var ErrNoBoundary = errors.New("no header/body separator found")

var (
	crlfSeparator = []byte("\r\n\r\n")
	lfSeparator   = []byte("\n\n")
)

// Boundary locates the header/body separator in a raw message
type Boundary struct {
	// HeaderEnd is the offset of the first separator byte.
	HeaderEnd int
	// BodyStart is the offset of the first body byte.
	BodyStart int
	Ending    normalize.LineEnding
}

// Separator returns the separator bytes in the style found
func (b Boundary) Separator() []byte {
	if b.Ending == normalize.CRLF {
		return crlfSeparator
	}
	return lfSeparator
}

// FindBoundary scans forward for the first \r\n\r\n or \n\n; at any offset a
// CRLF separator wins over a bare LF one.
func FindBoundary(raw []byte) (Boundary, error) {
	for i := 0; i < len(raw); i++ {
		if bytes.HasPrefix(raw[i:], crlfSeparator) {
			return Boundary{HeaderEnd: i, BodyStart: i + len(crlfSeparator), Ending: normalize.CRLF}, nil
		}
		if bytes.HasPrefix(raw[i:], lfSeparator) {
			return Boundary{HeaderEnd: i, BodyStart: i + len(lfSeparator), Ending: normalize.LF}, nil
		}
	}
	return Boundary{}, ErrNoBoundary
}

// Split returns the head (without separator) and body of raw
func Split(raw []byte) (head, body []byte, boundary Boundary, err error) {
	boundary, err = FindBoundary(raw)
	if err != nil {
		return nil, nil, boundary, err
	}
	return raw[:boundary.HeaderEnd], raw[boundary.BodyStart:], boundary, nil
}

// ParseHeaders reads "Name: Value" lines from a header block. The first line
// is the request or status line and is skipped, as are lines without a colon.
func ParseHeaders(head []byte) classify.Headers {
	lines := bytes.Split(head, []byte("\n"))
	if len(lines) < 2 {
		return classify.Headers{}
	}

	headers := make(classify.Headers, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = bytes.TrimSuffix(line, []byte("\r"))
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			continue
		}
		headerName := strings.TrimSpace(string(name))
		if headerName == "" {
			continue
		}
		headers = append(headers, classify.Header{
			Name:  headerName,
			Value: strings.TrimSpace(string(value)),
		})
	}
	return headers
}
