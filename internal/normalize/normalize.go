// Package normalize rewrites blank-line runs in HTTP message bodies.
package normalize

import (
	"bytes"
	"errors"
	"regexp"
	"unicode/utf8"
)

// ErrDecodeFailure is returned when a buffer is not valid UTF-8 text
var ErrDecodeFailure = errors.New("content is not valid UTF-8 text")

// LineEnding is the line terminator style of a buffer
type LineEnding int

const (
	LF LineEnding = iota
	CRLF
)

func (e LineEnding) String() string {
	if e == CRLF {
		return "CRLF"
	}
	return "LF"
}

// Bytes returns the terminator bytes
func (e LineEnding) Bytes() []byte {
	if e == CRLF {
		return []byte("\r\n")
	}
	return []byte("\n")
}

var lineSplitter = regexp.MustCompile(`\r?\n`)

// DetectLineEnding returns CRLF if any \r\n pair is present, LF otherwise
func DetectLineEnding(b []byte) LineEnding {
	if bytes.Contains(b, []byte("\r\n")) {
		return CRLF
	}
	return LF
}

// IsBlank reports whether a line holds only horizontal whitespace or CR
func IsBlank(line []byte) bool {
	return len(bytes.Trim(line, " \t\r")) == 0
}

// IsOnlyWhitespace reports whether b contains nothing but spaces, tabs, CR and LF
func IsOnlyWhitespace(b []byte) bool {
	return len(bytes.Trim(b, " \t\r\n")) == 0
}

// StripLeadingBlankLines drops every whitespace-only line at the start of b.
// An all-blank buffer becomes a single "\n" so a body separator survives.
func StripLeadingBlankLines(b []byte) []byte {
	if len(b) == 0 {
		return b
	}

	start := 0
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case ' ', '\t', '\r':
			continue
		case '\n':
			start = i + 1
			continue
		}
		// First non-blank byte; its line starts at the last line break seen.
		return b[start:]
	}

	return []byte{'\n'}
}

// CollapseBlankLines drops leading blank lines and collapses every interior
// run of blank lines to its first line. Lines are re-joined with the
// dominant line ending of the input. b must be valid UTF-8.
func CollapseBlankLines(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return b, nil
	}
	if !utf8.Valid(b) {
		return nil, ErrDecodeFailure
	}

	lines := lineSplitter.Split(string(b), -1)
	if len(lines) <= 1 {
		return b, nil
	}

	kept := make([][]byte, 0, len(lines))
	seenContent := false
	previousBlank := false
	for _, line := range lines {
		blank := IsBlank([]byte(line))
		switch {
		case !blank:
			kept = append(kept, []byte(line))
			seenContent = true
		case seenContent && !previousBlank:
			kept = append(kept, []byte(line))
		}
		previousBlank = blank
	}

	return bytes.Join(kept, DetectLineEnding(b).Bytes()), nil
}

// Clean collapses blank lines in text, falling back to a leading-edge trim
// when b cannot be decoded.
func Clean(b []byte) []byte {
	cleaned, err := CollapseBlankLines(b)
	if err != nil {
		return StripLeadingBlankLines(b)
	}
	return cleaned
}
