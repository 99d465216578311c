package message

import (
	"bytes"
	"strings"
)

var statusLinePrefix = []byte("HTTP/")

// DetectKind reports a buffer starting with a status line as a response
// and anything else as a request.
func DetectKind(raw []byte) Kind {
	if bytes.HasPrefix(raw, statusLinePrefix) {
		return KindResponse
	}
	return KindRequest
}

// TargetURL rebuilds the URL a raw request is addressed to from its request
// line and Host header. Responses and malformed requests yield "".
func TargetURL(raw []byte) string {
	if DetectKind(raw) == KindResponse {
		return ""
	}

	line, _, _ := bytes.Cut(raw, []byte("\n"))
	fields := strings.Fields(strings.TrimSuffix(string(line), "\r"))
	if len(fields) != 3 || !strings.HasPrefix(fields[2], "HTTP/") {
		return ""
	}

	target := fields[1]
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}

	head := raw
	if b, err := FindBoundary(raw); err == nil {
		head = raw[:b.HeaderEnd]
	}
	host, ok := ParseHeaders(head).Get("Host")
	if !ok || host == "" {
		return ""
	}

	switch {
	case fields[0] == "CONNECT":
		return "https://" + host
	case !strings.HasPrefix(target, "/"):
		target = "/"
	}
	return "http://" + host + target
}
