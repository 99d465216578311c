package proxy

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/quickkly/tidyhttp/internal/classify"
)

// shouldSkipBody reports whether a body must be streamed through untouched
func shouldSkipBody(statusCode int, h http.Header) bool {
	if statusCode == http.StatusSwitchingProtocols {
		return true
	}

	if v := strings.TrimSpace(h.Get("Upgrade")); v != "" {
		return true
	}

	ct := strings.ToLower(h.Get("Content-Type"))
	if strings.Contains(ct, "text/event-stream") {
		return true
	}
	if strings.Contains(ct, "application/grpc") {
		return true
	}
	if strings.Contains(ct, "multipart/x-mixed-replace") {
		return true
	}

	return false
}

// readLimited reads at most limit bytes. When the body is larger, the
// returned reader replays what was consumed followed by the rest.
func readLimited(body io.ReadCloser, limit int64) (data []byte, replay io.ReadCloser, err error) {
	data, err = io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(data), body), body}, nil
	}
	body.Close()
	return data, nil, nil
}

// isIdentity reports whether a Content-Encoding value leaves bytes as-is
func isIdentity(contentEncoding string) bool {
	ce := strings.ToLower(strings.TrimSpace(contentEncoding))
	return ce == "" || ce == "identity"
}

// decodeBody decompresses gzip and brotli bodies
func decodeBody(data []byte, contentEncoding string) ([]byte, error) {
	var reader io.Reader
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		gzReader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	case "br":
		reader = brotli.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", contentEncoding)
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", contentEncoding, err)
	}
	return decoded, nil
}

// headerList flattens an http.Header into an ordered header list
func headerList(h http.Header) classify.Headers {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make(classify.Headers, 0, len(names))
	for _, name := range names {
		for _, value := range h[name] {
			headers = append(headers, classify.Header{Name: name, Value: value})
		}
	}
	return headers
}
