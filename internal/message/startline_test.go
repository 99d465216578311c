package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindResponse, DetectKind([]byte("HTTP/1.1 200 OK\r\n\r\n")))
	assert.Equal(t, KindRequest, DetectKind([]byte("GET / HTTP/1.1\r\n\r\n")))
	assert.Equal(t, KindRequest, DetectKind(nil))
}

func TestTargetURL(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"Should join origin-form with Host", "POST /api?x=1 HTTP/1.1\r\nHost: api.example.com\r\n\r\nbody", "http://api.example.com/api?x=1"},
		{"Should keep absolute-form targets", "GET https://a.test/p HTTP/1.1\nHost: other\n\n", "https://a.test/p"},
		{"Should map CONNECT to the authority", "CONNECT a.test:443 HTTP/1.1\r\nHost: a.test:443\r\n\r\n", "https://a.test:443"},
		{"Should return empty without Host", "GET / HTTP/1.1\r\n\r\n", ""},
		{"Should return empty for responses", "HTTP/1.1 200 OK\r\nHost: a\r\n\r\n", ""},
		{"Should return empty for malformed lines", "hello world\n\n", ""},
		{"Should ignore Host in the body", "GET / HTTP/1.1\r\nX: y\r\n\r\nHost: evil", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TargetURL([]byte(tc.raw)))
		})
	}
}
