package proxy

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickkly/tidyhttp/internal/config"
	"github.com/quickkly/tidyhttp/internal/handler"
	"github.com/quickkly/tidyhttp/internal/logger"
	"github.com/quickkly/tidyhttp/internal/message"
)

var pngBody = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0, 1, 2, 3}, 16)...)

func newTestProxy(t *testing.T, upstream string, decode bool) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Processing: config.ProcessingConfig{MaxBodyBytes: 1 << 20, DecodeContent: decode},
		Proxy:      config.ProxyConfig{Upstream: upstream, MetricsPath: "/__tidyhttp/metrics"},
	}
	log := logger.NewLogger(logger.TestConfig())
	h := handler.New(config.NewSettings(nil), message.NewProcessor(log))
	srv, err := New(cfg, h, log)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newUpstream(t *testing.T, fn http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(fn)
	t.Cleanup(ts.Close)
	return ts
}

func brotliEncode(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func get(t *testing.T, url string, header http.Header) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestServer_Responses(t *testing.T) {
	t.Run("Should strip leading blank lines and fix Content-Length", func(t *testing.T) {
		up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("\r\n\r\n{\"ok\":true}"))
		})
		px := newTestProxy(t, up.URL, false)

		resp, body := get(t, px.URL+"/api", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"ok":true}`, string(body))
		assert.Equal(t, "11", resp.Header.Get("Content-Length"))
	})

	t.Run("Should pass binary bodies through unchanged", func(t *testing.T) {
		up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBody)
		})
		px := newTestProxy(t, up.URL, false)

		_, body := get(t, px.URL, nil)
		assert.Equal(t, pngBody, body)
	})

	t.Run("Should decode brotli bodies when enabled", func(t *testing.T) {
		up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(brotliEncode(t, []byte("\n\n\nhello")))
		})
		px := newTestProxy(t, up.URL, true)

		resp, body := get(t, px.URL, http.Header{"Accept-Encoding": {"br"}})
		assert.Empty(t, resp.Header.Get("Content-Encoding"))
		assert.Equal(t, "hello", string(body))
	})

	t.Run("Should leave encoded bodies alone when decoding is off", func(t *testing.T) {
		encoded := brotliEncode(t, []byte("\n\n\nhello"))
		up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(encoded)
		})
		px := newTestProxy(t, up.URL, false)

		resp, body := get(t, px.URL, http.Header{"Accept-Encoding": {"br"}})
		assert.Equal(t, "br", resp.Header.Get("Content-Encoding"))
		assert.Equal(t, encoded, body)
	})

	t.Run("Should not buffer event streams", func(t *testing.T) {
		up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = w.Write([]byte("\n\ndata: x\n\n"))
		})
		px := newTestProxy(t, up.URL, false)

		_, body := get(t, px.URL, nil)
		assert.Equal(t, "\n\ndata: x\n\n", string(body))
	})
}

func TestServer_Requests(t *testing.T) {
	echo := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Seen-Tool", r.Header.Get(ToolHeader))
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
	}

	post := func(t *testing.T, url, tool, body string) (*http.Response, string) {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
		require.NoError(t, err)
		if tool != "" {
			req.Header.Set(ToolHeader, tool)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		out, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(out)
	}

	t.Run("Should clean request bodies and drop the tool header", func(t *testing.T) {
		up := newUpstream(t, echo)
		px := newTestProxy(t, up.URL, false)

		resp, body := post(t, px.URL+"/submit", "repeater", "\n\nname=x")
		assert.Equal(t, "name=x", body)
		assert.Empty(t, resp.Header.Get("X-Seen-Tool"))
	})

	t.Run("Should leave traffic from disabled tools untouched", func(t *testing.T) {
		up := newUpstream(t, echo)
		px := newTestProxy(t, up.URL, false)

		_, body := post(t, px.URL, "scanner", "\n\nname=x")
		assert.Equal(t, "\n\nname=x", body)
	})

	t.Run("Should reject unknown tools", func(t *testing.T) {
		up := newUpstream(t, echo)
		px := newTestProxy(t, up.URL, false)

		resp, _ := post(t, px.URL, "spider", "x")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_Metrics(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("\n\nhello"))
	})
	px := newTestProxy(t, up.URL, false)

	get(t, px.URL, nil)
	_, body := get(t, px.URL+"/__tidyhttp/metrics", nil)
	assert.Contains(t, string(body), `tidyhttp_messages_total{direction="response",outcome="modified"} 1`)
	assert.Contains(t, string(body), `tidyhttp_removed_bytes_total{direction="response"} 2`)
}

func TestNew(t *testing.T) {
	h := handler.New(config.NewSettings(nil), message.NewProcessor(nil))

	_, err := New(&config.Config{Proxy: config.ProxyConfig{Upstream: "localhost:8080"}}, h, nil)
	assert.Error(t, err)

	_, err = New(nil, h, nil)
	assert.Error(t, err)
}

func TestShouldSkipBody(t *testing.T) {
	h := http.Header{}
	assert.False(t, shouldSkipBody(200, h))
	assert.True(t, shouldSkipBody(http.StatusSwitchingProtocols, h))

	h.Set("Content-Type", "application/grpc+proto")
	assert.True(t, shouldSkipBody(200, h))

	h = http.Header{"Upgrade": {"websocket"}}
	assert.True(t, shouldSkipBody(200, h))
}

func TestReadLimited(t *testing.T) {
	data, replay, err := readLimited(io.NopCloser(strings.NewReader("abc")), 3)
	require.NoError(t, err)
	assert.Nil(t, replay)
	assert.Equal(t, "abc", string(data))

	data, replay, err = readLimited(io.NopCloser(strings.NewReader("abcdef")), 3)
	require.NoError(t, err)
	assert.Nil(t, data)
	rest, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(rest))
}
