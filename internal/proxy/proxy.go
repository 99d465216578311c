// Package proxy hosts the blank-line normalizer behind an HTTP reverse proxy.
// Request and response bodies are buffered up to a limit, handed to the
// handler in body-only mode, and re-framed with a fresh Content-Length.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quickkly/tidyhttp/internal/config"
	"github.com/quickkly/tidyhttp/internal/handler"
	"github.com/quickkly/tidyhttp/internal/logger"
	"github.com/quickkly/tidyhttp/internal/message"
)

// ToolHeader selects the tool a request is attributed to. It is removed
// before the request leaves the proxy.
const ToolHeader = "X-Tidyhttp-Tool"

const (
	directionRequest  = "request"
	directionResponse = "response"
)

type toolKey struct{}

// Server is a reverse proxy that normalizes message bodies
type Server struct {
	cfg      config.ProxyConfig
	proc     config.ProcessingConfig
	handler  *handler.Handler
	metrics  *Metrics
	registry *prometheus.Registry
	upstream *url.URL
	log      logger.Logger
	rp       *httputil.ReverseProxy
}

// New creates a proxy server. An empty upstream makes the server act as a
// forward proxy for absolute-form request targets.
func New(cfg *config.Config, h *handler.Handler, log logger.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("proxy config is required")
	}
	if log == nil {
		log = logger.GetDefault()
	}

	s := &Server{
		cfg:      cfg.Proxy,
		proc:     cfg.Processing,
		handler:  h,
		registry: prometheus.NewRegistry(),
		log:      log,
	}
	s.metrics = NewMetrics(s.registry)

	if cfg.Proxy.Upstream != "" {
		u, err := url.Parse(cfg.Proxy.Upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream %q: %w", cfg.Proxy.Upstream, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("upstream %q must be an absolute URL", cfg.Proxy.Upstream)
		}
		s.upstream = u
	}

	s.rp = &httputil.ReverseProxy{
		Rewrite:        s.rewrite,
		ModifyResponse: s.modifyResponse,
		ErrorHandler:   s.errorHandler,
	}
	return s, nil
}

// Registry exposes the collectors served on the metrics path
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the HTTP handler serving metrics and proxied traffic
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.MetricsPath != "" {
		mux.Handle(s.cfg.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", s.serveProxy)
	return mux
}

// ListenAndServe runs the proxy until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("proxy listening", "addr", s.cfg.Listen, "upstream", s.cfg.Upstream, "metrics", s.cfg.MetricsPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down proxy: %w", err)
		}
		return nil
	}
}

func (s *Server) serveProxy(w http.ResponseWriter, r *http.Request) {
	tool := config.ToolProxy
	if v := r.Header.Get(ToolHeader); v != "" {
		parsed, err := config.ParseTool(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tool = parsed
	}
	r.Header.Del(ToolHeader)

	ctx := logger.ContextWithLogger(r.Context(), s.log)
	ctx = context.WithValue(ctx, toolKey{}, tool)
	r = r.WithContext(ctx)

	if s.upstream == nil && !r.URL.IsAbs() {
		http.Error(w, "no upstream configured and request target is not absolute", http.StatusBadGateway)
		return
	}

	if err := s.processRequest(r, tool); err != nil {
		s.metrics.observe(directionRequest, outcomeError, 0)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if s.cfg.Timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	s.rp.ServeHTTP(w, r)
}

func (s *Server) rewrite(pr *httputil.ProxyRequest) {
	if s.upstream != nil {
		pr.SetURL(s.upstream)
	} else {
		pr.Out.Host = pr.In.URL.Host
	}
	pr.SetXForwarded()
}

// targetURL is the URL the scope check sees
func (s *Server) targetURL(r *http.Request) string {
	if s.upstream == nil {
		return r.URL.String()
	}
	u := *s.upstream
	u.Path = singleJoin(s.upstream.Path, r.URL.Path)
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func singleJoin(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case a[len(a)-1] == '/' && b[0] == '/':
		return a + b[1:]
	case a[len(a)-1] != '/' && b[0] != '/':
		return a + "/" + b
	}
	return a + b
}

func (s *Server) processRequest(r *http.Request, tool config.Tool) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return nil
	}
	if shouldSkipBody(0, r.Header) || !isIdentity(r.Header.Get("Content-Encoding")) {
		s.metrics.observe(directionRequest, outcomeSkipped, 0)
		return nil
	}
	if r.ContentLength > s.proc.MaxBodyBytes {
		s.metrics.observe(directionRequest, outcomeSkipped, 0)
		return nil
	}

	data, replay, err := readLimited(r.Body, s.proc.MaxBodyBytes)
	if err != nil {
		return err
	}
	if replay != nil {
		r.Body = replay
		s.metrics.observe(directionRequest, outcomeSkipped, 0)
		return nil
	}
	r.TransferEncoding = nil

	msg := message.NewRequest(headerList(r.Header), data)
	out, modified := s.handler.HandleBody(r.Context(), tool, s.targetURL(r), msg)
	if !modified {
		setBody(r.Header, &r.Body, &r.ContentLength, data)
		s.metrics.observe(directionRequest, outcomeUnchanged, 0)
		return nil
	}

	setBody(r.Header, &r.Body, &r.ContentLength, out.Body)
	s.metrics.observe(directionRequest, outcomeModified, len(data)-len(out.Body))
	return nil
}

func (s *Server) modifyResponse(resp *http.Response) error {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	if shouldSkipBody(resp.StatusCode, resp.Header) || resp.ContentLength > s.proc.MaxBodyBytes {
		s.metrics.observe(directionResponse, outcomeSkipped, 0)
		return nil
	}

	encoding := resp.Header.Get("Content-Encoding")
	identity := isIdentity(encoding)
	if !identity && !s.proc.DecodeContent {
		s.metrics.observe(directionResponse, outcomeSkipped, 0)
		return nil
	}

	data, replay, err := readLimited(resp.Body, s.proc.MaxBodyBytes)
	if err != nil {
		return err
	}
	if replay != nil {
		resp.Body = replay
		s.metrics.observe(directionResponse, outcomeSkipped, 0)
		return nil
	}
	resp.TransferEncoding = nil

	ctx := resp.Request.Context()
	tool, _ := ctx.Value(toolKey{}).(config.Tool)
	if tool == "" {
		tool = config.ToolProxy
	}

	body := data
	if !identity {
		body, err = decodeBody(data, encoding)
		if err != nil {
			logger.FromContext(ctx).Warn("passing through undecodable body", "encoding", encoding, "error", err)
			setBody(resp.Header, &resp.Body, &resp.ContentLength, data)
			s.metrics.observe(directionResponse, outcomeSkipped, 0)
			return nil
		}
	}

	msg := message.NewResponse(headerList(resp.Header), body)
	out, modified := s.handler.HandleBody(ctx, tool, resp.Request.URL.String(), msg)
	if !modified {
		setBody(resp.Header, &resp.Body, &resp.ContentLength, data)
		s.metrics.observe(directionResponse, outcomeUnchanged, 0)
		return nil
	}

	if !identity {
		resp.Header.Del("Content-Encoding")
	}
	setBody(resp.Header, &resp.Body, &resp.ContentLength, out.Body)
	s.metrics.observe(directionResponse, outcomeModified, len(body)-len(out.Body))
	return nil
}

func (s *Server) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Error("upstream request failed", "url", r.URL.String(), "error", err)
	w.WriteHeader(http.StatusBadGateway)
}

// setBody replaces a body and keeps the framing headers consistent with it
func setBody(h http.Header, body *io.ReadCloser, contentLength *int64, data []byte) {
	*body = io.NopCloser(bytes.NewReader(data))
	*contentLength = int64(len(data))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Del("Transfer-Encoding")
}
