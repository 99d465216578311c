// Package handler connects intercepted traffic to the message processor,
// applying the settings gate and logging every substitution.
package handler

import (
	"context"

	"github.com/quickkly/tidyhttp/internal/config"
	"github.com/quickkly/tidyhttp/internal/logger"
	"github.com/quickkly/tidyhttp/internal/message"
)

// DefaultMinMessageSize is the size below which raw messages are never rewritten
const DefaultMinMessageSize = 10

// Intercepted is a raw message handed over by the host
type Intercepted struct {
	Tool config.Tool
	// URL of the request, or of the initiating request for responses.
	URL string
	Raw []byte
}

// Handler applies the processor to traffic the settings allow
type Handler struct {
	settings       *config.Settings
	processor      *message.Processor
	minMessageSize int
}

// Option configures a Handler
type Option func(*Handler)

// WithMinMessageSize overrides DefaultMinMessageSize
func WithMinMessageSize(n int) Option {
	return func(h *Handler) {
		h.minMessageSize = n
	}
}

// New creates a handler
func New(settings *config.Settings, processor *message.Processor, opts ...Option) *Handler {
	h := &Handler{
		settings:       settings,
		processor:      processor,
		minMessageSize: DefaultMinMessageSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewFromConfig builds a handler from a loaded configuration
func NewFromConfig(cfg *config.Config, log logger.Logger) *Handler {
	return New(config.NewSettings(cfg), message.NewProcessor(log), WithMinMessageSize(cfg.Processing.MinMessageSize))
}

// Settings returns the gate this handler consults
func (h *Handler) Settings() *config.Settings {
	return h.settings
}

// HandleRequest processes a raw request about to be sent
func (h *Handler) HandleRequest(ctx context.Context, in Intercepted) message.Result {
	return h.handle(ctx, message.KindRequest, in)
}

// HandleResponse processes a raw response as it is received
func (h *Handler) HandleResponse(ctx context.Context, in Intercepted) message.Result {
	return h.handle(ctx, message.KindResponse, in)
}

func (h *Handler) handle(ctx context.Context, kind message.Kind, in Intercepted) message.Result {
	log := logger.FromContext(ctx).With("kind", kind, "tool", in.Tool)

	if !h.settings.ShouldProcess(in.Tool, in.URL) {
		log.Debug("skipping message outside enabled tools or scope", "url", in.URL)
		return message.Result{Bytes: in.Raw}
	}
	if len(in.Raw) < h.minMessageSize {
		return message.Result{Bytes: in.Raw}
	}

	res := h.processor.Process(in.Raw)
	if res.Modified {
		log.Info("removed extra blank lines", "url", in.URL, "before", len(in.Raw), "after", len(res.Bytes))
	}
	return res
}

// HandleBody processes a message the host has already split into head and
// body. The caller must recompute Content-Length when modified is true.
func (h *Handler) HandleBody(ctx context.Context, tool config.Tool, url string, msg message.Message) (message.Message, bool) {
	log := logger.FromContext(ctx).With("kind", msg.Kind, "tool", tool)

	if !h.settings.ShouldProcess(tool, url) {
		log.Debug("skipping message outside enabled tools or scope", "url", url)
		return msg, false
	}

	out, modified := h.processor.ProcessBody(msg)
	if modified {
		log.Info("removed leading blank lines", "url", url, "before", len(msg.Body), "after", len(out.Body))
	}
	return out, modified
}
