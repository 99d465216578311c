package message

import (
	"bytes"
	"fmt"

	"github.com/quickkly/tidyhttp/internal/classify"
	"github.com/quickkly/tidyhttp/internal/logger"
	"github.com/quickkly/tidyhttp/internal/normalize"
)

// Processor removes extra blank lines from HTTP messages. It holds no
// per-message state and is safe for concurrent use.
type Processor struct {
	log logger.Logger
}

// NewProcessor creates a processor; a nil logger uses the default logger
func NewProcessor(log logger.Logger) *Processor {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Processor{log: log}
}

// Process normalizes a complete raw message. Text bodies have blank-line
// runs collapsed; other bodies only lose leading blank lines. The header
// block and separator are kept byte for byte. A buffer without a
// separator, or any internal failure, yields the input unchanged.
func (p *Processor) Process(raw []byte) (res Result) {
	defer p.recoverTo(&res, raw)

	head, body, boundary, err := Split(raw)
	if err != nil {
		return unchanged(raw)
	}

	cleaned := p.cleanBody(ParseHeaders(head), body)
	if bytes.Equal(cleaned, body) {
		return unchanged(raw)
	}

	out := make([]byte, 0, len(head)+len(boundary.Separator())+len(cleaned))
	out = append(out, head...)
	out = append(out, boundary.Separator()...)
	out = append(out, cleaned...)
	return Result{Bytes: out, Modified: true}
}

// ProcessBody strips leading blank lines from a pre-split message body.
// Size-declaring headers are left for the host to recompute.
func (p *Processor) ProcessBody(msg Message) (out Message, modified bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("body processing failed, keeping original", "kind", msg.Kind, "panic", fmt.Sprint(r))
			out, modified = msg, false
		}
	}()

	stripped := normalize.StripLeadingBlankLines(msg.Body)
	if bytes.Equal(stripped, msg.Body) {
		return msg, false
	}
	return msg.WithBody(stripped), true
}

// Classify reports how the body of a raw message would be treated
func (p *Processor) Classify(raw []byte) (classify.Result, error) {
	head, body, _, err := Split(raw)
	if err != nil {
		return classify.Result{}, err
	}
	return classifyBody(ParseHeaders(head), body), nil
}

func (p *Processor) cleanBody(headers classify.Headers, body []byte) []byte {
	verdict := classifyBody(headers, body)
	if !verdict.IsText() {
		return normalize.StripLeadingBlankLines(body)
	}

	cleaned, err := normalize.CollapseBlankLines(body)
	if err != nil {
		p.log.Debug("body is not valid text, trimming leading blank lines only", "error", err)
		return normalize.StripLeadingBlankLines(body)
	}
	return cleaned
}

// classifyBody ignores leading blank padding so the verdict for a body is
// the same before and after it has been cleaned.
func classifyBody(headers classify.Headers, body []byte) classify.Result {
	return classify.Classify(headers, normalize.StripLeadingBlankLines(body))
}

func (p *Processor) recoverTo(res *Result, raw []byte) {
	if r := recover(); r != nil {
		p.log.Warn("message processing failed, keeping original", "panic", fmt.Sprint(r))
		*res = unchanged(raw)
	}
}
