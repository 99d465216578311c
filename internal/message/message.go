// Package message splits raw HTTP messages at the header/body boundary and
// applies blank-line normalization to the body.
package message

import (
	"strconv"

	"github.com/quickkly/tidyhttp/internal/classify"
)

// Kind discriminates requests from responses
type Kind int

const (
	KindRequest Kind = iota
	KindResponse
)

func (k Kind) String() string {
	if k == KindResponse {
		return "response"
	}
	return "request"
}

// Message is a request or response whose head and body the host has
// already separated.
type Message struct {
	Kind    Kind
	Headers classify.Headers
	Body    []byte
}

// NewRequest creates a request message
func NewRequest(headers classify.Headers, body []byte) Message {
	return Message{Kind: KindRequest, Headers: headers, Body: body}
}

// NewResponse creates a response message
func NewResponse(headers classify.Headers, body []byte) Message {
	return Message{Kind: KindResponse, Headers: headers, Body: body}
}

// Header returns the trimmed value of the named header
func (m Message) Header(name string) string {
	value, _ := m.Headers.Get(name)
	return value
}

// ContentLength returns the declared Content-Length or -1
func (m Message) ContentLength() int {
	value, ok := m.Headers.Get("Content-Length")
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// WithBody returns a copy of m carrying body
func (m Message) WithBody(body []byte) Message {
	m.Body = body
	return m
}

// Result is the outcome of processing a raw buffer
type Result struct {
	Bytes    []byte
	Modified bool
}

func unchanged(raw []byte) Result {
	return Result{Bytes: raw}
}
