package classify

import (
	"bytes"
	"fmt"
	"strings"
)

// Verdict is the outcome of a single classification step
type Verdict int

const (
	// Unknown means the step found no decisive evidence; the next step runs.
	Unknown Verdict = iota
	Text
	Binary
)

func (v Verdict) String() string {
	switch v {
	case Text:
		return "text"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Evidence names the signal that decided a verdict
type Evidence int

const (
	EvidenceNone Evidence = iota
	EvidenceEmpty
	EvidenceContentType
	EvidenceSignature
	EvidenceSniffed
	EvidenceNulByte
	EvidencePrintableRatio
)

func (e Evidence) String() string {
	switch e {
	case EvidenceEmpty:
		return "empty"
	case EvidenceContentType:
		return "content-type"
	case EvidenceSignature:
		return "signature"
	case EvidenceSniffed:
		return "sniffed"
	case EvidenceNulByte:
		return "nul-byte"
	case EvidencePrintableRatio:
		return "printable-ratio"
	default:
		return "none"
	}
}

func (e Evidence) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Result describes how a body was classified
type Result struct {
	Verdict  Verdict  `json:"verdict"`
	Evidence Evidence `json:"evidence"`
	// Detail is the matched MIME type or signature label, if any.
	Detail string `json:"detail,omitempty"`
	// Ratio is the non-printable fraction of the sample; only set for EvidencePrintableRatio.
	Ratio float64 `json:"ratio,omitempty"`
}

// IsText reports whether the result allows treating the body as text
func (r Result) IsText() bool {
	return r.Verdict == Text
}

func (r Result) String() string {
	if r.Detail != "" {
		return fmt.Sprintf("%s (%s: %s)", r.Verdict, r.Evidence, r.Detail)
	}
	if r.Evidence == EvidencePrintableRatio {
		return fmt.Sprintf("%s (%s: %.2f)", r.Verdict, r.Evidence, r.Ratio)
	}
	return fmt.Sprintf("%s (%s)", r.Verdict, r.Evidence)
}

// Header is a single name/value pair as supplied by the host
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list with case-insensitive lookup
type Headers []Header

// Get returns the trimmed value of the first header named name
func (h Headers) Get(name string) (string, bool) {
	for _, header := range h {
		if strings.EqualFold(header.Name, name) {
			return strings.TrimSpace(header.Value), true
		}
	}
	return "", false
}

// IsText reports whether body is safe to treat as text. headers may be nil.
func IsText(headers Headers, body []byte) bool {
	return Classify(headers, body).IsText()
}

// Classify runs the classification steps in priority order and returns the
// first decisive result. It never returns Unknown.
func Classify(headers Headers, body []byte) Result {
	// 1. Header evidence
	if headers != nil {
		if contentType, ok := headers.Get("Content-Type"); ok {
			if res := ClassifyContentType(contentType); res.Verdict != Unknown {
				return res
			}
		}
	}

	return ClassifyBytes(body)
}

// ClassifyBytes classifies raw bytes when no header evidence is available
func ClassifyBytes(body []byte) Result {
	if len(body) == 0 {
		return Result{Verdict: Text, Evidence: EvidenceEmpty}
	}

	// 2. Known binary signatures
	if sig, ok := MatchSignature(body); ok {
		return Result{Verdict: Binary, Evidence: EvidenceSignature, Detail: sig.Label}
	}
	if mime, ok := sniffBinary(body); ok {
		return Result{Verdict: Binary, Evidence: EvidenceSniffed, Detail: mime}
	}

	// 3. NUL bytes are decisive
	if bytes.IndexByte(body, 0) >= 0 {
		return Result{Verdict: Binary, Evidence: EvidenceNulByte}
	}

	// 4. Printable ratio over the sample
	ratio := NonPrintableRatio(body)
	res := Result{Verdict: Text, Evidence: EvidencePrintableRatio, Ratio: ratio}
	if ratio > MaxNonPrintableRatio {
		res.Verdict = Binary
	}
	return res
}
