package classify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_HeaderEvidence(t *testing.T) {
	t.Run("Should classify image content type as binary even for plain text bytes", func(t *testing.T) {
		headers := Headers{{Name: "content-type", Value: " image/png "}}
		res := Classify(headers, []byte("just some readable text"))
		assert.Equal(t, Binary, res.Verdict)
		assert.Equal(t, EvidenceContentType, res.Evidence)
		assert.Equal(t, "image/png", res.Detail)
		assert.False(t, IsText(headers, []byte("just some readable text")))
	})

	t.Run("Should classify JSON with charset parameter as text", func(t *testing.T) {
		headers := Headers{{Name: "Content-Type", Value: "application/json; charset=utf-8"}}
		res := Classify(headers, []byte{0x89, 'P', 'N', 'G'})
		assert.Equal(t, Text, res.Verdict)
		assert.Equal(t, EvidenceContentType, res.Evidence)
	})

	t.Run("Should treat structured suffix types as text", func(t *testing.T) {
		for _, ct := range []string{"application/vnd.github+json", "application/custom+xml", "TEXT/HTML"} {
			assert.Equal(t, Text, ClassifyContentType(ct).Verdict, ct)
		}
	})

	t.Run("Should match binary deny-list families", func(t *testing.T) {
		for _, ct := range []string{
			"audio/mpeg", "video/mp4", "font/woff2", "application/octet-stream",
			"application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/x-font-ttf", "application/pdf",
		} {
			assert.Equal(t, Binary, ClassifyContentType(ct).Verdict, ct)
		}
	})

	t.Run("Should fall through when content type matches neither list", func(t *testing.T) {
		headers := Headers{{Name: "Content-Type", Value: "application/x-custom"}}
		res := Classify(headers, []byte("hello world"))
		assert.Equal(t, Text, res.Verdict)
		assert.Equal(t, EvidencePrintableRatio, res.Evidence)
	})

	t.Run("Should fall through when header is missing", func(t *testing.T) {
		headers := Headers{{Name: "Host", Value: "example.com"}}
		res := Classify(headers, []byte{0x89, 'P', 'N', 'G', '\r', '\n'})
		assert.Equal(t, Binary, res.Verdict)
		assert.Equal(t, EvidenceSignature, res.Evidence)
	})
}

func TestClassify_Signatures(t *testing.T) {
	t.Run("Should classify ZIP signature as binary despite readable strings", func(t *testing.T) {
		body := append([]byte{'P', 'K', 0x03, 0x04}, []byte("readme.txt lots of readable words here")...)
		res := Classify(nil, body)
		assert.Equal(t, Binary, res.Verdict)
		assert.Equal(t, EvidenceSignature, res.Evidence)
		assert.Equal(t, "zip", res.Detail)
	})

	t.Run("Should match offset signatures", func(t *testing.T) {
		mp4 := []byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}
		sig, ok := MatchSignature(mp4)
		require.True(t, ok)
		assert.Equal(t, "mp4", sig.Label)
	})

	t.Run("Should treat PEM armour as binary", func(t *testing.T) {
		res := ClassifyBytes([]byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"))
		assert.Equal(t, Binary, res.Verdict)
		assert.Equal(t, "pem", res.Detail)
	})

	t.Run("Should not match buffers shorter than two bytes", func(t *testing.T) {
		_, ok := MatchSignature([]byte{0xFF})
		assert.False(t, ok)
	})

	t.Run("Should sniff binary formats missing from the table", func(t *testing.T) {
		cab := []byte("MSCF\x00\x00\x00\x00\x2c\x01\x00\x00")
		_, ok := MatchSignature(cab)
		require.False(t, ok)

		res := ClassifyBytes(cab)
		assert.Equal(t, Binary, res.Verdict)
		assert.Equal(t, EvidenceSniffed, res.Evidence)
		assert.Equal(t, "application/vnd.ms-cab-compressed", res.Detail)
	})

	t.Run("Should keep SVG and XML documents as text", func(t *testing.T) {
		bodies := []string{
			"<svg xmlns=\"http://www.w3.org/2000/svg\">\n\n\n\n<rect/>\n</svg>\n",
			"<?xml version=\"1.0\"?>\n<svg xmlns=\"http://www.w3.org/2000/svg\">\n\n\n<rect/>\n</svg>\n",
		}
		for _, body := range bodies {
			_, sniffed := sniffBinary([]byte(body))
			assert.False(t, sniffed)

			res := Classify(nil, []byte(body))
			assert.Equal(t, Text, res.Verdict)
			assert.NotEqual(t, EvidenceSniffed, res.Evidence)
		}
	})

	t.Run("Should require a PE header after an MZ prefix", func(t *testing.T) {
		res := ClassifyBytes([]byte("MZ notes\n\n\n\nend"))
		assert.Equal(t, Text, res.Verdict)

		exe := make([]byte, 0x48)
		copy(exe, "MZ")
		exe[0x3C] = 0x40
		copy(exe[0x40:], "PE\x00\x00")
		res = ClassifyBytes(exe)
		assert.Equal(t, Binary, res.Verdict)
		assert.Equal(t, EvidenceSignature, res.Evidence)
		assert.Equal(t, "pe", res.Detail)
	})

	t.Run("Should reject e_lfanew pointing outside the buffer", func(t *testing.T) {
		stub := make([]byte, 0x40)
		copy(stub, "MZ")
		stub[0x3C] = 0xFF
		assert.False(t, hasPEHeader(stub))
	})
}

func TestClassify_Bytes(t *testing.T) {
	t.Run("Should classify empty body as text", func(t *testing.T) {
		res := Classify(nil, nil)
		assert.Equal(t, Text, res.Verdict)
		assert.Equal(t, EvidenceEmpty, res.Evidence)
	})

	t.Run("Should classify NUL byte as binary", func(t *testing.T) {
		res := ClassifyBytes([]byte("abc\x00def"))
		assert.Equal(t, Binary, res.Verdict)
		assert.Equal(t, EvidenceNulByte, res.Evidence)
	})

	t.Run("Should classify UTF-8 text as text", func(t *testing.T) {
		res := ClassifyBytes([]byte("中文内容，测试 UTF-8 文本。\n第二行"))
		assert.Equal(t, Text, res.Verdict)
		assert.Zero(t, res.Ratio)
	})

	t.Run("Should classify control-heavy bytes as binary", func(t *testing.T) {
		body := bytes.Repeat([]byte{0x01, 0x02, 'a', 0x7F}, 64)
		res := ClassifyBytes(body)
		assert.Equal(t, Binary, res.Verdict)
		assert.Equal(t, EvidencePrintableRatio, res.Evidence)
		assert.InDelta(t, 0.75, res.Ratio, 0.001)
	})
}

func TestNonPrintableRatio(t *testing.T) {
	t.Run("Should count invalid UTF-8 bytes", func(t *testing.T) {
		assert.InDelta(t, 0.5, NonPrintableRatio([]byte{'a', 0xFF, 'b', 0xFE}), 0.001)
	})

	t.Run("Should stay under threshold at exactly thirty percent", func(t *testing.T) {
		data := append(bytes.Repeat([]byte{0x01}, 3), []byte("abcdefg")...)
		ratio := NonPrintableRatio(data)
		assert.InDelta(t, 0.3, ratio, 0.001)
		assert.Equal(t, Text, ClassifyBytes(data).Verdict)
	})

	t.Run("Should only sample the first SampleSize bytes", func(t *testing.T) {
		data := []byte(strings.Repeat("a", SampleSize) + strings.Repeat("\x01", SampleSize))
		assert.Zero(t, NonPrintableRatio(data))
	})

	t.Run("Should accept a multi-byte rune cut by the sample boundary", func(t *testing.T) {
		data := []byte(strings.Repeat("a", SampleSize-1) + "é")
		assert.Zero(t, NonPrintableRatio(data))
	})
}

func TestHeaders_Get(t *testing.T) {
	headers := Headers{{Name: "X-A", Value: "1"}, {Name: "CONTENT-TYPE", Value: "  text/plain "}}
	value, ok := headers.Get("content-type")
	require.True(t, ok)
	assert.Equal(t, "text/plain", value)

	_, ok = headers.Get("missing")
	assert.False(t, ok)
}
