package classify

import "unicode/utf8"

const (
	// SampleSize bounds the printable-ratio scan.
	SampleSize = 1024
	// MaxNonPrintableRatio is the non-printable fraction above which a sample is binary.
	MaxNonPrintableRatio = 0.30
)

// NonPrintableRatio returns the fraction of the first SampleSize bytes that
// are neither printable ASCII, tab/CR/LF, nor part of a valid UTF-8 sequence.
func NonPrintableRatio(data []byte) float64 {
	limit := len(data)
	if limit > SampleSize {
		limit = SampleSize
	}
	if limit == 0 {
		return 0
	}

	nonPrintable := 0
	for i := 0; i < limit; {
		b := data[i]
		if isPrintable(b) {
			i++
			continue
		}
		if b >= utf8.RuneSelf {
			// Decode against the full buffer so a sequence cut by the
			// sample boundary is still judged on its own bytes.
			r, size := utf8.DecodeRune(data[i:])
			if r != utf8.RuneError || size > 1 {
				i += size
				continue
			}
		}
		nonPrintable++
		i++
	}

	return float64(nonPrintable) / float64(limit)
}

func isPrintable(b byte) bool {
	return (b >= 32 && b <= 126) || b == '\t' || b == '\n' || b == '\r'
}
