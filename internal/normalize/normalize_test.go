package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripLeadingBlankLines(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"Should keep content without leading blanks", "A\n\nB", "A\n\nB"},
		{"Should drop LF blank lines", "\n\nA\nB", "A\nB"},
		{"Should drop CRLF blank lines", "\r\n\r\nA\r\n", "A\r\n"},
		{"Should drop whitespace-only lines", " \t\r\n  \nA", "A"},
		{"Should keep indentation of the first content line", "\n  A", "  A"},
		{"Should leave interior blank runs alone", "\nA\n\n\n\nB", "A\n\n\n\nB"},
		{"Should reduce an all-blank buffer to one newline", "\r\n \t\r\n\n", "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(StripLeadingBlankLines([]byte(tc.in))))
		})
	}

	t.Run("Should return empty input unchanged", func(t *testing.T) {
		assert.Empty(t, StripLeadingBlankLines(nil))
	})

	t.Run("Should not touch binary bytes after the trimmed prefix", func(t *testing.T) {
		in := []byte{'\r', '\n', 0x89, 'P', 'N', 'G', '\n', '\n', 0x00, '\n'}
		assert.Equal(t, in[2:], StripLeadingBlankLines(in))
	})
}

func TestCollapseBlankLines(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"Should collapse an interior run to one blank line", "A\n\n\n\nB", "A\n\nB"},
		{"Should drop leading blank lines entirely", "\n\nA\nB", "A\nB"},
		{"Should keep a single blank between paragraphs", "A\n\nB\n", "A\n\nB\n"},
		{"Should treat whitespace-only lines as blank", "A\n  \n\t\nB", "A\n  \nB"},
		{"Should collapse trailing blank lines", "A\n\n\n", "A\n"},
		{"Should join with CRLF when any CRLF is present", "A\r\n\r\n\r\nB\nC", "A\r\n\r\nB\r\nC"},
		{"Should drop an all-blank buffer", "\n\n \n", ""},
		{"Should keep a single line verbatim", "no newline", "no newline"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CollapseBlankLines([]byte(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}

	t.Run("Should be idempotent", func(t *testing.T) {
		for _, tc := range cases {
			once, err := CollapseBlankLines([]byte(tc.in))
			require.NoError(t, err)
			twice, err := CollapseBlankLines(once)
			require.NoError(t, err)
			assert.Equal(t, string(once), string(twice), tc.name)
		}
	})

	t.Run("Should report decode failure for invalid UTF-8", func(t *testing.T) {
		_, err := CollapseBlankLines([]byte{'\n', '\n', 0xFF, 'A'})
		assert.ErrorIs(t, err, ErrDecodeFailure)
	})
}

func TestClean(t *testing.T) {
	t.Run("Should collapse valid text", func(t *testing.T) {
		assert.Equal(t, "A\n\nB", string(Clean([]byte("\nA\n\n\nB"))))
	})

	t.Run("Should fall back to leading trim on decode failure", func(t *testing.T) {
		in := []byte{'\n', '\n', 0xFF, '\n', '\n', '\n', 'A'}
		assert.Equal(t, in[2:], Clean(in))
	})
}

func TestDetectLineEnding(t *testing.T) {
	assert.Equal(t, CRLF, DetectLineEnding([]byte("a\nb\r\n")))
	assert.Equal(t, LF, DetectLineEnding([]byte("a\nb\rc")))
	assert.Equal(t, "\r\n", string(CRLF.Bytes()))
	assert.Equal(t, "LF", LF.String())
}

func TestIsOnlyWhitespace(t *testing.T) {
	assert.True(t, IsOnlyWhitespace([]byte(" \r\n\t")))
	assert.True(t, IsOnlyWhitespace(nil))
	assert.False(t, IsOnlyWhitespace([]byte(" x ")))
}
