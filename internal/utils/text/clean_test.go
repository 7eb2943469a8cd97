package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"single word", "hello", "hello"},
		{"multiple spaces", "hello    world", "hello world"},
		{"tabs and newlines", "hello\t\nworld", "hello world"},
		{"leading and trailing", "  hello world  ", "hello world"},
		{"nbsp", "hello world", "hello world"},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CollapseWhitespace(tt.input))
		})
	}
}

func TestTruncateBytes(t *testing.T) {
	t.Run("short input unchanged", func(t *testing.T) {
		assert.Equal(t, "abc", TruncateBytes("abc", 10))
	})

	t.Run("truncates and appends ellipsis", func(t *testing.T) {
		got := TruncateBytes(strings.Repeat("a", 100), 10)
		assert.Equal(t, strings.Repeat("a", 10)+"...", got)
	})

	t.Run("does not split multibyte runes", func(t *testing.T) {
		// é is 2 bytes; cutting at byte 3 would land mid-rune
		got := TruncateBytes("aéé", 3)
		assert.True(t, strings.HasSuffix(got, "..."))
		assert.Equal(t, "aé...", got)
	})

	t.Run("zero max is a no-op", func(t *testing.T) {
		assert.Equal(t, "abc", TruncateBytes("abc", 0))
	})
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "ab...", TruncateRunes("abcdef", 2))
	assert.Equal(t, "ééé", TruncateRunes("ééé", 3))
}
