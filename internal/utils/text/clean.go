// Package text provides text normalization utilities shared by the
// extractor, the embedding client, and the keyword labeler.
package text

import (
	"strings"
	"unicode"
)

// CollapseWhitespace replaces every run of whitespace (spaces, tabs,
// newlines, NBSP) with a single space and trims the result.
func CollapseWhitespace(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == ' ' {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// TruncateBytes truncates s to at most max bytes without splitting a rune
// and appends an ellipsis marker when truncation occurred.
func TruncateBytes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// TruncateRunes truncates s to at most max runes and appends an ellipsis
// marker when truncation occurred.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
