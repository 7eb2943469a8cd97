package cluster

import (
	"sort"
	"strings"
	"unicode"
)

const (
	minTokenLen   = 3
	maxLabelWords = 4

	titleWeight   = 3.0
	summaryWeight = 1.0
)

// FallbackLabel is used when no usable keywords survive filtering.
const FallbackLabel = "Uncategorized"

// Document is the text of one article offered to the labeler.
type Document struct {
	Title   string
	Summary string
}

// Label derives a human-readable label for a group of articles from
// their most frequent keywords. Title words count three times as much as
// summary words. Near-duplicate keywords (one containing the other) are
// collapsed into the higher-scoring form.
func Label(docs []Document) string {
	scores := make(map[string]float64)
	for _, d := range docs {
		for _, tok := range tokenize(d.Title) {
			scores[tok] += titleWeight
		}
		for _, tok := range tokenize(d.Summary) {
			scores[tok] += summaryWeight
		}
	}
	if len(scores) == 0 {
		return FallbackLabel
	}

	type scored struct {
		token string
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for tok, s := range scores {
		ranked = append(ranked, scored{token: tok, score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].token < ranked[j].token
	})

	picked := make([]string, 0, maxLabelWords)
	for _, c := range ranked {
		if len(picked) == maxLabelWords {
			break
		}
		if overlapsPicked(c.token, picked) {
			continue
		}
		picked = append(picked, capitalize(c.token))
	}
	if len(picked) == 0 {
		return FallbackLabel
	}
	return strings.Join(picked, ", ")
}

// overlapsPicked rejects tokens that contain, or are contained in, an
// already-chosen token ("market" vs "markets").
func overlapsPicked(token string, picked []string) bool {
	for _, p := range picked {
		lower := strings.ToLower(p)
		if strings.Contains(lower, token) || strings.Contains(token, lower) {
			return true
		}
	}
	return false
}

// tokenize lowercases the text and yields alphabetic runs of at least
// minTokenLen characters that are not stop words.
func tokenize(s string) []string {
	s = strings.ToLower(s)
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) < minTokenLen {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
