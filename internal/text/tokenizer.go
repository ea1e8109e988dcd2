// Package text implements the deterministic text pipeline: tokenization,
// overlapping word-window chunking, and frequency-based entity extraction.
// Everything here is pure and side-effect free.
package text

import (
	"strings"
	"unicode"
)

// Tokenize normalizes raw text into lowercase candidate keyword tokens.
// Punctuation and zero-width marks become whitespace, whitespace runs
// collapse, and tokens that are too short, purely numeric, or stop words
// are dropped. Empty input yields an empty slice.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}

	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)

	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if isNumeric(tok) {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
