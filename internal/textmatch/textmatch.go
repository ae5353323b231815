// file: internal/textmatch/textmatch.go
// version: 1.0.0
// guid: 21f27303-3407-41d0-b9c4-a7efa94e7856

// Package textmatch holds the single case-insensitive matching rule used by
// both storage backends, book search and the category classifier.
package textmatch

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize composes s to NFC and case-folds it. Hangul typed on some
// keyboards arrives decomposed, so composition has to come first.
// A Caser is stateful, so each call gets its own.
func Normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// Contains reports whether needle occurs in haystack after normalization.
// An empty needle matches everything.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return true
	}
	return strings.Contains(Normalize(haystack), n)
}

// ContainsAny reports whether needle occurs in any of fields.
func ContainsAny(needle string, fields ...string) bool {
	n := Normalize(needle)
	if n == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(Normalize(f), n) {
			return true
		}
	}
	return false
}

// FuzzyAny is the typo-tolerant variant of ContainsAny: the needle's
// characters must appear in order in one of the fields.
func FuzzyAny(needle string, fields ...string) bool {
	n := Normalize(needle)
	if n == "" {
		return true
	}
	for _, f := range fields {
		if fuzzy.MatchNormalizedFold(n, Normalize(f)) {
			return true
		}
	}
	return false
}

// Rank returns the fuzzy distance of needle against target, or -1 when it
// does not match. Lower is closer.
func Rank(needle, target string) int {
	return fuzzy.RankMatchNormalizedFold(Normalize(needle), Normalize(target))
}

// separators split text into tokens for whole-word keyword matching.
func separator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '/', '>', ',', '·', '(', ')', '[', ']', '-':
		return true
	}
	return false
}

// Tokens splits normalized s on whitespace and label punctuation.
func Tokens(s string) []string {
	return strings.FieldsFunc(Normalize(s), separator)
}
