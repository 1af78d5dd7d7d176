package store

import (
	"strings"
	"unicode"
)

// DefaultStopWords are common English words dropped from keyword queries.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"in", "into", "is", "it", "of", "on", "or", "that", "the", "this",
	"to", "was", "were", "with",
}

// Tokenize splits text on anything that is not a letter or digit and
// lowercases the pieces.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// QueryTerms returns the lowercase whitespace-separated terms of a query.
// These drive per-field match attribution, not ranking.
func QueryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
