package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"Q3 roadmap: v2.0", []string{"q3", "roadmap", "v2", "0"}},
		{"Café naïve", []string{"café", "naïve"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryTerms_SplitsOnWhitespaceOnly(t *testing.T) {
	assert.Equal(t, []string{"project", "alpha-2"}, QueryTerms("  Project\tALPHA-2 "))
	assert.Empty(t, QueryTerms("   "))
}

func TestFilterStopWords(t *testing.T) {
	stop := BuildStopWordMap([]string{"The", "of"})
	assert.Equal(t, []string{"end", "story"}, FilterStopWords([]string{"the", "end", "of", "story"}, stop))
}
