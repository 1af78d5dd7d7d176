package search

import (
	"sort"
	"strings"

	"github.com/Aman-CERP/amanvoice/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// snippetRunes bounds snippets built from whole records.
const snippetRunes = 240

// RRFFusion merges vector and keyword rankings.
//
// Every hit contributes 1/(K + rank) with rank 0-based. Vector hits are
// bucketed by (record, field, chunk) and keyword hits by (record, "full", 0);
// buckets are then collapsed per record by summing.
type RRFFusion struct {
	K int
}

// NewRRFFusion creates a fusion with constant k; k <= 0 means 60.
func NewRRFFusion(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Score returns the contribution of 0-based rank.
func (f *RRFFusion) Score(rank int) float64 {
	return 1.0 / float64(f.K+rank)
}

type bucketKey struct {
	recordID   string
	field      store.Field
	chunkIndex int
}

type bucket struct {
	key     bucketKey
	score   float64
	snippet string
}

// Fuse merges the rankings into one Result per record, sorted by score
// descending, then records found by both searches, then record id. Either
// input may be nil. Results are not enriched.
func (f *RRFFusion) Fuse(vector []*store.VectorHit, keyword []*store.KeywordHit) []*Result {
	buckets := make(map[bucketKey]*bucket, len(vector)+len(keyword))
	var order []*bucket

	add := func(key bucketKey, rank int, snippet string) {
		b, ok := buckets[key]
		if !ok {
			b = &bucket{key: key, snippet: snippet}
			buckets[key] = b
			order = append(order, b)
		}
		b.score += f.Score(rank)
	}

	for rank, hit := range vector {
		add(bucketKey{hit.RecordID, hit.Field, hit.ChunkIndex}, rank, hit.Text)
	}
	for rank, hit := range keyword {
		if hit.Record == nil {
			continue
		}
		add(bucketKey{hit.Record.ID, store.FieldFull, 0}, rank, recordSnippet(hit))
	}

	merged := make(map[string]*Result)
	best := make(map[string]float64)
	for _, b := range order {
		res, ok := merged[b.key.recordID]
		if !ok {
			res = &Result{RecordID: b.key.recordID, VectorRank: -1, KeywordRank: -1}
			merged[b.key.recordID] = res
		}
		res.Score += b.score
		if !ok || b.score > best[b.key.recordID] {
			best[b.key.recordID] = b.score
			res.Snippet = b.snippet
			res.Field = b.key.field
			res.ChunkIndex = b.key.chunkIndex
		}
	}

	// First-seen provenance per side.
	for rank, hit := range vector {
		if res := merged[hit.RecordID]; res.VectorRank < 0 {
			res.VectorRank = rank
			res.VectorScore = hit.Score
		}
	}
	for rank, hit := range keyword {
		if hit.Record == nil {
			continue
		}
		if res := merged[hit.Record.ID]; res.KeywordRank < 0 {
			res.KeywordRank = rank
			res.KeywordScore = hit.Score
			res.MatchedFields = hit.MatchedFields
		}
	}

	results := make([]*Result, 0, len(merged))
	for _, res := range merged {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		return less(results[i], results[j])
	})
	return results
}

// less orders by score, then both-match first, then record id.
func less(a, b *Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.IsBothMatch() != b.IsBothMatch() {
		return a.IsBothMatch()
	}
	return a.RecordID < b.RecordID
}

// recordSnippet picks display text for a whole-record keyword hit.
func recordSnippet(hit *store.KeywordHit) string {
	r := hit.Record
	for _, s := range []string{r.Summary, r.Text, r.Context, r.Title} {
		if s = strings.TrimSpace(s); s != "" {
			return truncate(s, snippetRunes)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
