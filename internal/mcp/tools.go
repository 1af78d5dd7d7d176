package mcp

import (
	"time"

	"github.com/Aman-CERP/amanvoice/internal/index"
)

// timeFormat renders timestamps in tool output.
const timeFormat = time.RFC3339

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"what to look for in the voice notes"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"matching voice notes, best first"`
	Count   int                  `json:"count"`
	// Indexing is true when a sync was running, so results may be incomplete.
	Indexing bool `json:"indexing,omitempty"`
}

// SearchResultOutput is one matching record.
type SearchResultOutput struct {
	RecordID    string   `json:"record_id"`
	URI         string   `json:"uri" jsonschema:"resource URI for the full record"`
	Title       string   `json:"title,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty" jsonschema:"when the note was recorded, RFC 3339"`
	Tags        []string `json:"tags,omitempty"`
	Score       float64  `json:"score" jsonschema:"fused reciprocal rank score"`
	Snippet     string   `json:"snippet,omitempty"`
	Field       string   `json:"field,omitempty" jsonschema:"field the snippet came from"`
	MatchReason string   `json:"match_reason" jsonschema:"which searches found the record"`
}

// IndexStatusInput is the (empty) input schema for index_status.
type IndexStatusInput struct{}

// IndexStatusOutput reports index health.
type IndexStatusOutput struct {
	Records    int           `json:"records"`
	Chunks     int           `json:"chunks"`
	SizeBytes  int64         `json:"size_bytes"`
	Keyword    KeywordStatus `json:"keyword"`
	Embeddings EmbeddingInfo `json:"embeddings"`
	Status     SyncStatus    `json:"status"`
}

// SyncStatus is the orchestrator's current activity.
type SyncStatus struct {
	Phase      string  `json:"phase" jsonschema:"idle, syncing, indexing or error"`
	Total      int     `json:"total,omitempty"`
	Processed  int     `json:"processed,omitempty"`
	Progress   float64 `json:"progress,omitempty"`
	LastError  string  `json:"last_error,omitempty"`
	LastSyncAt string  `json:"last_sync_at,omitempty"`
}

// KeywordStatus describes the keyword index.
type KeywordStatus struct {
	Backend   string `json:"backend"`
	Documents int    `json:"documents"`
	Ready     bool   `json:"ready" jsonschema:"false until the next search or sync rebuilds it"`
}

// EmbeddingInfo describes the active embedder.
type EmbeddingInfo struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// SyncIndexInput is the input schema for sync_index.
type SyncIndexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"clear the vector store and re-embed every record"`
}

// SyncIndexOutput is the result of sync_index.
type SyncIndexOutput struct {
	New        int             `json:"new"`
	Modified   int             `json:"modified"`
	Unchanged  int             `json:"unchanged"`
	Deleted    int             `json:"deleted"`
	Indexed    int             `json:"indexed"`
	Failed     int             `json:"failed"`
	Failures   []RecordFailure `json:"failures,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// RecordFailure is one note that could not be indexed.
type RecordFailure struct {
	RecordID string `json:"record_id"`
	Error    string `json:"error"`
}

func toSyncStatus(s index.Snapshot) SyncStatus {
	out := SyncStatus{
		Phase:     string(s.Phase),
		Total:     s.TotalToProcess,
		Processed: s.ProcessedCount,
		Progress:  s.Progress,
		LastError: s.LastError,
	}
	if !s.LastSyncAt.IsZero() {
		out.LastSyncAt = s.LastSyncAt.Format(timeFormat)
	}
	return out
}

func toSyncIndexOutput(r *index.SyncResult) SyncIndexOutput {
	if r == nil {
		return SyncIndexOutput{}
	}
	out := SyncIndexOutput{
		New:        r.New,
		Modified:   r.Modified,
		Unchanged:  r.Unchanged,
		Deleted:    r.Deleted,
		Indexed:    r.Indexed,
		Failed:     r.Failed,
		DurationMS: r.Duration.Milliseconds(),
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, RecordFailure{RecordID: f.RecordID, Error: f.Error})
	}
	return out
}
