package ui

import (
	"errors"

	"github.com/Aman-CERP/amanvoice/internal/index"
)

// Observe returns an index observer that forwards status changes to r.
// Register it with Orchestrator.Subscribe for the duration of a sync.
func Observe(r Renderer) index.Observer {
	return func(s index.Snapshot) {
		switch s.Phase {
		case index.PhaseSyncing:
			r.UpdateProgress(ProgressEvent{Stage: StageSyncing, Message: "detecting changes"})
		case index.PhaseIndexing:
			r.UpdateProgress(ProgressEvent{
				Stage:   StageIndexing,
				Current: s.ProcessedCount,
				Total:   s.TotalToProcess,
			})
		case index.PhaseError:
			if s.LastError != "" {
				r.AddError(ErrorEvent{Err: errors.New(s.LastError)})
			}
		}
	}
}

// CompletionFromSync converts a sync result for display.
func CompletionFromSync(res *index.SyncResult, info EmbedderInfo) CompletionStats {
	if res == nil {
		return CompletionStats{Embedder: info}
	}
	return CompletionStats{
		New:       res.New,
		Modified:  res.Modified,
		Unchanged: res.Unchanged,
		Deleted:   res.Deleted,
		Indexed:   res.Indexed,
		Failed:    res.Failed,
		Duration:  res.Duration,
		Embedder:  info,
	}
}

// ReportFailures sends each per-record failure of res to r.
func ReportFailures(r Renderer, res *index.SyncResult) {
	if res == nil {
		return
	}
	for _, f := range res.Failures {
		r.AddError(ErrorEvent{RecordID: f.RecordID, Err: errors.New(f.Error)})
	}
}
