package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/watcher"
)

// FileRecords resolves record files seen by the watcher.
type FileRecords interface {
	Root() string
	Load(path string) (*record.Record, error)
	IDForPath(path string) (string, bool)
}

// LiveResult counts what one batch of file events changed.
type LiveResult struct {
	Indexed int
	Skipped int
	Removed int
	Failed  int
}

// LiveUpdater applies watcher events to the indexes as single-record writes.
type LiveUpdater struct {
	orch  *Orchestrator
	files FileRecords
}

// NewLiveUpdater creates an updater for records stored under files.Root().
func NewLiveUpdater(orch *Orchestrator, files FileRecords) *LiveUpdater {
	return &LiveUpdater{orch: orch, files: files}
}

// Run applies batches until events is closed or ctx is done.
func (u *LiveUpdater) Run(ctx context.Context, events <-chan []watcher.FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			res := u.Apply(ctx, batch)
			slog.Info("live_update",
				slog.Int("events", len(batch)),
				slog.Int("indexed", res.Indexed),
				slog.Int("skipped", res.Skipped),
				slog.Int("removed", res.Removed),
				slog.Int("failed", res.Failed))
		}
	}
}

// Apply handles one batch. Failures are logged and counted; the batch
// continues.
func (u *LiveUpdater) Apply(ctx context.Context, batch []watcher.FileEvent) LiveResult {
	var res LiveResult
	for _, ev := range batch {
		path := filepath.Join(u.files.Root(), ev.Path)
		var err error
		if ev.Operation.IsRemoval() {
			err = u.remove(ctx, path, &res)
		} else {
			err = u.upsert(ctx, path, &res)
		}
		if err != nil {
			res.Failed++
			slog.Warn("live_update_failed",
				slog.String("path", ev.Path),
				slog.String("op", ev.Operation.String()),
				slog.String("error", err.Error()))
		}
	}
	return res
}

func (u *LiveUpdater) upsert(ctx context.Context, path string, res *LiveResult) error {
	previousID, hadPrevious := u.files.IDForPath(path)

	r, err := u.files.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Gone again before we got to it.
		return u.removeID(ctx, previousID, hadPrevious, path, res)
	}
	if err != nil {
		return err
	}

	// The file now declares a different id; drop the old one.
	if hadPrevious && previousID != r.ID {
		if _, err := u.orch.RemoveRecord(ctx, previousID); err != nil {
			return err
		}
		res.Removed++
	}

	changed, err := u.orch.IndexIfChanged(ctx, r)
	if err != nil {
		return err
	}
	if changed {
		res.Indexed++
	} else {
		res.Skipped++
	}
	return nil
}

func (u *LiveUpdater) remove(ctx context.Context, path string, res *LiveResult) error {
	id, ok := u.files.IDForPath(path)
	return u.removeID(ctx, id, ok, path, res)
}

// removeID removes id, or the id implied by the file name when the path
// was never loaded.
func (u *LiveUpdater) removeID(ctx context.Context, id string, known bool, path string, res *LiveResult) error {
	if !known {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	removed, err := u.orch.RemoveRecord(ctx, id)
	if err != nil {
		return err
	}
	if removed {
		res.Removed++
	}
	return nil
}
