// Package index keeps the vector store and keyword index in step with the
// record provider.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/amanvoice/internal/chunk"
	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/fingerprint"
	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

const (
	syncKey    = "sync"
	keywordKey = "keyword"
)

// KeywordIndexer is the part of the keyword index the orchestrator drives.
type KeywordIndexer interface {
	BuildAsOf(ctx context.Context, records []*record.Record, gen uint64) error
	Generation() uint64
	Invalidate()
	NeedsRebuild() bool
	Stats() *store.KeywordIndexStats
}

// Config wires the orchestrator's collaborators. All fields are required.
type Config struct {
	Records record.Provider
	Vectors store.VectorStore
	Keyword KeywordIndexer
	Chunker chunk.Chunker
}

// RecordFailure is one record that could not be indexed or removed.
type RecordFailure struct {
	RecordID string `json:"record_id"`
	Error    string `json:"error"`
}

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	New       int             `json:"new"`
	Modified  int             `json:"modified"`
	Unchanged int             `json:"unchanged"`
	Deleted   int             `json:"deleted"`
	Indexed   int             `json:"indexed"`
	Failed    int             `json:"failed"`
	Failures  []RecordFailure `json:"failures,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

// Stats aggregates both indexes and the orchestrator status.
type Stats struct {
	Vector  *store.VectorStoreStats  `json:"vector"`
	Keyword *store.KeywordIndexStats `json:"keyword"`
	Status  Snapshot                 `json:"status"`
}

// Orchestrator coordinates change detection, indexing and keyword rebuilds.
type Orchestrator struct {
	records record.Provider
	vectors store.VectorStore
	keyword KeywordIndexer
	chunker chunk.Chunker

	status *Status
	flight singleflight.Group
	locks  *keyedMutex

	// syncMu keeps ForceFullReindex's clear from running under a live sync.
	syncMu sync.Mutex
}

// NewOrchestrator creates an orchestrator over initialized stores.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Records == nil:
		return nil, amanerrors.ValidationError("record provider is required", nil)
	case cfg.Vectors == nil:
		return nil, amanerrors.ValidationError("vector store is required", nil)
	case cfg.Keyword == nil:
		return nil, amanerrors.ValidationError("keyword index is required", nil)
	case cfg.Chunker == nil:
		return nil, amanerrors.ValidationError("chunker is required", nil)
	}

	return &Orchestrator{
		records: cfg.Records,
		vectors: cfg.Vectors,
		keyword: cfg.Keyword,
		chunker: cfg.Chunker,
		status:  NewStatus(),
		locks:   newKeyedMutex(),
	}, nil
}

// Subscribe registers an observer for status changes.
func (o *Orchestrator) Subscribe(fn Observer) (unsubscribe func()) {
	return o.status.Subscribe(fn)
}

// Status returns the current status snapshot.
func (o *Orchestrator) Status() Snapshot {
	return o.status.Snapshot()
}

// SyncIndexes reconciles both indexes with the record provider.
//
// Only one sync runs at a time: callers arriving while a sync is in flight
// wait for it and receive the same result. The sync itself ignores caller
// cancellation; ctx only bounds how long this caller waits.
func (o *Orchestrator) SyncIndexes(ctx context.Context) (*SyncResult, error) {
	detached := context.WithoutCancel(ctx)
	ch := o.flight.DoChan(syncKey, func() (any, error) {
		return o.runSync(detached)
	})

	select {
	case res := <-ch:
		result, _ := res.Val.(*SyncResult)
		return result, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) runSync(ctx context.Context) (*SyncResult, error) {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()

	start := time.Now()
	o.status.begin(PhaseSyncing, 0)

	// Live writes during this pass bump the generation and keep the
	// rebuilt keyword index stale.
	gen := o.keyword.Generation()

	plan, err := o.classify(ctx)
	if err != nil {
		o.status.fail(err)
		return nil, err
	}

	result := &SyncResult{
		New:       len(plan.New),
		Modified:  len(plan.Modified),
		Unchanged: len(plan.Unchanged),
		Deleted:   len(plan.Deleted),
	}

	slog.Info("sync_classified",
		slog.Int("new", result.New),
		slog.Int("modified", result.Modified),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("deleted", result.Deleted))

	toIndex := plan.ToIndex()
	o.status.begin(PhaseIndexing, len(toIndex)+len(plan.Deleted))

	synced := make([]*record.Record, 0, len(plan.Unchanged)+len(toIndex))
	synced = append(synced, plan.Unchanged...)

	for _, r := range toIndex {
		if err := o.indexRecord(ctx, r); err != nil {
			slog.Warn("record_index_failed",
				slog.String("record_id", r.ID),
				slog.String("error", err.Error()))
			result.addFailure(r.ID, err)
		} else {
			result.Indexed++
			synced = append(synced, r)
		}
		o.status.advance()
	}

	for _, id := range plan.Deleted {
		if _, err := o.removeRecord(ctx, id); err != nil {
			slog.Warn("record_remove_failed",
				slog.String("record_id", id),
				slog.String("error", err.Error()))
			result.addFailure(id, err)
		}
		o.status.advance()
	}

	// Rebuild even when some records failed, from whatever synced.
	if err := o.keyword.BuildAsOf(ctx, synced, gen); err != nil {
		err = fmt.Errorf("rebuild keyword index: %w", err)
		o.status.fail(err)
		result.Duration = time.Since(start)
		return result, err
	}

	result.Duration = time.Since(start)
	o.status.finish(time.Now())

	slog.Info("sync_complete",
		slog.Int("indexed", result.Indexed),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", result.Duration))

	return result, nil
}

func (o *Orchestrator) classify(ctx context.Context) (*Plan, error) {
	// Indexed ids first: a record written live between the two listings
	// then shows up as unchanged or new, never as deleted.
	indexedIDs, err := o.vectors.ListIndexedRecordIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed records: %w", err)
	}

	records, err := o.records.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	stored := make(map[string]string, len(records))
	for _, r := range records {
		if r == nil || r.ID == "" {
			continue
		}
		fp, ok, err := o.vectors.GetFingerprint(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("read manifest for %s: %w", r.ID, err)
		}
		if ok {
			stored[r.ID] = fp
		}
	}

	return Classify(records, stored, indexedIDs), nil
}

func (r *SyncResult) addFailure(id string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, RecordFailure{RecordID: id, Error: err.Error()})
}

// IndexRecord chunks and stores one record, then invalidates the keyword
// index. It blocks until the write is complete.
func (o *Orchestrator) IndexRecord(ctx context.Context, r *record.Record) error {
	if err := o.indexRecord(ctx, r); err != nil {
		return err
	}
	o.keyword.Invalidate()
	return nil
}

// IndexIfChanged indexes r only when its fingerprint differs from the
// manifest, and reports whether it did.
func (o *Orchestrator) IndexIfChanged(ctx context.Context, r *record.Record) (bool, error) {
	if r == nil || r.ID == "" {
		return false, amanerrors.ValidationError("record id is required", nil)
	}
	stored, ok, err := o.vectors.GetFingerprint(ctx, r.ID)
	if err != nil {
		return false, fmt.Errorf("read manifest for %s: %w", r.ID, err)
	}
	if ok && !fingerprint.HasChanged(r, stored) {
		return false, nil
	}
	if err := o.IndexRecord(ctx, r); err != nil {
		return false, err
	}
	return true, nil
}

// indexRecord replaces a record's chunks, then writes its manifest entry.
func (o *Orchestrator) indexRecord(ctx context.Context, r *record.Record) error {
	if r == nil || r.ID == "" {
		return amanerrors.ValidationError("record id is required", nil)
	}

	unlock := o.locks.lock(r.ID)
	defer unlock()

	fp := fingerprint.Compute(r)

	chunks, err := o.chunker.ChunkRecord(ctx, r)
	if err != nil {
		return amanerrors.New(amanerrors.ErrCodeIndexFailed, "chunk record", err).
			WithDetail("record_id", r.ID)
	}

	if err := o.vectors.UpsertChunks(ctx, r.ID, chunks); err != nil {
		return amanerrors.New(amanerrors.ErrCodeIndexFailed, "store chunks", err).
			WithDetail("record_id", r.ID)
	}

	if err := o.vectors.SetManifest(ctx, r.ID, fp, len(chunks)); err != nil {
		return amanerrors.New(amanerrors.ErrCodeIndexFailed, "write manifest", err).
			WithDetail("record_id", r.ID)
	}

	slog.Debug("record_indexed",
		slog.String("record_id", r.ID),
		slog.Int("chunks", len(chunks)))
	return nil
}

// RemoveRecord deletes a record's chunks and manifest entry and invalidates
// the keyword index. It reports whether anything was removed.
func (o *Orchestrator) RemoveRecord(ctx context.Context, id string) (bool, error) {
	removed, err := o.removeRecord(ctx, id)
	if err != nil {
		return false, err
	}
	o.keyword.Invalidate()
	return removed, nil
}

func (o *Orchestrator) removeRecord(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, amanerrors.ValidationError("record id is required", nil)
	}

	unlock := o.locks.lock(id)
	defer unlock()

	removed, err := o.vectors.DeleteChunks(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete chunks for %s: %w", id, err)
	}
	return removed, nil
}

// ForceFullReindex clears the vector store and runs a full sync.
func (o *Orchestrator) ForceFullReindex(ctx context.Context) (*SyncResult, error) {
	o.syncMu.Lock()
	err := o.vectors.Clear(ctx)
	if err == nil {
		o.keyword.Invalidate()
	}
	o.syncMu.Unlock()

	if err != nil {
		err = fmt.Errorf("clear vector store: %w", err)
		o.status.fail(err)
		return nil, err
	}

	slog.Info("vector_store_cleared")
	return o.SyncIndexes(ctx)
}

// EnsureKeywordIndex rebuilds the keyword index from the record provider if
// it was never built or has been invalidated. Concurrent callers share one
// rebuild, which runs to completion even if the caller that started it
// gives up.
func (o *Orchestrator) EnsureKeywordIndex(ctx context.Context) error {
	if !o.keyword.NeedsRebuild() {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	ch := o.flight.DoChan(keywordKey, func() (any, error) {
		if !o.keyword.NeedsRebuild() {
			return nil, nil
		}
		gen := o.keyword.Generation()
		records, err := o.records.ListRecords(detached)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		if err := o.keyword.BuildAsOf(detached, records, gen); err != nil {
			return nil, err
		}
		slog.Debug("keyword_index_rebuilt", slog.Int("records", len(records)))
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns vector store, keyword index and status figures.
func (o *Orchestrator) Stats(ctx context.Context) (*Stats, error) {
	vs, err := o.vectors.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector store stats: %w", err)
	}
	return &Stats{
		Vector:  vs,
		Keyword: o.keyword.Stats(),
		Status:  o.status.Snapshot(),
	}, nil
}
