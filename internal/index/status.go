package index

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Phase is the orchestrator's current activity.
type Phase string

const (
	// PhaseIdle means no sync is running.
	PhaseIdle Phase = "idle"
	// PhaseSyncing means records are being listed and classified.
	PhaseSyncing Phase = "syncing"
	// PhaseIndexing means changed records are being written.
	PhaseIndexing Phase = "indexing"
	// PhaseError means the last sync failed; the next successful sync clears it.
	PhaseError Phase = "error"
)

// Snapshot is an immutable copy of the orchestrator's progress.
type Snapshot struct {
	Phase          Phase     `json:"phase"`
	TotalToProcess int       `json:"total_to_process"`
	ProcessedCount int       `json:"processed_count"`
	Progress       float64   `json:"progress"` // 0..1
	LastError      string    `json:"last_error,omitempty"`
	LastSyncAt     time.Time `json:"last_sync_at,omitempty"`
}

// Observer receives every status change. Observers run synchronously on the
// goroutine that changed the status and must not block.
type Observer func(Snapshot)

type observerEntry struct {
	id int
	fn Observer
}

// Status tracks progress and broadcasts changes to observers.
type Status struct {
	mu        sync.RWMutex
	snap      Snapshot
	observers []observerEntry
	nextID    int
}

// NewStatus creates a tracker in the idle phase.
func NewStatus() *Status {
	return &Status{snap: Snapshot{Phase: PhaseIdle}}
}

// Snapshot returns the current state.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Status) Subscribe(fn Observer) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, o := range s.observers {
				if o.id == id {
					s.observers = append(s.observers[:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// begin enters phase with a fresh total.
func (s *Status) begin(phase Phase, total int) {
	s.update(func(snap *Snapshot) {
		snap.Phase = phase
		snap.TotalToProcess = total
		snap.ProcessedCount = 0
		snap.Progress = 0
	})
}

// advance counts one processed item.
func (s *Status) advance() {
	s.update(func(snap *Snapshot) {
		snap.ProcessedCount++
		if snap.TotalToProcess > 0 {
			snap.Progress = float64(snap.ProcessedCount) / float64(snap.TotalToProcess)
		}
	})
}

// finish returns to idle after a successful sync.
func (s *Status) finish(at time.Time) {
	s.update(func(snap *Snapshot) {
		snap.Phase = PhaseIdle
		snap.LastError = ""
		snap.LastSyncAt = at
		if snap.TotalToProcess > 0 {
			snap.Progress = 1
		}
	})
}

// fail enters the error phase.
func (s *Status) fail(err error) {
	s.update(func(snap *Snapshot) {
		snap.Phase = PhaseError
		snap.LastError = err.Error()
	})
}

func (s *Status) update(mutate func(*Snapshot)) {
	s.mu.Lock()
	mutate(&s.snap)
	snap := s.snap
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		notify(o, snap)
	}
}

// notify isolates one observer so a panic cannot reach the others.
func notify(o observerEntry, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("status observer panicked",
				slog.Int("observer", o.id),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	o.fn(snap)
}
