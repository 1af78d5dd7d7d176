package ui

import (
	"sync"
	"time"
)

// ProgressTracker holds progress state for the TUI. It is safe for
// concurrent use.
type ProgressTracker struct {
	mu         sync.RWMutex
	stage      Stage
	current    int
	total      int
	message    string
	startTime  time.Time
	stageStart time.Time
	errors     []ErrorEvent

	// lastETA smooths the estimate between updates.
	lastETA time.Duration
}

// ProgressStats is a snapshot of tracker state.
type ProgressStats struct {
	Stage      Stage
	Current    int
	Total      int
	Progress   float64
	Rate       float64 // records per second in the current stage
	ETA        time.Duration
	Message    string
	ErrorCount int
	WarnCount  int
}

// NewProgressTracker creates a tracker in the syncing stage.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{startTime: now, stageStart: now}
}

// SetStage moves to stage and resets the counters.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.current = 0
	p.message = ""
	p.stageStart = time.Now()
	p.lastETA = 0
}

// Update records progress within the current stage. current is clamped to
// [0, total] when total is known.
func (p *ProgressTracker) Update(current int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current < 0 {
		current = 0
	}
	if p.total > 0 && current > p.total {
		current = p.total
	}
	p.current = current
	if message != "" {
		p.message = message
	}
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, event)
}

// Errors returns a copy of the recorded errors and warnings.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ErrorEvent, len(p.errors))
	copy(out, p.errors)
	return out
}

// Elapsed returns time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Since(p.startTime)
}

// Stats returns a snapshot with rate and ETA.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := ProgressStats{
		Stage:   p.stage,
		Current: p.current,
		Total:   p.total,
		Message: p.message,
	}
	if p.total > 0 {
		stats.Progress = float64(p.current) / float64(p.total)
	}
	if elapsed := time.Since(p.stageStart).Seconds(); elapsed > 0 {
		stats.Rate = float64(p.current) / elapsed
	}
	stats.ETA = p.estimate(stats.Rate)

	for _, e := range p.errors {
		if e.IsWarn {
			stats.WarnCount++
		} else {
			stats.ErrorCount++
		}
	}
	return stats
}

// estimate blends the raw ETA with the previous one. Callers hold p.mu.
func (p *ProgressTracker) estimate(rate float64) time.Duration {
	remaining := p.total - p.current
	if p.total == 0 || remaining <= 0 || rate <= 0 {
		return 0
	}
	raw := time.Duration(float64(remaining) / rate * float64(time.Second))
	if p.lastETA == 0 {
		p.lastETA = raw
	} else {
		p.lastETA = time.Duration(0.3*float64(raw) + 0.7*float64(p.lastETA))
	}
	return p.lastETA
}
