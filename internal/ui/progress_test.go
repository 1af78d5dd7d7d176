package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_SetStageResets(t *testing.T) {
	// Given: a tracker with progress
	p := NewProgressTracker()
	p.SetStage(StageIndexing, 10)
	p.Update(4, "rec-4")

	// When: moving to a new stage
	p.SetStage(StageComplete, 0)

	// Then: counters reset
	stats := p.Stats()
	assert.Equal(t, StageComplete, stats.Stage)
	assert.Zero(t, stats.Current)
	assert.Zero(t, stats.Progress)
	assert.Empty(t, stats.Message)
}

func TestProgressTracker_UpdateClamps(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageIndexing, 10)

	p.Update(15, "")
	assert.Equal(t, 10, p.Stats().Current)
	assert.Equal(t, 1.0, p.Stats().Progress)

	p.Update(-1, "")
	assert.Equal(t, 0, p.Stats().Current)
}

func TestProgressTracker_ProgressAndETA(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageIndexing, 4)
	p.Update(1, "")

	stats := p.Stats()

	assert.Equal(t, 0.25, stats.Progress)
	assert.Greater(t, stats.Rate, 0.0)
	assert.Greater(t, stats.ETA.Nanoseconds(), int64(0))
}

func TestProgressTracker_ErrorCounts(t *testing.T) {
	p := NewProgressTracker()

	p.AddError(ErrorEvent{Err: errors.New("a")})
	p.AddError(ErrorEvent{Err: errors.New("b"), IsWarn: true})
	p.AddError(ErrorEvent{Err: errors.New("c")})

	stats := p.Stats()
	assert.Equal(t, 2, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
	assert.Len(t, p.Errors(), 3)
}
