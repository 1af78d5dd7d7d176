// Package record defines the voice-note records the engine indexes and the
// providers that supply them. Records are read-only to the engine.
package record

import (
	"context"
	"time"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
)

// ErrNotFound is returned by GetRecord for unknown ids.
var ErrNotFound = amanerrors.ErrRecordNotFound

// Record is one transcribed voice note and its metadata.
type Record struct {
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Summary string   `yaml:"summary" json:"summary"`
	Context string   `yaml:"context" json:"context"`
	Tags    []string `yaml:"tags" json:"tags"`
	Text    string   `yaml:"text" json:"text"`

	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`

	// Non-searchable metadata. Changing these never triggers a re-index.
	DurationSeconds float64 `yaml:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`
	SizeBytes       int64   `yaml:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	Path            string  `yaml:"-" json:"path,omitempty"`
}

// Provider is the external record store.
type Provider interface {
	// ListRecords returns every record currently in the store.
	ListRecords(ctx context.Context) ([]*Record, error)

	// GetRecord returns a record by id, or ErrNotFound.
	GetRecord(ctx context.Context, id string) (*Record, error)
}
