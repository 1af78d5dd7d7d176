package record

import (
	"context"
	"sort"
	"sync"
)

// MemoryProvider is an in-process Provider, used by tests and by hosts that
// keep records in memory.
type MemoryProvider struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryProvider creates a provider seeded with records.
func NewMemoryProvider(records ...*Record) *MemoryProvider {
	p := &MemoryProvider{records: make(map[string]*Record, len(records))}
	for _, r := range records {
		p.records[r.ID] = r
	}
	return p
}

// Put inserts or replaces a record.
func (p *MemoryProvider) Put(r *Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[r.ID] = r
}

// Delete removes a record. Unknown ids are ignored.
func (p *MemoryProvider) Delete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, id)
}

// ListRecords returns the records ordered by id.
func (p *MemoryProvider) ListRecords(_ context.Context) ([]*Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*Record, 0, len(p.records))
	for _, r := range p.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetRecord implements Provider.
func (p *MemoryProvider) GetRecord(_ context.Context, id string) (*Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}
