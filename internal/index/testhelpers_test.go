package index

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

// fakeChunker emits one text chunk per record. It can fail chosen ids and
// hold one id until released.
type fakeChunker struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls atomic.Int32

	holdID  string
	held    chan struct{}
	release chan struct{}
}

func (c *fakeChunker) ChunkRecord(_ context.Context, r *record.Record) ([]*store.Chunk, error) {
	c.calls.Add(1)
	c.mu.Lock()
	fail := c.fail[r.ID]
	hold := c.holdID != "" && r.ID == c.holdID
	if hold {
		c.holdID = ""
	}
	c.mu.Unlock()
	if hold {
		close(c.held)
		<-c.release
	}
	if fail {
		return nil, errors.New("embedder exploded")
	}
	return []*store.Chunk{{
		RecordID:  r.ID,
		Field:     store.FieldText,
		Text:      r.Text,
		Embedding: []float32{1, 0, 0},
		CreatedAt: time.Now(),
	}}, nil
}

func (c *fakeChunker) failOn(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail == nil {
		c.fail = map[string]bool{}
	}
	c.fail[id] = true
}

// holdOn makes the first chunking of id block. held closes once it is
// blocked; closing release lets it finish.
func (c *fakeChunker) holdOn(id string) (held, release chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdID = id
	c.held = make(chan struct{})
	c.release = make(chan struct{})
	return c.held, c.release
}

// listHookProvider runs afterList once, after the first listing is taken
// and before it is returned.
type listHookProvider struct {
	*record.MemoryProvider
	afterList func()
	once      sync.Once
}

func (p *listHookProvider) ListRecords(ctx context.Context) ([]*record.Record, error) {
	records, err := p.MemoryProvider.ListRecords(ctx)
	if p.afterList != nil {
		p.once.Do(p.afterList)
	}
	return records, err
}

// gatedProvider blocks ListRecords until released and counts calls.
type gatedProvider struct {
	*record.MemoryProvider
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (p *gatedProvider) ListRecords(ctx context.Context) ([]*record.Record, error) {
	if p.calls.Add(1) == 1 {
		close(p.entered)
	}
	<-p.release
	return p.MemoryProvider.ListRecords(ctx)
}

type fixture struct {
	orch     *Orchestrator
	vectors  *store.SQLiteVectorStore
	keyword  *store.KeywordIndex
	chunker  *fakeChunker
	provider record.Provider
}

func newFixture(t *testing.T, provider record.Provider) *fixture {
	t.Helper()
	vectors, err := store.NewSQLiteVectorStore(store.DefaultSQLiteVectorConfig(""))
	require.NoError(t, err)
	require.NoError(t, vectors.Init(context.Background()))
	t.Cleanup(func() { _ = vectors.Close() })

	keyword, err := store.NewKeywordIndex("bleve", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = keyword.Close() })

	chunker := &fakeChunker{}
	orch, err := NewOrchestrator(Config{
		Records: provider,
		Vectors: vectors,
		Keyword: keyword,
		Chunker: chunker,
	})
	require.NoError(t, err)

	return &fixture{orch: orch, vectors: vectors, keyword: keyword, chunker: chunker, provider: provider}
}

func rec(id, title, text string) *record.Record {
	return &record.Record{ID: id, Title: title, Text: text}
}
