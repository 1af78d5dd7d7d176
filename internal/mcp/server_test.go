package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
	"github.com/Aman-CERP/amanvoice/internal/index"
	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/search"
	"github.com/Aman-CERP/amanvoice/internal/store"
)

type fakeSearcher struct {
	mu        sync.Mutex
	results   []*search.Result
	err       error
	lastQuery string
	lastLimit int
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int) ([]*search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = query
	f.lastLimit = limit
	return f.results, f.err
}

type fakeIndexer struct {
	phase    index.Phase
	stats    *index.Stats
	statsErr error
	result   *index.SyncResult
	syncErr  error
	synced   int
	forced   int
}

func (f *fakeIndexer) SyncIndexes(context.Context) (*index.SyncResult, error) {
	f.synced++
	return f.result, f.syncErr
}

func (f *fakeIndexer) ForceFullReindex(context.Context) (*index.SyncResult, error) {
	f.forced++
	return f.result, f.syncErr
}

func (f *fakeIndexer) Stats(context.Context) (*index.Stats, error) {
	return f.stats, f.statsErr
}

func (f *fakeIndexer) Status() index.Snapshot {
	return index.Snapshot{Phase: f.phase}
}

func newTestServer(t *testing.T, s *fakeSearcher, ix *fakeIndexer, records record.Provider) *Server {
	t.Helper()
	srv, err := NewServer(Deps{
		Engine:   s,
		Indexer:  ix,
		Records:  records,
		Embedder: EmbeddingInfo{Model: "static", Dimensions: 256},
	})
	require.NoError(t, err)
	return srv
}

func sampleResult(id string) *search.Result {
	return &search.Result{
		RecordID:    id,
		Score:       0.0328,
		Snippet:     "call the plumber about the leak",
		Field:       store.FieldText,
		VectorRank:  0,
		KeywordRank: 1,
		Record: &record.Record{
			ID:        id,
			Title:     "Kitchen sink",
			Tags:      []string{"home"},
			Timestamp: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Deps{Indexer: &fakeIndexer{}})
	assert.Error(t, err)

	_, err = NewServer(Deps{Engine: &fakeSearcher{}})
	assert.Error(t, err)
}

func TestHandleSearch_ReturnsResults(t *testing.T) {
	// Given a server whose engine finds one record
	s := &fakeSearcher{results: []*search.Result{sampleResult("rec-1")}}
	srv := newTestServer(t, s, &fakeIndexer{phase: index.PhaseIdle}, nil)

	// When searching without a limit
	res, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "  plumber  "})

	// Then the trimmed query and default limit reach the engine
	require.NoError(t, err)
	assert.Equal(t, "plumber", s.lastQuery)
	assert.Equal(t, DefaultToolLimit, s.lastLimit)

	// And the structured output describes the record
	require.Len(t, out.Results, 1)
	assert.Equal(t, 1, out.Count)
	assert.False(t, out.Indexing)
	assert.Equal(t, "record://rec-1", out.Results[0].URI)
	assert.Equal(t, "Kitchen sink", out.Results[0].Title)
	assert.Equal(t, "semantic #1 and keyword #2", out.Results[0].MatchReason)
	assert.Equal(t, "2026-03-01T09:30:00Z", out.Results[0].Timestamp)

	// And the text content is markdown
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Kitchen sink")
}

func TestHandleSearch_BlankQueryIsInvalid(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, &fakeIndexer{}, nil)

	_, _, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "   "})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestHandleSearch_ClampsLimit(t *testing.T) {
	s := &fakeSearcher{}
	srv := newTestServer(t, s, &fakeIndexer{}, nil)

	_, _, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "x", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxToolLimit, s.lastLimit)

	_, _, err = srv.handleSearch(context.Background(), nil, SearchInput{Query: "x", Limit: -3})
	require.NoError(t, err)
	assert.Equal(t, DefaultToolLimit, s.lastLimit)
}

func TestHandleSearch_FlagsRunningSync(t *testing.T) {
	// Given a sync in progress
	srv := newTestServer(t, &fakeSearcher{}, &fakeIndexer{phase: index.PhaseIndexing}, nil)

	// When searching
	_, out, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "leak"})

	// Then results are served but marked as possibly incomplete
	require.NoError(t, err)
	assert.True(t, out.Indexing)
	assert.Empty(t, out.Results)
}

func TestHandleSearch_MapsEngineErrors(t *testing.T) {
	s := &fakeSearcher{err: amanerrors.New(amanerrors.ErrCodeSearchFailed, "both search methods failed", nil)}
	srv := newTestServer(t, s, &fakeIndexer{}, nil)

	_, _, err := srv.handleSearch(context.Background(), nil, SearchInput{Query: "leak"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInternalError, mcpErr.Code)
	assert.Contains(t, mcpErr.Message, "both search methods failed")
}

func TestHandleIndexStatus(t *testing.T) {
	// Given an indexer with a built, fresh keyword index
	ix := &fakeIndexer{stats: &index.Stats{
		Vector:  &store.VectorStoreStats{TotalRecords: 3, TotalChunks: 7, ApproxSizeBytes: 4096},
		Keyword: &store.KeywordIndexStats{Backend: "bleve", Documents: 3, Built: true},
		Status:  index.Snapshot{Phase: index.PhaseIdle},
	}}
	srv := newTestServer(t, &fakeSearcher{}, ix, nil)

	// When asking for status
	_, out, err := srv.handleIndexStatus(context.Background(), nil, IndexStatusInput{})

	// Then every figure is reported
	require.NoError(t, err)
	assert.Equal(t, 3, out.Records)
	assert.Equal(t, 7, out.Chunks)
	assert.Equal(t, int64(4096), out.SizeBytes)
	assert.Equal(t, KeywordStatus{Backend: "bleve", Documents: 3, Ready: true}, out.Keyword)
	assert.Equal(t, "static", out.Embeddings.Model)
	assert.Equal(t, "idle", out.Status.Phase)
	assert.Empty(t, out.Status.LastSyncAt)
}

func TestHandleIndexStatus_StaleKeywordIsNotReady(t *testing.T) {
	ix := &fakeIndexer{stats: &index.Stats{
		Vector:  &store.VectorStoreStats{},
		Keyword: &store.KeywordIndexStats{Backend: "sqlite", Built: true, Stale: true},
	}}
	srv := newTestServer(t, &fakeSearcher{}, ix, nil)

	_, out, err := srv.handleIndexStatus(context.Background(), nil, IndexStatusInput{})

	require.NoError(t, err)
	assert.False(t, out.Keyword.Ready)
}

func TestHandleIndexStatus_Error(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, &fakeIndexer{statsErr: errors.New("disk gone")}, nil)

	_, _, err := srv.handleIndexStatus(context.Background(), nil, IndexStatusInput{})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInternalError, mcpErr.Code)
	assert.NotContains(t, mcpErr.Message, "disk gone")
}

func TestHandleSyncIndex(t *testing.T) {
	ix := &fakeIndexer{result: &index.SyncResult{
		New:      2,
		Indexed:  1,
		Failed:   1,
		Failures: []index.RecordFailure{{RecordID: "rec-2", Error: "embed failed"}},
		Duration: 1500 * time.Millisecond,
	}}
	srv := newTestServer(t, &fakeSearcher{}, ix, nil)

	_, out, err := srv.handleSyncIndex(context.Background(), nil, SyncIndexInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Indexed)
	assert.Equal(t, int64(1500), out.DurationMS)
	assert.Equal(t, []RecordFailure{{RecordID: "rec-2", Error: "embed failed"}}, out.Failures)
	assert.Equal(t, 1, ix.synced)
	assert.Equal(t, 0, ix.forced)

	_, _, err = srv.handleSyncIndex(context.Background(), nil, SyncIndexInput{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, ix.synced)
	assert.Equal(t, 1, ix.forced)
}

func TestHandleSyncIndex_Canceled(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, &fakeIndexer{syncErr: context.Canceled}, nil)

	_, _, err := srv.handleSyncIndex(context.Background(), nil, SyncIndexInput{})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeTimeout, mcpErr.Code)
}

func TestHandleReadRecord(t *testing.T) {
	// Given a provider with one record
	records := record.NewMemoryProvider(&record.Record{ID: "rec-1", Title: "Groceries", Text: "milk and eggs"})
	srv := newTestServer(t, &fakeSearcher{}, &fakeIndexer{}, records)

	// When reading its resource
	res, err := srv.handleReadRecord(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "record://rec-1"},
	})

	// Then the record comes back as JSON
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	var got record.Record
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &got))
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, "milk and eggs", got.Text)
}

func TestHandleReadRecord_Unknown(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, &fakeIndexer{}, record.NewMemoryProvider())

	_, err := srv.handleReadRecord(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "record://missing"},
	})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeRecordNotFound, mcpErr.Code)
}

func TestHandleReadRecord_BadURI(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, &fakeIndexer{}, record.NewMemoryProvider())

	_, err := srv.handleReadRecord(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "file:///etc/passwd"},
	})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestServe_RejectsUnknownTransport(t *testing.T) {
	srv := newTestServer(t, &fakeSearcher{}, &fakeIndexer{}, nil)

	err := srv.Serve(context.Background(), "sse")

	assert.ErrorContains(t, err, "unknown transport")
}
