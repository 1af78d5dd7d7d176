package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
)

func newTestVectorStore(t *testing.T) *SQLiteVectorStore {
	t.Helper()
	s, err := NewSQLiteVectorStore(DefaultSQLiteVectorConfig(""))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func chunk(field Field, idx int, text string, emb ...float32) *Chunk {
	return &Chunk{Field: field, ChunkIndex: idx, Text: text, Embedding: emb}
}

func TestSQLiteVectorStore_RequiresInit(t *testing.T) {
	s, err := NewSQLiteVectorStore(DefaultSQLiteVectorConfig(""))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Search(ctx, []float32{1}, 5, 0)
	assert.ErrorIs(t, err, amanerrors.ErrNotInitialized)

	err = s.UpsertChunks(ctx, "r1", []*Chunk{chunk(FieldText, 0, "x", 1)})
	assert.ErrorIs(t, err, amanerrors.ErrNotInitialized)

	_, err = s.ListIndexedRecordIDs(ctx)
	assert.ErrorIs(t, err, amanerrors.ErrNotInitialized)
}

func TestSQLiteVectorStore_InitIsIdempotent(t *testing.T) {
	// Given: a file-backed store in a directory that does not exist yet
	path := filepath.Join(t.TempDir(), "nested", "vectors.db")
	s, err := NewSQLiteVectorStore(DefaultSQLiteVectorConfig(path))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	// When: Init runs twice
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx))

	// Then: the store is usable
	require.NoError(t, s.UpsertChunks(ctx, "r1", []*Chunk{chunk(FieldText, 0, "hello", 1, 0)}))
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
	assert.Greater(t, stats.ApproxSizeBytes, int64(0))
}

func TestSQLiteVectorStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	s, err := NewSQLiteVectorStore(DefaultSQLiteVectorConfig(path))
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.UpsertChunks(ctx, "r1", []*Chunk{chunk(FieldTitle, 0, "standup", 0, 1)}))
	require.NoError(t, s.SetManifest(ctx, "r1", "fp1", 1))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteVectorStore(DefaultSQLiteVectorConfig(path))
	require.NoError(t, err)
	require.NoError(t, reopened.Init(ctx))
	defer func() { _ = reopened.Close() }()

	fp, ok, err := reopened.GetFingerprint(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fp1", fp)

	hits, err := reopened.Search(ctx, []float32{0, 1}, 5, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "standup", hits[0].Text)
}

func TestSQLiteVectorStore_UpsertReplacesAllChunks(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, "r1", []*Chunk{
		chunk(FieldTitle, 0, "old title", 1, 0),
		chunk(FieldText, 0, "old text a", 1, 0),
		chunk(FieldText, 1, "old text b", 1, 0),
	}))
	require.NoError(t, s.UpsertChunks(ctx, "r1", []*Chunk{
		chunk(FieldText, 0, "new text", 1, 0),
	}))

	hits, err := s.Search(ctx, []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new text", hits[0].Text)
	assert.Equal(t, "r1", hits[0].RecordID)
	assert.Equal(t, FieldText, hits[0].Field)
}

func TestSQLiteVectorStore_UpsertIsAtomicOnFailure(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, "r1", []*Chunk{chunk(FieldText, 0, "kept", 1, 0)}))

	// Duplicate (field, chunk index) violates the unique constraint mid-transaction.
	err := s.UpsertChunks(ctx, "r1", []*Chunk{
		chunk(FieldText, 0, "dup a", 1, 0),
		chunk(FieldText, 0, "dup b", 1, 0),
	})
	require.Error(t, err)

	hits, err := s.Search(ctx, []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "kept", hits[0].Text)
}

func TestSQLiteVectorStore_UpsertValidatesInput(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	assert.Error(t, s.UpsertChunks(ctx, "", []*Chunk{chunk(FieldText, 0, "x", 1)}))
	assert.Error(t, s.UpsertChunks(ctx, "r1", []*Chunk{chunk(FieldText, 0, "x")}))
	assert.Error(t, s.UpsertChunks(ctx, "r1", []*Chunk{{RecordID: "r2", Field: FieldText, Embedding: []float32{1}}}))
}

func TestSQLiteVectorStore_NormalizesOnInsert(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	// Given: an unnormalized embedding
	require.NoError(t, s.UpsertChunks(ctx, "r1", []*Chunk{chunk(FieldText, 0, "x", 30, 40)}))

	// When: searching with an unnormalized query in the same direction
	hits, err := s.Search(ctx, []float32{3, 4}, 1, 0)

	// Then: similarity is 1
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestSQLiteVectorStore_SearchRanksFiltersAndLimits(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, "exact", []*Chunk{chunk(FieldText, 0, "exact", 1, 0, 0)}))
	require.NoError(t, s.UpsertChunks(ctx, "close", []*Chunk{chunk(FieldText, 0, "close", 0.9, 0.1, 0)}))
	require.NoError(t, s.UpsertChunks(ctx, "far", []*Chunk{chunk(FieldText, 0, "far", 0, 1, 0)}))
	require.NoError(t, s.UpsertChunks(ctx, "opposite", []*Chunk{chunk(FieldText, 0, "opposite", -1, 0, 0)}))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].RecordID)
	assert.Equal(t, "close", hits[1].RecordID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	hits, err = s.Search(ctx, []float32{1, 0, 0}, 3, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}

	hits, err = s.Search(ctx, []float32{1, 0, 0}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSQLiteVectorStore_SearchSkipsOtherDimensions(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, "two", []*Chunk{chunk(FieldText, 0, "2d", 1, 0)}))
	require.NoError(t, s.UpsertChunks(ctx, "three", []*Chunk{chunk(FieldText, 0, "3d", 1, 0, 0)}))

	hits, err := s.Search(ctx, []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "two", hits[0].RecordID)
}

func TestSQLiteVectorStore_DeleteChunks(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, "r1", []*Chunk{chunk(FieldText, 0, "x", 1)}))
	require.NoError(t, s.SetManifest(ctx, "r1", "fp", 1))

	deleted, err := s.DeleteChunks(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err := s.GetFingerprint(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok, "manifest entry is removed with the chunks")

	deleted, err = s.DeleteChunks(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, deleted, "second delete is a no-op")
}

func TestSQLiteVectorStore_DeleteManifestOnlyRecord(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	// A record whose chunker produced nothing still has a manifest entry.
	require.NoError(t, s.UpsertChunks(ctx, "empty", nil))
	require.NoError(t, s.SetManifest(ctx, "empty", "fp", 0))

	deleted, err := s.DeleteChunks(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestSQLiteVectorStore_Manifest(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	entry, err := s.GetManifest(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, s.SetManifest(ctx, "r1", "fp1", 3))
	require.NoError(t, s.SetManifest(ctx, "r1", "fp2", 4))

	entry, err = s.GetManifest(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "fp2", entry.Fingerprint)
	assert.Equal(t, 4, entry.ChunkCount)
	assert.False(t, entry.IndexedAt.IsZero())
}

func TestSQLiteVectorStore_ListIndexedRecordIDsUnionsTables(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, "b", []*Chunk{chunk(FieldText, 0, "x", 1)}))
	require.NoError(t, s.SetManifest(ctx, "b", "fp", 1))
	require.NoError(t, s.UpsertChunks(ctx, "orphan-chunks", []*Chunk{chunk(FieldText, 0, "x", 1)}))
	require.NoError(t, s.SetManifest(ctx, "a", "fp", 0))

	ids, err := s.ListIndexedRecordIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "orphan-chunks"}, ids)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, 1, stats.Dimensions)
}

func TestSQLiteVectorStore_Clear(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertChunks(ctx, "r1", []*Chunk{chunk(FieldText, 0, "x", 1)}))
	require.NoError(t, s.SetManifest(ctx, "r1", "fp", 1))
	require.NoError(t, s.Clear(ctx))

	ids, err := s.ListIndexedRecordIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLiteVectorStore_CloseIsIdempotent(t *testing.T) {
	s := newTestVectorStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Stats(context.Background())
	assert.ErrorIs(t, err, amanerrors.ErrNotInitialized)
}

func TestSQLiteVectorStore_ConcurrentWritesAndSearches(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		id := string(rune('a' + i))
		go func() {
			defer wg.Done()
			assert.NoError(t, s.UpsertChunks(ctx, id, []*Chunk{chunk(FieldText, 0, id, 1, float32(i))}))
		}()
		go func() {
			defer wg.Done()
			_, err := s.Search(ctx, []float32{1, 1}, 3, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.TotalChunks)
}

func TestNewSQLiteVectorStore_RejectsUnknownDriver(t *testing.T) {
	_, err := NewSQLiteVectorStore(SQLiteVectorConfig{Driver: "postgres"})
	assert.ErrorIs(t, err, amanerrors.New(amanerrors.ErrCodeConfigInvalid, "", nil))
}
