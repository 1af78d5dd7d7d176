package store

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registered as "sqlite"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
)

// SQLite driver names accepted by SQLiteVectorConfig.Driver.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go (default)
	DriverCGO     = "sqlite3" // github.com/mattn/go-sqlite3, needs CGO
)

// VectorSchemaVersion is the current vector database schema version.
const VectorSchemaVersion = 1

// SQLiteVectorConfig configures the SQLite vector store.
type SQLiteVectorConfig struct {
	// Path is the database file. Empty means an in-memory database.
	Path string

	// Driver is DriverModernc or DriverCGO.
	Driver string

	// CacheSizeMB is the SQLite page cache size.
	CacheSizeMB int
}

// DefaultSQLiteVectorConfig returns defaults for a database at path.
func DefaultSQLiteVectorConfig(path string) SQLiteVectorConfig {
	return SQLiteVectorConfig{
		Path:        path,
		Driver:      DriverModernc,
		CacheSizeMB: 64,
	}
}

// SQLiteVectorStore implements VectorStore on a single SQLite database.
// Similarity search is an exact linear scan over every stored chunk.
type SQLiteVectorStore struct {
	mu          sync.RWMutex
	db          *sql.DB
	config      SQLiteVectorConfig
	initialized bool
	closed      bool
}

// Verify interface implementation at compile time
var _ VectorStore = (*SQLiteVectorStore)(nil)

// NewSQLiteVectorStore creates an unopened store. Call Init before use.
func NewSQLiteVectorStore(config SQLiteVectorConfig) (*SQLiteVectorStore, error) {
	switch config.Driver {
	case "", DriverModernc:
		config.Driver = DriverModernc
	case DriverCGO:
		if !cgoDriverAvailable {
			return nil, amanerrors.ConfigError("storage driver sqlite3 requires a CGO build", nil).
				WithSuggestion("set storage.driver to \"sqlite\"")
		}
	default:
		return nil, amanerrors.ConfigError(fmt.Sprintf("unknown storage driver: %s (valid options: sqlite, sqlite3)", config.Driver), nil)
	}
	if config.CacheSizeMB <= 0 {
		config.CacheSizeMB = 64
	}
	return &SQLiteVectorStore{config: config}, nil
}

// Init opens the database and creates the schema. Calling it again is a no-op.
func (s *SQLiteVectorStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if s.closed {
		return amanerrors.New(amanerrors.ErrCodeNotInitialized, "vector store is closed", nil)
	}

	dsn := ":memory:"
	if s.config.Path != "" {
		dir := filepath.Dir(s.config.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return amanerrors.StorageError("create data directory", err).WithDetail("dir", dir)
		}
		dsn = s.config.Path
	}

	db, err := sql.Open(s.config.Driver, dsn)
	if err != nil {
		return amanerrors.StorageError("open vector database", err)
	}

	// One connection: a single writer, and the in-memory database lives
	// exactly as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", s.config.CacheSizeMB*1024),
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return amanerrors.StorageError("set pragma", err).WithDetail("pragma", pragma)
		}
	}

	if err := initVectorSchema(ctx, db); err != nil {
		_ = db.Close()
		return amanerrors.StorageError("initialize vector schema", err)
	}

	s.db = db
	s.initialized = true
	slog.Debug("vector_store_initialized",
		slog.String("path", s.config.Path),
		slog.String("driver", s.config.Driver))
	return nil
}

func initVectorSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id   TEXT NOT NULL,
		field       TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		chunk_text  TEXT NOT NULL,
		embedding   BLOB NOT NULL,
		dimensions  INTEGER NOT NULL,
		created_at  INTEGER NOT NULL,
		UNIQUE(record_id, field, chunk_index)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_record ON chunks(record_id);

	CREATE TABLE IF NOT EXISTS manifest (
		record_id   TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		indexed_at  INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, VectorSchemaVersion)
	return err
}

// ready must be called with s.mu held.
func (s *SQLiteVectorStore) ready() error {
	if s.closed {
		return amanerrors.New(amanerrors.ErrCodeNotInitialized, "vector store is closed", nil)
	}
	if !s.initialized {
		return amanerrors.NotInitialized("vector store")
	}
	return nil
}

// UpsertChunks replaces every chunk of recordID inside one transaction.
// Embeddings are L2-normalized before they are written.
func (s *SQLiteVectorStore) UpsertChunks(ctx context.Context, recordID string, chunks []*Chunk) error {
	if recordID == "" {
		return amanerrors.ValidationError("record id is required", nil)
	}
	for _, c := range chunks {
		if c == nil {
			return amanerrors.ValidationError("nil chunk", nil)
		}
		if c.RecordID != "" && c.RecordID != recordID {
			return amanerrors.ValidationError(
				fmt.Sprintf("chunk belongs to record %s, not %s", c.RecordID, recordID), nil)
		}
		if len(c.Embedding) == 0 {
			return amanerrors.ValidationError("chunk has no embedding", nil).
				WithDetail("record_id", recordID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return amanerrors.StorageError("begin upsert transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE record_id = ?`, recordID); err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", recordID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (record_id, field, chunk_index, chunk_text, embedding, dimensions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		normalized := Normalize(c.Embedding)
		if _, err := stmt.ExecContext(ctx,
			recordID, string(c.Field), c.ChunkIndex, c.Text,
			EncodeEmbedding(normalized), len(normalized), createdAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to insert chunk %s/%s/%d: %w", recordID, c.Field, c.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return amanerrors.StorageError("commit upsert transaction", err)
	}
	return nil
}

// DeleteChunks removes the record's chunks and manifest entry in one
// transaction. Deleting an unknown record returns false and no error.
func (s *SQLiteVectorStore) DeleteChunks(ctx context.Context, recordID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, amanerrors.StorageError("begin delete transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var removed int64
	for _, q := range []string{
		`DELETE FROM chunks WHERE record_id = ?`,
		`DELETE FROM manifest WHERE record_id = ?`,
	} {
		res, err := tx.ExecContext(ctx, q, recordID)
		if err != nil {
			return false, fmt.Errorf("failed to delete %s: %w", recordID, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return false, amanerrors.StorageError("commit delete transaction", err)
	}
	return removed > 0, nil
}

// GetFingerprint returns the stored fingerprint and whether one exists.
func (s *SQLiteVectorStore) GetFingerprint(ctx context.Context, recordID string) (string, bool, error) {
	entry, err := s.GetManifest(ctx, recordID)
	if err != nil || entry == nil {
		return "", false, err
	}
	return entry.Fingerprint, true, nil
}

// GetManifest returns the manifest entry, or nil if the record was never indexed.
func (s *SQLiteVectorStore) GetManifest(ctx context.Context, recordID string) (*ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	var entry ManifestEntry
	var indexedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT record_id, fingerprint, indexed_at, chunk_count FROM manifest WHERE record_id = ?`,
		recordID,
	).Scan(&entry.RecordID, &entry.Fingerprint, &indexedAt, &entry.ChunkCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest for %s: %w", recordID, err)
	}
	entry.IndexedAt = time.UnixMilli(indexedAt)
	return &entry, nil
}

// SetManifest records that recordID is indexed with the given fingerprint.
// Call it only after UpsertChunks succeeded.
func (s *SQLiteVectorStore) SetManifest(ctx context.Context, recordID, fingerprint string, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manifest (record_id, fingerprint, indexed_at, chunk_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			indexed_at  = excluded.indexed_at,
			chunk_count = excluded.chunk_count`,
		recordID, fingerprint, time.Now().UnixMilli(), chunkCount)
	if err != nil {
		return fmt.Errorf("failed to write manifest for %s: %w", recordID, err)
	}
	return nil
}

// Search scans every chunk and returns the limit most similar to query with
// score >= minScore, best first. Chunks of a different dimension are skipped.
func (s *SQLiteVectorStore) Search(ctx context.Context, query []float32, limit int, minScore float64) ([]*VectorHit, error) {
	if len(query) == 0 {
		return nil, amanerrors.ValidationError("query embedding is empty", nil)
	}
	if limit <= 0 {
		return []*VectorHit{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	q := Normalize(query)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, field, chunk_index, chunk_text, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}
	defer rows.Close()

	top := &hitHeap{}
	buf := make([]float32, len(q))
	skipped := 0

	for rows.Next() {
		var (
			hit  VectorHit
			blob []byte
		)
		if err := rows.Scan(&hit.ChunkID, &hit.RecordID, &hit.Field, &hit.ChunkIndex, &hit.Text, &blob); err != nil {
			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}
		if len(blob) != len(q)*4 {
			skipped++
			continue
		}
		decodeInto(buf, blob)

		hit.Score = Similarity(q, buf)
		if hit.Score < minScore {
			continue
		}
		if top.Len() < limit {
			h := hit
			heap.Push(top, &h)
		} else if better(&hit, (*top)[0]) {
			h := hit
			(*top)[0] = &h
			heap.Fix(top, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan chunks: %w", err)
	}

	if skipped > 0 {
		slog.Warn("vector_search_dimension_mismatch",
			slog.Int("skipped_chunks", skipped),
			slog.Int("query_dimensions", len(q)))
	}

	hits := []*VectorHit(*top)
	sort.Slice(hits, func(i, j int) bool { return better(hits[i], hits[j]) })
	return hits, nil
}

// decodeInto is DecodeEmbedding without the allocation; len(b) must be 4*len(dst).
func decodeInto(dst []float32, b []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
}

// better orders hits by score descending, then chunk id ascending.
func better(a, b *VectorHit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ChunkID < b.ChunkID
}

// hitHeap is a min-heap on hit quality; the root is the weakest kept hit.
type hitHeap []*VectorHit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(*VectorHit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// ListIndexedRecordIDs returns every record id present in the manifest or
// the chunk table, sorted.
func (s *SQLiteVectorStore) ListIndexedRecordIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id FROM manifest
		UNION
		SELECT record_id FROM chunks
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed records: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats returns chunk and record counts and the approximate database size.
func (s *SQLiteVectorStore) Stats(ctx context.Context) (*VectorStoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	var stats VectorStoreStats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.TotalChunks); err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (SELECT record_id FROM manifest UNION SELECT record_id FROM chunks)`,
	).Scan(&stats.TotalRecords); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	var dims sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(dimensions) FROM chunks`).Scan(&dims); err != nil {
		return nil, fmt.Errorf("failed to read dimensions: %w", err)
	}
	stats.Dimensions = int(dims.Int64)

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("failed to read page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("failed to read page size: %w", err)
	}
	stats.ApproxSizeBytes = pageCount * pageSize

	return &stats, nil
}

// Clear deletes every chunk and manifest entry.
func (s *SQLiteVectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return amanerrors.StorageError("begin clear transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{`DELETE FROM chunks`, `DELETE FROM manifest`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear vector store: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return amanerrors.StorageError("commit clear transaction", err)
	}
	return nil
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}
