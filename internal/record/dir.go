package record

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
)

// Extensions lists the file types DirProvider reads. JSON is parsed by the
// YAML decoder since it is a YAML subset.
var Extensions = []string{".yaml", ".yml", ".json"}

// DirProvider reads one record per file from a directory tree.
type DirProvider struct {
	root string

	mu     sync.RWMutex
	byPath map[string]string // absolute path -> record id
	byID   map[string]string // record id -> absolute path
}

// NewDirProvider creates a provider rooted at dir.
func NewDirProvider(dir string) (*DirProvider, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve records dir: %w", err)
	}
	return &DirProvider{
		root:   abs,
		byPath: make(map[string]string),
		byID:   make(map[string]string),
	}, nil
}

// Root returns the absolute records directory.
func (p *DirProvider) Root() string {
	return p.root
}

// IsRecordFile reports whether path has a supported record extension.
func IsRecordFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ListRecords walks the directory and decodes every record file. Files that
// fail to parse are logged and skipped.
func (p *DirProvider) ListRecords(ctx context.Context) ([]*Record, error) {
	var records []*Record
	byPath := make(map[string]string)
	byID := make(map[string]string)

	err := filepath.WalkDir(p.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != p.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !IsRecordFile(path) {
			return nil
		}

		r, err := ReadFile(path)
		if err != nil {
			slog.Warn("record_parse_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		if prev, dup := byID[r.ID]; dup {
			slog.Warn("record_duplicate_id",
				slog.String("id", r.ID),
				slog.String("path", path),
				slog.String("kept", prev))
			return nil
		}
		byPath[path] = r.ID
		byID[r.ID] = path
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeStorageFailed, "list records", err).
			WithDetail("dir", p.root)
	}

	p.mu.Lock()
	p.byPath = byPath
	p.byID = byID
	p.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// GetRecord reads the record's file, falling back to a directory scan for ids
// not seen yet.
func (p *DirProvider) GetRecord(ctx context.Context, id string) (*Record, error) {
	p.mu.RLock()
	path, ok := p.byID[id]
	p.mu.RUnlock()

	if !ok {
		if _, err := p.ListRecords(ctx); err != nil {
			return nil, err
		}
		p.mu.RLock()
		path, ok = p.byID[id]
		p.mu.RUnlock()
		if !ok {
			return nil, ErrNotFound
		}
	}

	r, err := ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.ID != id {
		return nil, ErrNotFound
	}
	return r, nil
}

// Load reads a single record file and remembers its path for IDForPath.
func (p *DirProvider) Load(path string) (*Record, error) {
	r, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.byPath[path] = r.ID
	p.byID[r.ID] = path
	p.mu.Unlock()
	return r, nil
}

// IDForPath returns the id of the record last read from path. It is used to
// resolve deletions, when the file can no longer be read.
func (p *DirProvider) IDForPath(path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byPath[path]
	if ok {
		delete(p.byPath, path)
		if p.byID[id] == path {
			delete(p.byID, id)
		}
	}
	return id, ok
}

// ReadFile decodes a record file. The id defaults to the file stem.
func ReadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeRecordInvalid, "decode record", err).
			WithDetail("path", path)
	}
	if strings.TrimSpace(r.ID) == "" {
		r.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if r.SizeBytes == 0 {
		r.SizeBytes = int64(len(data))
	}
	r.Path = path
	return &r, nil
}
