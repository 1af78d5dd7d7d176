package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"
)

// poller detects changes by rescanning the tree on an interval.
type poller struct {
	interval time.Duration
	accept   func(relPath string) bool
	state    map[string]fileSnapshot
	events   chan FileEvent
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

func newPoller(interval time.Duration, accept func(string) bool) *poller {
	return &poller{
		interval: interval,
		accept:   accept,
		state:    make(map[string]fileSnapshot),
		events:   make(chan FileEvent, 100),
	}
}

// run scans once for a baseline, then reports differences each tick.
func (p *poller) run(ctx context.Context, root string, stop <-chan struct{}, onErr func(error)) error {
	baseline, err := p.scan(root)
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}
	p.state = baseline

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			current, err := p.scan(root)
			if err != nil {
				onErr(err)
				continue
			}
			for _, ev := range diff(p.state, current) {
				p.emit(ev)
			}
			p.state = current
		}
	}
}

func (p *poller) scan(root string) (map[string]fileSnapshot, error) {
	files := make(map[string]fileSnapshot)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil || relPath == "." {
			return nil
		}
		if d.IsDir() {
			if isHidden(relPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if !p.accept(relPath) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files[relPath] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory for changes: %w", err)
	}
	return files, nil
}

// diff returns the events that turn prev into current.
func diff(prev, current map[string]fileSnapshot) []FileEvent {
	now := time.Now()
	var events []FileEvent
	for path, snap := range current {
		old, ok := prev[path]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case old != snap:
			events = append(events, FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	for path := range prev {
		if _, ok := current[path]; !ok {
			events = append(events, FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}
	return events
}

func (p *poller) emit(ev FileEvent) {
	select {
	case p.events <- ev:
	default:
		slog.Warn("poller_buffer_full",
			slog.String("path", ev.Path),
			slog.String("op", ev.Operation.String()))
	}
}
