package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanvoice/internal/record"
	"github.com/Aman-CERP/amanvoice/internal/watcher"
)

func writeRecord(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLiveUpdater_Apply(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	files, err := record.NewDirProvider(dir)
	require.NoError(t, err)
	f := newFixture(t, files)
	u := NewLiveUpdater(f.orch, files)

	// Given: a new record file
	writeRecord(t, dir, "standup.yaml", "title: Standup\ntext: shipped the importer\n")

	// When: its create event arrives
	res := u.Apply(ctx, []watcher.FileEvent{{Path: "standup.yaml", Operation: watcher.OpCreate}})

	// Then: it is indexed under its file stem
	assert.Equal(t, LiveResult{Indexed: 1}, res)
	_, ok, err := f.vectors.GetFingerprint(ctx, "standup")
	require.NoError(t, err)
	assert.True(t, ok)

	// When: the file is rewritten with identical content
	res = u.Apply(ctx, []watcher.FileEvent{{Path: "standup.yaml", Operation: watcher.OpModify}})

	// Then: nothing is re-embedded
	assert.Equal(t, LiveResult{Skipped: 1}, res)
	assert.Equal(t, int32(1), f.chunker.calls.Load())

	// When: the file now declares an explicit id
	writeRecord(t, dir, "standup.yaml", "id: daily-1\ntitle: Standup\ntext: shipped the importer\n")
	res = u.Apply(ctx, []watcher.FileEvent{{Path: "standup.yaml", Operation: watcher.OpModify}})

	// Then: the old id is dropped and the new one indexed
	assert.Equal(t, LiveResult{Indexed: 1, Removed: 1}, res)
	ids, err := f.vectors.ListIndexedRecordIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"daily-1"}, ids)

	// When: the file is deleted
	require.NoError(t, os.Remove(filepath.Join(dir, "standup.yaml")))
	res = u.Apply(ctx, []watcher.FileEvent{{Path: "standup.yaml", Operation: watcher.OpDelete}})

	// Then: the record leaves the index
	assert.Equal(t, LiveResult{Removed: 1}, res)
	ids, err = f.vectors.ListIndexedRecordIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLiveUpdater_BadFileIsCountedNotFatal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	files, err := record.NewDirProvider(dir)
	require.NoError(t, err)
	f := newFixture(t, files)
	u := NewLiveUpdater(f.orch, files)

	writeRecord(t, dir, "broken.yaml", "title: [unclosed\n")
	writeRecord(t, dir, "ok.yaml", "title: Fine\n")

	res := u.Apply(ctx, []watcher.FileEvent{
		{Path: "broken.yaml", Operation: watcher.OpCreate},
		{Path: "ok.yaml", Operation: watcher.OpCreate},
	})

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Indexed)
}

func TestLiveUpdater_RunStopsWhenEventsClose(t *testing.T) {
	dir := t.TempDir()
	files, err := record.NewDirProvider(dir)
	require.NoError(t, err)
	f := newFixture(t, files)
	u := NewLiveUpdater(f.orch, files)

	writeRecord(t, dir, "a.yaml", "title: A\n")
	events := make(chan []watcher.FileEvent, 1)
	events <- []watcher.FileEvent{{Path: "a.yaml", Operation: watcher.OpCreate}}
	close(events)

	require.NoError(t, u.Run(context.Background(), events))
	_, ok, err := f.vectors.GetFingerprint(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
}
