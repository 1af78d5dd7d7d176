package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points user config and logs at temp dirs and forces the offline
// embedder.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	t.Setenv("AMANVOICE_EMBEDDINGS_PROVIDER", "static")
	for _, key := range []string{
		"AMANVOICE_RECORDS_DIR",
		"AMANVOICE_DATA_DIR",
		"AMANVOICE_KEYWORD_BACKEND",
		"AMANVOICE_STORAGE_DRIVER",
		"AMANVOICE_TRANSPORT",
	} {
		t.Setenv(key, "")
	}
}

func writeRecord(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// notesDir creates a records directory with two notes.
func notesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeRecord(t, dir, "plumber.yaml", `id: rec-plumber
title: Kitchen sink leak
summary: Call the plumber about the kitchen sink
tags: [home, repairs]
text: The kitchen sink has been leaking since Monday. Call the plumber tomorrow morning.
timestamp: 2026-03-01T09:30:00Z
`)
	writeRecord(t, dir, "budget.yaml", `id: rec-budget
title: Quarterly budget review
summary: Notes from the budget meeting
tags: [work]
text: Marketing spend is over budget by ten percent. Revisit the forecast next week.
timestamp: 2026-03-02T14:00:00Z
`)
	return dir
}

// run executes the root command with args and returns combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
