package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amanvoice.log")
	lines := []string{
		`{"time":"2026-03-01T09:30:00Z","level":"DEBUG","msg":"record_indexed","record_id":"rec-1"}`,
		`{"time":"2026-03-01T09:30:01Z","level":"INFO","msg":"sync_complete","indexed":2}`,
		`{"time":"2026-03-01T09:30:02Z","level":"WARN","msg":"vector_search_unavailable","error":"ollama down"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestLogsCmd_Tail(t *testing.T) {
	isolate(t)
	path := writeLog(t)

	out, err := run(t, "logs", "--file", path, "-n", "2")

	require.NoError(t, err)
	assert.NotContains(t, out, "record_indexed")
	assert.Contains(t, out, "sync_complete")
	assert.Contains(t, out, "vector_search_unavailable")
}

func TestLogsCmd_LevelAndGrep(t *testing.T) {
	isolate(t)
	path := writeLog(t)

	out, err := run(t, "logs", "--file", path, "--level", "info", "--grep", "sync")

	require.NoError(t, err)
	assert.Contains(t, out, "sync_complete")
	assert.NotContains(t, out, "record_indexed")
	assert.NotContains(t, out, "vector_search_unavailable")
}

func TestLogsCmd_InvalidPattern(t *testing.T) {
	isolate(t)
	path := writeLog(t)

	_, err := run(t, "logs", "--file", path, "--grep", "(")

	require.Error(t, err)
}

func TestLogsCmd_MissingFile(t *testing.T) {
	isolate(t)

	_, err := run(t, "logs")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log file found")
}
