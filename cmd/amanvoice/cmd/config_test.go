package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigShow_YAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeRecord(t, dir, ".amanvoice.yaml", "search:\n  keyword_backend: sqlite\n")

	// When: showing the effective config
	out, err := run(t, "config", "show", "--dir", dir)

	// Then: the directory config is merged in
	require.NoError(t, err)
	assert.Contains(t, out, "keyword_backend: sqlite")
	assert.Contains(t, out, "provider: static")
}

func TestConfigShow_JSON(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	out, err := run(t, "config", "show", "--dir", dir, "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "search")
	assert.Contains(t, got, "embeddings")
}

func TestConfigShow_InvalidConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeRecord(t, dir, ".amanvoice.yaml", "search:\n  keyword_backend: lucene\n")

	_, err := run(t, "config", "show", "--dir", dir)

	require.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	isolate(t)

	// When: creating the user config twice
	out, err := run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created user configuration")

	_, err = run(t, "config", "init")

	// Then: the second run refuses without --force
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	// And --force keeps a backup
	out, err = run(t, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Previous configuration saved to")
}

func TestConfigPath(t *testing.T) {
	isolate(t)

	out, err := run(t, "config", "path")

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), filepath.Join("amanvoice", "config.yaml")))
}
