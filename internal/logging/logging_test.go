package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()
	if filepath.Base(path) != LogFileName {
		t.Errorf("DefaultLogPath should end with %s, got: %s", LogFileName, path)
	}
	if !strings.Contains(path, ".amanvoice") {
		t.Errorf("DefaultLogPath should live under .amanvoice, got: %s", path)
	}
}

func TestConfigs(t *testing.T) {
	if cfg := DefaultConfig(); cfg.Level != "info" || !cfg.WriteToStderr || cfg.MaxFiles != 5 {
		t.Errorf("unexpected default config: %+v", cfg)
	}
	if cfg := DebugConfig(); cfg.Level != "debug" {
		t.Errorf("expected debug level, got: %s", cfg.Level)
	}
	if cfg := ServeConfig("warn"); cfg.WriteToStderr || cfg.Level != "warn" {
		t.Errorf("serve config must not write to stderr: %+v", cfg)
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: path})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Debug("sync_complete", slog.Int("indexed", 3))
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(data, &line); err != nil {
		t.Fatalf("log line is not JSON: %q", data)
	}
	if line["msg"] != "sync_complete" || line["indexed"] != float64(3) {
		t.Errorf("unexpected log line: %v", line)
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	cleanup()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Errorf("level filter not applied: %s", data)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFindLogFile(t *testing.T) {
	if _, err := FindLogFile("/nonexistent/amanvoice.log"); err == nil {
		t.Error("expected error for missing explicit path")
	}

	path := filepath.Join(t.TempDir(), "x.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindLogFile(path)
	if err != nil || got != path {
		t.Errorf("FindLogFile(%q) = %q, %v", path, got, err)
	}
}

func TestRotatingWriter_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer func() { _ = w.Close() }()
	w.SetSyncEachWrite(false)

	// Each chunk is just over half the limit, so every second write rotates.
	chunk := []byte(strings.Repeat("x", 600*1024))
	for i := 0; i < 5; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist", p)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected at most 2 backups")
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "test.log"), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be a no-op: %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("expected write after close to fail")
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	w, err := NewRotatingWriter(path, 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	w.SetSyncEachWrite(false)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = fmt.Fprintf(w, "goroutine %d line %d\n", g, i)
			}
		}(g)
	}
	wg.Wait()
	_ = w.Close()

	data, _ := os.ReadFile(path)
	if got := strings.Count(string(data), "\n"); got != 400 {
		t.Errorf("expected 400 lines, got %d", got)
	}
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amanvoice.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseLine(t *testing.T) {
	e := ParseLine(`{"time":"2026-01-02T03:04:05.000Z","level":"WARN","msg":"record_index_failed","record_id":"a"}`)
	if !e.Valid || e.Level != "WARN" || e.Msg != "record_index_failed" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Attrs["record_id"] != "a" {
		t.Errorf("expected record_id attr, got %v", e.Attrs)
	}
	if e.Time.Hour() != 3 {
		t.Errorf("time not parsed: %v", e.Time)
	}

	if bad := ParseLine("plain text"); bad.Valid || bad.Raw != "plain text" {
		t.Errorf("non-JSON line should be kept raw: %+v", bad)
	}
}

func TestViewer_TailFilters(t *testing.T) {
	path := writeLog(t,
		`{"time":"2026-01-02T03:04:05Z","level":"DEBUG","msg":"one"}`,
		`{"time":"2026-01-02T03:04:06Z","level":"INFO","msg":"two"}`,
		`{"time":"2026-01-02T03:04:07Z","level":"WARN","msg":"three"}`,
		`{"time":"2026-01-02T03:04:08Z","level":"ERROR","msg":"four"}`,
	)

	v := NewViewer(ViewerConfig{Level: "info", NoColor: true}, nil)
	entries, err := v.Tail(path, 3)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 3 || entries[0].Msg != "two" {
		t.Fatalf("expected last three at info+, got %+v", entries)
	}

	v = NewViewer(ViewerConfig{Pattern: regexp.MustCompile("thr")}, nil)
	entries, _ = v.Tail(path, 10)
	if len(entries) != 1 || entries[0].Msg != "three" {
		t.Errorf("pattern filter failed: %+v", entries)
	}
}

func TestViewer_FormatSortsAttrs(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)
	e := ParseLine(`{"time":"2026-01-02T03:04:05Z","level":"INFO","msg":"m","b":2,"a":1}`)

	got := v.Format(e)

	if got != "03:04:05.000 INFO  m a=1 b=2" {
		t.Errorf("unexpected format: %q", got)
	}
}

func TestViewer_Follow(t *testing.T) {
	path := writeLog(t, `{"level":"INFO","msg":"old"}`)
	v := NewViewer(ViewerConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := make(chan Entry, 1)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, out) }()

	// Give Follow time to seek to the end before appending.
	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"level":"INFO","msg":"new"}` + "\n")
	_ = f.Close()

	select {
	case e := <-out:
		if e.Msg != "new" {
			t.Errorf("expected new entry, got %q", e.Msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for followed entry")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned error: %v", err)
	}
}
