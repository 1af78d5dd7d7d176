package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogFileName is the log file inside DefaultLogDir.
const LogFileName = "amanvoice.log"

// DefaultLogDir returns ~/.amanvoice/logs, or a temp dir fallback when the
// home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amanvoice", "logs")
	}
	return filepath.Join(home, ".amanvoice", "logs")
}

// DefaultLogPath returns the default log file.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), LogFileName)
}

// FindLogFile returns explicit when given and present, otherwise the default
// log file if it exists.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return explicit, nil
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no log file found at %s\nRun a command with --debug to start file logging", path)
	}
	return path, nil
}
