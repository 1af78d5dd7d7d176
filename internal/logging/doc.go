// Package logging configures slog for amanvoice.
//
// Without --debug only warnings reach stderr. With --debug, JSON logs are
// also written to ~/.amanvoice/logs/amanvoice.log with size-based rotation.
// In serve mode logs go to the file only, since stdout and stderr belong to
// the MCP transport.
package logging
