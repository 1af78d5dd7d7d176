// Package mcp exposes the amanvoice engine as a Model Context Protocol server.
package mcp

import (
	"context"
	"errors"
	"fmt"

	amanerrors "github.com/Aman-CERP/amanvoice/internal/errors"
)

// MCP error codes. Negative values below -32000 are server-defined.
const (
	ErrCodeIndexNotReady   = -32001
	ErrCodeEmbeddingFailed = -32002
	ErrCodeTimeout         = -32003
	ErrCodeRecordNotFound  = -32004
	ErrCodeIndexLocked     = -32005

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is an error reported to MCP clients.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors. Unknown errors become a
// generic internal error so storage details never leak to clients.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ae *amanerrors.AmanError
	if errors.As(err, &ae) {
		return mapAmanError(ae)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an invalid-parameters error.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for an unknown tool.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

// NewRecordNotFoundError creates an error for an unknown record resource.
func NewRecordNotFoundError(uri string) *MCPError {
	return &MCPError{Code: ErrCodeRecordNotFound, Message: fmt.Sprintf("Record '%s' not found.", uri)}
}

func mapAmanError(ae *amanerrors.AmanError) *MCPError {
	message := ae.Message
	if ae.Suggestion != "" {
		message = ae.Message + ". " + ae.Suggestion
	}

	switch ae.Code {
	case amanerrors.ErrCodeNotInitialized:
		return &MCPError{Code: ErrCodeIndexNotReady, Message: message}
	case amanerrors.ErrCodeEmbeddingFailed, amanerrors.ErrCodeEmbedderUnavailable:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	case amanerrors.ErrCodeRecordNotFound:
		return &MCPError{Code: ErrCodeRecordNotFound, Message: message}
	case amanerrors.ErrCodeIndexLocked:
		return &MCPError{Code: ErrCodeIndexLocked, Message: message}
	case amanerrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	}

	if ae.Category == amanerrors.CategoryValidation {
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: message}
}
