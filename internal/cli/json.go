package cli

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/probe"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
// These map to specific actions automation can take.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeHostNotFound      = "HOST_NOT_FOUND"
	ErrCodeFetchFailed       = "FETCH_FAILED"
	ErrCodeCacheInvalid      = "CACHE_INVALID"
	ErrCodeRouteInvalid      = "ROUTE_INVALID"
	ErrCodeSSHTimeout        = "SSH_TIMEOUT"
	ErrCodeSSHConnectionFail = "SSH_CONNECTION_FAILED"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeUnknown           = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: true,
		Data:    data,
	})
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	if hopErr, ok := err.(*errors.Error); ok {
		return &JSONError{
			Code:       mapErrorCode(hopErr.Code, hopErr.Message),
			Message:    hopErr.Message,
			Suggestion: hopErr.Suggestion,
		}
	}

	if probeErr, ok := err.(*probe.Error); ok {
		return probeErrorToJSON(probeErr)
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	msgLower := strings.ToLower(message)

	switch internalCode {
	case errors.ErrConfig:
		if strings.Contains(msgLower, "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrFetch:
		return ErrCodeFetchFailed
	case errors.ErrCache:
		if strings.Contains(msgLower, "not found") || strings.Contains(msgLower, "no hosts") {
			return ErrCodeHostNotFound
		}
		return ErrCodeCacheInvalid
	case errors.ErrRoute:
		return ErrCodeRouteInvalid
	case errors.ErrSSH:
		return ErrCodeSSHConnectionFail
	case errors.ErrExec:
		return ErrCodeCommandFailed
	}
	return ErrCodeUnknown
}

// probeErrorToJSON maps probe failures to SSH error codes.
func probeErrorToJSON(probeErr *probe.Error) *JSONError {
	code := ErrCodeSSHConnectionFail
	suggestion := "Check the host is running and reachable from your network"

	if probeErr.Reason == probe.FailTimeout {
		code = ErrCodeSSHTimeout
		suggestion = "The host may be behind a relay; check 'hop route' for the plan"
	}

	return &JSONError{
		Code:       code,
		Message:    probeErr.Error(),
		Suggestion: suggestion,
	}
}
