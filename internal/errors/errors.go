package errors

import "fmt"

// ErrorCode represents a Protokoll error code.
type ErrorCode string

const (
	ErrCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE" // 501, speech recognition missing in this environment
	ErrPermissionDenied      ErrorCode = "PERMISSION_DENIED"      // 403, microphone denied or device unavailable
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"        // 400
	ErrNotFound              ErrorCode = "NOT_FOUND"              // 404
	ErrNoSpeech              ErrorCode = "NO_SPEECH"              // 422, transient recognition error, session continues
	ErrAborted               ErrorCode = "ABORTED"                // self-inflicted engine stop, never surfaced
	ErrPersistence           ErrorCode = "PERSISTENCE"            // 500, write failed; retried on next debounce
	ErrGenerationFailed      ErrorCode = "GENERATION_FAILED"      // 502, remote protocol generation failed
	ErrEmailFailed           ErrorCode = "EMAIL_FAILED"           // 502
	ErrInternal              ErrorCode = "INTERNAL"               // 500
)

// ProtokollError represents a structured error with code, status, and details.
type ProtokollError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ProtokollError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewCapabilityUnavailable creates an error for a host without speech recognition.
// Non-retryable: the recording feature cannot run in this environment.
func NewCapabilityUnavailable(capability string) *ProtokollError {
	return &ProtokollError{
		Code:    ErrCapabilityUnavailable,
		Status:  501,
		Message: fmt.Sprintf("%s is not available in this environment", capability),
		Details: map[string]any{"capability": capability},
	}
}

// NewPermissionDenied creates an error for microphone permission or device failures.
func NewPermissionDenied(msg string) *ProtokollError {
	return &ProtokollError{
		Code:    ErrPermissionDenied,
		Status:  403,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ProtokollError {
	return &ProtokollError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a meeting cannot be found.
func NewNotFound(identifier string) *ProtokollError {
	return &ProtokollError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("meeting not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFolderNotFound creates a 404 error for a missing folder.
func NewFolderNotFound(folder string) *ProtokollError {
	return &ProtokollError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("folder not found: %s", folder),
		Details: map[string]any{"folder": folder},
	}
}

// NewNoSpeech creates the transient no-speech recognition error.
// Surfaced as a dismissible notice; the session stays active.
func NewNoSpeech() *ProtokollError {
	return &ProtokollError{
		Code:    ErrNoSpeech,
		Status:  422,
		Message: "no speech detected",
	}
}

// NewAborted marks an engine stop the session itself requested.
// Callers must swallow this kind entirely.
func NewAborted() *ProtokollError {
	return &ProtokollError{
		Code:    ErrAborted,
		Status:  200,
		Message: "recognition aborted by session",
	}
}

// NewPersistence wraps a failed store write. Non-fatal: in-memory state
// remains source of truth and the next debounce cycle retries.
func NewPersistence(err error) *ProtokollError {
	msg := "persistence write failed"
	if err != nil {
		msg = err.Error()
	}
	return &ProtokollError{
		Code:    ErrPersistence,
		Status:  500,
		Message: msg,
	}
}

// NewGenerationFailed wraps a failed remote protocol-generation call.
func NewGenerationFailed(err error) *ProtokollError {
	msg := "protocol generation failed"
	if err != nil {
		msg = err.Error()
	}
	return &ProtokollError{
		Code:    ErrGenerationFailed,
		Status:  502,
		Message: msg,
	}
}

// NewEmailFailed wraps a failed email delivery call.
func NewEmailFailed(err error) *ProtokollError {
	msg := "email delivery failed"
	if err != nil {
		msg = err.Error()
	}
	return &ProtokollError{
		Code:    ErrEmailFailed,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ProtokollError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ProtokollError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a ProtokollError with the given code.
func Is(err error, code ErrorCode) bool {
	if pErr, ok := err.(*ProtokollError); ok {
		return pErr.Code == code
	}
	return false
}
