package util

import (
	"errors"
	"fmt"
)

// SyncError standardizes errors surfaced by the synchronization layer.
type SyncError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Error codes for the taxonomy used across the layer.
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNetworkFailed         = "NETWORK_FAILED"
	CodeNormalizationFailed   = "NORMALIZATION_FAILED"
	CodeSecondaryEffectFailed = "SECONDARY_EFFECT_FAILED"
)

// NewSyncError constructs a SyncError.
func NewSyncError(code, message string, details map[string]any) *SyncError {
	return &SyncError{Code: code, Message: message, Details: details}
}

// NewValidationError reports bad or missing caller input.
func NewValidationError(message string, details map[string]any) error {
	return NewSyncError(CodeValidationFailed, message, details)
}

// NewNetworkError wraps a transport or backend failure.
func NewNetworkError(message string, err error) error {
	return &SyncError{Code: CodeNetworkFailed, Message: message, Err: err}
}

// NewNormalizationError reports a server payload missing mandatory fields.
func NewNormalizationError(message string, details map[string]any) error {
	return NewSyncError(CodeNormalizationFailed, message, details)
}

// NewSecondaryEffectError records a failed non-primary step of a composite
// mutation. The primary result it rides on is still valid.
func NewSecondaryEffectError(step string, err error) error {
	return &SyncError{
		Code:    CodeSecondaryEffectFailed,
		Message: fmt.Sprintf("secondary effect %q failed", step),
		Details: map[string]any{"step": step},
		Err:     err,
	}
}

// SecondaryStep extracts the step name from a secondary-effect error, or "".
func SecondaryStep(err error) string {
	se := AsSyncError(err)
	if se == nil || se.Code != CodeSecondaryEffectFailed {
		return ""
	}
	step, _ := se.Details["step"].(string)
	return step
}

// AsSyncError unwraps err to a *SyncError, or nil.
func AsSyncError(err error) *SyncError {
	if err == nil {
		return nil
	}
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}
	return nil
}

func hasCode(err error, code string) bool {
	se := AsSyncError(err)
	return se != nil && se.Code == code
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return hasCode(err, CodeValidationFailed) }

// IsNetwork reports whether err is a transport/backend failure.
func IsNetwork(err error) bool { return hasCode(err, CodeNetworkFailed) }

// IsNormalization reports whether err is a payload normalization failure.
func IsNormalization(err error) bool { return hasCode(err, CodeNormalizationFailed) }

// IsSecondaryEffect reports whether err is a degraded secondary effect.
func IsSecondaryEffect(err error) bool { return hasCode(err, CodeSecondaryEffectFailed) }

// MapError converts generic errors into the taxonomy, defaulting to a
// network failure since unknown errors at this layer come from the backend.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if se := AsSyncError(err); se != nil {
		return se
	}
	return NewNetworkError("backend call failed", err)
}
