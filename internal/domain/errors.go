package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes returned to HTTP and MCP callers
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrVCFParsing     = "VCF_PARSING_ERROR"
	ErrMatching       = "MATCHING_ERROR"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// PGxError is the error body of a failed drug-risk analysis. Upstream model
// and retrieval failures never surface here; they degrade the explanation.
type PGxError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *PGxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CallerFault reports whether the request itself was at fault
func (e *PGxError) CallerFault() bool {
	switch e.Code {
	case ErrInvalidInput, ErrValidation, ErrVCFParsing:
		return true
	}
	return false
}

// NewPGxError creates a new PGxError with timestamp
func NewPGxError(code, message, details, requestID string) *PGxError {
	return &PGxError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError rejects a malformed analysis request before any matching runs
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ResponseError maps err to the body sent back to the caller, stamped with
// requestID. Caller faults keep their wording and the second result is true;
// anything else collapses to a generic internal error.
func ResponseError(err error, requestID string) (*PGxError, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return NewPGxError(ErrValidation, validationErr.Message, validationErr.Field, requestID), true
	}

	var pgxErr *PGxError
	if errors.As(err, &pgxErr) && pgxErr.CallerFault() {
		return NewPGxError(pgxErr.Code, pgxErr.Message, pgxErr.Details, requestID), true
	}

	return NewPGxError(ErrInternalServer, "internal server error", "", requestID), false
}
