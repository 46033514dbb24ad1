package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPGxError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrInvalidInput,
			message:   "At least one drug is required",
			details:   "The drugs list was empty",
			requestID: "req-123",
		},
		{
			name:      "Matching error",
			code:      ErrMatching,
			message:   "Risk evaluation failed",
			details:   "unexpected fault in rule matching",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPGxError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}

			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}

			// Check that timestamp is recent (within last minute)
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		message string
		value   interface{}
	}{
		{
			name:    "String validation error",
			field:   "drugs",
			message: "Cannot be empty",
			value:   "",
		},
		{
			name:    "Integer validation error",
			field:   "position",
			message: "Must be positive",
			value:   -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message, tt.value)

			if err.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, err.Field)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Value != tt.value {
				t.Errorf("Expected value %v, got %v", tt.value, err.Value)
			}

			expectedError := "invalid " + tt.field + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestErrorConstants(t *testing.T) {
	constants := map[string]string{
		"ErrInvalidInput":   ErrInvalidInput,
		"ErrValidation":     ErrValidation,
		"ErrMatching":       ErrMatching,
		"ErrInternalServer": ErrInternalServer,
		"ErrVCFParsing":     ErrVCFParsing,
	}

	expectedValues := map[string]string{
		"ErrInvalidInput":   "INVALID_INPUT",
		"ErrValidation":     "VALIDATION_ERROR",
		"ErrMatching":       "MATCHING_ERROR",
		"ErrInternalServer": "INTERNAL_SERVER_ERROR",
		"ErrVCFParsing":     "VCF_PARSING_ERROR",
	}

	for name, actual := range constants {
		expected := expectedValues[name]
		if actual != expected {
			t.Errorf("Expected %s to be %s, got %s", name, expected, actual)
		}
	}
}

func TestResponseError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		code        string
		message     string
		details     string
		callerFault bool
	}{
		{
			name:        "validation error",
			err:         NewValidationError("drugs", "at least one drug is required", nil),
			code:        ErrValidation,
			message:     "at least one drug is required",
			details:     "drugs",
			callerFault: true,
		},
		{
			name:        "wrapped vcf error",
			err:         fmt.Errorf("request: %w", NewPGxError(ErrVCFParsing, "failed to parse VCF content", "no data lines", "")),
			code:        ErrVCFParsing,
			message:     "failed to parse VCF content",
			details:     "no data lines",
			callerFault: true,
		},
		{
			name:    "matching fault",
			err:     NewPGxError(ErrMatching, "variant matching failed", "index out of range", ""),
			code:    ErrInternalServer,
			message: "internal server error",
		},
		{
			name:    "plain error",
			err:     errors.New("knowledge base corrupted"),
			code:    ErrInternalServer,
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, callerFault := ResponseError(tt.err, "corr-9")

			if callerFault != tt.callerFault {
				t.Errorf("Expected callerFault %v, got %v", tt.callerFault, callerFault)
			}
			if body.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, body.Code)
			}
			if body.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, body.Message)
			}
			if body.Details != tt.details {
				t.Errorf("Expected details %q, got %q", tt.details, body.Details)
			}
			if body.RequestID != "corr-9" {
				t.Errorf("Expected requestID corr-9, got %s", body.RequestID)
			}
		})
	}
}
