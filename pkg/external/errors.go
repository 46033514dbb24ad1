package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-success response from an upstream backend
type APIError struct {
	Service    string `json:"service"`
	StatusCode int    `json:"status_code"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s returned %d %s: %s", e.Service, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Message)
}

var fatalStatuses = map[string]struct{}{
	"UNAUTHENTICATED":    {},
	"PERMISSION_DENIED":  {},
	"RESOURCE_EXHAUSTED": {},
}

var fatalMarkers = []string{
	"api key expired",
	"api_key_invalid",
	"api key not valid",
	"permission denied",
	"resource exhausted",
	"quota",
	"rate limit",
}

// IsCredentialFatal reports whether err means the credential that produced it
// should not be used again: invalid, expired, forbidden or out of quota.
// Timeouts, cancellation, network errors and server-side faults are transient.
func IsCredentialFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return true
		}
		if _, ok := fatalStatuses[strings.ToUpper(apiErr.Status)]; ok {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
