package types

import (
	"fmt"
	"strings"
	"time"
)

// AuthError indicates the server holds no usable credentials for the
// remote API. Reauth is true when the refresh token was rejected and a
// full interactive authorization is required.
type AuthError struct {
	Reason string
	Reauth bool
	Err    error
}

func (e *AuthError) Error() string {
	if e.Reauth {
		return fmt.Sprintf("authentication failed: %s (re-authorization required)", e.Reason)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Violation describes one field that could not be validated or resolved
// against the project schema.
type Violation struct {
	Field   string   `json:"field"`
	Value   string   `json:"value,omitempty"`
	Reason  string   `json:"reason"`
	Allowed []string `json:"allowed,omitempty"`
}

func (v Violation) String() string {
	if v.Value != "" {
		return fmt.Sprintf("%s (%q): %s", v.Field, v.Value, v.Reason)
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// ValidationError carries every violation found while mapping an issue
// request, not just the first one.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("validation failed with %d violation(s): %s",
		len(e.Violations), strings.Join(parts, "; "))
}

// APIError is a non-auth rejection from the remote issue-tracking API.
// Code and Detail come from the remote error payload when it can be
// parsed; Body holds the raw payload either way.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// TimeoutError indicates an outbound call exceeded its configured
// deadline. Kept distinct from APIError so callers can apply their own
// retry policy.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}
