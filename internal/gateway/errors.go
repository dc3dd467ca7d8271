package gateway

import "fmt"

// APIError reports a failed gateway call: a non-200 status, a malformed
// response body, or a transport-level failure. StatusCode is zero when the
// failure happened before a status line was received.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway request to %s failed with status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway request to %s failed: %s", e.Endpoint, e.Message)
}

// AuthenticationError reports an authenticated call attempted with no token
// available, or a failed token acquisition.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ValidationError reports a rejected tool argument. It is raised before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Message)
}
