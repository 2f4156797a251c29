package configstore

import "fmt"

// HTTPError is a non-2xx response from the device-config endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// AuthError indicates the bearer token could not be obtained or was
// rejected. It is surfaced to the caller as a user-visible notice; the
// engine does not retry beyond the bounded token-acquisition attempts.
type AuthError struct {
	Attempts int
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth token unavailable"
	}
	return fmt.Sprintf("auth token unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// AuthFailure marks the error as an authentication failure without
// requiring callers to import this package's concrete type.
func (e *AuthError) AuthFailure() bool { return true }
