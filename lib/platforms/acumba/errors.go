package acumba

import "fmt"

// ConfigError means the client cannot be used at all; it is raised before
// any network activity.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("acumba client misconfigured: %s", e.Reason)
}

// APIError is a non-2xx platform response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("acumba api %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// ValidationError is a response whose shape does not match any form the
// parsing boundary knows. It is never retried; retrying a schema mismatch
// only repeats it.
type ValidationError struct {
	Endpoint string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("acumba api %s: unexpected response shape: %s", e.Endpoint, e.Reason)
}
