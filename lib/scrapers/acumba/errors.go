package acumba

import "fmt"

// AuthError means the UI refused or silently dropped our credentials.
// Callers get exactly one re-authentication attempt before giving up.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("acumba web authentication failed: %s", e.Reason)
}

// ExtractionError is a navigation-level failure entering a filter. Row
// and page level faults never surface as errors; they degrade the result
// instead.
type ExtractionError struct {
	Filter string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting filter %q: %s", e.Filter, e.Reason)
}
