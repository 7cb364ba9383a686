package didprism

import (
	"errors"
	"fmt"
)

var (
	// Returned by NewClient if no HTTP client is provided
	ErrNoHTTPClient = errors.New("no HTTP client provided")

	// Returned by resolution methods when the DID argument is empty
	ErrEmptyDID = errors.New("empty DID")
)

// ResolutionError is returned whenever the resolver responds with a
// non-2xx status. It carries the status code and the raw response body,
// uninterpreted; callers that care about the distinction between "not
// found", "deactivated" etc. must inspect the body themselves.
type ResolutionError struct {
	StatusCode int
	Body       string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolver returned status %d: %s", e.StatusCode, e.Body)
}
