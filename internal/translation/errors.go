package translation

import (
	"fmt"
)

// BackendError is a non-200 response from the completion endpoint. The
// driver recovers from it by embedding Marker() in the output.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("completion endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Marker renders the inline placeholder that replaces a failed translation.
// The body is kept verbatim.
func (e *BackendError) Marker() string {
	return fmt.Sprintf("[Error: %d - %s]", e.StatusCode, e.Body)
}

// TransportError covers connection failures, timeouts and unreadable
// responses. It aborts the whole run.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
