package webhook

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication covers a missing or mismatched secret token.
	// Requests failing with it never reach the ingestion queue.
	ErrAuthentication = errors.New("webhook authentication failed")

	// ErrMalformedRequest covers missing routing headers, an oversized
	// body, or an unparsable payload.
	ErrMalformedRequest = errors.New("malformed webhook request")
)

// UnsupportedEventError marks a payload shape nothing downstream can render.
// The item is logged and dropped; processing continues with the next one.
type UnsupportedEventError struct {
	Kind string
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported event %q", e.Kind)
}
