package transport

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrInvalidApproach is returned for an unknown transport strategy name.
	ErrInvalidApproach = errors.New("invalid request approach")

	errNoResponse = errors.New("no response received")
)

// TransportError reports a failed transport call: a network failure, an
// unreadable response, or a non-2xx status when errors are not ignored.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// newError wraps a TransportError with the caller's stack so trace sinks can
// render it with %+v.
func newError(op, url string, status int, err error) error {
	return pkgerrors.WithStack(&TransportError{
		Op:         op,
		URL:        url,
		StatusCode: status,
		Err:        err,
	})
}
