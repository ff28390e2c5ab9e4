package transport

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Approach names a transport strategy.
type Approach string

const (
	// ApproachStreams selects StreamTransport.
	ApproachStreams Approach = "streams"

	// ApproachClient selects RestyTransport.
	ApproachClient Approach = "client"
)

// ParseApproach resolves a strategy name. "curl" is accepted as an alias of
// the client strategy.
func ParseApproach(s string) (Approach, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ApproachStreams), "stream":
		return ApproachStreams, nil
	case string(ApproachClient), "curl":
		return ApproachClient, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidApproach, s)
	}
}

// New returns the transport for approach.
func New(approach Approach, logger zerolog.Logger) (Transport, error) {
	switch approach {
	case ApproachStreams:
		return NewStreamTransport(logger), nil
	case ApproachClient:
		return NewRestyTransport(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidApproach, approach)
	}
}
