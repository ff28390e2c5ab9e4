package client

import (
	"errors"
	"net/http"

	"github.com/Sternrassler/remote-requests/pkg/logging"
	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// Configuration errors returned by the client.
var (
	// ErrURLNotSet is returned by Get when no URL was configured.
	ErrURLNotSet = errors.New("url not set")

	// ErrInvalidApproach is returned for an unknown transport strategy.
	ErrInvalidApproach = transport.ErrInvalidApproach
)

// ErrorClass represents a classification of failed attempts.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnknown is used for errors that did not come from a transport.
	ErrorClassUnknown ErrorClass = "unknown"
)

// ClassifyError categorizes an attempt error for observability and log
// filtering.
func ClassifyError(err error) ErrorClass {
	var terr *transport.TransportError
	if !errors.As(err, &terr) {
		return ErrorClassUnknown
	}

	switch {
	case terr.StatusCode == 0:
		return ErrorClassNetwork
	case terr.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case terr.StatusCode >= 400 && terr.StatusCode < 500:
		return ErrorClassClient
	case terr.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnknown
	}
}

// QuietOn returns a ShouldLog predicate that suppresses failure logs for
// the given error classes.
func QuietOn(classes ...ErrorClass) logging.Predicate {
	quiet := make(map[ErrorClass]bool, len(classes))
	for _, c := range classes {
		quiet[c] = true
	}
	return func(err error) bool {
		return !quiet[ClassifyError(err)]
	}
}
