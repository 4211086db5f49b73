package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidConfig marks configuration problems that are fatal at startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrQueueClosed is returned by queues that have been drained and closed.
var ErrQueueClosed = errors.New("queue closed")

// FetchErrorKind classifies fetch failures.
type FetchErrorKind int

// Fetch failure kinds.
const (
	// FetchTransient covers timeouts, rate limiting and 5xx responses.
	FetchTransient FetchErrorKind = iota + 1
	// FetchPermanent covers 4xx other than 429 and malformed URLs.
	FetchPermanent
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTransient:
		return "transient"
	case FetchPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// FetchError describes a failed retrieval of a single URL.
type FetchError struct {
	URL        string
	StatusCode int
	Kind       FetchErrorKind
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s (%s, status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewStatusError builds a FetchError for a non-2xx terminal status.
func NewStatusError(url string, status int) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: status,
		Kind:       ClassifyStatus(status),
		Err:        errors.New(http.StatusText(status)),
	}
}

// ClassifyStatus maps an HTTP status to a fetch error kind.
func ClassifyStatus(status int) FetchErrorKind {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return FetchTransient
	default:
		return FetchPermanent
	}
}

// IsTransient reports whether err carries a transient FetchError.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchTransient
}

// IsPermanent reports whether err carries a permanent FetchError.
func IsPermanent(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchPermanent
}

// StoreError wraps a failed record write.
type StoreError struct {
	Domain string
	Op     string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Domain, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
