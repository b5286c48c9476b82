package riot

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the API answers 404. For match detail this
// usually means the match is not available yet, not that it never existed.
var ErrNotFound = errors.New("riot: resource not found")

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	KindFatal ErrorKind = iota
	KindRateLimited
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// APIError is a request failure that survived the client's own retries.
type APIError struct {
	Kind       ErrorKind
	StatusCode int // zero for network failures
	Attempts   int
	URL        string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("riot %s error after %d attempt(s): status %d: %v", e.Kind, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("riot %s error after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the resource is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// KindOf returns the kind of an APIError in err's chain. Errors that are not
// APIErrors are treated as fatal.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindFatal
}
