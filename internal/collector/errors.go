package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult means the source answered successfully with no bars.
	ErrEmptyResult = errors.New("empty result")
	// ErrRateLimitExceeded means every retry was throttled.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrMalformedResponse means the body could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// NetworkError wraps transport failures, including timeouts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-success answer from the data provider. Code is the
// provider's error code, or the HTTP status when the body carried none.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("api error %d: %s", e.Code, e.Message) }
