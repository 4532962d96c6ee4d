package openbanking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayload is returned when a response body is not the json expected from the endpoint.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrHTTPStatus is returned when an endpoint responds with a non 2xx status.
	ErrHTTPStatus = errors.New("unexpected http status")
)

// StatusError carries the status of a failed request, it matches ErrHTTPStatus with errors.Is.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s: GET %s returned %d", ErrHTTPStatus.Error(), e.URL, e.StatusCode)
}

func (e StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}
