package listingapi

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized indicates the remote API rejected the bearer token.
	ErrUnauthorized = errors.New("listing api unauthorized")
	// ErrMalformedResponse indicates a 2xx response without the envelope.
	ErrMalformedResponse = errors.New("listing api response is not an envelope")
	// ErrNoToken indicates a token refresh was asked for without a token.
	ErrNoToken = errors.New("no token to renew")
)

// RemoteError is a non-success envelope or non-2xx response.
type RemoteError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Errors) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(e.Errors, "; ")
}

// Is lets errors.Is match ErrUnauthorized on 401 responses.
func (e *RemoteError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Temporary reports whether the request may succeed if retried.
func (e *RemoteError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}
