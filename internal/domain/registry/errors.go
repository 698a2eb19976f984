package registry

import "errors"

var (
	// ErrSessionNotFound indicates the draft session isn't registered.
	ErrSessionNotFound = errors.New("draft session not found")
	// ErrInvalidInput indicates a missing owner or session id.
	ErrInvalidInput = errors.New("invalid registry input")
)
