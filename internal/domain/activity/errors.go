package activity

import "errors"

// ErrInvalidInput indicates an activity entry can't be logged.
var ErrInvalidInput = errors.New("invalid activity input")
