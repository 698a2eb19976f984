package upload

import "errors"

// ErrMissingRemoteID indicates a successful create response without a
// listing id to anchor the session to.
var ErrMissingRemoteID = errors.New("listing api response carried no rental id")
