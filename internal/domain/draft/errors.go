package draft

import "errors"

var (
	// ErrInvalidPayload indicates section data failed boundary validation.
	ErrInvalidPayload = errors.New("invalid section payload")
	// ErrUnknownKind indicates a section kind outside the fixed set.
	ErrUnknownKind = errors.New("unknown section kind")
	// ErrFileNotFound indicates the file handle isn't in the files section.
	ErrFileNotFound = errors.New("file not found")
)
