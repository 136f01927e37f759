package document

import "errors"

var (
	// ErrUnknownDocument is returned when an identity is not in the store.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrMalformedEdit is returned when an edit batch cannot be applied. The
	// document is left at its last committed state.
	ErrMalformedEdit = errors.New("malformed edit")
)
