package suppression

import "errors"

var (
	// ErrNotFound is returned when removing an entry that does not exist.
	ErrNotFound = errors.New("suppression entry not found")

	// ErrInvalidAddress is returned when an email address does not
	// normalize to a deliverable form.
	ErrInvalidAddress = errors.New("email address is not valid")
)
