package notifications

import "errors"

var (
	// ErrInvalidRequest indicates a caller bug, e.g. creating a
	// notification without an id.
	ErrInvalidRequest = errors.New("notifications: invalid request")

	// ErrNotFound indicates the referenced record or recipient state does
	// not exist.
	ErrNotFound = errors.New("notifications: not found")
)
