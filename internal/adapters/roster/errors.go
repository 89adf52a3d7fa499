package roster

import "errors"

var (
	// ErrInvalidRoster is returned when a roster document cannot be used.
	ErrInvalidRoster = errors.New("invalid roster")
	// ErrDuplicatePlayer is returned when two roster entries share a name.
	ErrDuplicatePlayer = errors.New("duplicate player")
)
