package partition

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidLayout  = errors.New("team count and team size must be positive")
	ErrSizeMismatch   = errors.New("player count does not match teams times team size")
	ErrLayoutTooLarge = errors.New("team count times team size overflows")
)
