package scoring

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidTeamSize = errors.New("team size must be positive")
	ErrInvalidSchema   = errors.New("invalid attribute schema")
)
