package cost

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidWeight    = errors.New("weights must be finite and non-negative")
	ErrUnknownAttribute = errors.New("attribute weight names no profile attribute")
)
