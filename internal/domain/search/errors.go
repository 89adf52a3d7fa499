package search

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoTrials    = errors.New("trial budget must be positive")
	ErrIncomplete  = errors.New("search incomplete")
	ErrNoCandidate = errors.New("no trial produced a finite cost")
)
