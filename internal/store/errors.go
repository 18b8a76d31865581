package store

import "errors"

var (
	// ErrJobNotFound indicates the job record could not be found.
	ErrJobNotFound = errors.New("alignment job not found")
)
