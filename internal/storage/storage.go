package storage

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
	// ErrStale is returned by conditional game updates when the stored
	// turn or status no longer matches what the caller read.
	ErrStale = errors.New("stale game state")
)
