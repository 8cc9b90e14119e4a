package store

import "errors"

var (
	ErrConflict      = errors.New("conflict")
	ErrNotFound      = errors.New("not found")
	ErrStaleStatus   = errors.New("status changed concurrently")
	ErrPartyNotFound = errors.New("party not found")
)
