package client

import "errors"

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAlreadyExists = errors.New("user already exists")

	// ErrLocalDataNotAvailable means no online login was cached locally.
	ErrLocalDataNotAvailable = errors.New("local data not available")
)
