package client

import "errors"

var (
	// ErrServerNotRunning is returned when nothing listens on the server address
	ErrServerNotRunning = errors.New("server not running")

	// ErrPermissionDenied is returned when the unix socket cannot be opened by the current user
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the server for a path it does not serve
	ErrNotFound = errors.New("404 not found")
)
