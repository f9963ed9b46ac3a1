package privatemedia

import "errors"

var (
	// ErrInvalidPath is returned when a path would escape the root directory
	ErrInvalidPath = errors.New("invalid path")
	// ErrPermissionDenied is returned when the caller may not read a path
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrBackendIO is returned when reading a file fails for a reason other than absence
	ErrBackendIO = errors.New("backend io error")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidGrant is returned when a grant has an empty subject or a malformed prefix
	ErrInvalidGrant = errors.New("invalid grant")
)
