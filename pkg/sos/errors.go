package sos

import "errors"

// Sentinel errors matching the error kinds a caller must distinguish:
// invalid argument, permission, not-found, already-exists, resource
// exhaustion, corrupt store, and unimplemented operations.
var (
	ErrInvalid       = errors.New("sos: invalid argument")
	ErrPermission    = errors.New("sos: permission denied")
	ErrNotFound      = errors.New("sos: not found")
	ErrExist         = errors.New("sos: already exists")
	ErrNoSpace       = errors.New("sos: insufficient storage")
	ErrCorrupt       = errors.New("sos: corrupt store")
	ErrUnimplemented = errors.New("sos: not implemented")

	// ErrNoPrimary is returned when an operation that requires a
	// PRIMARY partition (obj_new, container extend) finds none.
	ErrNoPrimary = errors.New("sos: container has no primary partition")

	// ErrClosed names the closed-container error kind. No operation in
	// this package returns it: Put does not close a container whose
	// reference count reaches zero.
	ErrClosed = errors.New("sos: container is closed")
)
