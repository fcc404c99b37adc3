package proc

import "errors"

// Error taxonomy shared by the native backend. Every kernel outcome a
// caller can recover from is translated to exactly one of these; an
// outcome outside the set is a bug in the translation table and panics
// at the point of translation.
var (
	// ErrProcessNotFound is returned when the target process does not
	// exist, either at handle construction or at any later point.
	ErrProcessNotFound = errors.New("no such process")

	// ErrAccessDenied is returned when the kernel refuses access to
	// the target's address space.
	ErrAccessDenied = errors.New("access to target process denied")

	// ErrSystemResources is returned when the kernel could not
	// allocate the resources needed for a transfer.
	ErrSystemResources = errors.New("out of system resources")

	// ErrBadAddress is returned when a remote address is unmapped or
	// otherwise unreachable at the start of a transfer.
	ErrBadAddress = errors.New("bad remote address")

	// ErrInvalidArgument is returned for malformed transfer arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState is returned when a trace operation is attempted
	// in the wrong state, or when an expected tracee stop was not
	// observed.
	ErrInvalidState = errors.New("tracee not in expected state")
)
