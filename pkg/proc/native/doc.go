// Package native provides the syscall backed side of the toolkit: a
// handle to a target process combining a ptrace based execution
// control state machine with batched scatter/gather access to the
// target's memory via process_vm_readv and process_vm_writev.
//
// The package is mechanism only. It has no retries, no timeouts and no
// internal synchronization; serializing access to a handle and
// deciding when the target must be stopped for a consistent snapshot
// is the caller's job. Linux is the only supported platform.
package native
