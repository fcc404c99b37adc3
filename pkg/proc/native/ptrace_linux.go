package native

import (
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

// Every trace operation funnels through the wrappers in this file.
// The unix package only wraps a subset of the ptrace requests we need,
// the rest go through Syscall6 directly.

// _NT_PRSTATUS selects the general purpose register set for
// PTRACE_GETREGSET/PTRACE_SETREGSET.
const _NT_PRSTATUS = 1

// ptraceSeize executes ptrace(PTRACE_SEIZE), attaching to pid without
// stopping it.
func ptraceSeize(pid int, flags uintptr) error {
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_SEIZE, uintptr(pid), 0, flags, 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// ptraceInterrupt executes ptrace(PTRACE_INTERRUPT), requesting an
// asynchronous stop of a seized tracee.
func ptraceInterrupt(pid int) error {
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_INTERRUPT, uintptr(pid), 0, 0, 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// ptraceListen executes ptrace(PTRACE_LISTEN).
func ptraceListen(pid int) error {
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_LISTEN, uintptr(pid), 0, 0, 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// ptraceCont executes ptrace(PTRACE_CONT), delivering sig on resume.
func ptraceCont(pid, sig int) error {
	return sys.PtraceCont(pid, sig)
}

// ptraceSyscall executes ptrace(PTRACE_SYSCALL): like PTRACE_CONT but
// the tracee stops again at the next system call boundary.
func ptraceSyscall(pid, sig int) error {
	return sys.PtraceSyscall(pid, sig)
}

// ptraceSingleStep executes ptrace(PTRACE_SINGLESTEP), delivering sig
// on resume.
func ptraceSingleStep(pid, sig int) error {
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, uintptr(sys.PTRACE_SINGLESTEP), uintptr(pid), 0, uintptr(sig), 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// ptraceDetach calls ptrace(PTRACE_DETACH), delivering sig on resume.
func ptraceDetach(pid, sig int) error {
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_DETACH, uintptr(pid), 1, uintptr(sig), 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// ptraceGetRegSet executes ptrace(PTRACE_GETREGSET) for NT_PRSTATUS,
// filling the n bytes at p with the tracee's general purpose
// registers in one vectored transfer.
func ptraceGetRegSet(pid int, p unsafe.Pointer, n int) error {
	iov := sys.Iovec{Base: (*byte)(p)}
	iov.SetLen(n)
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_GETREGSET, uintptr(pid), _NT_PRSTATUS, uintptr(unsafe.Pointer(&iov)), 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// ptraceSetRegSet executes ptrace(PTRACE_SETREGSET) for NT_PRSTATUS,
// writing the n bytes at p back as the tracee's full general purpose
// register set.
func ptraceSetRegSet(pid int, p unsafe.Pointer, n int) error {
	iov := sys.Iovec{Base: (*byte)(p)}
	iov.SetLen(n)
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_SETREGSET, uintptr(pid), _NT_PRSTATUS, uintptr(unsafe.Pointer(&iov)), 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// remoteIovec is like golang.org/x/sys/unix.Iovec but uses uintptr
// for the base field instead of *byte so that we can use it with
// addresses that belong to the target process.
type remoteIovec struct {
	base uintptr
	len  uintptr
}
