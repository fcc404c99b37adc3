package native

import (
	"fmt"

	sys "golang.org/x/sys/unix"

	"github.com/vmtrace/vmtrace/pkg/logflags"
	"github.com/vmtrace/vmtrace/pkg/proc"
)

// traceState tracks which trace operations are currently legal on a
// handle. Transitions are guarded before any syscall is issued; a call
// from the wrong state fails with proc.ErrInvalidState.
type traceState uint8

const (
	// stateDetached is both the initial and the terminal state.
	stateDetached traceState = iota
	// stateSeized: attached, tracee still executing, no stop observed
	// yet.
	stateSeized
	// stateStopped: a stop was observed, registers and memory may be
	// inspected consistently.
	stateStopped
	// stateRunning: resumed after a stop (or listening after a group
	// stop), not inspectable until the next observed stop.
	stateRunning
)

func (s traceState) String() string {
	switch s {
	case stateDetached:
		return "detached"
	case stateSeized:
		return "seized"
	case stateStopped:
		return "stopped"
	case stateRunning:
		return "running"
	}
	return fmt.Sprintf("traceState(%d)", uint8(s))
}

// Process represents a target process the caller introspects. It
// bundles the process identifier with the tracing state and is the
// unit everything else in this package operates on.
//
// A Process is not safe for concurrent use: tracing semantics require
// all operations against one tracee to come from a single logical
// owner, and the handle performs no internal locking.
type Process struct {
	pid      int
	state    traceState
	maxBatch int
}

// New returns a handle for the process identified by pid. The pid is
// validated with a signal-less existence probe (kill with signal 0);
// a probe failure of any kind reports ErrProcessNotFound. The probe
// holds only at construction time: the process can vanish at any
// moment afterwards and every operation on the handle must be
// prepared to report ErrProcessNotFound itself.
func New(pid int) (*Process, error) {
	if err := sys.Kill(pid, sys.Signal(0)); err != nil {
		return nil, fmt.Errorf("probe of pid %d failed: %w", pid, proc.ErrProcessNotFound)
	}
	return &Process{
		pid:      pid,
		state:    stateDetached,
		maxBatch: maxVecs,
	}, nil
}

// Pid returns the identifier of the target process.
func (p *Process) Pid() int {
	return p.pid
}

// Seize attaches to the target without stopping it. flags are passed
// through to PTRACE_SEIZE (PTRACE_O_* option bits).
func (p *Process) Seize(flags uintptr) error {
	if p.state != stateDetached {
		return fmt.Errorf("seize in state %s: %w", p.state, proc.ErrInvalidState)
	}
	if err := ptraceSeize(p.pid, flags); err != nil {
		return fmt.Errorf("ptrace seize pid %d: %w", p.pid, err)
	}
	p.state = stateSeized
	if logflags.Tracer() {
		logflags.TracerLogger().Debugf("seized pid %d", p.pid)
	}
	return nil
}

// Interrupt requests an asynchronous stop and blocks until the
// tracee's wait status reports one. If the observed status is not a
// stop the call fails with ErrInvalidState. The wait blocks
// indefinitely if the kernel never delivers a stop; the handle has no
// timeout of its own.
func (p *Process) Interrupt() error {
	if p.state == stateDetached {
		return fmt.Errorf("interrupt in state %s: %w", p.state, proc.ErrInvalidState)
	}
	if err := ptraceInterrupt(p.pid); err != nil {
		return fmt.Errorf("ptrace interrupt pid %d: %w", p.pid, err)
	}
	var status sys.WaitStatus
	wpid, err := sys.Wait4(p.pid, &status, 0, nil)
	if err != nil {
		return fmt.Errorf("wait4 pid %d: %w", p.pid, err)
	}
	if !status.Stopped() {
		return fmt.Errorf("wait on pid %d reported status %#x, not a stop: %w", wpid, uint32(status), proc.ErrInvalidState)
	}
	p.state = stateStopped
	if logflags.Tracer() {
		logflags.TracerLogger().Debugf("interrupted pid %d, stop signal %v", p.pid, status.StopSignal())
	}
	return nil
}

// Cont resumes the stopped tracee, delivering sig on resume (0 for
// none).
func (p *Process) Cont(sig int) error {
	if p.state != stateStopped {
		return fmt.Errorf("cont in state %s: %w", p.state, proc.ErrInvalidState)
	}
	if err := ptraceCont(p.pid, sig); err != nil {
		return fmt.Errorf("ptrace cont pid %d: %w", p.pid, err)
	}
	p.state = stateRunning
	return nil
}

// Syscall resumes the stopped tracee like Cont but arranges for it to
// stop again at the next system call boundary.
func (p *Process) Syscall(sig int) error {
	if p.state != stateStopped {
		return fmt.Errorf("syscall in state %s: %w", p.state, proc.ErrInvalidState)
	}
	if err := ptraceSyscall(p.pid, sig); err != nil {
		return fmt.Errorf("ptrace syscall pid %d: %w", p.pid, err)
	}
	p.state = stateRunning
	return nil
}

// SingleStep resumes the stopped tracee for a single instruction.
func (p *Process) SingleStep(sig int) error {
	if p.state != stateStopped {
		return fmt.Errorf("singlestep in state %s: %w", p.state, proc.ErrInvalidState)
	}
	if err := ptraceSingleStep(p.pid, sig); err != nil {
		return fmt.Errorf("ptrace singlestep pid %d: %w", p.pid, err)
	}
	p.state = stateRunning
	return nil
}

// Listen resumes event listening from a group stop without fully
// running the tracee. Until the next observed stop the tracee is not
// inspectable through this handle.
func (p *Process) Listen() error {
	if p.state != stateStopped {
		return fmt.Errorf("listen in state %s: %w", p.state, proc.ErrInvalidState)
	}
	if err := ptraceListen(p.pid); err != nil {
		return fmt.Errorf("ptrace listen pid %d: %w", p.pid, err)
	}
	p.state = stateRunning
	return nil
}

// Detach releases the tracee, which resumes fully independent
// execution. The handle returns to the detached state and can be
// seized again.
func (p *Process) Detach() error {
	if p.state == stateDetached {
		return fmt.Errorf("detach in state %s: %w", p.state, proc.ErrInvalidState)
	}
	if err := ptraceDetach(p.pid, 0); err != nil {
		return fmt.Errorf("ptrace detach pid %d: %w", p.pid, err)
	}
	p.state = stateDetached
	if logflags.Tracer() {
		logflags.TracerLogger().Debugf("detached from pid %d", p.pid)
	}
	return nil
}
