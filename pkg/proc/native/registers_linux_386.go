package native

import (
	"fmt"
	"unsafe"

	"github.com/vmtrace/vmtrace/pkg/proc/linutil"
)

// GetRegSet retrieves the tracee's general purpose registers in one
// vectored transfer. Well defined only while the tracee is stopped;
// in any other state the kernel's verdict is passed through
// unmodified.
func (p *Process) GetRegSet() (*linutil.I386Registers, error) {
	var regs linutil.I386PtraceRegs
	if err := ptraceGetRegSet(p.pid, unsafe.Pointer(&regs), int(unsafe.Sizeof(regs))); err != nil {
		return nil, fmt.Errorf("ptrace getregset pid %d: %w", p.pid, err)
	}
	return linutil.NewI386Registers(&regs), nil
}

// SetRegSet writes back a full register snapshot in one vectored
// transfer. Partial write back is not supported: the whole struct is
// transferred every time.
func (p *Process) SetRegSet(regs *linutil.I386PtraceRegs) error {
	if err := ptraceSetRegSet(p.pid, unsafe.Pointer(regs), int(unsafe.Sizeof(*regs))); err != nil {
		return fmt.Errorf("ptrace setregset pid %d: %w", p.pid, err)
	}
	return nil
}
