package native

import (
	"fmt"
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/unix"

	"github.com/vmtrace/vmtrace/pkg/logflags"
	"github.com/vmtrace/vmtrace/pkg/proc"
)

// Entry pairs a remote virtual address with a caller owned local
// buffer. The transfer call borrows Data exclusively for its duration;
// entries do not outlive the call.
type Entry struct {
	Addr uint64
	Data []byte
}

// maxVecs is UIO_MAXIOV, the kernel limit on the number of iovecs a
// single process_vm_readv/process_vm_writev call accepts per side.
const maxVecs = 1024

// processVMTransfer issues one process_vm_readv or process_vm_writev
// call. Held in a variable so tests can observe the chunking without a
// live target.
var processVMTransfer = rawVMTransfer

func rawVMTransfer(trap uintptr, pid int, local []sys.Iovec, remote []remoteIovec) (uintptr, syscall.Errno) {
	n, _, errno := sys.Syscall6(trap, uintptr(pid),
		uintptr(unsafe.Pointer(&local[0])), uintptr(len(local)),
		uintptr(unsafe.Pointer(&remote[0])), uintptr(len(remote)), 0)
	return n, errno
}

// SetMaxBatch caps the number of entries handed to a single kernel
// call. Values below 1 or above the kernel limit are clamped to the
// kernel limit. Only the number of underlying calls changes, never the
// transfer semantics.
func (p *Process) SetMaxBatch(n int) {
	if n < 1 || n > maxVecs {
		n = maxVecs
	}
	p.maxBatch = n
}

// ReadMemory reads the remote ranges described by entries into their
// local buffers and returns the total number of bytes transferred.
//
// Entry lists longer than the per call limit are split transparently;
// one underlying transfer is issued per chunk and the byte counts are
// summed. A total smaller than the sum of the requested lengths is not
// an error: the kernel stops a batch early when a later address is
// unmapped or protected while earlier addresses are valid.
//
// When a chunk's syscall itself fails the mapped error is returned and
// the byte count accumulated from earlier successful chunks is
// discarded with it. Callers keeping resume bookkeeping off the
// returned count must not assume an error means zero bytes moved.
func (p *Process) ReadMemory(entries []Entry) (uint64, error) {
	return p.transfer(sys.SYS_PROCESS_VM_READV, entries)
}

// WriteMemory writes the local buffers described by entries to their
// remote addresses. Semantics, chunking and error behavior mirror
// ReadMemory.
func (p *Process) WriteMemory(entries []Entry) (uint64, error) {
	return p.transfer(sys.SYS_PROCESS_VM_WRITEV, entries)
}

// ReadMemoryAt reads len(data) bytes from addr in the target's address
// space into data, returning the number of bytes read.
func (p *Process) ReadMemoryAt(data []byte, addr uint64) (int, error) {
	n, err := p.ReadMemory([]Entry{{Addr: addr, Data: data}})
	return int(n), err
}

// WriteMemoryAt writes data to addr in the target's address space,
// returning the number of bytes written.
func (p *Process) WriteMemoryAt(data []byte, addr uint64) (int, error) {
	n, err := p.WriteMemory([]Entry{{Addr: addr, Data: data}})
	return int(n), err
}

func (p *Process) transfer(trap uintptr, entries []Entry) (uint64, error) {
	max := p.maxBatch
	if max == 0 {
		max = maxVecs
	}
	var total uint64
	chunks := 0
	for start := 0; start < len(entries); start += max {
		end := start + max
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]
		local := make([]sys.Iovec, len(chunk))
		remote := make([]remoteIovec, len(chunk))
		for i := range chunk {
			if len(chunk[i].Data) > 0 {
				local[i].Base = &chunk[i].Data[0]
			}
			local[i].SetLen(len(chunk[i].Data))
			remote[i] = remoteIovec{base: uintptr(chunk[i].Addr), len: uintptr(len(chunk[i].Data))}
		}
		n, errno := processVMTransfer(trap, p.pid, local, remote)
		chunks++
		if errno != 0 {
			return 0, translateTransferErrno(errno)
		}
		total += uint64(n)
	}
	if logflags.Mem() {
		logflags.MemLogger().Debugf("pid %d: transferred %d bytes, %d entries in %d chunks", p.pid, total, len(entries), chunks)
	}
	return total, nil
}

// translateTransferErrno maps a process_vm transfer errno to the
// error taxonomy in pkg/proc. An errno outside the table means the
// table is incomplete, which is not a recoverable caller error.
func translateTransferErrno(errno syscall.Errno) error {
	switch errno {
	case sys.EPERM:
		return fmt.Errorf("process_vm transfer: %w", proc.ErrAccessDenied)
	case sys.ESRCH:
		return fmt.Errorf("process_vm transfer: %w", proc.ErrProcessNotFound)
	case sys.ENOMEM:
		return fmt.Errorf("process_vm transfer: %w", proc.ErrSystemResources)
	case sys.EFAULT:
		return fmt.Errorf("process_vm transfer: %w", proc.ErrBadAddress)
	case sys.EINVAL:
		return fmt.Errorf("process_vm transfer: %w", proc.ErrInvalidArgument)
	}
	panic(fmt.Sprintf("unexpected errno %d from process_vm transfer", int(errno)))
}
