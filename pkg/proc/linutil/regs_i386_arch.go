package linutil

import (
	"github.com/vmtrace/vmtrace/pkg/proc"
)

// I386Registers implements the proc.Registers interface for the
// native/linux backend, on I386.
type I386Registers struct {
	Regs *I386PtraceRegs
}

func NewI386Registers(regs *I386PtraceRegs) *I386Registers {
	return &I386Registers{Regs: regs}
}

// I386PtraceRegs is the struct used by the linux kernel to return the
// general purpose registers for I386 CPUs. Each segment register
// occupies a full 32 bit slot of which only the low 16 bits hold the
// selector; the padding fields cover the unused high halves so that
// field offsets and total size match the kernel layout exactly.
type I386PtraceRegs struct {
	Ebx      int32
	Ecx      int32
	Edx      int32
	Esi      int32
	Edi      int32
	Ebp      int32
	Eax      int32
	Ds       uint16
	Ds_pad   uint16
	Es       uint16
	Es_pad   uint16
	Fs       uint16
	Fs_pad   uint16
	Gs       uint16
	Gs_pad   uint16
	Orig_eax int32
	Eip      int32
	Cs       uint16
	Cs_pad   uint16
	Eflags   int32
	Esp      int32
	Ss       uint16
	Ss_pad   uint16
}

// Slice returns the registers as a list of (name, value) pairs.
func (r *I386Registers) Slice() []proc.Register {
	var regs32 = []struct {
		k string
		v int32
	}{
		{"Eip", r.Regs.Eip},
		{"Esp", r.Regs.Esp},
		{"Eax", r.Regs.Eax},
		{"Ebx", r.Regs.Ebx},
		{"Ecx", r.Regs.Ecx},
		{"Edx", r.Regs.Edx},
		{"Edi", r.Regs.Edi},
		{"Esi", r.Regs.Esi},
		{"Ebp", r.Regs.Ebp},
		{"Orig_eax", r.Regs.Orig_eax},
		{"Eflags", r.Regs.Eflags},
	}
	var regs16 = []struct {
		k string
		v uint16
	}{
		{"Cs", r.Regs.Cs},
		{"Ss", r.Regs.Ss},
		{"Ds", r.Regs.Ds},
		{"Es", r.Regs.Es},
		{"Fs", r.Regs.Fs},
		{"Gs", r.Regs.Gs},
	}
	out := make([]proc.Register, 0, len(regs32)+len(regs16))
	for _, reg := range regs32 {
		out = proc.AppendUint32Register(out, reg.k, uint32(reg.v))
	}
	for _, reg := range regs16 {
		out = proc.AppendUint16Register(out, reg.k, reg.v)
	}
	return out
}

// PC returns the value of EIP register.
func (r *I386Registers) PC() uint64 {
	return uint64(uint32(r.Regs.Eip))
}

// SP returns the value of ESP register.
func (r *I386Registers) SP() uint64 {
	return uint64(uint32(r.Regs.Esp))
}

func (r *I386Registers) BP() uint64 {
	return uint64(uint32(r.Regs.Ebp))
}

// SetPC sets EIP to the value specified by 'pc'. The change only
// reaches the tracee when the whole snapshot is written back.
func (r *I386Registers) SetPC(pc uint64) {
	r.Regs.Eip = int32(pc)
}

// Copy returns a copy of these registers that is guaranteed not to change.
func (r *I386Registers) Copy() proc.Registers {
	var rr I386Registers
	rr.Regs = &I386PtraceRegs{}
	*(rr.Regs) = *(r.Regs)
	return &rr
}
