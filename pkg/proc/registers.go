package proc

import "fmt"

// Registers is an interface for a generic register type. The
// interface encapsulates the generic values / actions
// we need independent of arch. The concrete register types
// will be different depending on the target architecture.
type Registers interface {
	PC() uint64
	SP() uint64
	BP() uint64
	// Slice returns the registers as a list of (name, value) pairs.
	Slice() []Register
	// Copy returns a copy of the registers that is guaranteed not to change
	// when the registers of the associated tracee change.
	Copy() Registers
}

// Register represents a single CPU register and the value it holds.
type Register struct {
	Name  string
	Value uint64
}

func (r Register) String() string {
	return fmt.Sprintf("%s = %#x", r.Name, r.Value)
}

// AppendUint64Register appends a 64 bit register to regs.
func AppendUint64Register(regs []Register, name string, value uint64) []Register {
	return append(regs, Register{Name: name, Value: value})
}

// AppendUint32Register appends a 32 bit register to regs.
func AppendUint32Register(regs []Register, name string, value uint32) []Register {
	return append(regs, Register{Name: name, Value: uint64(value)})
}

// AppendUint16Register appends a word (16 bit) register to regs.
func AppendUint16Register(regs []Register, name string, value uint16) []Register {
	return append(regs, Register{Name: name, Value: uint64(value)})
}
