package vm

import (
	"errors"
	"fmt"
)

// MemorySize is the capacity of the memory image in bytes.
const MemorySize = 65536

// InitialSP is where the stack pointer starts; the stack grows down.
const InitialSP uint16 = 0xFFFE

var ErrOutOfMemory = errors.New("access past end of memory")

// VM is the machine state handed to the execution engine. The front end only
// populates Memory; registers and flags are left at their reset values.
type VM struct {
	Regs [8]uint16

	PC uint16
	SP uint16

	Z  bool
	N  bool
	C  bool
	IE bool

	Halted bool

	Memory [MemorySize]byte
}

// New returns a VM with zeroed memory and registers at reset.
func New() *VM {
	return &VM{SP: InitialSP}
}

// Store copies b into memory starting at addr.
func (v *VM) Store(addr int, b []byte) error {
	if addr < 0 || addr+len(b) > len(v.Memory) {
		return fmt.Errorf("store %d bytes at 0x%04X: %w", len(b), addr, ErrOutOfMemory)
	}
	copy(v.Memory[addr:], b)
	return nil
}

// Slice returns a copy of n bytes starting at addr.
func (v *VM) Slice(addr, n int) ([]byte, error) {
	if addr < 0 || n < 0 || addr+n > len(v.Memory) {
		return nil, fmt.Errorf("read %d bytes at 0x%04X: %w", n, addr, ErrOutOfMemory)
	}
	out := make([]byte, n)
	copy(out, v.Memory[addr:addr+n])
	return out, nil
}
