// Package memory provides the guest memory-access collaborator consumed by
// the command dispatchers: it translates guest addresses carried in command
// buffers into host-visible byte slices.
package memory

import (
	"errors"
	"fmt"
)

const (
	// FCRAMBase is the default guest physical base of main memory.
	FCRAMBase uint32 = 0x20000000

	// FCRAMSize is the default main memory size (128 MiB).
	FCRAMSize uint32 = 0x08000000
)

// ErrOutOfRange is an error that occurs when a guest address range falls
// outside the mapped region.
var ErrOutOfRange = errors.New("address range outside mapped guest memory")

// Accessor translates a guest address into host-accessible bytes. The
// returned slice aliases guest memory, so writes through it are visible to
// the guest.
type Accessor interface {
	Slice(addr uint32, size uint32) ([]byte, error)
}

// FlatRAM is a contiguous guest memory region at a fixed base address.
type FlatRAM struct {
	base uint32
	data []byte
}

func NewFlatRAM(base uint32, size uint32) *FlatRAM {
	return &FlatRAM{
		base: base,
		data: make([]byte, size),
	}
}

// Base returns the guest address of the first mapped byte.
func (r *FlatRAM) Base() uint32 {
	return r.base
}

// Size returns the mapped region size in bytes.
func (r *FlatRAM) Size() uint32 {
	return uint32(len(r.data))
}

func (r *FlatRAM) Slice(addr uint32, size uint32) ([]byte, error) {
	if addr < r.base {
		return nil, fmt.Errorf("(memory) 0x%08X+0x%X: %w", addr, size, ErrOutOfRange)
	}

	off := uint64(addr - r.base)
	end := off + uint64(size)
	if end > uint64(len(r.data)) {
		return nil, fmt.Errorf("(memory) 0x%08X+0x%X: %w", addr, size, ErrOutOfRange)
	}

	return r.data[off:end:end], nil
}
