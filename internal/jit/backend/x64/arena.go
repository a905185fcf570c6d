//go:build linux || darwin

package x64

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Arena is the bounded executable region all emitted code lives in. It is
// mapped RW+X once at construction and handed out bump-style; Reset rewinds
// the cursor without remapping, so stale entry addresses stay mapped (but
// must never be called) until the next commit reuses the space.
type Arena struct {
	mem []byte
	off int
}

func NewArena(size int) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena size must be positive, got %d", size)
	}

	pageSize := unix.Getpagesize()
	allocSize := ((size + pageSize - 1) / pageSize) * pageSize

	mem, err := unix.Mmap(-1, 0, allocSize,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap codegen arena: %w", err)
	}

	return &Arena{mem: mem}, nil
}

// Commit copies code into the arena and returns its entry address. It fails
// without consuming any space when the remaining room is too small.
func (a *Arena) Commit(code []byte) (uintptr, bool) {
	if a.off+len(code) > len(a.mem) {
		return 0, false
	}
	copy(a.mem[a.off:], code)
	entry := a.Base() + uintptr(a.off)
	a.off += len(code)
	return entry, true
}

// Reset rewinds the arena to empty.
func (a *Arena) Reset() {
	a.off = 0
}

// Base is the address of the first arena byte.
func (a *Arena) Base() uintptr {
	return uintptr(unsafe.Pointer(&a.mem[0]))
}

// Contains reports whether pc points into the mapped region.
func (a *Arena) Contains(pc uintptr) bool {
	base := a.Base()
	return pc >= base && pc < base+uintptr(len(a.mem))
}

// Size is the total mapped capacity in bytes.
func (a *Arena) Size() int {
	return len(a.mem)
}

// Used is the number of committed bytes since the last reset.
func (a *Arena) Used() int {
	return a.off
}

// Close unmaps the region. All entry addresses are invalid afterwards.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}
