// Package backend defines the contract between the block cache and a native
// code emitter.
package backend

import (
	"errors"

	"github.com/tinyrange/sh4jit/internal/jit"
	"github.com/tinyrange/sh4jit/internal/jit/ir"
)

// ErrOverflow is returned by Assemble when the emitted unit does not fit in
// the remaining codegen arena. Nothing is committed; the caller may clear
// the cache, reset the arena and retry.
var ErrOverflow = errors.New("backend: codegen arena overflow")

// Register describes one host register available to register allocation.
type Register struct {
	Name  string
	Index int
}

// Backend assembles IR units into an executable arena it owns.
type Backend interface {
	// Assemble lays the unit out in the arena and returns the entry address
	// and code length. On arena exhaustion it returns ErrOverflow without
	// partially committing.
	Assemble(unit *ir.Builder) (uintptr, int, error)

	// Reset rewinds the arena to empty. Previously returned entry addresses
	// are invalid afterwards.
	Reset()

	// HandleFastmemFault reports whether the fault belongs to a speculative
	// guest-window access this backend emitted, repairing the thread state
	// to resume if so.
	HandleFastmemFault(f *jit.Fault) bool

	// Registers is the register file handed to the register allocator.
	Registers() []Register
}
