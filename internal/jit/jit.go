package jit

import "strings"

// Flags select how a block is translated and are carried on the block for
// the rest of its life. A block compiled with FlagFastmem emits direct host
// loads and stores into the pre-mapped guest window; FlagSlowmem forces
// every guest access through the memory helpers instead.
type Flags int

const (
	FlagFastmem Flags = 1 << iota
	FlagSlowmem
	FlagDoublePR
	FlagDoubleSZ
)

func (f Flags) String() string {
	var parts []string
	if f&FlagFastmem != 0 {
		parts = append(parts, "fastmem")
	}
	if f&FlagSlowmem != 0 {
		parts = append(parts, "slowmem")
	}
	if f&FlagDoublePR != 0 {
		parts = append(parts, "double_pr")
	}
	if f&FlagDoubleSZ != 0 {
		parts = append(parts, "double_sz")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ThreadState is the mutable register view of the faulting thread. A fault
// fixup repairs it so the executor can resume; PC is the resume address.
type ThreadState struct {
	PC uintptr
}

// Fault describes a synchronous hardware fault raised by host code on the
// executor thread. PC is the faulting host instruction, Addr the data
// address the access touched.
type Fault struct {
	PC    uintptr
	Addr  uintptr
	State *ThreadState
}

// Bus is the guest memory view the frontend translates from. Reads must be
// side-effect free; the frontend may fetch the same address more than once.
type Bus interface {
	R16(addr uint32) uint16
}
