// Package sh4 translates SH4 guest code into IR.
package sh4

import (
	"fmt"
	"io"

	"github.com/tinyrange/sh4jit/internal/jit"
	"github.com/tinyrange/sh4jit/internal/jit/ir"
)

// Frontend scans and translates guest code reachable through its bus. The
// context supplies the FPSCR mode bits blocks are specialized on.
type Frontend struct {
	bus jit.Bus
	ctx *Context
}

func New(bus jit.Bus, ctx *Context) *Frontend {
	return &Frontend{bus: bus, ctx: ctx}
}

// BlockInfo is the result of scanning a block's extent. Flags are the
// effective translation flags after fastmem and FPSCR derivation.
type BlockInfo struct {
	GuestSize int
	NumCycles int
	NumInstrs int
	Flags     jit.Flags
}

// analyze walks the instruction stream from addr and determines where the
// block ends: after an invalid instruction, or after any instruction that
// branches or rewrites FPSCR/SR. A delayed instruction consumes the
// following word as its delay slot.
func (f *Frontend) analyze(addr uint32) BlockInfo {
	var info BlockInfo

	for {
		raw := f.bus.R16(addr)
		def := GetOpdef(raw)
		invalid := def.Flags&OpInvalid != 0

		addr += 2
		info.GuestSize += 2
		info.NumCycles += def.Cycles
		info.NumInstrs++

		if def.Flags&OpDelayed != 0 {
			delayRaw := f.bus.R16(addr)
			delayDef := GetOpdef(delayRaw)
			invalid = invalid || delayDef.Flags&OpInvalid != 0

			addr += 2
			info.GuestSize += 2
			info.NumCycles += delayDef.Cycles
			info.NumInstrs++

			if delayDef.Flags&OpDelayed != 0 {
				panic(fmt.Sprintf("sh4: delay slot at 0x%08x holds a delayed instruction", addr-2))
			}
		}

		if invalid {
			break
		}

		if def.Flags&(OpBranch|OpSetFPSCR|OpSetSR) != 0 {
			break
		}
	}

	return info
}

// Translate scans the block starting at addr and emits its IR. Unless the
// caller forced slowmem, accesses are compiled fastmem, and the FPSCR mode
// bits are folded into the flags so FP instructions compile to the width
// the guest is currently running at.
func (f *Frontend) Translate(addr uint32, flags jit.Flags) (*ir.Builder, BlockInfo) {
	if flags&jit.FlagSlowmem == 0 {
		flags |= jit.FlagFastmem
	}
	if f.ctx.FPSCR&fpscrPR != 0 {
		flags |= jit.FlagDoublePR
	}
	if f.ctx.FPSCR&fpscrSZ != 0 {
		flags |= jit.FlagDoubleSZ
	}

	info := f.analyze(addr)
	info.Flags = flags

	b := ir.NewBuilder()
	b.Fastmem = flags&jit.FlagFastmem != 0 && flags&jit.FlagSlowmem == 0

	e := &emitState{f: f, b: b, flags: flags}

	end := addr + uint32(info.GuestSize)
	for a := addr; a < end; {
		raw := f.bus.R16(a)
		def := GetOpdef(raw)

		def.translate(e, a, raw)

		if def.Flags&OpDelayed != 0 {
			a += 4
		} else {
			a += 2
		}
	}

	// If the block ends in anything but a branch, fall through to the next
	// pc so the dispatcher resumes at the right place.
	if !endsInBranch(b.Tail()) {
		b.Branch(b.AllocI32(end))
	}

	return b, info
}

func endsInBranch(tail *ir.Instr) bool {
	if tail == nil {
		return false
	}
	switch tail.Op {
	case ir.OpBranch, ir.OpBranchCond:
		return true
	case ir.OpFallback:
		return GetOpdef(tail.Raw).Flags&OpBranch != 0
	}
	return false
}

// DumpCode writes a disassembly listing of the guest range to w.
func (f *Frontend) DumpCode(w io.Writer, addr uint32, size int) {
	end := addr + uint32(size)

	for addr < end {
		raw := f.bus.R16(addr)
		def := GetOpdef(raw)

		fmt.Fprintln(w, Format(addr, raw))
		addr += 2

		if def.Flags&OpDelayed != 0 {
			fmt.Fprintln(w, Format(addr, f.bus.R16(addr)))
			addr += 2
		}
	}
}
