//go:build linux || darwin

// Package x64 assembles IR units into x86-64 code held in a bounded
// executable arena.
//
// Calling convention for emitted blocks: the dispatcher enters a block by
// call, with r14 holding the guest context pointer and r15 the base of the
// pre-mapped guest address window. Blocks may use rbx, rbp, r12 and r13
// freely (the dispatcher owns saving them once per JIT entry) and return
// with the next guest PC stored in the context. rax, rcx, rdi and rsi are
// scratch.
package x64

import (
	"fmt"
	"sort"
	"unsafe"

	"golang.org/x/arch/x86/x86asm"

	"github.com/tinyrange/sh4jit/internal/jit"
	"github.com/tinyrange/sh4jit/internal/jit/backend"
	"github.com/tinyrange/sh4jit/internal/jit/ir"
)

// Options configure a Backend. The helper entries are plain C-ABI
// functions: LoadHelper (edi: guest addr) returns the value in eax,
// StoreHelper takes (edi: guest addr, esi: value), FallbackHelper takes
// (edi: guest pc, esi: raw instruction word).
type Options struct {
	MemBase        uintptr
	MemSize        int
	PCOffset       int
	LoadHelper     uintptr
	StoreHelper    uintptr
	FallbackHelper uintptr
}

// fastmemSite records one speculative access: the address of the emitted
// access instruction and the out-of-line slow path that replays it through
// the helpers.
type fastmemSite struct {
	pc   uintptr
	slow uintptr
}

type Backend struct {
	arena *Arena
	opts  Options

	// Sorted by pc; bump allocation keeps appends ordered, and Reset
	// clears the slice together with the arena.
	sites []fastmemSite
}

var hostRegisters = []backend.Register{
	{Name: "rbx", Index: RBX},
	{Name: "rbp", Index: RBP},
	{Name: "r12", Index: R12},
	{Name: "r13", Index: R13},
}

func New(arenaSize int, opts Options) (*Backend, error) {
	arena, err := NewArena(arenaSize)
	if err != nil {
		return nil, fmt.Errorf("x64 backend: %w", err)
	}
	return &Backend{arena: arena, opts: opts}, nil
}

func (b *Backend) Close() error {
	return b.arena.Close()
}

func (b *Backend) Registers() []backend.Register {
	return hostRegisters
}

func (b *Backend) Reset() {
	b.arena.Reset()
	b.sites = b.sites[:0]
}

func (b *Backend) Assemble(unit *ir.Builder) (uintptr, int, error) {
	be := &blockEmitter{opts: b.opts, fastmem: unit.Fastmem}
	be.lower(unit)

	code := be.buf
	entry, ok := b.arena.Commit(code)
	if !ok {
		return 0, 0, backend.ErrOverflow
	}

	for _, s := range be.sites {
		b.sites = append(b.sites, fastmemSite{
			pc:   entry + uintptr(s.access),
			slow: entry + uintptr(s.slow),
		})
	}

	return entry, len(code), nil
}

// HandleFastmemFault accepts faults whose PC is a recorded speculative
// access. The faulting instruction is decoded to confirm it really is a
// guest-window access before the thread is redirected to the slow path.
func (b *Backend) HandleFastmemFault(f *jit.Fault) bool {
	if !b.arena.Contains(f.PC) {
		return false
	}
	if b.opts.MemSize > 0 {
		if f.Addr < b.opts.MemBase || f.Addr >= b.opts.MemBase+uintptr(b.opts.MemSize) {
			return false
		}
	}

	i := sort.Search(len(b.sites), func(i int) bool { return b.sites[i].pc >= f.PC })
	if i == len(b.sites) || b.sites[i].pc != f.PC {
		return false
	}
	site := b.sites[i]

	n := 15
	if rem := int(b.arena.Base() + uintptr(b.arena.Size()) - f.PC); rem < n {
		n = rem
	}
	if !isGuestWindowAccess(f.PC, n) {
		return false
	}

	f.State.PC = site.slow
	return true
}

// isGuestWindowAccess decodes the instruction at pc and checks it is a mov
// family access through the guest window register.
func isGuestWindowAccess(pc uintptr, n int) bool {
	code := unsafe.Slice((*byte)(unsafe.Pointer(pc)), n)

	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return false
	}
	switch inst.Op {
	case x86asm.MOV, x86asm.MOVZX:
	default:
		return false
	}
	for _, arg := range inst.Args {
		if mem, ok := arg.(x86asm.Mem); ok {
			if mem.Base == x86asm.R15 || mem.Index == x86asm.R15 {
				return true
			}
		}
	}
	return false
}

type siteRec struct {
	access int
	slow   int
}

type pendingSlow struct {
	store   bool
	size    int
	addrReg int
	srcReg  int
	dstReg  int
	access  int
	resume  int
}

type blockEmitter struct {
	emitter

	opts    Options
	fastmem bool
	frame   uint8
	pending []pendingSlow
	sites   []siteRec
}

func (be *blockEmitter) lower(unit *ir.Builder) {
	// Keep rsp 16-byte aligned at helper call sites: entry is via call, so
	// rsp is 8 mod 16 here and the adjustment must be 8 mod 16 too.
	frame := (unit.SpillSlots*8+15)&^15 + 8
	if frame > 0xf8 {
		panic(fmt.Sprintf("x64: spill frame too large (%d slots)", unit.SpillSlots))
	}
	be.frame = uint8(frame)
	be.subRSPImm8(be.frame)

	terminated := false
	for _, in := range unit.Instrs {
		terminated = be.lowerInstr(in)
	}
	if !terminated {
		be.epilogue()
	}

	be.flushSlowPaths()
}

func (be *blockEmitter) epilogue() {
	be.addRSPImm8(be.frame)
	be.ret()
}

// operand makes v available in a register: its allocated host register, or
// scratch for constants and spilled values.
func (be *blockEmitter) operand(v *ir.Value, scratch int) int {
	switch {
	case v.Const:
		if v.Type.Size() > 4 {
			be.movRegImm64(scratch, v.Imm)
		} else {
			be.movRegImm32(scratch, uint32(v.Imm))
		}
		return scratch
	case v.Host >= 0:
		return v.Host
	default:
		be.loadRegMem(scratch, RSP, int32(8*v.Spill), 8)
		return scratch
	}
}

// moveInto forces v into reg.
func (be *blockEmitter) moveInto(reg int, v *ir.Value) {
	r := be.operand(v, reg)
	if r != reg {
		be.movRegReg32(reg, r)
	}
}

// destination picks the register a result is computed in; spilled results
// go through rax.
func (be *blockEmitter) destination(v *ir.Value) int {
	if v.Host >= 0 {
		return v.Host
	}
	return RAX
}

// commitResult writes a spilled result to its stack slot.
func (be *blockEmitter) commitResult(v *ir.Value, reg int) {
	if v.Host < 0 {
		be.storeMemReg(RSP, int32(8*v.Spill), reg, 8)
	}
}

func (be *blockEmitter) lowerInstr(in *ir.Instr) bool {
	switch in.Op {
	case ir.OpLoadContext:
		dst := be.destination(in.Result)
		be.loadRegMem(dst, R14, int32(in.Off), in.Result.Type.Size())
		be.commitResult(in.Result, dst)

	case ir.OpStoreContext:
		src := be.operand(in.Arg[0], RAX)
		be.storeMemReg(R14, int32(in.Off), src, in.Arg[0].Type.Size())

	case ir.OpLoadGuest:
		be.lowerLoadGuest(in)

	case ir.OpStoreGuest:
		be.lowerStoreGuest(in)

	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor:
		be.lowerALU(in)

	case ir.OpShl, ir.OpLshr, ir.OpAshr:
		be.lowerShift(in)

	case ir.OpCmpEQ:
		lhs := be.operand(in.Arg[0], RAX)
		if rhs := in.Arg[1]; rhs.Const {
			be.aluRegImm32(7, lhs, uint32(rhs.Imm))
		} else {
			be.aluRegReg32(0x39, lhs, be.operand(rhs, RCX))
		}
		dst := be.destination(in.Result)
		be.seteReg(RAX)
		be.movzxRegReg8(dst, RAX)
		be.commitResult(in.Result, dst)

	case ir.OpBranch:
		be.moveInto(RAX, in.Arg[0])
		be.storeMemReg(R14, int32(be.opts.PCOffset), RAX, 4)
		be.epilogue()
		return true

	case ir.OpBranchCond:
		cond := be.operand(in.Arg[0], RCX)
		be.moveInto(RAX, in.Arg[1])
		be.testRegReg32(cond, cond)
		skip := be.jnzRel8()
		be.moveInto(RAX, in.Arg[2])
		be.patchRel8(skip)
		be.storeMemReg(R14, int32(be.opts.PCOffset), RAX, 4)
		be.epilogue()
		return true

	case ir.OpFallback:
		be.movRegImm32(RDI, in.Addr)
		be.movRegImm32(RSI, uint32(in.Raw))
		be.movRegImm64(RAX, uint64(be.opts.FallbackHelper))
		be.callReg(RAX)

	default:
		panic(fmt.Sprintf("x64: cannot lower %s", in.Op))
	}
	return false
}

func (be *blockEmitter) lowerLoadGuest(in *ir.Instr) {
	addr := be.operand(in.Arg[0], RAX)
	dst := be.destination(in.Result)
	size := in.Result.Type.Size()

	if be.fastmem {
		access := len(be.buf)
		be.loadRegIndexed(dst, R15, addr, size)
		be.pending = append(be.pending, pendingSlow{
			size:    size,
			addrReg: addr,
			dstReg:  dst,
			access:  access,
			resume:  len(be.buf),
		})
	} else {
		if addr != RDI {
			be.movRegReg32(RDI, addr)
		}
		be.movRegImm64(RAX, uint64(be.opts.LoadHelper))
		be.callReg(RAX)
		if dst != RAX {
			be.movRegReg32(dst, RAX)
		}
	}
	be.commitResult(in.Result, dst)
}

func (be *blockEmitter) lowerStoreGuest(in *ir.Instr) {
	addr := be.operand(in.Arg[0], RAX)
	src := be.operand(in.Arg[1], RCX)
	size := in.Arg[1].Type.Size()

	if be.fastmem {
		access := len(be.buf)
		be.storeIndexedReg(R15, addr, src, size)
		be.pending = append(be.pending, pendingSlow{
			store:   true,
			size:    size,
			addrReg: addr,
			srcReg:  src,
			access:  access,
			resume:  len(be.buf),
		})
	} else {
		if addr != RDI {
			be.movRegReg32(RDI, addr)
		}
		if src != RSI {
			be.movRegReg32(RSI, src)
		}
		be.movRegImm64(RAX, uint64(be.opts.StoreHelper))
		be.callReg(RAX)
	}
}

// flushSlowPaths appends the out-of-line helper calls for every fastmem
// access and records the site table entries. The slow path is entered with
// the same register state as the faulting access, so the address (and for
// stores, the value) are still live in the registers the access used.
func (be *blockEmitter) flushSlowPaths() {
	for _, p := range be.pending {
		slow := len(be.buf)

		if p.addrReg != RDI {
			be.movRegReg32(RDI, p.addrReg)
		}
		if p.store {
			if p.srcReg != RSI {
				be.movRegReg32(RSI, p.srcReg)
			}
			be.movRegImm64(RAX, uint64(be.opts.StoreHelper))
			be.callReg(RAX)
		} else {
			be.movRegImm64(RAX, uint64(be.opts.LoadHelper))
			be.callReg(RAX)
			if p.dstReg != RAX {
				be.movRegReg32(p.dstReg, RAX)
			}
		}

		off := be.jmpRel32()
		be.patchRel32(off, p.resume)

		be.sites = append(be.sites, siteRec{access: p.access, slow: slow})
	}
	be.pending = nil
}

func (be *blockEmitter) lowerALU(in *ir.Instr) {
	var opcode byte
	var sub byte
	switch in.Op {
	case ir.OpAdd:
		opcode, sub = 0x01, 0
	case ir.OpSub:
		opcode, sub = 0x29, 5
	case ir.OpAnd:
		opcode, sub = 0x21, 4
	case ir.OpOr:
		opcode, sub = 0x09, 1
	default:
		opcode, sub = 0x31, 6
	}
	commutative := in.Op != ir.OpSub

	lhs := be.operand(in.Arg[0], RAX)
	dst := be.destination(in.Result)

	if rhs := in.Arg[1]; rhs.Const {
		if dst != lhs {
			be.movRegReg32(dst, lhs)
		}
		be.aluRegImm32(sub, dst, uint32(rhs.Imm))
	} else {
		r := be.operand(rhs, RCX)
		switch {
		case dst == lhs:
			be.aluRegReg32(opcode, dst, r)
		case dst == r && commutative:
			be.aluRegReg32(opcode, dst, lhs)
		case dst == r:
			// sub with dst aliasing rhs: compute in rax.
			if lhs != RAX {
				be.movRegReg32(RAX, lhs)
			}
			be.aluRegReg32(opcode, RAX, r)
			be.movRegReg32(dst, RAX)
		default:
			be.movRegReg32(dst, lhs)
			be.aluRegReg32(opcode, dst, r)
		}
	}
	be.commitResult(in.Result, dst)
}

func (be *blockEmitter) lowerShift(in *ir.Instr) {
	count := in.Arg[1]
	if !count.Const {
		panic("x64: shift count must be constant")
	}
	var sub byte
	switch in.Op {
	case ir.OpShl:
		sub = 4
	case ir.OpLshr:
		sub = 5
	default:
		sub = 7
	}

	lhs := be.operand(in.Arg[0], RAX)
	dst := be.destination(in.Result)
	if dst != lhs {
		be.movRegReg32(dst, lhs)
	}
	be.shiftRegImm32(sub, dst, uint8(count.Imm))
	be.commitResult(in.Result, dst)
}
