package sh4

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/tinyrange/sh4jit/internal/jit"
	"github.com/tinyrange/sh4jit/internal/jit/ir"
)

type sliceBus struct {
	base uint32
	data []byte
}

func (b *sliceBus) R16(addr uint32) uint16 {
	off := int64(addr) - int64(b.base)
	if off < 0 || off+2 > int64(len(b.data)) {
		return 0
	}
	return binary.LittleEndian.Uint16(b.data[off:])
}

func program(base uint32, words ...uint16) *sliceBus {
	data := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(data[2*i:], w)
	}
	return &sliceBus{base: base, data: data}
}

const (
	opNOP     = 0x0009
	opBRA     = 0xa000
	opRTS     = 0x000b
	opMOV1R1  = 0xe101
	opMOV2R2  = 0xe202
	opMOV3R3  = 0xe303
	opLDCSR   = 0x410e // ldc r1, sr
	opLDSFPS  = 0x416a // lds r1, fpscr
	opFMOV01  = 0xf01c // fmov fr1, fr0
	opInvalid = 0x0000
)

func TestAnalyzeEndsAfterBranchAndDelaySlot(t *testing.T) {
	const addr = 0x8c000000
	f := New(program(addr, opMOV1R1, opMOV2R2, opBRA, opNOP, opMOV3R3), &Context{})

	info := f.analyze(addr)

	if info.GuestSize != 8 {
		t.Fatalf("guest size %d, want 8 (bra plus delay slot)", info.GuestSize)
	}
	if info.NumInstrs != 4 {
		t.Fatalf("instr count %d, want 4", info.NumInstrs)
	}
}

func TestAnalyzeContinuesPastFallbackOps(t *testing.T) {
	const addr = 0x8c000000
	// neg, mul.l and dt have no dedicated translator but are valid
	// encodings; the scan must run through them to the rts.
	f := New(program(addr,
		0x610b, // neg r0, r1
		0x0217, // mul.l r1, r2
		0x4110, // dt r1
		opRTS, opNOP,
	), &Context{})

	info := f.analyze(addr)

	if info.GuestSize != 10 {
		t.Fatalf("guest size %d, want 10 (block runs to the rts)", info.GuestSize)
	}

	unit, _ := f.Translate(addr, 0)
	fallbacks := 0
	for _, in := range unit.Instrs {
		if in.Op == ir.OpFallback {
			fallbacks++
		}
	}
	if fallbacks != 3 {
		t.Fatalf("%d fallbacks emitted, want 3:\n%s", fallbacks, unit)
	}
}

func TestAnalyzeEndsAfterInvalid(t *testing.T) {
	const addr = 0x8c000000
	f := New(program(addr, opMOV1R1, opInvalid, opMOV2R2), &Context{})

	info := f.analyze(addr)

	if info.GuestSize != 4 {
		t.Fatalf("guest size %d, want 4 (ends after invalid)", info.GuestSize)
	}
}

func TestAnalyzeEndsAfterStateChange(t *testing.T) {
	const addr = 0x8c000000
	for _, op := range []uint16{opLDCSR, opLDSFPS} {
		f := New(program(addr, opMOV1R1, op, opMOV2R2), &Context{})
		if got := f.analyze(addr).GuestSize; got != 4 {
			t.Fatalf("op %04x: guest size %d, want 4", op, got)
		}
	}
}

func TestAnalyzeDelaySlotViolationPanics(t *testing.T) {
	const addr = 0x8c000000
	f := New(program(addr, opBRA, opBRA), &Context{})

	defer func() {
		if recover() == nil {
			t.Fatal("delayed instruction in a delay slot did not panic")
		}
	}()
	f.analyze(addr)
}

func TestTranslateAppendsFallthroughBranch(t *testing.T) {
	const addr = 0x8c000000
	// ldc ends the block without branching; the unit must still hand the
	// dispatcher the next pc.
	f := New(program(addr, opMOV1R1, opLDCSR), &Context{})

	unit, info := f.Translate(addr, 0)

	tail := unit.Tail()
	if tail == nil || tail.Op != ir.OpBranch {
		t.Fatalf("tail is %v, want branch", tail)
	}
	if !tail.Arg[0].Const || tail.Arg[0].I32() != addr+uint32(info.GuestSize) {
		t.Fatalf("fallthrough target %v, want 0x%08x", tail.Arg[0], addr+uint32(info.GuestSize))
	}
}

func TestTranslateBranchNeedsNoFallthrough(t *testing.T) {
	const addr = 0x8c000000
	f := New(program(addr, opBRA, opNOP), &Context{})

	unit, _ := f.Translate(addr, 0)

	branches := 0
	for _, in := range unit.Instrs {
		if in.Op == ir.OpBranch || in.Op == ir.OpBranchCond {
			branches++
		}
	}
	if branches != 1 {
		t.Fatalf("%d branches emitted, want exactly 1", branches)
	}
}

func TestTranslateDelaySlotRunsBeforeBranchTarget(t *testing.T) {
	const addr = 0x8c000000
	// jmp @r1 with a delay slot that rewrites r1: the branch target must
	// be read before the slot stores.
	f := New(program(addr, 0x412b /* jmp @r1 */, opMOV1R1), &Context{})

	unit, _ := f.Translate(addr, 0)

	var loadIdx, storeIdx = -1, -1
	for i, in := range unit.Instrs {
		if in.Op == ir.OpLoadContext && in.Off == OffR(1) && loadIdx < 0 {
			loadIdx = i
		}
		if in.Op == ir.OpStoreContext && in.Off == OffR(1) {
			storeIdx = i
		}
	}
	if loadIdx < 0 || storeIdx < 0 {
		t.Fatalf("expected target load and slot store, got:\n%s", unit)
	}
	if loadIdx > storeIdx {
		t.Fatalf("branch target read at %d after delay slot at %d:\n%s", loadIdx, storeIdx, unit)
	}
	if tail := unit.Tail(); tail.Op != ir.OpBranch {
		t.Fatalf("tail is %v, want branch", tail)
	}
}

func TestTranslateSlowmemOverridesFastmem(t *testing.T) {
	const addr = 0x8c000000
	f := New(program(addr, 0x6012 /* mov.l @r1, r0 */, opRTS, opNOP), &Context{})

	unit, _ := f.Translate(addr, 0)
	if !unit.Fastmem {
		t.Fatal("default translation is not fastmem")
	}

	unit, _ = f.Translate(addr, jit.FlagSlowmem)
	if unit.Fastmem {
		t.Fatal("slowmem flag did not disable fastmem")
	}
}

func TestTranslateFMOVHonorsTransferSize(t *testing.T) {
	const addr = 0x8c000000

	countStores := func(ctx *Context) int {
		f := New(program(addr, opFMOV01, opRTS, opNOP), ctx)
		unit, _ := f.Translate(addr, 0)
		stores := 0
		for _, in := range unit.Instrs {
			if in.Op == ir.OpStoreContext && in.Off >= OffFR(0) {
				stores++
			}
		}
		return stores
	}

	if got := countStores(&Context{}); got != 1 {
		t.Fatalf("single-precision fmov emitted %d fp stores, want 1", got)
	}
	if got := countStores(&Context{FPSCR: fpscrSZ}); got != 2 {
		t.Fatalf("sz=1 fmov emitted %d fp stores, want 2 (pair move)", got)
	}
}

func TestTranslateFallbackForUnimplemented(t *testing.T) {
	const addr = 0x8c000000
	// fadd has a def but no dedicated translator.
	f := New(program(addr, 0xf010 /* fadd fr1, fr0 */, opRTS, opNOP), &Context{})

	unit, _ := f.Translate(addr, 0)

	found := false
	for _, in := range unit.Instrs {
		if in.Op == ir.OpFallback && in.Raw == 0xf010 && in.Addr == addr {
			found = true
		}
	}
	if !found {
		t.Fatalf("no fallback emitted for fadd:\n%s", unit)
	}
}

func TestDumpCode(t *testing.T) {
	const addr = 0x8c000000
	f := New(program(addr, opMOV1R1, opBRA, opNOP), &Context{})

	var buf bytes.Buffer
	f.DumpCode(&buf, addr, 6)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("dump has %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "mov #1, r1") {
		t.Fatalf("first line %q does not disassemble mov", lines[0])
	}
	if !strings.Contains(lines[1], "bra") {
		t.Fatalf("second line %q does not disassemble bra", lines[1])
	}
	if !strings.Contains(lines[2], "nop") {
		t.Fatalf("delay slot line %q does not disassemble nop", lines[2])
	}
}

func TestGetOpdefInvalid(t *testing.T) {
	def := GetOpdef(opInvalid)
	if def.Flags&OpInvalid == 0 {
		t.Fatalf("0x0000 decoded as %q", def.Name)
	}
}

func TestGetOpdefFallbackNotInvalid(t *testing.T) {
	// A sample of valid encodings served by the fallback table: none may
	// decode as invalid, and state-changing ones keep their scan flags.
	cases := map[uint16]string{
		0x610b: "neg",
		0x0217: "mul.l",
		0x4110: "dt",
		0x6127: "not",
		0x612c: "extu.b",
		0x2117: "div0s",
		0x4124: "rotcl",
		0x411b: "tas.b",
		0x0129: "movt",
		0xf15d: "fabs",
		0xc480: "mov.b_ldgbr",
	}
	for raw, name := range cases {
		def := GetOpdef(raw)
		if def.Flags&OpInvalid != 0 {
			t.Fatalf("%04x decoded as invalid, want %s", raw, name)
		}
		if def.Name != name {
			t.Fatalf("%04x decoded as %q, want %q", raw, def.Name, name)
		}
	}

	if def := GetOpdef(0x4107 /* ldc.l @r1+, sr */); def.Flags&OpSetSR == 0 {
		t.Fatalf("ldc.l sr lost its scan flag: %q %v", def.Name, def.Flags)
	}
	if def := GetOpdef(0xf3fd /* fschg */); def.Flags&OpSetFPSCR == 0 {
		t.Fatalf("fschg lost its scan flag: %q %v", def.Name, def.Flags)
	}
}
