package x64

import "encoding/binary"

// Host register numbers as encoded in ModRM/SIB.
const (
	RAX = 0
	RCX = 1
	RDX = 2
	RBX = 3
	RSP = 4
	RBP = 5
	RSI = 6
	RDI = 7
	R8  = 8
	R9  = 9
	R10 = 10
	R11 = 11
	R12 = 12
	R13 = 13
	R14 = 14
	R15 = 15
)

type rexState struct {
	w     bool
	r     bool
	x     bool
	b     bool
	force bool
}

func (r rexState) prefix() byte {
	if !r.w && !r.r && !r.x && !r.b && !r.force {
		return 0
	}
	p := byte(0x40)
	if r.w {
		p |= 0x08
	}
	if r.r {
		p |= 0x04
	}
	if r.x {
		p |= 0x02
	}
	if r.b {
		p |= 0x01
	}
	return p
}

type emitter struct {
	buf []byte
}

func (e *emitter) byte(b byte)     { e.buf = append(e.buf, b) }
func (e *emitter) bytes(b ...byte) { e.buf = append(e.buf, b...) }

func (e *emitter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *emitter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *emitter) rex(r rexState) {
	if p := r.prefix(); p != 0 {
		e.byte(p)
	}
}

// modRM emits the ModRM byte (and SIB/displacement) for reg, [base+disp].
func (e *emitter) modRM(reg, base int, disp int32) {
	regLow := byte(reg & 7)
	baseLow := byte(base & 7)

	var mod byte
	switch {
	case disp == 0 && baseLow != 5:
		mod = 0x00
	case disp >= -128 && disp <= 127:
		mod = 0x40
	default:
		mod = 0x80
	}

	e.byte(mod | regLow<<3 | baseLow)
	if baseLow == 4 {
		// rsp/r12 as base requires a SIB byte.
		e.byte(0x24)
	}
	switch mod {
	case 0x40:
		e.byte(byte(disp))
	case 0x80:
		e.u32(uint32(disp))
	}
}

// modRMIndexed emits ModRM+SIB for reg, [base+index] with no displacement
// unless base maps to the rbp/r13 row, which demands a disp8.
func (e *emitter) modRMIndexed(reg, base, index int) {
	regLow := byte(reg & 7)
	baseLow := byte(base & 7)
	indexLow := byte(index & 7)

	mod := byte(0x00)
	if baseLow == 5 {
		mod = 0x40
	}
	e.byte(mod | regLow<<3 | 4)
	e.byte(indexLow<<3 | baseLow)
	if mod == 0x40 {
		e.byte(0)
	}
}

func memRex(w bool, reg, base int) rexState {
	return rexState{w: w, r: reg >= 8, b: base >= 8}
}

func indexedRex(w bool, reg, base, index int) rexState {
	return rexState{w: w, r: reg >= 8, x: index >= 8, b: base >= 8}
}

// movRegImm32 emits mov r32, imm32 (zero-extending into the full register).
func (e *emitter) movRegImm32(reg int, v uint32) {
	e.rex(rexState{b: reg >= 8})
	e.byte(0xB8 + byte(reg&7))
	e.u32(v)
}

// movRegImm64 emits mov r64, imm64.
func (e *emitter) movRegImm64(reg int, v uint64) {
	e.rex(rexState{w: true, b: reg >= 8})
	e.byte(0xB8 + byte(reg&7))
	e.u64(v)
}

// movRegReg32 emits mov r32, r32.
func (e *emitter) movRegReg32(dst, src int) {
	e.rex(rexState{r: src >= 8, b: dst >= 8})
	e.byte(0x89)
	e.byte(0xC0 | byte(src&7)<<3 | byte(dst&7))
}

// movRegReg64 emits mov r64, r64.
func (e *emitter) movRegReg64(dst, src int) {
	e.rex(rexState{w: true, r: src >= 8, b: dst >= 8})
	e.byte(0x89)
	e.byte(0xC0 | byte(src&7)<<3 | byte(dst&7))
}

// loadRegMem emits a load of size bytes from [base+disp] into dst,
// zero-extending sub-word loads.
func (e *emitter) loadRegMem(dst, base int, disp int32, size int) {
	switch size {
	case 1:
		e.rex(memRex(false, dst, base))
		e.bytes(0x0F, 0xB6)
	case 2:
		e.rex(memRex(false, dst, base))
		e.bytes(0x0F, 0xB7)
	case 4:
		e.rex(memRex(false, dst, base))
		e.byte(0x8B)
	default:
		e.rex(memRex(true, dst, base))
		e.byte(0x8B)
	}
	e.modRM(dst, base, disp)
}

// storeMemReg emits a store of size bytes from src into [base+disp].
func (e *emitter) storeMemReg(base int, disp int32, src, size int) {
	switch size {
	case 1:
		e.rex(rexState{r: src >= 8, b: base >= 8, force: src >= 4})
		e.byte(0x88)
	case 2:
		e.byte(0x66)
		e.rex(memRex(false, src, base))
		e.byte(0x89)
	case 4:
		e.rex(memRex(false, src, base))
		e.byte(0x89)
	default:
		e.rex(memRex(true, src, base))
		e.byte(0x89)
	}
	e.modRM(src, base, disp)
}

// loadRegIndexed emits a zero-extending load of size bytes from
// [base+index] into dst.
func (e *emitter) loadRegIndexed(dst, base, index, size int) {
	switch size {
	case 1:
		e.rex(indexedRex(false, dst, base, index))
		e.bytes(0x0F, 0xB6)
	case 2:
		e.rex(indexedRex(false, dst, base, index))
		e.bytes(0x0F, 0xB7)
	default:
		e.rex(indexedRex(false, dst, base, index))
		e.byte(0x8B)
	}
	e.modRMIndexed(dst, base, index)
}

// storeIndexedReg emits a store of size bytes from src into [base+index].
func (e *emitter) storeIndexedReg(base, index, src, size int) {
	switch size {
	case 1:
		e.rex(rexState{r: src >= 8, x: index >= 8, b: base >= 8, force: src >= 4})
		e.byte(0x88)
	case 2:
		e.byte(0x66)
		e.rex(indexedRex(false, src, base, index))
		e.byte(0x89)
	default:
		e.rex(indexedRex(false, src, base, index))
		e.byte(0x89)
	}
	e.modRMIndexed(src, base, index)
}

// aluRegReg32 emits op dst, src in 32-bit form. opcode is the MR-form
// primary opcode (add=0x01, or=0x09, and=0x21, sub=0x29, xor=0x31,
// cmp=0x39).
func (e *emitter) aluRegReg32(opcode byte, dst, src int) {
	e.rex(rexState{r: src >= 8, b: dst >= 8})
	e.byte(opcode)
	e.byte(0xC0 | byte(src&7)<<3 | byte(dst&7))
}

// aluRegImm32 emits op dst, imm32 using the 0x81 group. sub selects the
// operation (add=0, or=1, and=4, sub=5, xor=6, cmp=7).
func (e *emitter) aluRegImm32(sub byte, dst int, v uint32) {
	e.rex(rexState{b: dst >= 8})
	e.byte(0x81)
	e.byte(0xC0 | sub<<3 | byte(dst&7))
	e.u32(v)
}

// shiftRegImm32 emits a shift of dst by count bits. sub selects the
// operation (shl=4, shr=5, sar=7).
func (e *emitter) shiftRegImm32(sub byte, dst int, count uint8) {
	e.rex(rexState{b: dst >= 8})
	e.byte(0xC1)
	e.byte(0xC0 | sub<<3 | byte(dst&7))
	e.byte(count)
}

// testRegReg32 emits test a, b.
func (e *emitter) testRegReg32(a, b int) {
	e.rex(rexState{r: b >= 8, b: a >= 8})
	e.byte(0x85)
	e.byte(0xC0 | byte(b&7)<<3 | byte(a&7))
}

// seteReg emits sete on the byte form of reg.
func (e *emitter) seteReg(reg int) {
	e.rex(rexState{b: reg >= 8, force: reg >= 4})
	e.bytes(0x0F, 0x94)
	e.byte(0xC0 | byte(reg&7))
}

// movzxRegReg8 emits movzx dst32, src8.
func (e *emitter) movzxRegReg8(dst, src int) {
	e.rex(rexState{r: dst >= 8, b: src >= 8, force: src >= 4})
	e.bytes(0x0F, 0xB6)
	e.byte(0xC0 | byte(dst&7)<<3 | byte(src&7))
}

// callReg emits call reg.
func (e *emitter) callReg(reg int) {
	e.rex(rexState{b: reg >= 8})
	e.byte(0xFF)
	e.byte(0xD0 | byte(reg&7))
}

func (e *emitter) ret() { e.byte(0xC3) }

// subRSPImm8 / addRSPImm8 adjust the frame.
func (e *emitter) subRSPImm8(v uint8) { e.bytes(0x48, 0x83, 0xEC, v) }
func (e *emitter) addRSPImm8(v uint8) { e.bytes(0x48, 0x83, 0xC4, v) }

// jmpRel32 emits jmp with a rel32 placeholder and returns the offset of
// the displacement for patching.
func (e *emitter) jmpRel32() int {
	e.byte(0xE9)
	off := len(e.buf)
	e.u32(0)
	return off
}

// jnzRel8 emits jnz with a rel8 placeholder and returns its offset.
func (e *emitter) jnzRel8() int {
	e.byte(0x75)
	off := len(e.buf)
	e.byte(0)
	return off
}

// patchRel8 resolves a rel8 placeholder to the current position.
func (e *emitter) patchRel8(off int) {
	delta := len(e.buf) - (off + 1)
	if delta < -128 || delta > 127 {
		panic("x64: rel8 branch target out of range")
	}
	e.buf[off] = byte(delta)
}

// patchRel32 resolves a rel32 placeholder to target.
func (e *emitter) patchRel32(off, target int) {
	delta := target - (off + 4)
	binary.LittleEndian.PutUint32(e.buf[off:], uint32(delta))
}
