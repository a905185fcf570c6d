package sh4

import (
	"github.com/tinyrange/sh4jit/internal/jit"
	"github.com/tinyrange/sh4jit/internal/jit/ir"
)

// translateFunc emits IR for a single decoded instruction. Delayed branch
// translators read their target before calling e.delaySlot, so a slot that
// rewrites the branch register cannot corrupt the target.
type translateFunc func(e *emitState, addr uint32, raw uint16)

type emitState struct {
	f     *Frontend
	b     *ir.Builder
	flags jit.Flags
}

// delaySlot translates the instruction in a delayed branch's slot.
func (e *emitState) delaySlot(addr uint32) {
	raw := e.f.bus.R16(addr)
	def := GetOpdef(raw)
	def.translate(e, addr, raw)
}

func (e *emitState) loadR(n int) *ir.Value {
	return e.b.LoadContext(OffR(n), ir.TypeI32)
}

func (e *emitState) storeR(n int, v *ir.Value) {
	e.b.StoreContext(OffR(n), v)
}

// setT overwrites the SR T flag from an i8 truth value.
func (e *emitState) setT(t *ir.Value) {
	sr := e.b.LoadContext(OffSR, ir.TypeI32)
	cleared := e.b.And(sr, e.b.AllocI32(^uint32(srT)))
	e.b.StoreContext(OffSR, e.b.Or(cleared, t))
}

// loadT yields an i32 value holding the T flag.
func (e *emitState) loadT() *ir.Value {
	sr := e.b.LoadContext(OffSR, ir.TypeI32)
	return e.b.And(sr, e.b.AllocI32(srT))
}

func translateNOP(e *emitState, addr uint32, raw uint16) {}

func translateFallback(e *emitState, addr uint32, raw uint16) {
	e.b.Fallback(raw, addr)
}

func translateMOVImm(e *emitState, addr uint32, raw uint16) {
	e.storeR(opRn(raw), e.b.AllocI32(sext8(opImm8(raw))))
}

func translateMOV(e *emitState, addr uint32, raw uint16) {
	e.storeR(opRn(raw), e.loadR(opRm(raw)))
}

func translateMOVA(e *emitState, addr uint32, raw uint16) {
	e.storeR(0, e.b.AllocI32((addr&^3)+4+opImm8(raw)*4))
}

// signExtend widens a zero-extended narrow load to 32 bits.
func (e *emitState) signExtend(v *ir.Value, bits uint32) *ir.Value {
	shift := e.b.AllocI32(32 - bits)
	// Or into an i32 zero so the result (and any store of it) is 32 bits wide.
	wide := e.b.Or(e.b.AllocI32(0), v)
	return e.b.Ashr(e.b.Shl(wide, shift), shift)
}

func translateMOVBLoad(e *emitState, addr uint32, raw uint16) {
	v := e.b.LoadGuest(e.loadR(opRm(raw)), ir.TypeI8)
	e.storeR(opRn(raw), e.signExtend(v, 8))
}

func translateMOVWLoad(e *emitState, addr uint32, raw uint16) {
	v := e.b.LoadGuest(e.loadR(opRm(raw)), ir.TypeI16)
	e.storeR(opRn(raw), e.signExtend(v, 16))
}

func translateMOVLLoad(e *emitState, addr uint32, raw uint16) {
	e.storeR(opRn(raw), e.b.LoadGuest(e.loadR(opRm(raw)), ir.TypeI32))
}

func translateMOVLLoadPost(e *emitState, addr uint32, raw uint16) {
	m, n := opRm(raw), opRn(raw)
	a := e.loadR(m)
	v := e.b.LoadGuest(a, ir.TypeI32)
	// When m == n the loaded value wins over the increment.
	e.storeR(m, e.b.Add(a, e.b.AllocI32(4)))
	e.storeR(n, v)
}

func translateMOVBStore(e *emitState, addr uint32, raw uint16) {
	v := e.b.LoadContext(OffR(opRm(raw)), ir.TypeI8)
	e.b.StoreGuest(e.loadR(opRn(raw)), v)
}

func translateMOVWStore(e *emitState, addr uint32, raw uint16) {
	v := e.b.LoadContext(OffR(opRm(raw)), ir.TypeI16)
	e.b.StoreGuest(e.loadR(opRn(raw)), v)
}

func translateMOVLStore(e *emitState, addr uint32, raw uint16) {
	e.b.StoreGuest(e.loadR(opRn(raw)), e.loadR(opRm(raw)))
}

func translateMOVLStorePre(e *emitState, addr uint32, raw uint16) {
	m, n := opRm(raw), opRn(raw)
	v := e.loadR(m)
	a := e.b.Sub(e.loadR(n), e.b.AllocI32(4))
	e.b.StoreGuest(a, v)
	e.storeR(n, a)
}

func translateMOVLLoadDisp(e *emitState, addr uint32, raw uint16) {
	a := e.b.Add(e.loadR(opRm(raw)), e.b.AllocI32(opDisp4(raw)*4))
	e.storeR(opRn(raw), e.b.LoadGuest(a, ir.TypeI32))
}

func translateMOVLStoreDisp(e *emitState, addr uint32, raw uint16) {
	a := e.b.Add(e.loadR(opRn(raw)), e.b.AllocI32(opDisp4(raw)*4))
	e.b.StoreGuest(a, e.loadR(opRm(raw)))
}

func translateMOVLLoadPC(e *emitState, addr uint32, raw uint16) {
	a := e.b.AllocI32((addr &^ 3) + 4 + opImm8(raw)*4)
	e.storeR(opRn(raw), e.b.LoadGuest(a, ir.TypeI32))
}

func translateMOVWLoadPC(e *emitState, addr uint32, raw uint16) {
	a := e.b.AllocI32(addr + 4 + opImm8(raw)*2)
	v := e.b.LoadGuest(a, ir.TypeI16)
	e.storeR(opRn(raw), e.signExtend(v, 16))
}

func translateADD(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	e.storeR(n, e.b.Add(e.loadR(n), e.loadR(opRm(raw))))
}

func translateADDImm(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	e.storeR(n, e.b.Add(e.loadR(n), e.b.AllocI32(sext8(opImm8(raw)))))
}

func translateSUB(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	e.storeR(n, e.b.Sub(e.loadR(n), e.loadR(opRm(raw))))
}

func translateAND(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	e.storeR(n, e.b.And(e.loadR(n), e.loadR(opRm(raw))))
}

func translateOR(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	e.storeR(n, e.b.Or(e.loadR(n), e.loadR(opRm(raw))))
}

func translateXOR(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	e.storeR(n, e.b.Xor(e.loadR(n), e.loadR(opRm(raw))))
}

func translateANDImm(e *emitState, addr uint32, raw uint16) {
	e.storeR(0, e.b.And(e.loadR(0), e.b.AllocI32(opImm8(raw))))
}

func translateORImm(e *emitState, addr uint32, raw uint16) {
	e.storeR(0, e.b.Or(e.loadR(0), e.b.AllocI32(opImm8(raw))))
}

func translateXORImm(e *emitState, addr uint32, raw uint16) {
	e.storeR(0, e.b.Xor(e.loadR(0), e.b.AllocI32(opImm8(raw))))
}

func translateTST(e *emitState, addr uint32, raw uint16) {
	v := e.b.And(e.loadR(opRn(raw)), e.loadR(opRm(raw)))
	e.setT(e.b.CmpEQ(v, e.b.AllocI32(0)))
}

func translateCMPEQ(e *emitState, addr uint32, raw uint16) {
	e.setT(e.b.CmpEQ(e.loadR(opRn(raw)), e.loadR(opRm(raw))))
}

func translateCMPEQImm(e *emitState, addr uint32, raw uint16) {
	e.setT(e.b.CmpEQ(e.loadR(0), e.b.AllocI32(sext8(opImm8(raw)))))
}

func translateSHLL(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	v := e.loadR(n)
	e.setT(e.b.Lshr(v, e.b.AllocI32(31)))
	e.storeR(n, e.b.Shl(v, e.b.AllocI32(1)))
}

func translateSHLR(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	v := e.loadR(n)
	e.setT(e.b.And(v, e.b.AllocI32(1)))
	e.storeR(n, e.b.Lshr(v, e.b.AllocI32(1)))
}

var shiftCounts = map[uint16]uint32{0x08: 2, 0x18: 8, 0x28: 16, 0x09: 2, 0x19: 8, 0x29: 16}

func translateSHLLN(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	e.storeR(n, e.b.Shl(e.loadR(n), e.b.AllocI32(shiftCounts[raw&0xff])))
}

func translateSHLRN(e *emitState, addr uint32, raw uint16) {
	n := opRn(raw)
	e.storeR(n, e.b.Lshr(e.loadR(n), e.b.AllocI32(shiftCounts[raw&0xff])))
}

func translateSTCSR(e *emitState, addr uint32, raw uint16) {
	e.storeR(opRn(raw), e.b.LoadContext(OffSR, ir.TypeI32))
}

func translateLDCSR(e *emitState, addr uint32, raw uint16) {
	e.b.StoreContext(OffSR, e.loadR(opRn(raw)))
}

func translateLDSPR(e *emitState, addr uint32, raw uint16) {
	e.b.StoreContext(OffPR, e.loadR(opRn(raw)))
}

func translateSTSPR(e *emitState, addr uint32, raw uint16) {
	e.storeR(opRn(raw), e.b.LoadContext(OffPR, ir.TypeI32))
}

func translateLDSFPSCR(e *emitState, addr uint32, raw uint16) {
	e.b.StoreContext(OffFPSCR, e.loadR(opRn(raw)))
}

func translateSTSFPSCR(e *emitState, addr uint32, raw uint16) {
	e.storeR(opRn(raw), e.b.LoadContext(OffFPSCR, ir.TypeI32))
}

// translateFMOV moves between FP registers; under SZ=1 it moves the 64-bit
// register pair.
func translateFMOV(e *emitState, addr uint32, raw uint16) {
	m, n := opRm(raw), opRn(raw)
	if e.flags&jit.FlagDoubleSZ != 0 {
		m &^= 1
		n &^= 1
		e.b.StoreContext(OffFR(n), e.b.LoadContext(OffFR(m), ir.TypeI32))
		e.b.StoreContext(OffFR(n+1), e.b.LoadContext(OffFR(m+1), ir.TypeI32))
		return
	}
	e.b.StoreContext(OffFR(n), e.b.LoadContext(OffFR(m), ir.TypeI32))
}

func translateBRA(e *emitState, addr uint32, raw uint16) {
	target := addr + 4 + 2*sext12(raw&0xfff)
	e.delaySlot(addr + 2)
	e.b.Branch(e.b.AllocI32(target))
}

func translateBSR(e *emitState, addr uint32, raw uint16) {
	target := addr + 4 + 2*sext12(raw&0xfff)
	e.b.StoreContext(OffPR, e.b.AllocI32(addr+4))
	e.delaySlot(addr + 2)
	e.b.Branch(e.b.AllocI32(target))
}

func translateBRAF(e *emitState, addr uint32, raw uint16) {
	target := e.b.Add(e.loadR(opRn(raw)), e.b.AllocI32(addr+4))
	e.delaySlot(addr + 2)
	e.b.Branch(target)
}

func translateBSRF(e *emitState, addr uint32, raw uint16) {
	target := e.b.Add(e.loadR(opRn(raw)), e.b.AllocI32(addr+4))
	e.b.StoreContext(OffPR, e.b.AllocI32(addr+4))
	e.delaySlot(addr + 2)
	e.b.Branch(target)
}

func translateJMP(e *emitState, addr uint32, raw uint16) {
	target := e.loadR(opRn(raw))
	e.delaySlot(addr + 2)
	e.b.Branch(target)
}

func translateJSR(e *emitState, addr uint32, raw uint16) {
	target := e.loadR(opRn(raw))
	e.b.StoreContext(OffPR, e.b.AllocI32(addr+4))
	e.delaySlot(addr + 2)
	e.b.Branch(target)
}

func translateRTS(e *emitState, addr uint32, raw uint16) {
	target := e.b.LoadContext(OffPR, ir.TypeI32)
	e.delaySlot(addr + 2)
	e.b.Branch(target)
}

func conditionalBranch(e *emitState, addr uint32, raw uint16, whenSet bool) {
	def := GetOpdef(raw)
	target := addr + 4 + 2*sext8(opImm8(raw))

	next := addr + 2
	if def.Flags&OpDelayed != 0 {
		next = addr + 4
	}

	t := e.loadT()
	if def.Flags&OpDelayed != 0 {
		e.delaySlot(addr + 2)
	}

	taken, fall := e.b.AllocI32(target), e.b.AllocI32(next)
	if whenSet {
		e.b.BranchCond(t, taken, fall)
	} else {
		e.b.BranchCond(t, fall, taken)
	}
}

func translateBT(e *emitState, addr uint32, raw uint16) {
	conditionalBranch(e, addr, raw, true)
}

func translateBF(e *emitState, addr uint32, raw uint16) {
	conditionalBranch(e, addr, raw, false)
}
