package sh4

import (
	"fmt"
	"strings"
)

// OpFlag bits carried by an opdef. They drive the block scanner: a block
// ends after an invalid instruction, a branch, or anything that rewrites
// FPSCR or SR (the modes the block was compiled under).
type OpFlag uint16

const (
	OpInvalid OpFlag = 1 << iota
	OpDelayed
	OpBranch
	OpSetFPSCR
	OpSetSR
)

// Opdef describes one SH4 instruction encoding. Fields of the 16-bit word:
// n = bits 8-11, m = bits 4-7, imm = low byte, disp = low 4, 8 or 12 bits
// depending on the encoding.
type Opdef struct {
	Name   string
	Format string
	Mask   uint16
	Sig    uint16
	Cycles int
	Flags  OpFlag

	translate translateFunc
}

var invalidOpdef = &Opdef{
	Name:      "invalid",
	Format:    ".word {raw}",
	Cycles:    1,
	Flags:     OpInvalid,
	translate: translateFallback,
}

var opTable [0x10000]*Opdef

func init() {
	for i := range opTable {
		opTable[i] = lookupOpdef(uint16(i))
	}
}

// lookupOpdef resolves a raw word against the dedicated translators first,
// then the fallback defs. Only encodings in neither table are invalid.
func lookupOpdef(raw uint16) *Opdef {
	for _, def := range opdefs {
		if raw&def.Mask == def.Sig {
			return def
		}
	}
	for _, def := range fallbackOpdefs {
		if raw&def.Mask == def.Sig {
			return def
		}
	}
	return invalidOpdef
}

// GetOpdef decodes a raw instruction word to its opdef. Unknown encodings
// map to the shared invalid def.
func GetOpdef(raw uint16) *Opdef {
	return opTable[raw]
}

// Instruction field accessors.
func opRn(raw uint16) int      { return int(raw>>8) & 0xf }
func opRm(raw uint16) int      { return int(raw>>4) & 0xf }
func opImm8(raw uint16) uint32 { return uint32(raw & 0xff) }
func opDisp4(raw uint16) uint32 {
	return uint32(raw & 0xf)
}

func sext8(v uint32) uint32 {
	return uint32(int32(int8(v)))
}

func sext12(v uint16) uint32 {
	return uint32(int32(uint32(v)<<20) >> 20)
}

// Format renders a decoded instruction for dump output. Templates use
// {n}, {m}, {imm}, {simm}, {disp8} and {disp12} placeholders; branch
// displacement placeholders expand to the resolved target address.
func Format(addr uint32, raw uint16) string {
	def := GetOpdef(raw)

	r := strings.NewReplacer(
		"{raw}", fmt.Sprintf("0x%04x", raw),
		"{n}", fmt.Sprintf("%d", opRn(raw)),
		"{m}", fmt.Sprintf("%d", opRm(raw)),
		"{imm}", fmt.Sprintf("0x%02x", opImm8(raw)),
		"{simm}", fmt.Sprintf("%d", int32(sext8(opImm8(raw)))),
		"{disp4}", fmt.Sprintf("%d", opDisp4(raw)),
		"{disp8}", fmt.Sprintf("0x%08x", addr+4+2*sext8(opImm8(raw))),
		"{disp12}", fmt.Sprintf("0x%08x", addr+4+2*sext12(raw&0xfff)),
	)
	return fmt.Sprintf("%08x: %s", addr, r.Replace(def.Format))
}

// opdefs is ordered so that more specific masks match before looser ones.
var opdefs = []*Opdef{
	{Name: "nop", Format: "nop", Mask: 0xffff, Sig: 0x0009, Cycles: 1, translate: translateNOP},
	{Name: "rts", Format: "rts", Mask: 0xffff, Sig: 0x000b, Cycles: 2, Flags: OpDelayed | OpBranch, translate: translateRTS},
	{Name: "rte", Format: "rte", Mask: 0xffff, Sig: 0x002b, Cycles: 5, Flags: OpDelayed | OpBranch | OpSetSR, translate: translateFallback},

	{Name: "braf", Format: "braf r{n}", Mask: 0xf0ff, Sig: 0x0023, Cycles: 2, Flags: OpDelayed | OpBranch, translate: translateBRAF},
	{Name: "bsrf", Format: "bsrf r{n}", Mask: 0xf0ff, Sig: 0x0003, Cycles: 2, Flags: OpDelayed | OpBranch, translate: translateBSRF},
	{Name: "jmp", Format: "jmp @r{n}", Mask: 0xf0ff, Sig: 0x402b, Cycles: 2, Flags: OpDelayed | OpBranch, translate: translateJMP},
	{Name: "jsr", Format: "jsr @r{n}", Mask: 0xf0ff, Sig: 0x400b, Cycles: 2, Flags: OpDelayed | OpBranch, translate: translateJSR},

	{Name: "stc_sr", Format: "stc sr, r{n}", Mask: 0xf0ff, Sig: 0x0002, Cycles: 2, translate: translateSTCSR},
	{Name: "ldc_sr", Format: "ldc r{n}, sr", Mask: 0xf0ff, Sig: 0x400e, Cycles: 4, Flags: OpSetSR, translate: translateLDCSR},
	{Name: "lds_pr", Format: "lds r{n}, pr", Mask: 0xf0ff, Sig: 0x402a, Cycles: 1, translate: translateLDSPR},
	{Name: "sts_pr", Format: "sts pr, r{n}", Mask: 0xf0ff, Sig: 0x002a, Cycles: 1, translate: translateSTSPR},
	{Name: "lds_fpscr", Format: "lds r{n}, fpscr", Mask: 0xf0ff, Sig: 0x406a, Cycles: 1, Flags: OpSetFPSCR, translate: translateLDSFPSCR},
	{Name: "sts_fpscr", Format: "sts fpscr, r{n}", Mask: 0xf0ff, Sig: 0x006a, Cycles: 1, translate: translateSTSFPSCR},

	{Name: "shll", Format: "shll r{n}", Mask: 0xf0ff, Sig: 0x4000, Cycles: 1, translate: translateSHLL},
	{Name: "shlr", Format: "shlr r{n}", Mask: 0xf0ff, Sig: 0x4001, Cycles: 1, translate: translateSHLR},
	{Name: "shll2", Format: "shll2 r{n}", Mask: 0xf0ff, Sig: 0x4008, Cycles: 1, translate: translateSHLLN},
	{Name: "shll8", Format: "shll8 r{n}", Mask: 0xf0ff, Sig: 0x4018, Cycles: 1, translate: translateSHLLN},
	{Name: "shll16", Format: "shll16 r{n}", Mask: 0xf0ff, Sig: 0x4028, Cycles: 1, translate: translateSHLLN},
	{Name: "shlr2", Format: "shlr2 r{n}", Mask: 0xf0ff, Sig: 0x4009, Cycles: 1, translate: translateSHLRN},
	{Name: "shlr8", Format: "shlr8 r{n}", Mask: 0xf0ff, Sig: 0x4019, Cycles: 1, translate: translateSHLRN},
	{Name: "shlr16", Format: "shlr16 r{n}", Mask: 0xf0ff, Sig: 0x4029, Cycles: 1, translate: translateSHLRN},

	{Name: "mov", Format: "mov r{m}, r{n}", Mask: 0xf00f, Sig: 0x6003, Cycles: 1, translate: translateMOV},
	{Name: "mov.b_load", Format: "mov.b @r{m}, r{n}", Mask: 0xf00f, Sig: 0x6000, Cycles: 1, translate: translateMOVBLoad},
	{Name: "mov.w_load", Format: "mov.w @r{m}, r{n}", Mask: 0xf00f, Sig: 0x6001, Cycles: 1, translate: translateMOVWLoad},
	{Name: "mov.l_load", Format: "mov.l @r{m}, r{n}", Mask: 0xf00f, Sig: 0x6002, Cycles: 1, translate: translateMOVLLoad},
	{Name: "mov.l_ldpost", Format: "mov.l @r{m}+, r{n}", Mask: 0xf00f, Sig: 0x6006, Cycles: 1, translate: translateMOVLLoadPost},
	{Name: "mov.b_store", Format: "mov.b r{m}, @r{n}", Mask: 0xf00f, Sig: 0x2000, Cycles: 1, translate: translateMOVBStore},
	{Name: "mov.w_store", Format: "mov.w r{m}, @r{n}", Mask: 0xf00f, Sig: 0x2001, Cycles: 1, translate: translateMOVWStore},
	{Name: "mov.l_store", Format: "mov.l r{m}, @r{n}", Mask: 0xf00f, Sig: 0x2002, Cycles: 1, translate: translateMOVLStore},
	{Name: "mov.l_stpre", Format: "mov.l r{m}, @-r{n}", Mask: 0xf00f, Sig: 0x2006, Cycles: 1, translate: translateMOVLStorePre},

	{Name: "add", Format: "add r{m}, r{n}", Mask: 0xf00f, Sig: 0x300c, Cycles: 1, translate: translateADD},
	{Name: "sub", Format: "sub r{m}, r{n}", Mask: 0xf00f, Sig: 0x3008, Cycles: 1, translate: translateSUB},
	{Name: "and", Format: "and r{m}, r{n}", Mask: 0xf00f, Sig: 0x2009, Cycles: 1, translate: translateAND},
	{Name: "or", Format: "or r{m}, r{n}", Mask: 0xf00f, Sig: 0x200b, Cycles: 1, translate: translateOR},
	{Name: "xor", Format: "xor r{m}, r{n}", Mask: 0xf00f, Sig: 0x200a, Cycles: 1, translate: translateXOR},
	{Name: "tst", Format: "tst r{m}, r{n}", Mask: 0xf00f, Sig: 0x2008, Cycles: 1, translate: translateTST},
	{Name: "cmp/eq", Format: "cmp/eq r{m}, r{n}", Mask: 0xf00f, Sig: 0x3000, Cycles: 1, translate: translateCMPEQ},

	{Name: "fmov", Format: "fmov fr{m}, fr{n}", Mask: 0xf00f, Sig: 0xf00c, Cycles: 1, translate: translateFMOV},
	{Name: "fadd", Format: "fadd fr{m}, fr{n}", Mask: 0xf00f, Sig: 0xf000, Cycles: 1, translate: translateFallback},
	{Name: "fsub", Format: "fsub fr{m}, fr{n}", Mask: 0xf00f, Sig: 0xf001, Cycles: 1, translate: translateFallback},
	{Name: "fmul", Format: "fmul fr{m}, fr{n}", Mask: 0xf00f, Sig: 0xf002, Cycles: 1, translate: translateFallback},
	{Name: "fdiv", Format: "fdiv fr{m}, fr{n}", Mask: 0xf00f, Sig: 0xf003, Cycles: 13, translate: translateFallback},

	{Name: "bt", Format: "bt {disp8}", Mask: 0xff00, Sig: 0x8900, Cycles: 1, Flags: OpBranch, translate: translateBT},
	{Name: "bf", Format: "bf {disp8}", Mask: 0xff00, Sig: 0x8b00, Cycles: 1, Flags: OpBranch, translate: translateBF},
	{Name: "bt/s", Format: "bt/s {disp8}", Mask: 0xff00, Sig: 0x8d00, Cycles: 1, Flags: OpDelayed | OpBranch, translate: translateBT},
	{Name: "bf/s", Format: "bf/s {disp8}", Mask: 0xff00, Sig: 0x8f00, Cycles: 1, Flags: OpDelayed | OpBranch, translate: translateBF},
	{Name: "trapa", Format: "trapa #{imm}", Mask: 0xff00, Sig: 0xc300, Cycles: 7, Flags: OpBranch, translate: translateFallback},
	{Name: "cmp/eq_imm", Format: "cmp/eq #{simm}, r0", Mask: 0xff00, Sig: 0x8800, Cycles: 1, translate: translateCMPEQImm},
	{Name: "and_imm", Format: "and #{imm}, r0", Mask: 0xff00, Sig: 0xc900, Cycles: 1, translate: translateANDImm},
	{Name: "or_imm", Format: "or #{imm}, r0", Mask: 0xff00, Sig: 0xcb00, Cycles: 1, translate: translateORImm},
	{Name: "xor_imm", Format: "xor #{imm}, r0", Mask: 0xff00, Sig: 0xca00, Cycles: 1, translate: translateXORImm},
	{Name: "mova", Format: "mova @({imm}, pc), r0", Mask: 0xff00, Sig: 0xc700, Cycles: 1, translate: translateMOVA},

	{Name: "bra", Format: "bra {disp12}", Mask: 0xf000, Sig: 0xa000, Cycles: 2, Flags: OpDelayed | OpBranch, translate: translateBRA},
	{Name: "bsr", Format: "bsr {disp12}", Mask: 0xf000, Sig: 0xb000, Cycles: 2, Flags: OpDelayed | OpBranch, translate: translateBSR},
	{Name: "mov_imm", Format: "mov #{simm}, r{n}", Mask: 0xf000, Sig: 0xe000, Cycles: 1, translate: translateMOVImm},
	{Name: "add_imm", Format: "add #{simm}, r{n}", Mask: 0xf000, Sig: 0x7000, Cycles: 1, translate: translateADDImm},
	{Name: "mov.l_ldd", Format: "mov.l @({disp4}, r{m}), r{n}", Mask: 0xf000, Sig: 0x5000, Cycles: 1, translate: translateMOVLLoadDisp},
	{Name: "mov.l_std", Format: "mov.l r{m}, @({disp4}, r{n})", Mask: 0xf000, Sig: 0x1000, Cycles: 1, translate: translateMOVLStoreDisp},
	{Name: "mov.l_ldpc", Format: "mov.l @({imm}, pc), r{n}", Mask: 0xf000, Sig: 0xd000, Cycles: 1, translate: translateMOVLLoadPC},
	{Name: "mov.w_ldpc", Format: "mov.w @({imm}, pc), r{n}", Mask: 0xf000, Sig: 0x9000, Cycles: 1, translate: translateMOVWLoadPC},
}

// fallbackOpdefs are valid encodings with no dedicated translator; they
// compile to an interpreter-fallback call and keep the block scan running.
// The flags still matter: the scanner ends blocks on branch/SR/FPSCR
// rewrites regardless of how the instruction itself is compiled.
var fallbackOpdefs = []*Opdef{
	{Name: "clrt", Format: "clrt", Mask: 0xffff, Sig: 0x0008, Cycles: 1, translate: translateFallback},
	{Name: "sett", Format: "sett", Mask: 0xffff, Sig: 0x0018, Cycles: 1, translate: translateFallback},
	{Name: "div0u", Format: "div0u", Mask: 0xffff, Sig: 0x0019, Cycles: 1, translate: translateFallback},
	{Name: "sleep", Format: "sleep", Mask: 0xffff, Sig: 0x001b, Cycles: 4, translate: translateFallback},
	{Name: "clrmac", Format: "clrmac", Mask: 0xffff, Sig: 0x0028, Cycles: 1, translate: translateFallback},
	{Name: "ldtlb", Format: "ldtlb", Mask: 0xffff, Sig: 0x0038, Cycles: 1, translate: translateFallback},
	{Name: "clrs", Format: "clrs", Mask: 0xffff, Sig: 0x0048, Cycles: 1, translate: translateFallback},
	{Name: "sets", Format: "sets", Mask: 0xffff, Sig: 0x0058, Cycles: 1, translate: translateFallback},
	{Name: "fschg", Format: "fschg", Mask: 0xffff, Sig: 0xf3fd, Cycles: 1, Flags: OpSetFPSCR, translate: translateFallback},
	{Name: "frchg", Format: "frchg", Mask: 0xffff, Sig: 0xfbfd, Cycles: 1, Flags: OpSetFPSCR, translate: translateFallback},

	{Name: "sts_mach", Format: "sts mach, r{n}", Mask: 0xf0ff, Sig: 0x000a, Cycles: 1, translate: translateFallback},
	{Name: "stc_gbr", Format: "stc gbr, r{n}", Mask: 0xf0ff, Sig: 0x0012, Cycles: 2, translate: translateFallback},
	{Name: "sts_macl", Format: "sts macl, r{n}", Mask: 0xf0ff, Sig: 0x001a, Cycles: 1, translate: translateFallback},
	{Name: "stc_vbr", Format: "stc vbr, r{n}", Mask: 0xf0ff, Sig: 0x0022, Cycles: 2, translate: translateFallback},
	{Name: "movt", Format: "movt r{n}", Mask: 0xf0ff, Sig: 0x0029, Cycles: 1, translate: translateFallback},
	{Name: "stc_ssr", Format: "stc ssr, r{n}", Mask: 0xf0ff, Sig: 0x0032, Cycles: 2, translate: translateFallback},
	{Name: "stc_spc", Format: "stc spc, r{n}", Mask: 0xf0ff, Sig: 0x0042, Cycles: 2, translate: translateFallback},
	{Name: "sts_fpul", Format: "sts fpul, r{n}", Mask: 0xf0ff, Sig: 0x005a, Cycles: 1, translate: translateFallback},
	{Name: "pref", Format: "pref @r{n}", Mask: 0xf0ff, Sig: 0x0083, Cycles: 1, translate: translateFallback},
	{Name: "ocbi", Format: "ocbi @r{n}", Mask: 0xf0ff, Sig: 0x0093, Cycles: 1, translate: translateFallback},
	{Name: "ocbp", Format: "ocbp @r{n}", Mask: 0xf0ff, Sig: 0x00a3, Cycles: 1, translate: translateFallback},
	{Name: "ocbwb", Format: "ocbwb @r{n}", Mask: 0xf0ff, Sig: 0x00b3, Cycles: 1, translate: translateFallback},
	{Name: "movca.l", Format: "movca.l r0, @r{n}", Mask: 0xf0ff, Sig: 0x00c3, Cycles: 1, translate: translateFallback},

	{Name: "sts.l_mach", Format: "sts.l mach, @-r{n}", Mask: 0xf0ff, Sig: 0x4002, Cycles: 1, translate: translateFallback},
	{Name: "stc.l_sr", Format: "stc.l sr, @-r{n}", Mask: 0xf0ff, Sig: 0x4003, Cycles: 2, translate: translateFallback},
	{Name: "rotl", Format: "rotl r{n}", Mask: 0xf0ff, Sig: 0x4004, Cycles: 1, translate: translateFallback},
	{Name: "rotr", Format: "rotr r{n}", Mask: 0xf0ff, Sig: 0x4005, Cycles: 1, translate: translateFallback},
	{Name: "lds.l_mach", Format: "lds.l @r{n}+, mach", Mask: 0xf0ff, Sig: 0x4006, Cycles: 1, translate: translateFallback},
	{Name: "ldc.l_sr", Format: "ldc.l @r{n}+, sr", Mask: 0xf0ff, Sig: 0x4007, Cycles: 7, Flags: OpSetSR, translate: translateFallback},
	{Name: "lds_mach", Format: "lds r{n}, mach", Mask: 0xf0ff, Sig: 0x400a, Cycles: 1, translate: translateFallback},
	{Name: "dt", Format: "dt r{n}", Mask: 0xf0ff, Sig: 0x4010, Cycles: 1, translate: translateFallback},
	{Name: "cmp/pz", Format: "cmp/pz r{n}", Mask: 0xf0ff, Sig: 0x4011, Cycles: 1, translate: translateFallback},
	{Name: "sts.l_macl", Format: "sts.l macl, @-r{n}", Mask: 0xf0ff, Sig: 0x4012, Cycles: 1, translate: translateFallback},
	{Name: "cmp/pl", Format: "cmp/pl r{n}", Mask: 0xf0ff, Sig: 0x4015, Cycles: 1, translate: translateFallback},
	{Name: "lds.l_macl", Format: "lds.l @r{n}+, macl", Mask: 0xf0ff, Sig: 0x4016, Cycles: 1, translate: translateFallback},
	{Name: "lds_macl", Format: "lds r{n}, macl", Mask: 0xf0ff, Sig: 0x401a, Cycles: 1, translate: translateFallback},
	{Name: "tas.b", Format: "tas.b @r{n}", Mask: 0xf0ff, Sig: 0x401b, Cycles: 5, translate: translateFallback},
	{Name: "ldc_gbr", Format: "ldc r{n}, gbr", Mask: 0xf0ff, Sig: 0x401e, Cycles: 3, translate: translateFallback},
	{Name: "shal", Format: "shal r{n}", Mask: 0xf0ff, Sig: 0x4020, Cycles: 1, translate: translateFallback},
	{Name: "shar", Format: "shar r{n}", Mask: 0xf0ff, Sig: 0x4021, Cycles: 1, translate: translateFallback},
	{Name: "sts.l_pr", Format: "sts.l pr, @-r{n}", Mask: 0xf0ff, Sig: 0x4022, Cycles: 1, translate: translateFallback},
	{Name: "rotcl", Format: "rotcl r{n}", Mask: 0xf0ff, Sig: 0x4024, Cycles: 1, translate: translateFallback},
	{Name: "rotcr", Format: "rotcr r{n}", Mask: 0xf0ff, Sig: 0x4025, Cycles: 1, translate: translateFallback},
	{Name: "lds.l_pr", Format: "lds.l @r{n}+, pr", Mask: 0xf0ff, Sig: 0x4026, Cycles: 1, translate: translateFallback},
	{Name: "ldc_vbr", Format: "ldc r{n}, vbr", Mask: 0xf0ff, Sig: 0x402e, Cycles: 3, translate: translateFallback},
	{Name: "ldc_ssr", Format: "ldc r{n}, ssr", Mask: 0xf0ff, Sig: 0x403e, Cycles: 3, translate: translateFallback},
	{Name: "ldc_spc", Format: "ldc r{n}, spc", Mask: 0xf0ff, Sig: 0x404e, Cycles: 3, translate: translateFallback},
	{Name: "sts.l_fpul", Format: "sts.l fpul, @-r{n}", Mask: 0xf0ff, Sig: 0x4052, Cycles: 1, translate: translateFallback},
	{Name: "lds.l_fpul", Format: "lds.l @r{n}+, fpul", Mask: 0xf0ff, Sig: 0x4056, Cycles: 1, translate: translateFallback},
	{Name: "lds_fpul", Format: "lds r{n}, fpul", Mask: 0xf0ff, Sig: 0x405a, Cycles: 1, translate: translateFallback},
	{Name: "sts.l_fpscr", Format: "sts.l fpscr, @-r{n}", Mask: 0xf0ff, Sig: 0x4062, Cycles: 1, translate: translateFallback},
	{Name: "lds.l_fpscr", Format: "lds.l @r{n}+, fpscr", Mask: 0xf0ff, Sig: 0x4066, Cycles: 3, Flags: OpSetFPSCR, translate: translateFallback},

	{Name: "fsts", Format: "fsts fpul, fr{n}", Mask: 0xf0ff, Sig: 0xf00d, Cycles: 1, translate: translateFallback},
	{Name: "flds", Format: "flds fr{n}, fpul", Mask: 0xf0ff, Sig: 0xf01d, Cycles: 1, translate: translateFallback},
	{Name: "float", Format: "float fpul, fr{n}", Mask: 0xf0ff, Sig: 0xf02d, Cycles: 1, translate: translateFallback},
	{Name: "ftrc", Format: "ftrc fr{n}, fpul", Mask: 0xf0ff, Sig: 0xf03d, Cycles: 1, translate: translateFallback},
	{Name: "fneg", Format: "fneg fr{n}", Mask: 0xf0ff, Sig: 0xf04d, Cycles: 1, translate: translateFallback},
	{Name: "fabs", Format: "fabs fr{n}", Mask: 0xf0ff, Sig: 0xf05d, Cycles: 1, translate: translateFallback},
	{Name: "fsqrt", Format: "fsqrt fr{n}", Mask: 0xf0ff, Sig: 0xf06d, Cycles: 9, translate: translateFallback},
	{Name: "fsrra", Format: "fsrra fr{n}", Mask: 0xf0ff, Sig: 0xf07d, Cycles: 1, translate: translateFallback},
	{Name: "fldi0", Format: "fldi0 fr{n}", Mask: 0xf0ff, Sig: 0xf08d, Cycles: 1, translate: translateFallback},
	{Name: "fldi1", Format: "fldi1 fr{n}", Mask: 0xf0ff, Sig: 0xf09d, Cycles: 1, translate: translateFallback},
	{Name: "fcnvsd", Format: "fcnvsd fpul, dr{n}", Mask: 0xf0ff, Sig: 0xf0ad, Cycles: 1, translate: translateFallback},
	{Name: "fcnvds", Format: "fcnvds dr{n}, fpul", Mask: 0xf0ff, Sig: 0xf0bd, Cycles: 1, translate: translateFallback},
	{Name: "fsca", Format: "fsca fpul, dr{n}", Mask: 0xf0ff, Sig: 0xf0fd, Cycles: 1, translate: translateFallback},

	{Name: "mov.b_st0", Format: "mov.b r{m}, @(r0, r{n})", Mask: 0xf00f, Sig: 0x0004, Cycles: 1, translate: translateFallback},
	{Name: "mov.w_st0", Format: "mov.w r{m}, @(r0, r{n})", Mask: 0xf00f, Sig: 0x0005, Cycles: 1, translate: translateFallback},
	{Name: "mov.l_st0", Format: "mov.l r{m}, @(r0, r{n})", Mask: 0xf00f, Sig: 0x0006, Cycles: 1, translate: translateFallback},
	{Name: "mul.l", Format: "mul.l r{m}, r{n}", Mask: 0xf00f, Sig: 0x0007, Cycles: 2, translate: translateFallback},
	{Name: "mov.b_ld0", Format: "mov.b @(r0, r{m}), r{n}", Mask: 0xf00f, Sig: 0x000c, Cycles: 1, translate: translateFallback},
	{Name: "mov.w_ld0", Format: "mov.w @(r0, r{m}), r{n}", Mask: 0xf00f, Sig: 0x000d, Cycles: 1, translate: translateFallback},
	{Name: "mov.l_ld0", Format: "mov.l @(r0, r{m}), r{n}", Mask: 0xf00f, Sig: 0x000e, Cycles: 1, translate: translateFallback},
	{Name: "mac.l", Format: "mac.l @r{m}+, @r{n}+", Mask: 0xf00f, Sig: 0x000f, Cycles: 2, translate: translateFallback},

	{Name: "mov.b_stpre", Format: "mov.b r{m}, @-r{n}", Mask: 0xf00f, Sig: 0x2004, Cycles: 1, translate: translateFallback},
	{Name: "mov.w_stpre", Format: "mov.w r{m}, @-r{n}", Mask: 0xf00f, Sig: 0x2005, Cycles: 1, translate: translateFallback},
	{Name: "div0s", Format: "div0s r{m}, r{n}", Mask: 0xf00f, Sig: 0x2007, Cycles: 1, translate: translateFallback},
	{Name: "cmp/str", Format: "cmp/str r{m}, r{n}", Mask: 0xf00f, Sig: 0x200c, Cycles: 1, translate: translateFallback},
	{Name: "xtrct", Format: "xtrct r{m}, r{n}", Mask: 0xf00f, Sig: 0x200d, Cycles: 1, translate: translateFallback},
	{Name: "mulu.w", Format: "mulu.w r{m}, r{n}", Mask: 0xf00f, Sig: 0x200e, Cycles: 2, translate: translateFallback},
	{Name: "muls.w", Format: "muls.w r{m}, r{n}", Mask: 0xf00f, Sig: 0x200f, Cycles: 2, translate: translateFallback},

	{Name: "cmp/hs", Format: "cmp/hs r{m}, r{n}", Mask: 0xf00f, Sig: 0x3002, Cycles: 1, translate: translateFallback},
	{Name: "cmp/ge", Format: "cmp/ge r{m}, r{n}", Mask: 0xf00f, Sig: 0x3003, Cycles: 1, translate: translateFallback},
	{Name: "div1", Format: "div1 r{m}, r{n}", Mask: 0xf00f, Sig: 0x3004, Cycles: 1, translate: translateFallback},
	{Name: "dmulu.l", Format: "dmulu.l r{m}, r{n}", Mask: 0xf00f, Sig: 0x3005, Cycles: 2, translate: translateFallback},
	{Name: "cmp/hi", Format: "cmp/hi r{m}, r{n}", Mask: 0xf00f, Sig: 0x3006, Cycles: 1, translate: translateFallback},
	{Name: "cmp/gt", Format: "cmp/gt r{m}, r{n}", Mask: 0xf00f, Sig: 0x3007, Cycles: 1, translate: translateFallback},
	{Name: "subc", Format: "subc r{m}, r{n}", Mask: 0xf00f, Sig: 0x300a, Cycles: 1, translate: translateFallback},
	{Name: "subv", Format: "subv r{m}, r{n}", Mask: 0xf00f, Sig: 0x300b, Cycles: 1, translate: translateFallback},
	{Name: "dmuls.l", Format: "dmuls.l r{m}, r{n}", Mask: 0xf00f, Sig: 0x300d, Cycles: 2, translate: translateFallback},
	{Name: "addc", Format: "addc r{m}, r{n}", Mask: 0xf00f, Sig: 0x300e, Cycles: 1, translate: translateFallback},
	{Name: "addv", Format: "addv r{m}, r{n}", Mask: 0xf00f, Sig: 0x300f, Cycles: 1, translate: translateFallback},

	{Name: "mac.w", Format: "mac.w @r{m}+, @r{n}+", Mask: 0xf00f, Sig: 0x400f, Cycles: 2, translate: translateFallback},
	{Name: "shad", Format: "shad r{m}, r{n}", Mask: 0xf00f, Sig: 0x400c, Cycles: 1, translate: translateFallback},
	{Name: "shld", Format: "shld r{m}, r{n}", Mask: 0xf00f, Sig: 0x400d, Cycles: 1, translate: translateFallback},

	{Name: "mov.b_ldpost", Format: "mov.b @r{m}+, r{n}", Mask: 0xf00f, Sig: 0x6004, Cycles: 1, translate: translateFallback},
	{Name: "mov.w_ldpost", Format: "mov.w @r{m}+, r{n}", Mask: 0xf00f, Sig: 0x6005, Cycles: 1, translate: translateFallback},
	{Name: "not", Format: "not r{m}, r{n}", Mask: 0xf00f, Sig: 0x6007, Cycles: 1, translate: translateFallback},
	{Name: "swap.b", Format: "swap.b r{m}, r{n}", Mask: 0xf00f, Sig: 0x6008, Cycles: 1, translate: translateFallback},
	{Name: "swap.w", Format: "swap.w r{m}, r{n}", Mask: 0xf00f, Sig: 0x6009, Cycles: 1, translate: translateFallback},
	{Name: "negc", Format: "negc r{m}, r{n}", Mask: 0xf00f, Sig: 0x600a, Cycles: 1, translate: translateFallback},
	{Name: "neg", Format: "neg r{m}, r{n}", Mask: 0xf00f, Sig: 0x600b, Cycles: 1, translate: translateFallback},
	{Name: "extu.b", Format: "extu.b r{m}, r{n}", Mask: 0xf00f, Sig: 0x600c, Cycles: 1, translate: translateFallback},
	{Name: "extu.w", Format: "extu.w r{m}, r{n}", Mask: 0xf00f, Sig: 0x600d, Cycles: 1, translate: translateFallback},
	{Name: "exts.b", Format: "exts.b r{m}, r{n}", Mask: 0xf00f, Sig: 0x600e, Cycles: 1, translate: translateFallback},
	{Name: "exts.w", Format: "exts.w r{m}, r{n}", Mask: 0xf00f, Sig: 0x600f, Cycles: 1, translate: translateFallback},

	{Name: "fcmp/eq", Format: "fcmp/eq fr{m}, fr{n}", Mask: 0xf00f, Sig: 0xf004, Cycles: 1, translate: translateFallback},
	{Name: "fcmp/gt", Format: "fcmp/gt fr{m}, fr{n}", Mask: 0xf00f, Sig: 0xf005, Cycles: 1, translate: translateFallback},
	{Name: "fmov.s_ld0", Format: "fmov.s @(r0, r{m}), fr{n}", Mask: 0xf00f, Sig: 0xf006, Cycles: 1, translate: translateFallback},
	{Name: "fmov.s_st0", Format: "fmov.s fr{m}, @(r0, r{n})", Mask: 0xf00f, Sig: 0xf007, Cycles: 1, translate: translateFallback},
	{Name: "fmov.s_ld", Format: "fmov.s @r{m}, fr{n}", Mask: 0xf00f, Sig: 0xf008, Cycles: 1, translate: translateFallback},
	{Name: "fmov.s_ldpost", Format: "fmov.s @r{m}+, fr{n}", Mask: 0xf00f, Sig: 0xf009, Cycles: 1, translate: translateFallback},
	{Name: "fmov.s_st", Format: "fmov.s fr{m}, @r{n}", Mask: 0xf00f, Sig: 0xf00a, Cycles: 1, translate: translateFallback},
	{Name: "fmov.s_stpre", Format: "fmov.s fr{m}, @-r{n}", Mask: 0xf00f, Sig: 0xf00b, Cycles: 1, translate: translateFallback},
	{Name: "fmac", Format: "fmac fr0, fr{m}, fr{n}", Mask: 0xf00f, Sig: 0xf00e, Cycles: 1, translate: translateFallback},

	{Name: "mov.b_std", Format: "mov.b r0, @({disp4}, r{m})", Mask: 0xff00, Sig: 0x8000, Cycles: 1, translate: translateFallback},
	{Name: "mov.w_std", Format: "mov.w r0, @({disp4}, r{m})", Mask: 0xff00, Sig: 0x8100, Cycles: 1, translate: translateFallback},
	{Name: "mov.b_ldd", Format: "mov.b @({disp4}, r{m}), r0", Mask: 0xff00, Sig: 0x8400, Cycles: 1, translate: translateFallback},
	{Name: "mov.w_ldd", Format: "mov.w @({disp4}, r{m}), r0", Mask: 0xff00, Sig: 0x8500, Cycles: 1, translate: translateFallback},

	{Name: "mov.b_stgbr", Format: "mov.b r0, @({imm}, gbr)", Mask: 0xff00, Sig: 0xc000, Cycles: 1, translate: translateFallback},
	{Name: "mov.w_stgbr", Format: "mov.w r0, @({imm}, gbr)", Mask: 0xff00, Sig: 0xc100, Cycles: 1, translate: translateFallback},
	{Name: "mov.l_stgbr", Format: "mov.l r0, @({imm}, gbr)", Mask: 0xff00, Sig: 0xc200, Cycles: 1, translate: translateFallback},
	{Name: "mov.b_ldgbr", Format: "mov.b @({imm}, gbr), r0", Mask: 0xff00, Sig: 0xc400, Cycles: 1, translate: translateFallback},
	{Name: "mov.w_ldgbr", Format: "mov.w @({imm}, gbr), r0", Mask: 0xff00, Sig: 0xc500, Cycles: 1, translate: translateFallback},
	{Name: "mov.l_ldgbr", Format: "mov.l @({imm}, gbr), r0", Mask: 0xff00, Sig: 0xc600, Cycles: 1, translate: translateFallback},
	{Name: "tst_imm", Format: "tst #{imm}, r0", Mask: 0xff00, Sig: 0xc800, Cycles: 1, translate: translateFallback},
	{Name: "tst.b", Format: "tst.b #{imm}, @(r0, gbr)", Mask: 0xff00, Sig: 0xcc00, Cycles: 3, translate: translateFallback},
	{Name: "and.b", Format: "and.b #{imm}, @(r0, gbr)", Mask: 0xff00, Sig: 0xcd00, Cycles: 3, translate: translateFallback},
	{Name: "xor.b", Format: "xor.b #{imm}, @(r0, gbr)", Mask: 0xff00, Sig: 0xce00, Cycles: 3, translate: translateFallback},
	{Name: "or.b", Format: "or.b #{imm}, @(r0, gbr)", Mask: 0xff00, Sig: 0xcf00, Cycles: 3, translate: translateFallback},
}
