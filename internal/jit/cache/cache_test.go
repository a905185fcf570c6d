package cache

import (
	"encoding/binary"
	"testing"

	"github.com/tinyrange/sh4jit/internal/jit"
	"github.com/tinyrange/sh4jit/internal/jit/backend"
	"github.com/tinyrange/sh4jit/internal/jit/frontend/sh4"
	"github.com/tinyrange/sh4jit/internal/jit/ir"
)

const (
	testDefaultCode = uintptr(0xdead0000)
	testHostBase    = uintptr(0x40000000)
	testBlockLen    = 32
)

// fakeBackend hands out fixed-size host ranges bump-style and lets tests
// script overflows and fault acceptance.
type fakeBackend struct {
	next      uintptr
	failures  int
	resets    int
	assembled int
	accept    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{next: testHostBase}
}

func (b *fakeBackend) Assemble(unit *ir.Builder) (uintptr, int, error) {
	if b.failures > 0 {
		b.failures--
		return 0, 0, backend.ErrOverflow
	}
	entry := b.next
	b.next += testBlockLen
	b.assembled++
	return entry, testBlockLen, nil
}

func (b *fakeBackend) Reset() {
	b.resets++
	b.next = testHostBase
}

func (b *fakeBackend) HandleFastmemFault(f *jit.Fault) bool {
	return b.accept
}

func (b *fakeBackend) Registers() []backend.Register {
	return []backend.Register{
		{Name: "rbx", Index: 3},
		{Name: "rbp", Index: 5},
		{Name: "r12", Index: 12},
		{Name: "r13", Index: 13},
	}
}

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
	opNOP  = 0x0009
	opBRA  = 0xa000 // bra with zero displacement
	opMOV1 = 0xe101 // mov #1, r1
	opMOV2 = 0xe202 // mov #2, r2
	opMOV3 = 0xe303 // mov #3, r3
)

func newTestCache(t *testing.T, bus jit.Bus) (*Cache, *fakeBackend) {
	t.Helper()

	be := newFakeBackend()
	c := New(sh4.New(bus, &sh4.Context{}), be, testDefaultCode, Options{})
	t.Cleanup(c.Close)
	return c, be
}

func TestCompileInstallsBlock(t *testing.T) {
	const addr = 0x8c000000
	bus := program(addr, opMOV1, opMOV2, opBRA, opNOP, opMOV3)
	c, _ := newTestCache(t, bus)

	if got := c.GetBlock(addr); got != nil {
		t.Fatalf("empty cache returned block %+v", got)
	}
	if got := c.CodeAt(addr); got != testDefaultCode {
		t.Fatalf("empty slot holds %#x, want default code", got)
	}

	entry := c.Compile(addr, 0)

	block := c.GetBlock(addr)
	if block == nil {
		t.Fatal("no block after compile")
	}
	if block.HostAddr != entry {
		t.Fatalf("block host addr %#x, compile returned %#x", block.HostAddr, entry)
	}
	if got := c.CodeAt(addr); got != entry {
		t.Fatalf("slot holds %#x, want %#x", got, entry)
	}
}

func TestBlockEndsAtBranch(t *testing.T) {
	const addr = 0x8c000000
	// mov, mov, bra, delay slot nop, then one more mov that must not be
	// part of the block.
	bus := program(addr, opMOV1, opMOV2, opBRA, opNOP, opMOV3)
	c, _ := newTestCache(t, bus)

	c.Compile(addr, 0)

	if got := c.GetBlock(addr).GuestSize; got != 8 {
		t.Fatalf("block guest size %d, want 8", got)
	}
}

func TestDisjointHostRanges(t *testing.T) {
	const a0, a1 = 0x8c000000, 0x8c001000
	bus := &multiBus{
		program(a0, opMOV1, opBRA, opNOP),
		program(a1, opMOV2, opBRA, opNOP),
	}
	c, _ := newTestCache(t, bus)

	c.Compile(a0, 0)
	c.Compile(a1, 0)

	b0, b1 := c.GetBlock(a0), c.GetBlock(a1)
	if b0.HostAddr+uintptr(b0.HostSize) > b1.HostAddr && b1.HostAddr+uintptr(b1.HostSize) > b0.HostAddr {
		t.Fatalf("host ranges overlap: %#x+%d and %#x+%d", b0.HostAddr, b0.HostSize, b1.HostAddr, b1.HostSize)
	}

	for _, want := range []*Block{b0, b1} {
		for pc := want.HostAddr; pc < want.HostAddr+uintptr(want.HostSize); pc++ {
			if got := c.lookupByHostContaining(pc); got != want {
				t.Fatalf("lookup at %#x returned %+v, want %+v", pc, got, want)
			}
		}
	}

	if got := c.lookupByHostContaining(b1.HostAddr + uintptr(b1.HostSize)); got != nil {
		t.Fatalf("lookup past the last range returned %+v", got)
	}
}

// multiBus overlays several images.
type multiBus []*sliceBus

func (m *multiBus) R16(addr uint32) uint16 {
	for _, b := range *m {
		if v := b.R16(addr); v != 0 {
			return v
		}
	}
	return 0
}

func TestUnlinkBlocksKeepsIndexes(t *testing.T) {
	const a0, a1 = 0x8c000000, 0x8c001000
	bus := &multiBus{
		program(a0, opMOV1, opBRA, opNOP),
		program(a1, opMOV2, opBRA, opNOP),
	}
	c, _ := newTestCache(t, bus)

	c.Compile(a0, 0)
	c.Compile(a1, 0)

	c.UnlinkBlocks()

	for _, addr := range []uint32{a0, a1} {
		if got := c.CodeAt(addr); got != testDefaultCode {
			t.Fatalf("slot for 0x%08x holds %#x after unlink", addr, got)
		}
	}
	if c.byGuest.Len() != 2 || c.byHost.Len() != 2 {
		t.Fatalf("indexes changed by unlink: guest=%d host=%d", c.byGuest.Len(), c.byHost.Len())
	}
}

func TestClearBlocksEmptiesIndexes(t *testing.T) {
	const a0, a1 = 0x8c000000, 0x8c001000
	bus := &multiBus{
		program(a0, opMOV1, opBRA, opNOP),
		program(a1, opMOV2, opBRA, opNOP),
	}
	c, be := newTestCache(t, bus)

	c.Compile(a0, 0)
	c.Compile(a1, 0)

	c.ClearBlocks()

	for _, addr := range []uint32{a0, a1} {
		if got := c.CodeAt(addr); got != testDefaultCode {
			t.Fatalf("slot for 0x%08x holds %#x after clear", addr, got)
		}
	}
	if c.byGuest.Len() != 0 || c.byHost.Len() != 0 {
		t.Fatalf("indexes not empty after clear: guest=%d host=%d", c.byGuest.Len(), c.byHost.Len())
	}
	if be.resets != 1 {
		t.Fatalf("backend reset %d times, want 1", be.resets)
	}
}

func TestHandleFaultDemotesBlock(t *testing.T) {
	const addr = 0x8c000000
	bus := program(addr, opMOV1, opMOV2, opBRA, opNOP)
	c, be := newTestCache(t, bus)
	be.accept = true

	entry := c.Compile(addr, 0)
	block := c.GetBlock(addr)

	fault := &jit.Fault{PC: entry + 4, State: &jit.ThreadState{}}
	if !c.HandleFault(fault) {
		t.Fatal("fault inside block not handled")
	}

	// The block is demoted but must survive in both indexes: the faulting
	// frame is still executing inside it.
	if got := c.GetBlock(addr); got != block {
		t.Fatalf("block missing from guest index after fault")
	}
	if got := c.lookupByHostContaining(entry + 4); got != block {
		t.Fatalf("block missing from host index after fault")
	}
	if got := c.CodeAt(addr); got != testDefaultCode {
		t.Fatalf("slot holds %#x after fault, want default code", got)
	}
	if block.Flags&jit.FlagSlowmem == 0 {
		t.Fatalf("block flags %s missing slowmem", block.Flags)
	}

	// Recompiling at the same address merges the flags and finishes the
	// removal.
	c.Compile(addr, 0)

	recompiled := c.GetBlock(addr)
	if recompiled == block {
		t.Fatal("recompile reused the demoted block")
	}
	if recompiled.Flags&jit.FlagSlowmem == 0 {
		t.Fatalf("recompiled flags %s missing slowmem", recompiled.Flags)
	}
	if c.byGuest.Len() != 1 || c.byHost.Len() != 1 {
		t.Fatalf("stale block left behind: guest=%d host=%d", c.byGuest.Len(), c.byHost.Len())
	}
}

func TestHandleFaultUnknownPC(t *testing.T) {
	const addr = 0x8c000000
	bus := program(addr, opMOV1, opBRA, opNOP)
	c, be := newTestCache(t, bus)
	be.accept = true

	c.Compile(addr, 0)

	fault := &jit.Fault{PC: testHostBase - 0x1000, State: &jit.ThreadState{}}
	if c.HandleFault(fault) {
		t.Fatal("fault outside every block was handled")
	}
}

func TestHandleFaultBackendDeclines(t *testing.T) {
	const addr = 0x8c000000
	bus := program(addr, opMOV1, opBRA, opNOP)
	c, be := newTestCache(t, bus)
	be.accept = false

	entry := c.Compile(addr, 0)

	fault := &jit.Fault{PC: entry, State: &jit.ThreadState{}}
	if c.HandleFault(fault) {
		t.Fatal("fault handled even though the backend declined")
	}
	if got := c.CodeAt(addr); got != entry {
		t.Fatalf("declined fault unlinked the block: slot=%#x", got)
	}
}

func TestOverflowClearsAndRetries(t *testing.T) {
	const a0, a1 = 0x8c000000, 0x8c001000
	bus := &multiBus{
		program(a0, opMOV1, opBRA, opNOP),
		program(a1, opMOV2, opBRA, opNOP),
	}
	c, be := newTestCache(t, bus)

	c.Compile(a0, 0)

	be.failures = 1
	entry := c.Compile(a1, 0)

	if be.resets != 1 {
		t.Fatalf("backend reset %d times, want 1", be.resets)
	}
	if got := c.GetBlock(a0); got != nil {
		t.Fatalf("prior block survived the overflow clear: %+v", got)
	}
	block := c.GetBlock(a1)
	if block == nil || block.HostAddr != entry {
		t.Fatalf("retried block not installed: %+v", block)
	}
	if c.byGuest.Len() != 1 {
		t.Fatalf("%d blocks live, want 1", c.byGuest.Len())
	}
}

func TestSecondOverflowIsFatal(t *testing.T) {
	const addr = 0x8c000000
	bus := program(addr, opMOV1, opBRA, opNOP)
	c, be := newTestCache(t, bus)

	be.failures = 2

	defer func() {
		if recover() == nil {
			t.Fatal("second overflow did not panic")
		}
		if c.byGuest.Len() != 0 || c.byHost.Len() != 0 {
			t.Fatalf("block created despite failed compile: guest=%d host=%d",
				c.byGuest.Len(), c.byHost.Len())
		}
	}()
	c.Compile(addr, 0)
}

func TestRemoveBlocksOverlapping(t *testing.T) {
	const base = 0x8c000000
	// A block at base covering 8 bytes, and a second one entered in its
	// middle (self-modifying guest code): both cover base+6.
	bus := program(base, opMOV1, opMOV2, opBRA, opNOP)
	c, _ := newTestCache(t, bus)

	c.Compile(base, 0)   // base .. base+8
	c.Compile(base+4, 0) // the bra and its delay slot: base+4 .. base+8

	if c.byGuest.Len() != 2 {
		t.Fatalf("%d blocks live, want 2", c.byGuest.Len())
	}

	c.RemoveBlocks(base + 6)

	if c.byGuest.Len() != 0 || c.byHost.Len() != 0 {
		t.Fatalf("overlapping blocks survived removal: guest=%d host=%d",
			c.byGuest.Len(), c.byHost.Len())
	}
}

func TestRemoveBlocksMissesDisjoint(t *testing.T) {
	const addr = 0x8c000000
	bus := program(addr, opMOV1, opBRA, opNOP)
	c, _ := newTestCache(t, bus)

	c.Compile(addr, 0)
	c.RemoveBlocks(addr + 0x100)

	if c.byGuest.Len() != 1 {
		t.Fatal("removal touched a block that does not cover the address")
	}
}

func TestConfiguredCodeSpan(t *testing.T) {
	const addr = 0x8c000000
	const span = 0x10000
	bus := program(addr, opMOV1, opBRA, opNOP)

	be := newFakeBackend()
	c := New(sh4.New(bus, &sh4.Context{}), be, testDefaultCode, Options{CodeSpan: span})
	t.Cleanup(c.Close)

	if len(c.code) != span>>1 {
		t.Fatalf("dispatch table has %d slots, want %d", len(c.code), span>>1)
	}

	entry := c.Compile(addr, 0)
	if got := c.CodeAt(addr); got != entry {
		t.Fatalf("slot holds %#x, want %#x", got, entry)
	}
	// The table is direct-mapped: an address one span away aliases the
	// same slot.
	if got := c.CodeAt(addr + span); got != entry {
		t.Fatalf("aliasing slot holds %#x, want %#x", got, entry)
	}
}

func TestNonPowerOfTwoCodeSpanPanics(t *testing.T) {
	bus := program(0x8c000000, opMOV1, opBRA, opNOP)

	defer func() {
		if recover() == nil {
			t.Fatal("non-power-of-two code span did not panic")
		}
	}()
	New(sh4.New(bus, &sh4.Context{}), newFakeBackend(), testDefaultCode, Options{CodeSpan: 0x1234})
}

func TestCompileIntoLiveSlotPanics(t *testing.T) {
	const addr = 0x8c000000
	bus := program(addr, opMOV1, opBRA, opNOP)
	c, _ := newTestCache(t, bus)

	c.Compile(addr, 0)

	defer func() {
		if recover() == nil {
			t.Fatal("compiling into a live slot did not panic")
		}
	}()
	c.Compile(addr, 0)
}
