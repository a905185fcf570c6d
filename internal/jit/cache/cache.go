// Package cache owns the guest-to-host block mapping for the SH4
// recompiler: a direct-mapped dispatch table keyed on guest address plus
// two ordered indexes (guest-keyed and host-keyed) over the live blocks.
//
// The cache is built for a single executor thread: the thread that calls
// Compile, runs the emitted code and takes synchronous faults on its own
// stack. No internal locking; a second thread must serialize against the
// executor externally, since a lock here would deadlock a fault handler
// running on the executor's own frame.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/btree"

	"github.com/tinyrange/sh4jit/internal/jit"
	"github.com/tinyrange/sh4jit/internal/jit/backend"
	"github.com/tinyrange/sh4jit/internal/jit/exc"
	"github.com/tinyrange/sh4jit/internal/jit/frontend/sh4"
	"github.com/tinyrange/sh4jit/internal/jit/ir"
	"github.com/tinyrange/sh4jit/internal/jit/ir/passes"
)

// DefaultCodeSpan covers the 16MB ram mirror; every 2-byte aligned guest
// address inside the span gets one dispatch slot.
const DefaultCodeSpan = 1 << 24

// Block is one compiled translation unit. It is immutable after creation
// except for its flags (which may gain FlagSlowmem while it is being
// demoted) and its link state.
type Block struct {
	GuestAddr uint32
	GuestSize int
	HostAddr  uintptr
	HostSize  int
	Flags     jit.Flags
	NumCycles int
	NumInstrs int
}

func (b *Block) containsGuest(addr uint32) bool {
	return addr >= b.GuestAddr && addr < b.GuestAddr+uint32(b.GuestSize)
}

func (b *Block) containsHost(pc uintptr) bool {
	return pc >= b.HostAddr && pc < b.HostAddr+uintptr(b.HostSize)
}

// Options tune a cache beyond its collaborators.
type Options struct {
	// CodeSpan is the size in bytes of the direct-mapped guest range, a
	// power of two. Zero means DefaultCodeSpan.
	CodeSpan uint32

	// DumpIR, when set, writes the post-pass IR of every compiled block to
	// <dir>/0x<addr>.ir.
	DumpIR string
}

type Cache struct {
	code        []uintptr
	mask        uint32
	defaultCode uintptr

	byGuest *btree.BTreeG[*Block]
	byHost  *btree.BTreeG[*Block]

	frontend *sh4.Frontend
	backend  backend.Backend
	runner   *passes.Runner

	ehHandle exc.Handle
	dumpIR   string
}

// New builds a cache around the frontend/backend pair. defaultCode is the
// shared dispatch stub every empty slot points at; its contract is to read
// the guest PC, call Compile for it, install the result and tail-call it.
func New(frontend *sh4.Frontend, be backend.Backend, defaultCode uintptr, opts Options) *Cache {
	span := opts.CodeSpan
	if span == 0 {
		span = DefaultCodeSpan
	}
	if span&(span-1) != 0 {
		panic(fmt.Sprintf("cache: code span %#x is not a power of two", span))
	}

	c := &Cache{
		code:        make([]uintptr, span>>1),
		mask:        span - 1,
		defaultCode: defaultCode,
		byGuest: btree.NewG[*Block](8, func(a, b *Block) bool {
			return a.GuestAddr < b.GuestAddr
		}),
		byHost: btree.NewG[*Block](8, func(a, b *Block) bool {
			return a.HostAddr < b.HostAddr
		}),
		frontend: frontend,
		backend:  be,
		dumpIR:   opts.DumpIR,
	}

	for i := range c.code {
		c.code[i] = defaultCode
	}

	c.runner = passes.NewRunner()
	c.runner.AddPass(passes.NewLoadStoreElimination())
	c.runner.AddPass(passes.NewDeadCodeElimination())
	c.runner.AddPass(passes.NewRegisterAllocation(be.Registers()))

	// Demote blocks whose speculative accesses fault.
	c.ehHandle = exc.Register(c.HandleFault)

	return c
}

// Close unregisters the cache from fault dispatch.
func (c *Cache) Close() {
	exc.Remove(c.ehHandle)
}

// offset maps a guest address to its dispatch slot.
func (c *Cache) offset(guestAddr uint32) int {
	return int(guestAddr&c.mask) >> 1
}

// CodeAt returns the dispatch entry for a guest address.
func (c *Cache) CodeAt(guestAddr uint32) uintptr {
	return c.code[c.offset(guestAddr)]
}

// Compile translates the block at guestAddr and installs it. The slot must
// currently hold the dispatch stub. If a prior block at this exact address
// was unlinked by a fault, its flags are merged in and it is removed now,
// which is what upgrades a demoted block to slowmem on recompile.
func (c *Cache) Compile(guestAddr uint32, flags jit.Flags) uintptr {
	off := c.offset(guestAddr)
	if c.code[off] != c.defaultCode {
		panic(fmt.Sprintf("cache: compile at 0x%08x but slot is live", guestAddr))
	}

	if unlinked, ok := c.byGuest.Get(&Block{GuestAddr: guestAddr}); ok {
		flags |= unlinked.Flags
		c.removeBlock(unlinked)
	}

	unit, info := c.frontend.Translate(guestAddr, flags)
	c.runner.Run(unit)

	if c.dumpIR != "" {
		c.writeIRDump(guestAddr, unit)
	}

	hostAddr, hostSize, err := c.backend.Assemble(unit)
	if errors.Is(err, backend.ErrOverflow) {
		slog.Info("jit: assembler overflow, clearing block cache",
			"guestAddr", fmt.Sprintf("0x%08x", guestAddr))

		// The arena is exhausted; throw every block away and retry on an
		// empty arena. A second overflow means the unit is larger than the
		// whole arena and nothing can be done.
		c.ClearBlocks()

		hostAddr, hostSize, err = c.backend.Assemble(unit)
	}
	if err != nil {
		panic(fmt.Sprintf("cache: backend assemble at 0x%08x: %v", guestAddr, err))
	}

	block := &Block{
		GuestAddr: guestAddr,
		GuestSize: info.GuestSize,
		HostAddr:  hostAddr,
		HostSize:  hostSize,
		Flags:     info.Flags,
		NumCycles: info.NumCycles,
		NumInstrs: info.NumInstrs,
	}
	c.insertBlock(block)

	c.code[off] = block.HostAddr
	return block.HostAddr
}

// GetBlock is a point lookup by exact guest start address.
func (c *Cache) GetBlock(guestAddr uint32) *Block {
	if b, ok := c.byGuest.Get(&Block{GuestAddr: guestAddr}); ok {
		return b
	}
	return nil
}

// RemoveBlocks removes blocks whose guest range covers guestAddr: it
// repeatedly takes the block with the greatest start at or below guestAddr
// and removes it while it covers the address, stopping at the first one that
// does not. A covering block that starts below such a non-covering block is
// not removed. Only valid when guest memory at guestAddr has been written: the guest
// cannot re-enter a removed block without going through the dispatch stub.
func (c *Cache) RemoveBlocks(guestAddr uint32) {
	for {
		block := c.lookupByGuestContaining(guestAddr)
		if block == nil {
			break
		}
		c.removeBlock(block)
	}
}

// UnlinkBlocks resets every dispatch slot to the stub but keeps both
// indexes intact. This is the safe variant while host code is running:
// future calls from outside miss and recompile, and no memory an active
// frame may still execute in is freed.
func (c *Cache) UnlinkBlocks() {
	c.byGuest.Ascend(func(b *Block) bool {
		c.unlinkBlock(b)
		return true
	})
}

// ClearBlocks unlinks and removes every block, then resets the backend's
// codegen arena. The caller must guarantee no host code is executing.
func (c *Cache) ClearBlocks() {
	var all []*Block
	c.byGuest.Ascend(func(b *Block) bool {
		all = append(all, b)
		return true
	})
	for _, b := range all {
		c.removeBlock(b)
	}

	c.backend.Reset()
}

// HandleFault routes a fault whose PC lands in one of our blocks to the
// backend. On accept the block is unlinked and flagged slowmem but stays
// in both indexes: the faulting frame is still executing inside it and may
// fault again before it returns. The next dispatch at its guest address
// misses, recompiles, and picks the flag up through the unlinked-block
// merge in Compile.
func (c *Cache) HandleFault(f *jit.Fault) bool {
	block := c.lookupByHostContaining(f.PC)
	if block == nil {
		return false
	}

	if !c.backend.HandleFastmemFault(f) {
		return false
	}

	c.unlinkBlock(block)
	block.Flags |= jit.FlagSlowmem

	return true
}

// lookupByGuestContaining finds the block whose guest range contains addr:
// the greatest block starting at or below addr, range-checked.
func (c *Cache) lookupByGuestContaining(addr uint32) *Block {
	var pred *Block
	c.byGuest.DescendLessOrEqual(&Block{GuestAddr: addr}, func(b *Block) bool {
		pred = b
		return false
	})
	if pred == nil || !pred.containsGuest(addr) {
		return nil
	}
	return pred
}

// lookupByHostContaining is the host-keyed twin of lookupByGuestContaining.
func (c *Cache) lookupByHostContaining(pc uintptr) *Block {
	var pred *Block
	c.byHost.DescendLessOrEqual(&Block{HostAddr: pc}, func(b *Block) bool {
		pred = b
		return false
	})
	if pred == nil || !pred.containsHost(pc) {
		return nil
	}
	return pred
}

func (c *Cache) insertBlock(b *Block) {
	if _, dup := c.byGuest.ReplaceOrInsert(b); dup {
		panic(fmt.Sprintf("cache: duplicate guest index entry at 0x%08x", b.GuestAddr))
	}
	if _, dup := c.byHost.ReplaceOrInsert(b); dup {
		panic(fmt.Sprintf("cache: duplicate host index entry at %#x", b.HostAddr))
	}
}

func (c *Cache) unlinkBlock(b *Block) {
	c.code[c.offset(b.GuestAddr)] = c.defaultCode
}

func (c *Cache) removeBlock(b *Block) {
	c.unlinkBlock(b)

	c.byGuest.Delete(b)
	c.byHost.Delete(b)
}

func (c *Cache) writeIRDump(guestAddr uint32, unit *ir.Builder) {
	path := filepath.Join(c.dumpIR, fmt.Sprintf("0x%08x.ir", guestAddr))
	if err := os.WriteFile(path, []byte(unit.String()), 0o644); err != nil {
		slog.Warn("jit: write ir dump", "path", path, "err", err)
	}
}
