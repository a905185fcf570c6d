// Command sh4jit translates a flat SH4 binary image ahead of time and
// reports what the recompiler would build for it: block extents, cycle
// counts and emitted code sizes, with optional disassembly and IR dumps.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/tinyrange/sh4jit/internal/jit"
	"github.com/tinyrange/sh4jit/internal/jit/backend/x64"
	"github.com/tinyrange/sh4jit/internal/jit/cache"
	"github.com/tinyrange/sh4jit/internal/jit/config"
	"github.com/tinyrange/sh4jit/internal/jit/frontend/sh4"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sh4jit: %v\n", err)
		os.Exit(1)
	}
}

// flatBus serves guest reads from a binary image loaded at a base address.
// Reads outside the image return 0, which decodes as invalid and ends the
// block.
type flatBus struct {
	base uint32
	data []byte
}

func (b *flatBus) R16(addr uint32) uint16 {
	off := int64(addr) - int64(b.base)
	if off < 0 || off+2 > int64(len(b.data)) {
		return 0
	}
	return binary.LittleEndian.Uint16(b.data[off:])
}

func run() error {
	base := flag.Uint64("base", 0x8c010000, "Load address of the image")
	configPath := flag.String("config", "", "Path to a YAML config file")
	dump := flag.Bool("dump", false, "Print a disassembly of each block")
	dumpIR := flag.String("dump-ir", "", "Directory to write per-block IR dumps to")
	slowmem := flag.Bool("slowmem", false, "Compile without speculative memory accesses")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <image.bin>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Translate a flat SH4 image and print the resulting blocks.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		return fmt.Errorf("image file required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	if *dumpIR != "" {
		cfg.DumpIR = *dumpIR
	}
	if cfg.DumpIR != "" {
		if err := os.MkdirAll(cfg.DumpIR, 0o755); err != nil {
			return fmt.Errorf("create ir dump dir: %w", err)
		}
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if len(data) < 2 {
		return fmt.Errorf("image %s is empty", args[0])
	}

	bus := &flatBus{base: uint32(*base), data: data}
	ctx := &sh4.Context{}
	frontend := sh4.New(bus, ctx)

	be, err := x64.New(cfg.ArenaSize, x64.Options{
		PCOffset: sh4.OffPC,
	})
	if err != nil {
		return err
	}
	defer be.Close()

	// Translation only: the embedding machine normally supplies the real
	// dispatch stub entry here.
	c := cache.New(frontend, be, 0, cache.Options{
		CodeSpan: cfg.CodeSpan,
		DumpIR:   cfg.DumpIR,
	})
	defer c.Close()

	var flags jit.Flags
	if *slowmem || !*cfg.Fastmem {
		flags |= jit.FlagSlowmem
	}

	var blocks, hostBytes int
	end := uint32(*base) + uint32(len(data))

	for addr := uint32(*base); addr < end; {
		c.Compile(addr, flags)
		block := c.GetBlock(addr)

		fmt.Printf("0x%08x  guest=%-4d cycles=%-4d instrs=%-3d host=%-5d flags=%s\n",
			block.GuestAddr, block.GuestSize, block.NumCycles, block.NumInstrs,
			block.HostSize, block.Flags)

		if *dump {
			frontend.DumpCode(os.Stdout, block.GuestAddr, block.GuestSize)
		}

		blocks++
		hostBytes += block.HostSize
		addr += uint32(block.GuestSize)
	}

	fmt.Printf("\n%d blocks, %d guest bytes, %d host bytes\n", blocks, len(data), hostBytes)
	return nil
}
