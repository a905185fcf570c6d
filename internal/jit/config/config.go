// Package config loads the recompiler's runtime configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultArenaSize = 8 << 20
	DefaultCodeSpan  = 1 << 24
)

// Config tunes the recompiler. Zero values are filled with defaults by
// normalize, so a partial file is fine.
type Config struct {
	// ArenaSize is the executable codegen arena capacity in bytes.
	ArenaSize int `yaml:"arenaSize,omitempty"`

	// CodeSpan is the size in bytes of the direct-mapped guest range the
	// dispatch table covers. Must be a power of two.
	CodeSpan uint32 `yaml:"codeSpan,omitempty"`

	// Fastmem enables speculative guest-window accesses. Off, every guest
	// access goes through the memory helpers.
	Fastmem *bool `yaml:"fastmem,omitempty"`

	// DumpIR is a directory the post-pass IR of each compiled block is
	// written to. Empty disables dumping.
	DumpIR string `yaml:"dumpIR,omitempty"`
}

func (c *Config) normalize() {
	if c.ArenaSize == 0 {
		c.ArenaSize = DefaultArenaSize
	}
	if c.CodeSpan == 0 {
		c.CodeSpan = DefaultCodeSpan
	}
	if c.Fastmem == nil {
		on := true
		c.Fastmem = &on
	}
}

// Default is the configuration used when no file is given.
func Default() Config {
	var c Config
	c.normalize()
	return c
}

// Load reads and validates a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.ArenaSize < 0 {
		return Config{}, fmt.Errorf("config %s: arenaSize must be positive", path)
	}
	if c.CodeSpan&(c.CodeSpan-1) != 0 {
		return Config{}, fmt.Errorf("config %s: codeSpan %#x is not a power of two", path, c.CodeSpan)
	}

	c.normalize()
	return c, nil
}
