// Package passes runs ordered IR-to-IR rewrites over a translation unit
// before the backend lowers it.
package passes

import "github.com/tinyrange/sh4jit/internal/jit/ir"

// Pass rewrites a unit in place. It must leave the unit well formed: every
// argument either constant or defined by an earlier instruction.
type Pass interface {
	Name() string
	Run(unit *ir.Builder)
}

// Runner applies its passes in the order they were added.
type Runner struct {
	passes []Pass
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) AddPass(p Pass) {
	r.passes = append(r.passes, p)
}

func (r *Runner) Run(unit *ir.Builder) {
	for _, p := range r.passes {
		p.Run(unit)
	}
}
