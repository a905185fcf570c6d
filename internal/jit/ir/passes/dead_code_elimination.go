package passes

import "github.com/tinyrange/sh4jit/internal/jit/ir"

// DeadCodeElimination removes instructions whose result is never used and
// which have no side effects. A single backward sweep is enough: removing
// an instruction can only orphan values defined earlier.
type DeadCodeElimination struct{}

func NewDeadCodeElimination() *DeadCodeElimination {
	return &DeadCodeElimination{}
}

func (p *DeadCodeElimination) Name() string { return "dead_code_elimination" }

func (p *DeadCodeElimination) Run(unit *ir.Builder) {
	for i := len(unit.Instrs) - 1; i >= 0; i-- {
		in := unit.Instrs[i]
		if in.Op.HasSideEffects() {
			continue
		}
		if in.Result != nil && len(in.Result.Uses) > 0 {
			continue
		}
		unit.Remove(in)
	}
}
