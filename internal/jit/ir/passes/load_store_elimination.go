package passes

import "github.com/tinyrange/sh4jit/internal/jit/ir"

// LoadStoreElimination forwards context stores into later loads of the same
// slot and drops stores that are overwritten before anything observes them.
// Slots are tracked by exact offset and type; mixed-width aliasing is left
// alone. A fallback can touch any context slot, so it clears all tracking.
type LoadStoreElimination struct{}

func NewLoadStoreElimination() *LoadStoreElimination {
	return &LoadStoreElimination{}
}

func (p *LoadStoreElimination) Name() string { return "load_store_elimination" }

func (p *LoadStoreElimination) Run(unit *ir.Builder) {
	available := make(map[int]*ir.Value)
	lastStore := make(map[int]*ir.Instr)

	instrs := append([]*ir.Instr(nil), unit.Instrs...)
	for _, in := range instrs {
		switch in.Op {
		case ir.OpLoadContext:
			if v, ok := available[in.Off]; ok && v.Type == in.Result.Type {
				unit.ReplaceUses(in.Result, v)
				unit.Remove(in)
				continue
			}
			available[in.Off] = in.Result
			// The prior store is observed now, keep it.
			delete(lastStore, in.Off)

		case ir.OpStoreContext:
			if prev, ok := lastStore[in.Off]; ok && prev.Arg[0].Type == in.Arg[0].Type {
				unit.Remove(prev)
			}
			available[in.Off] = in.Arg[0]
			lastStore[in.Off] = in

		case ir.OpFallback:
			available = make(map[int]*ir.Value)
			lastStore = make(map[int]*ir.Instr)

		case ir.OpBranch, ir.OpBranchCond:
			// Stores become visible to the dispatcher once the block exits.
			lastStore = make(map[int]*ir.Instr)
		}
	}
}
