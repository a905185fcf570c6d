package passes

import (
	"github.com/tinyrange/sh4jit/internal/jit/backend"
	"github.com/tinyrange/sh4jit/internal/jit/ir"
)

// RegisterAllocation binds virtual registers to the backend's register file
// with a linear scan over the unit. Values that do not fit get a spill slot;
// the backend reads unit.SpillSlots to size the frame.
type RegisterAllocation struct {
	registers []backend.Register
}

func NewRegisterAllocation(registers []backend.Register) *RegisterAllocation {
	return &RegisterAllocation{registers: registers}
}

func (p *RegisterAllocation) Name() string { return "register_allocation" }

type interval struct {
	value *ir.Value
	start int
	end   int
}

func (p *RegisterAllocation) Run(unit *ir.Builder) {
	pos := make(map[*ir.Instr]int, len(unit.Instrs))
	for i, in := range unit.Instrs {
		pos[in] = i
	}

	var intervals []interval
	for i, in := range unit.Instrs {
		v := in.Result
		if v == nil {
			continue
		}
		end := i
		for _, use := range v.Uses {
			if u, ok := pos[use]; ok && u > end {
				end = u
			}
		}
		intervals = append(intervals, interval{value: v, start: i, end: end})
	}

	free := make([]int, 0, len(p.registers))
	for i := len(p.registers) - 1; i >= 0; i-- {
		free = append(free, p.registers[i].Index)
	}

	var active []interval
	spills := 0

	expire := func(now int) {
		kept := active[:0]
		for _, a := range active {
			if a.end < now {
				free = append(free, a.value.Host)
				continue
			}
			kept = append(kept, a)
		}
		active = kept
	}

	for _, iv := range intervals {
		expire(iv.start)

		if len(free) > 0 {
			iv.value.Host = free[len(free)-1]
			free = free[:len(free)-1]
			active = append(active, iv)
			continue
		}

		// Steal from the active interval that ends last; whichever of the
		// two lives longer takes the spill slot.
		victim := 0
		for i := 1; i < len(active); i++ {
			if active[i].end > active[victim].end {
				victim = i
			}
		}
		if active[victim].end > iv.end {
			iv.value.Host = active[victim].value.Host
			active[victim].value.Host = -1
			active[victim].value.Spill = spills
			spills++
			active[victim] = iv
		} else {
			iv.value.Spill = spills
			spills++
		}
	}

	unit.SpillSlots = spills
}
