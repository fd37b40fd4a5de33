package ir

import (
	"slices"

	"trans/internal/emit"
)

// predecessors maps each block to the distinct blocks that branch to it.
func (f *Func) predecessors() map[emit.Block][]emit.Block {
	preds := make(map[emit.Block][]emit.Block, len(f.Blocks))
	for i := range f.Blocks {
		b := emit.Block(i)
		last := f.lastLive(b)
		if last < 0 {
			continue
		}
		for _, t := range f.Instrs[last].Targets {
			if !slices.Contains(preds[t], b) {
				preds[t] = append(preds[t], b)
			}
		}
	}
	return preds
}

// DominatingStore walks single-predecessor edges back from `from` looking
// for the block holding the only user of ptr, which must be a store into it.
func (f *Func) DominatingStore(ptr emit.Value, from emit.Block) (emit.Instr, bool) {
	store := -1
	for i := range f.Instrs {
		in := &f.Instrs[i]
		if in.Erased || !in.uses(ptr.Ref) {
			continue
		}
		if store >= 0 || in.Op != OpStore || in.Args[1].Ref != ptr.Ref || in.Args[0].Ref == ptr.Ref {
			return 0, false
		}
		store = i
	}
	if store < 0 {
		return 0, false
	}
	target := f.Instrs[store].Block
	preds := f.predecessors()
	seen := make(map[emit.Block]bool)
	for b := from; !seen[b]; {
		if b == target {
			return emit.Instr(store), true
		}
		seen[b] = true
		p := preds[b]
		if len(p) != 1 {
			return 0, false
		}
		b = p[0]
	}
	return 0, false
}

// StoredValue returns the value operand of a store.
func (f *Func) StoredValue(store emit.Instr) emit.Value {
	in := &f.Instrs[store]
	if in.Op != OpStore {
		return emit.Value{}
	}
	return in.Args[0]
}

// Erase marks an instruction dead.
func (f *Func) Erase(in emit.Instr) {
	if int(in) >= 0 && int(in) < len(f.Instrs) {
		f.Instrs[in].Erased = true
	}
}

// HasUses reports whether a live instruction reads v.
func (f *Func) HasUses(v emit.Value) bool {
	for i := range f.Instrs {
		if !f.Instrs[i].Erased && f.Instrs[i].uses(v.Ref) {
			return true
		}
	}
	return false
}

// EraseDef marks the instruction defining v dead.
func (f *Func) EraseDef(v emit.Value) {
	for i := range f.Instrs {
		in := &f.Instrs[i]
		if !in.Erased && in.Result == v.Ref {
			in.Erased = true
			if in.Op == OpAlloca {
				f.allocas--
				f.dropFromBlock(i)
			}
			return
		}
	}
}

func (f *Func) dropFromBlock(idx int) {
	b := &f.Blocks[f.Instrs[idx].Block]
	b.Instrs = slices.DeleteFunc(b.Instrs, func(i int) bool { return i == idx })
}

// Live returns the live instructions of a block in order.
func (f *Func) Live(b emit.Block) []Instr {
	var out []Instr
	for _, idx := range f.Blocks[b].Instrs {
		if !f.Instrs[idx].Erased {
			out = append(out, f.Instrs[idx])
		}
	}
	return out
}

// CountOp counts live instructions with the given opcode.
func (f *Func) CountOp(op Op) int {
	n := 0
	for i := range f.Instrs {
		if !f.Instrs[i].Erased && f.Instrs[i].Op == op {
			n++
		}
	}
	return n
}

// BlockNamed returns the first block with the given name.
func (f *Func) BlockNamed(name string) (emit.Block, bool) {
	for i, b := range f.Blocks {
		if b.Name == name {
			return emit.Block(i), true
		}
	}
	return emit.NoBlock, false
}
