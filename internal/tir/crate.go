package tir

import (
	"fmt"
	"sort"
	"sync"

	"trans/internal/types"
)

// Crate is the unit of lowering: all definitions visible to the lowerer.
// Lookups index the crate on first use, so every item must be added before
// lowering starts.
type Crate struct {
	Name   string
	Types  *types.Interner
	Fns    []*FnDef
	Traits []*TraitDef
	Impls  []*ImplDef

	once   sync.Once
	fns    map[DefID]*FnDef
	traits map[types.TraitID]*TraitDef
	impls  map[ImplID]*ImplDef
}

// NewCrate creates an empty crate over the given interner.
func NewCrate(name string, in *types.Interner) *Crate {
	return &Crate{Name: name, Types: in}
}

func (c *Crate) index() {
	c.once.Do(func() {
		c.fns = make(map[DefID]*FnDef, len(c.Fns))
		for _, f := range c.Fns {
			c.fns[f.ID] = f
		}
		c.traits = make(map[types.TraitID]*TraitDef, len(c.Traits))
		for _, t := range c.Traits {
			c.traits[t.ID] = t
		}
		c.impls = make(map[ImplID]*ImplDef, len(c.Impls))
		for _, im := range c.Impls {
			c.impls[im.ID] = im
		}
	})
}

// Fn looks up a function definition.
func (c *Crate) Fn(id DefID) (*FnDef, bool) {
	c.index()
	f, ok := c.fns[id]
	return f, ok
}

// Trait looks up a trait definition.
func (c *Crate) Trait(id types.TraitID) (*TraitDef, bool) {
	c.index()
	t, ok := c.traits[id]
	return t, ok
}

// Impl looks up an impl block.
func (c *Crate) Impl(id ImplID) (*ImplDef, bool) {
	c.index()
	im, ok := c.impls[id]
	return im, ok
}

// Roots returns the functions lowered unconditionally: local, non-generic
// definitions with a body, ordered by id.
func (c *Crate) Roots() []*FnDef {
	var out []*FnDef
	for _, f := range c.Fns {
		if f.External || f.IsGeneric() || f.Body == nil {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate checks cross references that lowering relies on.
func (c *Crate) Validate() error {
	if c.Types == nil {
		return fmt.Errorf("crate %s: no type interner", c.Name)
	}
	seen := make(map[DefID]bool, len(c.Fns))
	for _, f := range c.Fns {
		if f.ID == NoDefID {
			return fmt.Errorf("crate %s: function %q has no id", c.Name, f.Name)
		}
		if seen[f.ID] {
			return fmt.Errorf("crate %s: duplicate function id %d", c.Name, f.ID)
		}
		seen[f.ID] = true
		if _, ok := c.Types.FnInfo(f.Sig); !ok {
			return fmt.Errorf("crate %s: function %s has a non-function signature", c.Name, f.Name)
		}
	}
	for _, im := range c.Impls {
		if _, ok := c.Trait(im.Trait); !ok {
			return fmt.Errorf("crate %s: impl %d names unknown trait %d", c.Name, im.ID, im.Trait)
		}
	}
	return nil
}
