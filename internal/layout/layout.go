// Package layout computes sizes, alignments and field offsets of lowered
// types, and decides which values travel in registers.
package layout

import (
	"trans/internal/types"
)

// TypeLayout is the memory layout of one type on one Target.
type TypeLayout struct {
	Size  int
	Align int

	// structs, tuples and the (code, env) pair of closures
	FieldOffsets []int
	FieldAligns  []int

	// enums: u32 tag, then the payload of the largest variant
	TagSize       int
	TagAlign      int
	PayloadOffset int
}

// unsized is what a failed layout reports alongside its error.
var unsized = TypeLayout{Size: 0, Align: 1}

// LayoutEngine memoizes layouts per TypeID. It is safe for concurrent
// use by the functions of one crate lowered in parallel.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner

	cache *cache
}

func New(target Target, in *types.Interner) *LayoutEngine {
	return &LayoutEngine{Target: target, Types: in, cache: newCache()}
}

// layoutState tracks the value types being laid out on the current path;
// meeting one again means the type contains itself by value.
type layoutState struct {
	path []types.TypeID
	on   map[types.TypeID]int
}

// LayoutOf returns the layout of t.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	l, err := e.layoutOf(t, &layoutState{on: make(map[types.TypeID]int)})
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *LayoutEngine) layoutOf(t types.TypeID, st *layoutState) (TypeLayout, *LayoutError) {
	if hit, ok := e.cache.get(t); ok {
		return hit.Layout, hit.Err
	}
	if at, ok := st.on[t]; ok {
		cycle := append(append([]types.TypeID(nil), st.path[at:]...), t)
		err := e.errorf(LayoutErrRecursiveUnsized, t)
		err.Cycle = cycle
		err.cycleNames = e.names(cycle)
		e.cache.put(t, cacheEntry{Layout: unsized, Err: err})
		return unsized, err
	}

	st.on[t] = len(st.path)
	st.path = append(st.path, t)
	l, err := e.computeLayout(t, st)
	st.path = st.path[:len(st.path)-1]
	delete(st.on, t)

	e.cache.put(t, cacheEntry{Layout: l, Err: err})
	return l, err
}

// SizeOf returns the size of t in bytes.
func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment of t in bytes.
func (e *LayoutEngine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

func (e *LayoutEngine) names(ids []types.TypeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = e.Types.Format(id)
	}
	return out
}
