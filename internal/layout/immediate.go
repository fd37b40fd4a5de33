package layout

import "trans/internal/types"

// IsImmediate reports whether values of t travel in registers: scalars, thin
// pointers, zero-sized types, and aggregates no larger than a pointer.
// Everything else is passed and returned through memory.
func (e *LayoutEngine) IsImmediate(t types.TypeID) bool {
	tt, ok := e.Types.Lookup(t)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindBool, types.KindChar, types.KindInt, types.KindUint, types.KindFloat,
		types.KindPointer, types.KindFn, types.KindNever, types.KindUnit:
		return true
	case types.KindParam:
		return false
	}
	if e.Types.IsZeroSized(t) {
		return true
	}
	l, err := e.LayoutOf(t)
	if err != nil {
		return false
	}
	return l.Size <= e.ptrLayout().Size
}
