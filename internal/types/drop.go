package types

// NeedsDrop reports whether a value of ty owns resources that must be
// released when it goes out of scope: unique and box pointers, owned
// trait objects, closures (their environment is owned), types with a
// destructor, and aggregates containing any of those.
func (in *Interner) NeedsDrop(ty TypeID) bool {
	return in.needsDrop(ty, make(map[TypeID]bool))
}

func (in *Interner) needsDrop(ty TypeID, visiting map[TypeID]bool) bool {
	tt, ok := in.Lookup(ty)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindPointer, KindDyn:
		return tt.Own != OwnShared
	case KindClosure:
		return true
	case KindArray:
		return tt.Count > 0 && in.needsDrop(tt.Elem, visiting)
	case KindTuple, KindStruct, KindEnum:
		if visiting[ty] {
			// a cycle through shared pointers only; owned links return above
			return false
		}
		visiting[ty] = true
		defer delete(visiting, ty)
		if tt.Kind != KindTuple {
			if _, has := in.Dtor(ty); has {
				return true
			}
		}
		if tt.Kind == KindEnum {
			variants, _ := in.Variants(ty)
			for _, v := range variants {
				for _, f := range v.Fields {
					if in.needsDrop(f, visiting) {
						return true
					}
				}
			}
			return false
		}
		fields, _ := in.Fields(ty)
		for _, f := range fields {
			if in.needsDrop(f, visiting) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsZeroSized reports types that occupy no storage.
func (in *Interner) IsZeroSized(ty TypeID) bool {
	tt, ok := in.Lookup(ty)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindUnit, KindNever:
		return true
	case KindArray:
		return tt.Count == 0 || in.IsZeroSized(tt.Elem)
	case KindString:
		return tt.Count == 0
	case KindTuple, KindStruct:
		fields, _ := in.Fields(ty)
		for _, f := range fields {
			if !in.IsZeroSized(f) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
