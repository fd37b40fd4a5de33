package types

// Subst maps Param(i) to Types[i].
type Subst struct {
	Types []TypeID
}

// IsEmpty reports whether the substitution has no entries.
func (s Subst) IsEmpty() bool { return len(s.Types) == 0 }

// Apply replaces every Param(i) inside ty with s.Types[i]. Parameters without
// an entry are left in place; callers detect them with HasParams.
func (in *Interner) Apply(s Subst, ty TypeID) TypeID {
	if s.IsEmpty() || ty == NoTypeID {
		return ty
	}
	tt, ok := in.Lookup(ty)
	if !ok {
		return ty
	}
	switch tt.Kind {
	case KindParam:
		if int(tt.Count) < len(s.Types) && s.Types[tt.Count] != NoTypeID {
			return s.Types[tt.Count]
		}
		return ty
	case KindPointer:
		elem := in.Apply(s, tt.Elem)
		if elem == tt.Elem {
			return ty
		}
		return in.Pointer(tt.Own, elem)
	case KindArray:
		elem := in.Apply(s, tt.Elem)
		if elem == tt.Elem {
			return ty
		}
		return in.Array(elem, tt.Count)
	case KindClosure:
		sig := in.Apply(s, tt.Elem)
		if sig == tt.Elem {
			return ty
		}
		return in.Closure(sig)
	case KindTuple:
		elems, _ := in.TupleElems(ty)
		out, changed := in.applyList(s, elems)
		if !changed {
			return ty
		}
		return in.Tuple(out)
	case KindFn:
		info, _ := in.FnInfo(ty)
		params, changed := in.applyList(s, info.Params)
		result := in.Apply(s, info.Result)
		if !changed && result == info.Result {
			return ty
		}
		return in.FnRef(params, info.ByRef, result, info.CC)
	case KindStruct, KindEnum:
		inst, _ := in.AdtOf(ty)
		args, changed := in.applyList(s, inst.Args)
		if !changed {
			return ty
		}
		return in.Adt(inst.Adt, args)
	default:
		return ty
	}
}

func (in *Interner) applyList(s Subst, ids []TypeID) ([]TypeID, bool) {
	out := make([]TypeID, len(ids))
	changed := false
	for i, id := range ids {
		out[i] = in.Apply(s, id)
		if out[i] != id {
			changed = true
		}
	}
	return out, changed
}

// ApplyAll substitutes every element of ids.
func (in *Interner) ApplyAll(s Subst, ids []TypeID) []TypeID {
	out, _ := in.applyList(s, ids)
	return out
}

// Compose returns the substitution equivalent to applying first and then
// then. Neither input is modified.
func (in *Interner) Compose(first, then Subst) Subst {
	out := make([]TypeID, len(first.Types))
	for i, id := range first.Types {
		out[i] = in.Apply(then, id)
	}
	return Subst{Types: out}
}

// HasParams reports whether ty still mentions a generic parameter.
func (in *Interner) HasParams(ty TypeID) bool {
	tt, ok := in.Lookup(ty)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindParam:
		return true
	case KindPointer, KindArray, KindClosure:
		return in.HasParams(tt.Elem)
	case KindTuple:
		elems, _ := in.TupleElems(ty)
		return in.anyParams(elems)
	case KindFn:
		info, _ := in.FnInfo(ty)
		return in.HasParams(info.Result) || in.anyParams(info.Params)
	case KindStruct, KindEnum:
		inst, _ := in.AdtOf(ty)
		return in.anyParams(inst.Args)
	default:
		return false
	}
}

func (in *Interner) anyParams(ids []TypeID) bool {
	for _, id := range ids {
		if in.HasParams(id) {
			return true
		}
	}
	return false
}
