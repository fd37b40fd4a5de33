package types

import "strconv"

// FnInfo stores metadata for function types.
type FnInfo struct {
	Params []TypeID // Parameter types (in order)
	Result TypeID   // Return type
	CC     CallConv
	// ByRef marks parameters the callee receives by address. Nil when
	// every parameter is passed by value.
	ByRef []bool `msgpack:",omitempty"`
}

// IsByRef reports whether parameter i is passed by address.
func (f *FnInfo) IsByRef(i int) bool {
	return i < len(f.ByRef) && f.ByRef[i]
}

// Tuple creates or finds the tuple type with the given elements. The empty
// tuple is a distinct type from unit.
func (in *Interner) Tuple(elems []TypeID) TypeID {
	key := listKey("tuple", elems)
	return in.intern(Type{Kind: KindTuple}, key, func(t *Type) {
		in.tuples = append(in.tuples, cloneTypeArgs(elems))
		t.Payload = slot(len(in.tuples)-1, "tuple info")
	})
}

// TupleElems returns the element types of a tuple.
func (in *Interner) TupleElems(id TypeID) ([]TypeID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return nil, false
	}
	tt := in.types[id]
	if tt.Kind != KindTuple || int(tt.Payload) >= len(in.tuples) {
		return nil, false
	}
	return in.tuples[tt.Payload], true
}

// Fn creates or finds a function type whose parameters are all passed
// by value.
func (in *Interner) Fn(params []TypeID, result TypeID, cc CallConv) TypeID {
	return in.FnRef(params, nil, result, cc)
}

// FnRef is Fn with per-parameter by-reference flags. byRef may be shorter
// than params; missing entries are by value.
func (in *Interner) FnRef(params []TypeID, byRef []bool, result TypeID, cc CallConv) TypeID {
	byRef = normRefs(byRef, len(params))
	return in.intern(Type{Kind: KindFn}, fnKey(params, byRef, result, cc), func(t *Type) {
		in.fns = append(in.fns, FnInfo{
			Params: cloneTypeArgs(params),
			Result: result,
			CC:     cc,
			ByRef:  byRef,
		})
		t.Payload = slot(len(in.fns)-1, "fn info")
	})
}

// normRefs trims byRef to n entries and returns nil when none is set.
func normRefs(byRef []bool, n int) []bool {
	if len(byRef) > n {
		byRef = byRef[:n]
	}
	for _, r := range byRef {
		if r {
			return append([]bool(nil), byRef...)
		}
	}
	return nil
}

// FnInfo retrieves function type metadata by TypeID. Closures report the
// signature of their code pointer.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok {
		return nil, false
	}
	if tt.Kind == KindClosure {
		return in.FnInfo(tt.Elem)
	}
	if tt.Kind != KindFn {
		return nil, false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	info := in.fns[tt.Payload]
	return &info, true
}

func fnKey(params []TypeID, byRef []bool, result TypeID, cc CallConv) string {
	prefix := "fn" + strconv.Itoa(int(cc)) + "->" + strconv.FormatUint(uint64(result), 10)
	if len(byRef) > 0 {
		mask := make([]byte, len(byRef))
		for i, r := range byRef {
			mask[i] = '0'
			if r {
				mask[i] = '1'
			}
		}
		prefix += "&" + string(mask)
	}
	return listKey(prefix, params)
}
