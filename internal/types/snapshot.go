package types

// Snapshot is the serialisable form of an interner. TypeIDs stay stable
// across a Snapshot/FromSnapshot round trip.
type Snapshot struct {
	Types  []Type     `msgpack:"types"`
	Tuples [][]TypeID `msgpack:"tuples"`
	Fns    []FnInfo   `msgpack:"fns"`
	Insts  []AdtInst  `msgpack:"insts"`
	Adts   []AdtDef   `msgpack:"adts"`
}

// Snapshot copies the interner tables.
func (in *Interner) Snapshot() Snapshot {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return Snapshot{
		Types:  append([]Type(nil), in.types...),
		Tuples: append([][]TypeID(nil), in.tuples...),
		Fns:    append([]FnInfo(nil), in.fns...),
		Insts:  append([]AdtInst(nil), in.insts...),
		Adts:   append([]AdtDef(nil), in.adts...),
	}
}

// FromSnapshot rebuilds an interner, including its structural index. An
// empty snapshot yields a fresh interner.
func FromSnapshot(s Snapshot) *Interner {
	if len(s.Types) == 0 {
		return NewInterner()
	}
	in := &Interner{
		index:  make(map[string]TypeID, len(s.Types)),
		types:  append([]Type(nil), s.Types...),
		tuples: append([][]TypeID(nil), s.Tuples...),
		fns:    append([]FnInfo(nil), s.Fns...),
		insts:  append([]AdtInst(nil), s.Insts...),
		adts:   append([]AdtDef(nil), s.Adts...),
	}
	if len(in.tuples) == 0 {
		in.tuples = append(in.tuples, nil)
	}
	if len(in.fns) == 0 {
		in.fns = append(in.fns, FnInfo{})
	}
	if len(in.insts) == 0 {
		in.insts = append(in.insts, AdtInst{})
	}
	if len(in.adts) == 0 {
		in.adts = append(in.adts, AdtDef{})
	}
	for i := 1; i < len(in.types); i++ {
		in.index[in.keyOf(in.types[i])] = TypeID(slot(i, "type index"))
	}
	in.seedBuiltins()
	return in
}

func (in *Interner) keyOf(t Type) string {
	switch t.Kind {
	case KindTuple:
		return listKey("tuple", in.tuples[t.Payload])
	case KindFn:
		info := in.fns[t.Payload]
		return fnKey(info.Params, info.ByRef, info.Result, info.CC)
	case KindStruct, KindEnum:
		inst := in.insts[t.Payload]
		return adtKey(inst.Adt, inst.Args)
	default:
		return plainKey(t)
	}
}
