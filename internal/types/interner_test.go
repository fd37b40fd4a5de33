package types

import (
	"sync"
	"testing"
)

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID || b.Never == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindUnit {
		t.Fatalf("expected unit kind, got %v", unit.Kind)
	}
	i32, _ := in.Lookup(b.Int32)
	if i32.Kind != KindInt || i32.Width != Width32 {
		t.Fatalf("expected i32, got %+v", i32)
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	arr1 := in.Array(b.Int32, 4)
	arr2 := in.Array(b.Int32, 4)
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
	if in.Array(b.Int32, 5) == arr1 {
		t.Fatalf("arrays of different length must differ")
	}
	tup1 := in.Tuple([]TypeID{b.Int32, b.Bool})
	tup2 := in.Tuple([]TypeID{b.Int32, b.Bool})
	if tup1 != tup2 {
		t.Fatalf("tuple types should be deduplicated")
	}
	if in.Tuple([]TypeID{b.Bool, b.Int32}) == tup1 {
		t.Fatalf("element order must affect identity")
	}
	fn1 := in.Fn([]TypeID{b.Int32}, b.Unit, CCDefault)
	if in.Fn([]TypeID{b.Int32}, b.Unit, CCC) == fn1 {
		t.Fatalf("calling convention must affect identity")
	}
}

func TestPointerOwnershipAffectsIdentity(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int64
	shared := in.Pointer(OwnShared, elem)
	unique := in.Pointer(OwnUnique, elem)
	box := in.Pointer(OwnBox, elem)
	if shared == unique || unique == box || shared == box {
		t.Fatalf("pointer ownership must be part of identity")
	}
}

func TestAdtInstancesAndFields(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	pair := in.DefineAdt(AdtDef{Name: "Pair", Kind: AdtStruct, Params: 2})
	in.SetFields(pair, []FieldDef{
		{Name: "a", Type: in.Param(0)},
		{Name: "b", Type: in.Pointer(OwnShared, in.Param(1))},
	})
	inst := in.Adt(pair, []TypeID{b.Int32, b.Bool})
	if in.Adt(pair, []TypeID{b.Int32, b.Bool}) != inst {
		t.Fatalf("ADT instances should be deduplicated")
	}
	fields, ok := in.Fields(inst)
	if !ok || len(fields) != 2 {
		t.Fatalf("expected two fields, got %v", fields)
	}
	if fields[0] != b.Int32 {
		t.Errorf("field a: want i32, got %s", in.Format(fields[0]))
	}
	if fields[1] != in.Pointer(OwnShared, b.Bool) {
		t.Errorf("field b: want &bool, got %s", in.Format(fields[1]))
	}
	if got := in.Format(inst); got != "Pair<i32, bool>" {
		t.Errorf("format: got %q", got)
	}
}

func TestVariantsApplyEnumArguments(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	opt := in.DefineAdt(AdtDef{Name: "Option", Kind: AdtEnum, Params: 1})
	in.SetVariants(opt, []VariantDef{
		{Name: "None", Discr: 0},
		{Name: "Some", Discr: 1, Fields: []FieldDef{{Name: "0", Type: in.Param(0)}}},
	})
	ty := in.Adt(opt, []TypeID{b.Uint8})
	variants, ok := in.Variants(ty)
	if !ok || len(variants) != 2 {
		t.Fatalf("expected two variants, got %v", variants)
	}
	if len(variants[0].Fields) != 0 {
		t.Errorf("None must be empty")
	}
	if variants[1].Discr != 1 || variants[1].Fields[0] != b.Uint8 {
		t.Errorf("Some: got %+v", variants[1])
	}
}

func TestConcurrentInterningIsStable(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	const workers = 8
	got := make([]TypeID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inner := in.Tuple([]TypeID{b.Int32, b.Char})
			got[i] = in.Pointer(OwnUnique, inner)
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d interned %d, want %d", i, got[i], got[0])
		}
	}
}

func TestSnapshotRoundTripKeepsIDs(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	list := in.DefineAdt(AdtDef{Name: "List", Kind: AdtEnum, Params: 1})
	self := in.Adt(list, []TypeID{in.Param(0)})
	in.SetVariants(list, []VariantDef{
		{Name: "Nil"},
		{Name: "Cons", Discr: 1, Fields: []FieldDef{{Type: in.Param(0)}, {Type: in.Pointer(OwnUnique, self)}}},
	})
	ints := in.Adt(list, []TypeID{b.Int64})
	fn := in.Fn([]TypeID{ints}, b.Unit, CCDefault)

	out := FromSnapshot(in.Snapshot())
	if out.Adt(list, []TypeID{b.Int64}) != ints {
		t.Fatalf("ADT instance id changed after round trip")
	}
	if out.Fn([]TypeID{ints}, b.Unit, CCDefault) != fn {
		t.Fatalf("fn id changed after round trip")
	}
	if out.Builtins() != b {
		t.Fatalf("builtins changed after round trip")
	}
}
