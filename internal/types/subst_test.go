package types

import "testing"

func TestApplyReplacesParams(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	t0, t1 := in.Param(0), in.Param(1)
	s := Subst{Types: []TypeID{b.Int32, b.Bool}}

	tests := []struct {
		name string
		in   TypeID
		want TypeID
	}{
		{"param", t0, b.Int32},
		{"pointer", in.Pointer(OwnUnique, t1), in.Pointer(OwnUnique, b.Bool)},
		{"tuple", in.Tuple([]TypeID{t0, t1}), in.Tuple([]TypeID{b.Int32, b.Bool})},
		{"fn", in.Fn([]TypeID{t0}, t1, CCDefault), in.Fn([]TypeID{b.Int32}, b.Bool, CCDefault)},
		{"array", in.Array(t1, 3), in.Array(b.Bool, 3)},
		{"closed", b.Char, b.Char},
		{"out of range", in.Param(7), in.Param(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := in.Apply(s, tt.in); got != tt.want {
				t.Errorf("Apply(%s) = %s, want %s", in.Format(tt.in), in.Format(got), in.Format(tt.want))
			}
		})
	}
}

func TestComposeMatchesSequentialApply(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	// impl<A> Trait<A> for ~A: Self = ~A, trait arg = A
	implToTrait := Subst{Types: []TypeID{in.Pointer(OwnUnique, in.Param(0)), in.Param(0)}}
	callSite := Subst{Types: []TypeID{b.Uint16}}

	composed := in.Compose(implToTrait, callSite)
	sample := in.Tuple([]TypeID{in.Param(0), in.Param(1)})
	want := in.Apply(callSite, in.Apply(implToTrait, sample))
	if got := in.Apply(composed, sample); got != want {
		t.Fatalf("composed = %s, want %s", in.Format(got), in.Format(want))
	}
	if implToTrait.Types[0] != in.Pointer(OwnUnique, in.Param(0)) {
		t.Fatalf("Compose mutated its first input")
	}
	if len(callSite.Types) != 1 || callSite.Types[0] != b.Uint16 {
		t.Fatalf("Compose mutated its second input")
	}
}

func TestHasParams(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if in.HasParams(b.Int32) {
		t.Errorf("i32 has no params")
	}
	if !in.HasParams(in.Fn(nil, in.Pointer(OwnShared, in.Param(0)), CCDefault)) {
		t.Errorf("fn() -> &T0 mentions a param")
	}
	if !in.HasParams(in.Closure(in.Fn([]TypeID{in.Param(2)}, b.Unit, CCDefault))) {
		t.Errorf("closure signature mentions a param")
	}
}

func TestNeedsDrop(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	plain := in.DefineAdt(AdtDef{Name: "Point", Params: 0})
	in.SetFields(plain, []FieldDef{{Name: "x", Type: b.Int32}, {Name: "y", Type: b.Int32}})
	withDtor := in.DefineAdt(AdtDef{Name: "File", Dtor: 42})
	node := in.DefineAdt(AdtDef{Name: "Node"})
	nodeTy := in.Adt(node, nil)
	in.SetFields(node, []FieldDef{{Name: "next", Type: in.Pointer(OwnShared, nodeTy)}})

	tests := []struct {
		name string
		ty   TypeID
		want bool
	}{
		{"scalar", b.Int64, false},
		{"shared pointer", in.Pointer(OwnShared, b.Int32), false},
		{"unique pointer", in.Pointer(OwnUnique, b.Int32), true},
		{"box", in.Pointer(OwnBox, b.Int32), true},
		{"plain struct", in.Adt(plain, nil), false},
		{"destructor", in.Adt(withDtor, nil), true},
		{"tuple with unique", in.Tuple([]TypeID{b.Bool, in.Pointer(OwnUnique, b.Char)}), true},
		{"array of unique", in.Array(in.Pointer(OwnUnique, b.Char), 2), true},
		{"empty array", in.Array(in.Pointer(OwnUnique, b.Char), 0), false},
		{"shared cycle", nodeTy, false},
		{"closure", in.Closure(in.Fn(nil, b.Unit, CCDefault)), true},
		{"borrowed trait object", in.Dyn(1), false},
		{"owned trait object", in.OwnedDyn(OwnUnique, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := in.NeedsDrop(tt.ty); got != tt.want {
				t.Errorf("NeedsDrop(%s) = %v, want %v", in.Format(tt.ty), got, tt.want)
			}
		})
	}
}
