package tir

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"trans/internal/types"
)

func sampleCrate() *Crate {
	in := types.NewInterner()
	b := in.Builtins()
	pair := in.DefineAdt(types.AdtDef{Name: "Pair", Params: 1})
	in.SetFields(pair, []types.FieldDef{{Name: "a", Type: in.Param(0)}, {Name: "b", Type: in.Param(0)}})

	c := NewCrate("sample", in)
	id := &FnDef{
		ID:       1,
		Name:     "id",
		Generics: 1,
		Sig:      in.Fn([]types.TypeID{in.Param(0)}, in.Param(0), types.CCDefault),
		Params:   []*Pattern{{Kind: PatBind, Ty: in.Param(0), Local: 1, Name: "x"}},
		Body:     &Expr{Kind: ExprLocal, Ty: in.Param(0), Local: 1},
	}
	main := &FnDef{
		ID:   2,
		Name: "main",
		Sig:  in.Fn(nil, b.Int32, types.CCDefault),
		Body: &Expr{
			Kind: ExprCall,
			Ty:   b.Int32,
			Callee: &Callee{
				Kind:     CalleeFn,
				Def:      1,
				TypeArgs: []types.TypeID{b.Int32},
			},
			Args: []Arg{{Expr: &Expr{Kind: ExprLit, Ty: b.Int32, Lit: 42}}},
		},
	}
	c.Fns = []*FnDef{id, main}
	c.Traits = []*TraitDef{{ID: 1, Name: "Show", Methods: []TraitMethod{{Name: "show"}}}}
	c.Impls = []*ImplDef{{ID: 1, Trait: 1, SelfTy: b.Int32, Methods: map[string]DefID{"show": 2}}}
	return c
}

func TestCrateRoundTrip(t *testing.T) {
	c := sampleCrate()
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(c.Fns, back.Fns, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("functions changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(c.Impls, back.Impls, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("impls changed (-want +got):\n%s", diff)
	}
	if got := back.Types.Format(back.Fns[0].Sig); got != "fn(T0) -> T0" {
		t.Fatalf("signature after round trip: %q", got)
	}
}

func TestCrateLookupsAndRoots(t *testing.T) {
	c := sampleCrate()
	if f, ok := c.Fn(2); !ok || f.Name != "main" {
		t.Fatalf("Fn(2) = %v, %v", f, ok)
	}
	if _, ok := c.Fn(9); ok {
		t.Fatalf("unknown id must not resolve")
	}
	roots := c.Roots()
	if len(roots) != 1 || roots[0].Name != "main" {
		t.Fatalf("roots = %v", roots)
	}
	tr, _ := c.Trait(1)
	if idx, ok := tr.MethodIndex("show"); !ok || idx != 0 {
		t.Fatalf("MethodIndex = %d, %v", idx, ok)
	}
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	c := sampleCrate()
	c.Fns[1].ID = 1
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate function id 1") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}
