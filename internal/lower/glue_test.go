package lower

import (
	"context"
	"errors"
	"strings"
	"testing"

	"trans/internal/ir"
	"trans/internal/source"
	"trans/internal/testkit"
	"trans/internal/tir"
	"trans/internal/types"
)

func TestHashGlueFoldsEveryLeaf(t *testing.T) {
	kb := testkit.NewCrate("hash")
	pair := kb.In.Tuple([]types.TypeID{kb.B.Int32, kb.B.Bool})
	cx, mod := newTestContext(t, kb.Crate)
	g, err := cx.hashGlue(pair, source.NoSpan)
	if err != nil {
		t.Fatalf("hash glue: %v", err)
	}
	again, err := cx.hashGlue(pair, source.NoSpan)
	if err != nil || again != g {
		t.Fatalf("hash glue must be cached per type, got %v %v", again, err)
	}
	drain(t, cx)
	f := mustFunc(t, mod, g.Symbol)
	// h = h*31 + leaf, twice
	if n := f.CountOp(ir.OpBinary); n != 4 {
		t.Errorf("expected 4 arithmetic ops, got %d:\n%s", n, f)
	}
	if f.CountOp(ir.OpRet) != 1 {
		t.Errorf("expected a single ret:\n%s", f)
	}
}

func TestNeverReturningCallIsUnreachable(t *testing.T) {
	kb := testkit.NewCrate("never")
	b := kb.B
	die := kb.Def(&tir.FnDef{
		Name: "die",
		Sig:  kb.Sig(b.Never),
		Body: &tir.Expr{Kind: tir.ExprFail, Ty: b.Never},
	})
	main := kb.Def(&tir.FnDef{
		Name: "main",
		Sig:  kb.Sig(b.Unit),
		Body: testkit.Call(b.Never, die.ID, nil),
	})
	cx, mod := newTestContext(t, kb.Crate)
	if err := cx.LowerFn(context.Background(), main); err != nil {
		t.Fatalf("lower: %v", err)
	}
	f := mustFunc(t, mod, "main")
	if f.CountOp(ir.OpCall) != 1 || f.CountOp(ir.OpUnreachable) != 1 {
		t.Errorf("expected call followed by unreachable:\n%s", f)
	}
}

func TestIgnoredOwnedValueIsDropped(t *testing.T) {
	kb := testkit.NewCrate("ignore")
	b := kb.B
	owned := kb.In.Pointer(types.OwnUnique, b.Int32)
	// fn main() { ~7; }
	main := kb.Def(&tir.FnDef{
		Name: "main",
		Sig:  kb.Sig(b.Unit),
		Body: testkit.Block(b.Unit, nil, testkit.ExprStmt(testkit.Box(owned, testkit.Lit(b.Int32, 7)))),
	})
	cx, mod := newTestContext(t, kb.Crate)
	if err := cx.LowerFn(context.Background(), main); err != nil {
		t.Fatalf("lower: %v", err)
	}
	f := mustFunc(t, mod, "main")
	if n := f.CountOp(ir.OpCall); n != 2 {
		t.Errorf("expected malloc and one drop, got %d calls:\n%s", n, f)
	}
	drain(t, cx)
	if len(cx.Glue.Instances()) != 1 {
		t.Errorf("expected drop glue for ~i32 only, got %d glue instances", len(cx.Glue.Instances()))
	}
}

// showImpl defines trait Show { fn show(&self) -> i32 } implemented for i32.
func showImpl(kb *testkit.CrateBuilder) tir.Cap {
	b := kb.B
	ref := kb.In.Pointer(types.OwnShared, b.Int32)
	show := kb.Def(&tir.FnDef{
		Name:   "show",
		Sig:    kb.Sig(b.Int32, ref),
		Params: []*tir.Pattern{testkit.Bind(ref, 1, "self")},
		Body:   testkit.Lit(b.Int32, 0),
	})
	kb.Trait(&tir.TraitDef{ID: 1, Name: "Show", Methods: []tir.TraitMethod{{Name: "show"}}})
	kb.Impl(&tir.ImplDef{ID: 1, Trait: 1, SelfTy: b.Int32, Methods: map[string]tir.DefID{"show": show.ID}})
	return tir.Cap{Kind: tir.CapImpl, Impl: 1}
}

func toDyn(ty types.TypeID, v *tir.Expr, c tir.Cap) *tir.Expr {
	return &tir.Expr{Kind: tir.ExprToDyn, Ty: ty, Elems: []*tir.Expr{v}, Cap: &c}
}

func TestOwnedTraitObjectFreesThroughVtable(t *testing.T) {
	kb := testkit.NewCrate("dyn")
	b := kb.B
	c := showImpl(kb)
	owned := kb.In.Pointer(types.OwnUnique, b.Int32)
	obj := kb.In.OwnedDyn(types.OwnUnique, 1)
	// fn main() { let s: ~dyn Show = ~7 as ~dyn Show; }
	main := kb.Def(&tir.FnDef{
		Name: "main",
		Sig:  kb.Sig(b.Unit),
		Body: testkit.Block(b.Unit, nil,
			testkit.Let(testkit.Bind(obj, 1, "s"), toDyn(obj, testkit.Box(owned, testkit.Lit(b.Int32, 7)), c))),
	})
	cx, mod := newTestContext(t, kb.Crate)
	if err := cx.LowerFn(context.Background(), main); err != nil {
		t.Fatalf("lower: %v", err)
	}
	drain(t, cx)
	dynGlue, err := cx.dropGlue(obj, source.NoSpan)
	if err != nil {
		t.Fatalf("drop glue: %v", err)
	}
	boxGlue, err := cx.dropGlue(owned, source.NoSpan)
	if err != nil {
		t.Fatalf("drop glue: %v", err)
	}

	if f := mustFunc(t, mod, "main"); !strings.Contains(f.String(), "@"+dynGlue.Symbol+"(") {
		t.Errorf("main must drop the trait object:\n%s", f)
	}
	g := mustFunc(t, mod, dynGlue.Symbol)
	if g.CountOp(ir.OpElemAddr) != 1 || g.CountOp(ir.OpCall) != 1 {
		t.Errorf("trait object glue must call vtable slot 0 once:\n%s", g)
	}
	globals := mod.Globals()
	if len(globals) != 1 || !strings.Contains(globals[0].Init[0].Ref, "@"+boxGlue.Symbol) {
		t.Fatalf("vtable slot 0 must be the drop glue of ~i32, got %+v", globals)
	}
	if f := mustFunc(t, mod, boxGlue.Symbol); !strings.Contains(f.String(), "@rt_free(") {
		t.Errorf("~i32 glue must free the box:\n%s", f)
	}
}

func TestTraitObjectCoercionKeepsOwnership(t *testing.T) {
	kb := testkit.NewCrate("dyn")
	b := kb.B
	c := showImpl(kb)
	tests := []struct {
		name string
		from types.TypeID
		to   types.TypeID
	}{
		{"owned into borrowed", kb.In.Pointer(types.OwnUnique, b.Int32), kb.In.Dyn(1)},
		{"managed box", kb.In.Pointer(types.OwnBox, b.Int32), kb.In.OwnedDyn(types.OwnBox, 1)},
	}
	for i, tt := range tests {
		main := kb.Def(&tir.FnDef{
			Name: "main" + string(rune('a'+i)),
			Sig:  kb.Sig(b.Unit),
			Body: testkit.Block(b.Unit, nil,
				testkit.ExprStmt(toDyn(tt.to, testkit.Box(tt.from, testkit.Lit(b.Int32, 7)), c))),
		})
		t.Run(tt.name, func(t *testing.T) {
			cx, _ := newTestContext(t, kb.Crate)
			err := cx.LowerFn(context.Background(), main)
			if !errors.Is(err, ErrUnimplemented) {
				t.Fatalf("expected ErrUnimplemented, got %v", err)
			}
		})
	}
}
