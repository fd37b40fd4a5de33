package lower

import (
	"context"
	"errors"
	"testing"

	"trans/internal/emit"
	"trans/internal/ir"
	"trans/internal/layout"
	"trans/internal/testkit"
	"trans/internal/tir"
	"trans/internal/types"
)

func newTestContext(t *testing.T, c *tir.Crate) (*Context, *ir.Module) {
	t.Helper()
	if err := c.Validate(); err != nil {
		t.Fatalf("invalid test crate: %v", err)
	}
	mod := ir.NewModule(c.Name)
	return NewContext(c, layout.X86_64LinuxGNU(), mod), mod
}

func mustFunc(t *testing.T, mod *ir.Module, name string) *ir.Func {
	t.Helper()
	f, ok := mod.Func(name)
	if !ok {
		t.Fatalf("function %s was not defined", name)
	}
	return f
}

// drain lowers queued instances until none are left.
func drain(t *testing.T, cx *Context) {
	t.Helper()
	for round := 0; round < 16; round++ {
		pending := cx.TakePending()
		if len(pending) == 0 {
			return
		}
		for _, inst := range pending {
			if err := cx.LowerInstance(context.Background(), inst); err != nil {
				t.Fatalf("lower %s: %v", inst.Symbol, err)
			}
		}
	}
	t.Fatalf("instances keep appearing")
}

func TestImmediateReturnUsesStoredValue(t *testing.T) {
	kb := testkit.NewCrate("peephole")
	b := kb.B
	pair := kb.In.Tuple([]types.TypeID{b.Int32, b.Int32})
	value := func() *tir.Expr { return testkit.Tuple(pair, testkit.Lit(b.Int32, 1), testkit.Lit(b.Int32, 2)) }
	tests := []struct {
		name string
		body *tir.Expr
	}{
		// fn mk() -> (i32, i32) { (1, 2) }
		{"tail", value()},
		// fn mk() -> (i32, i32) { return (1, 2); }
		{"return", testkit.Block(b.Never, nil, testkit.ExprStmt(testkit.Return(b.Never, value())))},
	}
	for _, tt := range tests {
		mk := kb.Def(&tir.FnDef{Name: "mk_" + tt.name, Sig: kb.Sig(pair), Body: tt.body})
		t.Run(tt.name, func(t *testing.T) {
			cx, mod := newTestContext(t, kb.Crate)
			if err := cx.LowerFn(context.Background(), mk); err != nil {
				t.Fatalf("lower: %v", err)
			}
			f := mustFunc(t, mod, mk.Name)
			if n := f.CountOp(ir.OpAlloca); n != 0 {
				t.Errorf("return slot should be gone, found %d allocas:\n%s", n, f)
			}
			if n, m := f.CountOp(ir.OpStore), f.CountOp(ir.OpLoad); n != 0 || m != 0 {
				t.Errorf("expected no stores or loads, found %d and %d:\n%s", n, m, f)
			}
			if f.CountOp(ir.OpRet) != 1 || f.CountOp(ir.OpInsertValue) != 2 {
				t.Errorf("expected one ret of an insertvalue chain:\n%s", f)
			}
		})
	}
}

func TestIndirectReturnWritesHiddenSlot(t *testing.T) {
	kb := testkit.NewCrate("indirect")
	i32 := kb.B.Int32
	triple := kb.In.Tuple([]types.TypeID{i32, i32, i32})
	mk := kb.Def(&tir.FnDef{
		Name: "mk",
		Sig:  kb.Sig(triple),
		Body: testkit.Tuple(triple, testkit.Lit(i32, 1), testkit.Lit(i32, 2), testkit.Lit(i32, 3)),
	})
	cx, mod := newTestContext(t, kb.Crate)
	if err := cx.LowerFn(context.Background(), mk); err != nil {
		t.Fatalf("lower: %v", err)
	}
	f := mustFunc(t, mod, "mk")
	if f.Sig.Ret != emit.Void || len(f.Sig.Params) != 1 || !f.Sig.Params[0].IsPtr() {
		t.Fatalf("unexpected signature %+v", f.Sig)
	}
	if f.CountOp(ir.OpRetVoid) != 1 || f.CountOp(ir.OpAlloca) != 0 || f.CountOp(ir.OpStore) != 3 {
		t.Errorf("expected three field stores into the hidden slot:\n%s", f)
	}
}

func TestEarlyReturnRunsCleanupsOnce(t *testing.T) {
	kb := testkit.NewCrate("early")
	b := kb.B
	owned := kb.In.Pointer(types.OwnUnique, b.Int32)
	// fn f(c: bool) -> i32 { let p = ~1; if c { return 1 } else { () }; 2 }
	f := kb.Def(&tir.FnDef{
		Name:   "f",
		Sig:    kb.Sig(b.Int32, b.Bool),
		Params: []*tir.Pattern{testkit.Bind(b.Bool, 1, "c")},
		Body: testkit.Block(b.Int32, testkit.Lit(b.Int32, 2),
			testkit.Let(testkit.Bind(owned, 2, "p"), testkit.Box(owned, testkit.Lit(b.Int32, 1))),
			testkit.ExprStmt(testkit.If(b.Unit,
				testkit.Local(b.Bool, 1),
				testkit.Return(b.Never, testkit.Lit(b.Int32, 1)),
				&tir.Expr{Kind: tir.ExprUnit, Ty: b.Unit})),
		),
	})
	cx, mod := newTestContext(t, kb.Crate)
	if err := cx.LowerFn(context.Background(), f); err != nil {
		t.Fatalf("lower: %v", err)
	}
	fn := mustFunc(t, mod, "f")
	// one drop on the return path, one at the end of the block
	if n := fn.CountOp(ir.OpCall); n != 3 {
		t.Errorf("expected malloc and two drops, got %d calls:\n%s", n, fn)
	}
	if _, ok := fn.BlockNamed("cleanup"); !ok {
		t.Errorf("early return should leave through a cleanup block:\n%s", fn)
	}
	if fn.CountOp(ir.OpRet) != 1 {
		t.Errorf("all paths must share one return:\n%s", fn)
	}
	drain(t, cx)
	if len(cx.Glue.Instances()) != 1 {
		t.Errorf("expected drop glue for ~i32 only, got %d glue instances", len(cx.Glue.Instances()))
	}
}

func TestLowerFnRejectsGenericDefinitions(t *testing.T) {
	kb := testkit.NewCrate("generic")
	t0 := kb.In.Param(0)
	id := kb.Def(&tir.FnDef{
		Name:     "id",
		Generics: 1,
		Sig:      kb.Sig(t0, t0),
		Params:   []*tir.Pattern{testkit.Bind(t0, 1, "x")},
		Body:     testkit.Local(t0, 1),
	})
	cx, _ := newTestContext(t, kb.Crate)
	err := cx.LowerFn(context.Background(), id)
	if !errors.Is(err, ErrUnresolvedGeneric) {
		t.Fatalf("expected ErrUnresolvedGeneric, got %v", err)
	}
	var fe *FatalError
	if !errors.As(err, &fe) || fe.Diag.Code.ID() != "L0002" {
		t.Fatalf("expected an L0002 fatal diagnostic, got %v", err)
	}
}

func TestCallToMissingDefinition(t *testing.T) {
	kb := testkit.NewCrate("missing")
	b := kb.B
	main := kb.Def(&tir.FnDef{
		Name: "main",
		Sig:  kb.Sig(b.Int32),
		Body: testkit.Call(b.Int32, 99, nil),
	})
	cx, _ := newTestContext(t, kb.Crate)
	err := cx.LowerFn(context.Background(), main)
	if !errors.Is(err, ErrMissingDefinition) {
		t.Fatalf("expected ErrMissingDefinition, got %v", err)
	}
	var fe *FatalError
	if !errors.As(err, &fe) || fe.Diag.Code.ID() != "L0001" {
		t.Fatalf("expected an L0001 fatal diagnostic, got %v", err)
	}
}

func TestLoweringStepsMustRunInOrder(t *testing.T) {
	kb := testkit.NewCrate("order")
	main := kb.Def(&tir.FnDef{Name: "main", Sig: kb.Sig(kb.B.Unit), Body: &tir.Expr{Kind: tir.ExprUnit, Ty: kb.B.Unit}})
	cx, _ := newTestContext(t, kb.Crate)
	fl := &fnLowerer{cx: cx, def: main, sig: main.Sig, name: "main"}
	err := fl.lowerBody()
	if !errors.Is(err, errInvalidState) {
		t.Fatalf("lowering a body before the frame exists must fail, got %v", err)
	}
}
