package lower

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"trans/internal/emit"
	"trans/internal/ir"
	"trans/internal/testkit"
	"trans/internal/types"
)

// iterFunc opens a function taking a pointer to ty and iterates over it.
func iterFunc(t *testing.T, kb *testkit.CrateBuilder, ty types.TypeID) (*ir.Func, []types.TypeID) {
	t.Helper()
	cx, mod := newTestContext(t, kb.Crate)
	r, err := cx.repr(ty, testNoSpan)
	if err != nil {
		t.Fatalf("repr: %v", err)
	}
	fn, err := mod.DefineFunction("visit", emit.Signature{Ret: emit.Void, Params: []emit.Type{r.Ptr()}})
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	var seen []types.TypeID
	err = cx.iterStructural(fn, fn.Params()[0], ty, func(b emit.Builder, ptr emit.Value, fty types.TypeID) error {
		seen = append(seen, fty)
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	fn.RetVoid()
	if err := fn.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	return fn.(*ir.Func), seen
}

func TestIterStructFieldsInOrder(t *testing.T) {
	kb := testkit.NewCrate("iter")
	b := kb.B
	id := kb.In.DefineAdt(types.AdtDef{Name: "Rec"})
	kb.In.SetFields(id, []types.FieldDef{{Name: "a", Type: b.Int8}, {Name: "b", Type: b.Int32}, {Name: "c", Type: b.Int64}})

	f, seen := iterFunc(t, kb, kb.In.Adt(id, nil))
	if diff := cmp.Diff([]types.TypeID{b.Int8, b.Int32, b.Int64}, seen); diff != "" {
		t.Errorf("visit order (-want +got):\n%s", diff)
	}
	if f.CountOp(ir.OpFieldAddr) != 3 {
		t.Errorf("expected one address per field:\n%s", f)
	}
}

func TestIterEnumLoadsTagOnce(t *testing.T) {
	kb := testkit.NewCrate("iter")
	b := kb.B
	id := kb.In.DefineAdt(types.AdtDef{Name: "Shape", Kind: types.AdtEnum})
	kb.In.SetVariants(id, []types.VariantDef{
		{Name: "Empty", Discr: 0},
		{Name: "Dot", Discr: 1, Fields: []types.FieldDef{{Type: b.Int32}}},
		{Name: "Line", Discr: 2, Fields: []types.FieldDef{{Type: b.Int64}, {Type: b.Int64}}},
	})

	f, seen := iterFunc(t, kb, kb.In.Adt(id, nil))
	if diff := cmp.Diff([]types.TypeID{b.Int32, b.Int64, b.Int64}, seen); diff != "" {
		t.Errorf("visited fields (-want +got):\n%s", diff)
	}
	if n := f.CountOp(ir.OpLoad); n != 1 {
		t.Errorf("discriminant should be loaded once, got %d loads:\n%s", n, f)
	}
	if f.CountOp(ir.OpSwitch) != 1 {
		t.Fatalf("expected a single switch:\n%s", f)
	}
	sw := switchOf(f)
	if diff := cmp.Diff([]int64{0, 1, 2}, sw.Cases); diff != "" {
		t.Errorf("one case per variant (-want +got):\n%s", diff)
	}
	if len(sw.Targets) != 4 {
		t.Fatalf("expected a default and 3 case targets, got %d:\n%s", len(sw.Targets), f)
	}
	dead, ok := f.BlockNamed("enum.unreachable")
	if !ok || sw.Targets[0] != dead {
		t.Fatalf("unknown tags must reach an unreachable block:\n%s", f)
	}
	body := f.Blocks[dead].Instrs
	if len(body) != 1 || f.Instrs[body[0]].Op != ir.OpUnreachable {
		t.Errorf("the default block must only hold unreachable:\n%s", f)
	}
}

func switchOf(f *ir.Func) ir.Instr {
	for _, in := range f.Instrs {
		if in.Op == ir.OpSwitch && !in.Erased {
			return in
		}
	}
	return ir.Instr{}
}

func TestIterSingleVariantEnumHasNoBranch(t *testing.T) {
	kb := testkit.NewCrate("iter")
	b := kb.B
	id := kb.In.DefineAdt(types.AdtDef{Name: "Wrap", Kind: types.AdtEnum})
	kb.In.SetVariants(id, []types.VariantDef{{Name: "Only", Fields: []types.FieldDef{{Type: b.Int32}}}})

	f, seen := iterFunc(t, kb, kb.In.Adt(id, nil))
	if len(seen) != 1 || f.CountOp(ir.OpSwitch) != 0 || f.CountOp(ir.OpCondBr) != 0 {
		t.Errorf("single variant must be visited without branching:\n%s", f)
	}
}

func TestIterArrayLoops(t *testing.T) {
	kb := testkit.NewCrate("iter")
	b := kb.B
	f, seen := iterFunc(t, kb, kb.In.Array(b.Int16, 4))
	if len(seen) != 1 {
		t.Fatalf("the loop body visits one element pointer, got %d visits", len(seen))
	}
	for _, name := range []string{"iter.header", "iter.body", "iter.exit"} {
		if _, ok := f.BlockNamed(name); !ok {
			t.Errorf("missing block %s:\n%s", name, f)
		}
	}
	if f.CountOp(ir.OpElemAddr) != 1 {
		t.Errorf("expected one element address:\n%s", f)
	}
}
