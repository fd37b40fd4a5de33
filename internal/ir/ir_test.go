package ir

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"trans/internal/emit"
)

func TestAllocaGoesToEntryHead(t *testing.T) {
	m := NewModule("t")
	fn, err := m.DefineFunction("f", emit.Signature{Ret: emit.Void})
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	f := fn.(*Func)
	next := f.NewBlock("next")
	f.Br(next)
	f.SetInsertPoint(next)
	slot := f.Alloca(emit.I32, "x")
	f.Store(emit.Const(emit.I32, 1), slot)
	f.RetVoid()
	if err := f.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	entry := f.Live(0)
	if len(entry) != 2 || entry[0].Op != OpAlloca || entry[1].Op != OpBr {
		t.Fatalf("unexpected entry block:\n%s", f)
	}
}

func TestFinishRejectsOpenBlocks(t *testing.T) {
	m := NewModule("t")
	fn, _ := m.DefineFunction("f", emit.Signature{Ret: emit.Void})
	f := fn.(*Func)
	open := f.NewBlock("open")
	f.Br(open)
	dead := f.NewBlock("dead")
	_ = dead
	err := f.Finish()
	if err == nil || !strings.Contains(err.Error(), "open1 has no terminator") {
		t.Fatalf("expected missing terminator error, got %v", err)
	}
	if f.CountOp(OpUnreachable) != 1 {
		t.Fatalf("unreachable block should be closed with unreachable")
	}
}

func TestDominatingStoreWalksSinglePredecessors(t *testing.T) {
	m := NewModule("t")
	fn, _ := m.DefineFunction("f", emit.Signature{Ret: emit.I64})
	f := fn.(*Func)
	slot := f.Alloca(emit.I64, "ret")
	f.Store(emit.Const(emit.I64, 7), slot)
	mid := f.NewBlock("mid")
	ret := f.NewBlock("ret")
	f.Br(mid)
	f.SetInsertPoint(mid)
	f.Br(ret)
	f.SetInsertPoint(ret)

	store, ok := f.DominatingStore(slot, ret)
	if !ok {
		t.Fatalf("expected a dominating store")
	}
	if v := f.StoredValue(store); v.Ref != "7" {
		t.Fatalf("stored value = %v", v)
	}
	f.Erase(store)
	if f.HasUses(slot) {
		t.Fatalf("slot should be unused after erasing its store")
	}
	f.EraseDef(slot)
	f.Ret(emit.Const(emit.I64, 7))
	if err := f.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if f.CountOp(OpAlloca) != 0 || f.CountOp(OpStore) != 0 {
		t.Fatalf("peephole left instructions behind:\n%s", f)
	}
}

func TestDominatingStoreFailsOnJoin(t *testing.T) {
	m := NewModule("t")
	fn, _ := m.DefineFunction("f", emit.Signature{Ret: emit.I32})
	f := fn.(*Func)
	slot := f.Alloca(emit.I32, "ret")
	a := f.NewBlock("a")
	b := f.NewBlock("b")
	join := f.NewBlock("join")
	f.CondBr(emit.Bool(true), a, b)
	f.SetInsertPoint(a)
	f.Store(emit.Const(emit.I32, 1), slot)
	f.Br(join)
	f.SetInsertPoint(b)
	f.Br(join)
	if _, ok := f.DominatingStore(slot, join); ok {
		t.Fatalf("a store on one arm does not dominate the join")
	}

	f.SetInsertPoint(join)
	v := f.Load(slot)
	f.Ret(v)
	if _, ok := f.DominatingStore(slot, join); ok {
		t.Fatalf("a slot with two users has no single dominating store")
	}
}

func TestModuleDeclarationsAreIdempotent(t *testing.T) {
	m := NewModule("t")
	sig := emit.Signature{Ret: emit.Void, Params: []emit.Type{emit.Opaque}}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.DeclareFunction("rt_free", sig)
		}()
	}
	wg.Wait()
	if got := len(m.Decls()); got != 1 {
		t.Fatalf("expected one declaration, got %d", got)
	}
	if _, err := m.DefineFunction("g", sig); err != nil {
		t.Fatalf("define: %v", err)
	}
	if _, err := m.DefineFunction("g", sig); err == nil {
		t.Fatalf("second definition must fail")
	}
	if g1, g2 := m.DefineGlobal("vt", emit.Array(1, emit.Opaque), nil), m.DefineGlobal("vt", emit.Array(1, emit.Opaque), nil); g1 != g2 {
		t.Fatalf("globals must be deduplicated")
	}
}

func TestPrintAndCodecRoundTrip(t *testing.T) {
	m := NewModule("demo")
	callee := m.DeclareFunction("ext", emit.Signature{Ret: emit.I32, Params: []emit.Type{emit.I32}, Conv: emit.ConvC})
	fn, _ := m.DefineFunction("main", emit.Signature{Ret: emit.I32})
	f := fn.(*Func)
	pair := emit.Struct(emit.I32, emit.I32)
	agg := f.InsertValue(emit.Undef(pair), emit.Const(emit.I32, 3), 0)
	x := f.ExtractValue(agg, 0)
	r := f.Call(callee, []emit.Value{x}, emit.I32)
	f.Ret(r)
	if err := f.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	var text bytes.Buffer
	if err := m.Print(&text); err != nil {
		t.Fatalf("print: %v", err)
	}
	for _, want := range []string{
		"declare ccc i32 @ext(i32)",
		"define i32 @main() {",
		"%t1 = insertvalue { i32, i32 } undef, i32 3, 0",
		"%t3 = call i32 @ext(i32 %t2)",
		"ret i32 %t3",
	} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("output missing %q:\n%s", want, text.String())
		}
	}

	var bin bytes.Buffer
	if err := m.Encode(&bin); err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(&bin)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var again bytes.Buffer
	if err := back.Print(&again); err != nil {
		t.Fatalf("print decoded: %v", err)
	}
	if again.String() != text.String() {
		t.Fatalf("round trip changed the module:\n%s\nvs\n%s", text.String(), again.String())
	}
}
