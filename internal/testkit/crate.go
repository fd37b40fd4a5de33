package testkit

import (
	"trans/internal/tir"
	"trans/internal/types"
)

// CrateBuilder assembles small typed crates for tests.
type CrateBuilder struct {
	In    *types.Interner
	B     types.Builtins
	Crate *tir.Crate
	next  tir.DefID
}

// NewCrate starts an empty crate.
func NewCrate(name string) *CrateBuilder {
	in := types.NewInterner()
	return &CrateBuilder{In: in, B: in.Builtins(), Crate: tir.NewCrate(name, in)}
}

// Def registers fn, assigning the next free id when it has none.
func (cb *CrateBuilder) Def(fn *tir.FnDef) *tir.FnDef {
	if fn.ID == tir.NoDefID {
		cb.next++
		fn.ID = cb.next
	} else if fn.ID > cb.next {
		cb.next = fn.ID
	}
	cb.Crate.Fns = append(cb.Crate.Fns, fn)
	return fn
}

// Trait registers a trait.
func (cb *CrateBuilder) Trait(t *tir.TraitDef) *tir.TraitDef {
	cb.Crate.Traits = append(cb.Crate.Traits, t)
	return t
}

// Impl registers an impl.
func (cb *CrateBuilder) Impl(im *tir.ImplDef) *tir.ImplDef {
	cb.Crate.Impls = append(cb.Crate.Impls, im)
	return im
}

// Sig is shorthand for a default-convention function type.
func (cb *CrateBuilder) Sig(ret types.TypeID, params ...types.TypeID) types.TypeID {
	return cb.In.Fn(params, ret, types.CCDefault)
}

// Expression helpers ---------------------------------------------------------

func Lit(ty types.TypeID, v int64) *tir.Expr {
	return &tir.Expr{Kind: tir.ExprLit, Ty: ty, Lit: v}
}

func Local(ty types.TypeID, id tir.LocalID) *tir.Expr {
	return &tir.Expr{Kind: tir.ExprLocal, Ty: ty, Local: id}
}

func Tuple(ty types.TypeID, elems ...*tir.Expr) *tir.Expr {
	return &tir.Expr{Kind: tir.ExprTuple, Ty: ty, Elems: elems}
}

func Field(ty types.TypeID, base *tir.Expr, index int) *tir.Expr {
	return &tir.Expr{Kind: tir.ExprField, Ty: ty, Elems: []*tir.Expr{base}, Index: index}
}

// Call calls def at typeArgs with by-value arguments.
func Call(ty types.TypeID, def tir.DefID, typeArgs []types.TypeID, args ...*tir.Expr) *tir.Expr {
	e := &tir.Expr{
		Kind:   tir.ExprCall,
		Ty:     ty,
		Callee: &tir.Callee{Kind: tir.CalleeFn, Def: def, TypeArgs: typeArgs},
	}
	for _, a := range args {
		e.Args = append(e.Args, tir.Arg{Expr: a})
	}
	return e
}

// Block builds { stmts; tail }. tail may be nil.
func Block(ty types.TypeID, tail *tir.Expr, stmts ...*tir.Stmt) *tir.Expr {
	e := &tir.Expr{Kind: tir.ExprBlock, Ty: ty, Stmts: stmts}
	if tail != nil {
		e.Elems = []*tir.Expr{tail}
	}
	return e
}

func Return(ty types.TypeID, v *tir.Expr) *tir.Expr {
	return &tir.Expr{Kind: tir.ExprReturn, Ty: ty, Elems: []*tir.Expr{v}}
}

func If(ty types.TypeID, cond, then, els *tir.Expr) *tir.Expr {
	return &tir.Expr{Kind: tir.ExprIf, Ty: ty, Elems: []*tir.Expr{cond, then, els}}
}

func Box(ty types.TypeID, v *tir.Expr) *tir.Expr {
	return &tir.Expr{Kind: tir.ExprBox, Ty: ty, Elems: []*tir.Expr{v}}
}

func ExprStmt(e *tir.Expr) *tir.Stmt {
	return &tir.Stmt{Kind: tir.StmtExpr, Expr: e}
}

func Let(pat *tir.Pattern, init *tir.Expr) *tir.Stmt {
	return &tir.Stmt{Kind: tir.StmtLet, Pat: pat, Init: init}
}

func Bind(ty types.TypeID, id tir.LocalID, name string) *tir.Pattern {
	return &tir.Pattern{Kind: tir.PatBind, Ty: ty, Local: id, Name: name}
}
