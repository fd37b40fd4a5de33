package lower

import (
	"context"
	"fmt"

	"trans/internal/emit"
	"trans/internal/mono"
	"trans/internal/source"
	"trans/internal/tir"
	"trans/internal/trace"
	"trans/internal/types"
)

type lowerState uint8

const (
	stateUninitialized lowerState = iota
	stateFrameBuilt
	stateArgumentsBound
	stateBodyLowered
	stateFinished
)

var stateNames = [...]string{"uninitialized", "frame-built", "arguments-bound", "body-lowered", "finished"}

func (s lowerState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("lowerState(%d)", s)
}

// fnLowerer lowers one function body. A fresh value is used per body.
type fnLowerer struct {
	cx    *Context
	def   *tir.FnDef
	subst types.Subst
	caps  []tir.Cap
	sig   types.TypeID // concrete signature
	name  string

	fn       emit.Function
	frame    *Frame
	state    lowerState
	argScope *cleanupScope
	envPtr   emit.Value
}

// LowerFn lowers a non-generic function definition.
func (cx *Context) LowerFn(ctx context.Context, def *tir.FnDef) error {
	if def.IsGeneric() {
		return fatalf(ErrUnresolvedGeneric, def.Span, "`%s` is generic and can only be lowered per instance", def.Name)
	}
	fl := &fnLowerer{cx: cx, def: def, sig: def.Sig, name: fnSymbol(def)}
	return fl.run(ctx)
}

// LowerInstance defines the body of a queued instance.
func (cx *Context) LowerInstance(ctx context.Context, inst *mono.Instance) error {
	if inst.Key.Kind != mono.InstFn {
		return cx.lowerGlue(ctx, inst)
	}
	fl := &fnLowerer{
		cx:    cx,
		def:   inst.Def,
		subst: inst.Subst(),
		caps:  inst.Caps,
		sig:   inst.Ty,
		name:  inst.Symbol,
	}
	return fl.run(ctx)
}

func (fl *fnLowerer) run(ctx context.Context) error {
	_, span := trace.Start(ctx, trace.ScopeFunction, fl.name)
	return span.EndErr(fl.lower())
}

func (fl *fnLowerer) lower() error {
	abi, err := fl.cx.abiOf(fl.sig, fl.def.HasEnv(), fl.def.Span)
	if err != nil {
		return err
	}
	fn, err := fl.cx.Module.DefineFunction(fl.name, abi.sig)
	if err != nil {
		return fatalf(errInvalidState, fl.def.Span, "%v", err)
	}
	fl.fn = fn
	if err := fl.buildFrame(); err != nil {
		return err
	}
	if fl.def.Intrinsic != "" {
		return fl.lowerIntrinsic()
	}
	if err := fl.bindArguments(); err != nil {
		return err
	}
	if err := fl.lowerBody(); err != nil {
		return err
	}
	return fl.finish()
}

func (fl *fnLowerer) expect(want lowerState) error {
	if fl.state != want {
		return fatalf(errInvalidState, fl.def.Span, "%s: lowering step expects state %s, found %s", fl.name, want, fl.state)
	}
	return nil
}

func (fl *fnLowerer) buildFrame() error {
	if err := fl.expect(stateUninitialized); err != nil {
		return err
	}
	frame, err := fl.cx.BeginFrame(fl.fn, fl.sig, fl.def.HasEnv())
	if err != nil {
		return err
	}
	fl.frame = frame
	fl.state = stateFrameBuilt
	return nil
}

// bindArguments gives every parameter a slot. Owned parameters are
// dropped when the function returns.
func (fl *fnLowerer) bindArguments() error {
	if err := fl.expect(stateFrameBuilt); err != nil {
		return err
	}
	fl.argScope = fl.frame.pushScope("arguments")
	abi := fl.frame.abi
	if len(fl.def.Params) != len(abi.params) {
		return fatalf(errInvalidState, fl.def.Span, "%s: %d parameter patterns for %d parameters", fl.name, len(fl.def.Params), len(abi.params))
	}
	for i, pat := range fl.def.Params {
		ty := abi.params[i]
		slot := fl.frame.Params[i]
		if !abi.indirect[i] {
			r, err := fl.cx.repr(ty, pat.Span)
			if err != nil {
				return err
			}
			name := pat.Name
			if name == "" {
				name = "arg"
			}
			p := slot
			slot = fl.fn.Alloca(r, name)
			fl.fn.Store(p, slot)
		}
		if fl.cx.Types.NeedsDrop(ty) {
			fl.frame.schedule(slot, ty, cleanUnwind)
		}
		if err := fl.bindPattern(pat, slot, ty, true); err != nil {
			return err
		}
	}
	fl.state = stateArgumentsBound
	return nil
}

func (fl *fnLowerer) lowerBody() error {
	if err := fl.expect(stateArgumentsBound); err != nil {
		return err
	}
	if fl.def.Body == nil {
		return fatalf(ErrMissingDefinition, fl.def.Span, "`%s` has no body", fl.def.Name)
	}
	if err := fl.lowerExpr(fl.def.Body, fl.retDest()); err != nil {
		return err
	}
	fl.state = stateBodyLowered
	return nil
}

// retDest is where a value flowing out of the function is written.
func (fl *fnLowerer) retDest() dest {
	if fl.cx.isVoid(fl.frame.retTy) {
		return ignore
	}
	return saveIn(fl.frame.ReturnSlot())
}

// finish closes the argument scope, falls through to the return block
// and emits the single return.
func (fl *fnLowerer) finish() error {
	if err := fl.expect(stateBodyLowered); err != nil {
		return err
	}
	open := !fl.fn.Terminated()
	if err := fl.popScope(fl.argScope); err != nil {
		return err
	}
	if n := fl.frame.Depth(); n != 0 {
		return fatalf(ErrScopeMismatch, fl.def.Span, "%s: %d cleanup scopes still open at function end", fl.name, n)
	}
	if open {
		fl.fn.Br(fl.frame.ReturnBlock())
	}
	if fl.frame.retBlock != emit.NoBlock {
		fl.fn.SetInsertPoint(fl.frame.retBlock)
		fl.emitReturn()
	}
	return fl.seal()
}

// emitReturn returns the result. When the slot of an immediate result is
// written exactly once on every path, the stored value is returned
// directly and the slot disappears.
func (fl *fnLowerer) emitReturn() {
	f := fl.frame
	if fl.cx.isVoid(f.retTy) || f.abi.retIndirect {
		fl.fn.RetVoid()
		return
	}
	slot := f.ReturnSlot()
	if ins, ok := fl.fn.(emit.Inspector); ok {
		if store, ok := ins.DominatingStore(slot, f.retBlock); ok {
			v := ins.StoredValue(store)
			ins.Erase(store)
			if !ins.HasUses(slot) {
				ins.EraseDef(slot)
			}
			fl.fn.Ret(v)
			return
		}
	}
	fl.fn.Ret(fl.fn.Load(slot))
}

// bindPattern binds pat to the value at ptr. With alias set a plain
// binding names ptr itself; otherwise the value moves into a new slot.
func (fl *fnLowerer) bindPattern(pat *tir.Pattern, ptr emit.Value, ty types.TypeID, alias bool) error {
	switch pat.Kind {
	case tir.PatWild:
		return nil
	case tir.PatBind:
		if alias {
			fl.frame.bind(pat.Local, ptr)
			return nil
		}
		r, err := fl.cx.repr(ty, pat.Span)
		if err != nil {
			return err
		}
		slot := fl.fn.Alloca(r, pat.Name)
		if err := fl.moveInto(ptr, slot, ty, pat.Span); err != nil {
			return err
		}
		fl.frame.bind(pat.Local, slot)
		if fl.cx.Types.NeedsDrop(ty) {
			fl.frame.schedule(slot, ty, cleanUnwind)
		}
		return nil
	case tir.PatTuple, tir.PatStruct:
		fields, ok := fl.cx.Types.Fields(ty)
		if !ok || len(fields) != len(pat.Elems) {
			return fatalf(ErrUnimplemented, pat.Span, "pattern does not match the shape of `%s`", fl.cx.Types.Format(ty))
		}
		base, err := fl.cx.castPtr(fl.fn, ptr, ty, pat.Span)
		if err != nil {
			return err
		}
		for i, sub := range pat.Elems {
			if sub == nil {
				continue
			}
			if err := fl.bindPattern(sub, fl.fn.FieldAddr(base, i), fields[i], false); err != nil {
				return err
			}
		}
		return nil
	}
	return fatalf(ErrUnimplemented, pat.Span, "unsupported pattern kind %d", pat.Kind)
}

// moveInto copies the value at src into dst. Owned sources are zeroed so
// a later drop of src is a no-op.
func (fl *fnLowerer) moveInto(src, dst emit.Value, ty types.TypeID, sp source.Span) error {
	if fl.cx.isVoid(ty) {
		return nil
	}
	r, err := fl.cx.repr(ty, sp)
	if err != nil {
		return err
	}
	src = coerce(fl.fn, src, r.Ptr())
	fl.fn.Store(fl.fn.Load(src), coerce(fl.fn, dst, r.Ptr()))
	if fl.cx.Types.NeedsDrop(ty) {
		fl.fn.Store(emit.Zero(r), src)
	}
	return nil
}

func (fl *fnLowerer) monoType(ty types.TypeID, sp source.Span) (types.TypeID, error) {
	out := ty
	if !fl.subst.IsEmpty() {
		out = fl.cx.Types.Apply(fl.subst, ty)
	}
	if fl.cx.Types.HasParams(out) {
		return types.NoTypeID, fatalf(ErrUnresolvedGeneric, sp, "type `%s` is not resolved in `%s`", fl.cx.Types.Format(out), fl.name)
	}
	return out, nil
}

func (fl *fnLowerer) monoTypes(ids []types.TypeID, sp source.Span) ([]types.TypeID, error) {
	out := make([]types.TypeID, len(ids))
	for i, id := range ids {
		t, err := fl.monoType(id, sp)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// concreteCap resolves a capability against the instance's bounds.
func (fl *fnLowerer) concreteCap(c tir.Cap, sp source.Span) (tir.Cap, error) {
	switch c.Kind {
	case tir.CapParam:
		if c.Bound < 0 || c.Bound >= len(fl.caps) {
			return tir.Cap{}, fatalf(ErrUnresolvedGeneric, sp, "capability #%d is not bound in `%s`", c.Bound, fl.name)
		}
		return fl.caps[c.Bound], nil
	case tir.CapImpl:
		args, err := fl.monoTypes(c.Args, sp)
		if err != nil {
			return tir.Cap{}, err
		}
		return tir.Cap{Kind: tir.CapImpl, Impl: c.Impl, Args: args}, nil
	case tir.CapDyn:
		return c, nil
	}
	return tir.Cap{}, fatalf(errInvalidState, sp, "unknown capability kind %d", c.Kind)
}

func (fl *fnLowerer) concreteCaps(caps []tir.Cap, sp source.Span) ([]tir.Cap, error) {
	out := make([]tir.Cap, len(caps))
	for i, c := range caps {
		cc, err := fl.concreteCap(c, sp)
		if err != nil {
			return nil, err
		}
		out[i] = cc
	}
	return out, nil
}

func (fl *fnLowerer) site(sp source.Span) mono.UseSite {
	return mono.UseSite{Span: sp, Caller: fl.name}
}
