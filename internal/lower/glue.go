package lower

import (
	"context"

	"trans/internal/emit"
	"trans/internal/mono"
	"trans/internal/source"
	"trans/internal/tir"
	"trans/internal/trace"
	"trans/internal/types"
)

// envHeader is the first word of every closure environment: the glue
// that drops the captures and frees the allocation.
var envHeader = emit.FuncPtr(emit.Signature{Ret: emit.Void, Params: []emit.Type{emit.Opaque}})

// Slot 0 of every vtable is the drop glue of ~Self. Owned trait objects
// call it with the address of their data field; methods follow.
const vtableDrop = 0

var vtableDropFn = emit.FuncPtr(emit.Signature{Ret: emit.Void, Params: []emit.Type{emit.Opaque.Ptr()}})

// envRepr is the heap layout of a closure environment.
func (cx *Context) envRepr(captures types.TypeID, sp source.Span) (emit.Type, error) {
	r, err := cx.repr(captures, sp)
	if err != nil {
		return "", err
	}
	return emit.Struct(envHeader, r), nil
}

func (cx *Context) declareGlue(base string, key mono.Key, ty types.TypeID, sig emit.Signature) *mono.Instance {
	sym := mono.Mangle(base, key)
	inst := &mono.Instance{
		Key:    key,
		Symbol: sym,
		Ty:     ty,
		Fn:     cx.Module.DeclareFunction(sym, sig),
		Sig:    sig,
	}
	cx.enqueue(inst)
	return inst
}

// dropGlue returns the function that drops a value of type ty in place.
func (cx *Context) dropGlue(ty types.TypeID, sp source.Span) (*mono.Instance, error) {
	key := mono.GlueKey(mono.InstDropGlue, ty)
	return cx.Glue.Resolve(key, func() (*mono.Instance, error) {
		r, err := cx.repr(ty, sp)
		if err != nil {
			return nil, err
		}
		sig := emit.Signature{Ret: emit.Void, Params: []emit.Type{r.Ptr()}}
		return cx.declareGlue("drop_glue", key, ty, sig), nil
	})
}

// hashGlue returns the function hashing the value behind a pointer.
func (cx *Context) hashGlue(ty types.TypeID, sp source.Span) (*mono.Instance, error) {
	key := mono.GlueKey(mono.InstHashGlue, ty)
	return cx.Glue.Resolve(key, func() (*mono.Instance, error) {
		r, err := cx.repr(ty, sp)
		if err != nil {
			return nil, err
		}
		sig := emit.Signature{Ret: emit.I64, Params: []emit.Type{r.Ptr()}}
		return cx.declareGlue("hash_glue", key, ty, sig), nil
	})
}

// envGlue returns the header function of environments capturing a tuple
// of type captures.
func (cx *Context) envGlue(captures types.TypeID, sp source.Span) (*mono.Instance, error) {
	key := mono.GlueKey(mono.InstEnvGlue, captures)
	return cx.Glue.Resolve(key, func() (*mono.Instance, error) {
		if _, err := cx.repr(captures, sp); err != nil {
			return nil, err
		}
		sig := emit.Signature{Ret: emit.Void, Params: []emit.Type{emit.Opaque}}
		return cx.declareGlue("env_glue", key, captures, sig), nil
	})
}

// dropInPlace emits a call to the drop glue of ty on ptr. Types without
// drop semantics emit nothing.
func (cx *Context) dropInPlace(b emit.Builder, ptr emit.Value, ty types.TypeID, sp source.Span) error {
	if !cx.Types.NeedsDrop(ty) {
		return nil
	}
	g, err := cx.dropGlue(ty, sp)
	if err != nil {
		return err
	}
	b.Call(g.Fn, []emit.Value{coerce(b, ptr, g.Sig.Params[0])}, emit.Void)
	return nil
}

// lowerGlue defines the body of a queued glue instance.
func (cx *Context) lowerGlue(ctx context.Context, inst *mono.Instance) error {
	_, span := trace.Start(ctx, trace.ScopeFunction, inst.Symbol)
	return span.Set("kind", inst.Key.Kind.String()).EndErr(cx.defineGlue(inst))
}

func (cx *Context) defineGlue(inst *mono.Instance) error {
	fn, err := cx.Module.DefineFunction(inst.Symbol, inst.Sig)
	if err != nil {
		return fatalf(errInvalidState, source.NoSpan, "%v", err)
	}
	switch inst.Key.Kind {
	case mono.InstDropGlue:
		err = cx.buildDropGlue(fn, inst.Ty)
	case mono.InstHashGlue:
		err = cx.buildHashGlue(fn, inst.Ty)
	case mono.InstEnvGlue:
		err = cx.buildEnvGlue(fn, inst.Ty)
	default:
		err = fatalf(errInvalidState, source.NoSpan, "%s has no body to lower", inst.Key)
	}
	if err != nil {
		return err
	}
	if err := fn.Finish(); err != nil {
		return fatalf(errInvalidState, source.NoSpan, "%v", err)
	}
	return nil
}

func (cx *Context) buildDropGlue(fn emit.Function, ty types.TypeID) error {
	p := fn.Params()[0]
	if err := cx.callDtor(fn, p, ty); err != nil {
		return err
	}
	tt, _ := cx.Types.Lookup(ty)
	switch tt.Kind {
	case types.KindPointer:
		if tt.Own == types.OwnShared {
			break
		}
		v := fn.Load(p)
		free, done := fn.NewBlock("free"), fn.NewBlock("done")
		fn.CondBr(fn.Compare(emit.NE, v, emit.Null(v.Ty)), free, done)
		fn.SetInsertPoint(free)
		if err := cx.dropInPlace(fn, v, tt.Elem, source.NoSpan); err != nil {
			return err
		}
		fn.Call(cx.runtime(rtFree), []emit.Value{coerce(fn, v, emit.Opaque)}, emit.Void)
		fn.Br(done)
		fn.SetInsertPoint(done)
	case types.KindDyn:
		if tt.Own == types.OwnShared {
			break
		}
		pair := coerce(fn, p, dynRepr.Ptr())
		data := fn.FieldAddr(pair, 0)
		release, done := fn.NewBlock("release"), fn.NewBlock("done")
		fn.CondBr(fn.Compare(emit.NE, fn.Load(data), emit.Null(emit.Opaque)), release, done)
		fn.SetInsertPoint(release)
		vt := fn.Load(fn.FieldAddr(pair, 1))
		slot := fn.Load(fn.ElemAddr(vt, emit.Const(emit.I64, vtableDrop)))
		fn.Call(fn.Cast(emit.Bitcast, slot, vtableDropFn), []emit.Value{data}, emit.Void)
		fn.Br(done)
		fn.SetInsertPoint(done)
	case types.KindClosure:
		env := fn.Load(fn.FieldAddr(p, 1))
		release, done := fn.NewBlock("release"), fn.NewBlock("done")
		fn.CondBr(fn.Compare(emit.NE, env, emit.Null(env.Ty)), release, done)
		fn.SetInsertPoint(release)
		hdr := fn.Cast(emit.Bitcast, env, emit.Struct(envHeader).Ptr())
		code := fn.Load(fn.FieldAddr(hdr, 0))
		fn.Call(code, []emit.Value{env}, emit.Void)
		fn.Br(done)
		fn.SetInsertPoint(done)
	case types.KindStruct, types.KindTuple, types.KindEnum, types.KindArray:
		err := cx.iterStructural(fn, p, ty, func(b emit.Builder, fp emit.Value, fty types.TypeID) error {
			return cx.dropInPlace(b, fp, fty, source.NoSpan)
		})
		if err != nil {
			return err
		}
	}
	fn.RetVoid()
	return nil
}

// callDtor runs the user destructor of an ADT before its fields drop.
func (cx *Context) callDtor(b emit.Builder, p emit.Value, ty types.TypeID) error {
	id, ok := cx.Types.Dtor(ty)
	if !ok {
		return nil
	}
	def, err := cx.fnDef(tir.DefID(id), source.NoSpan)
	if err != nil {
		return err
	}
	var (
		fnv emit.Value
		abi *fnABI
	)
	if def.IsGeneric() {
		inst, _ := cx.Types.AdtOf(ty)
		in, err := cx.instantiate(def, inst.Args, nil, mono.UseSite{Span: def.Span, Caller: "drop " + cx.Types.Format(ty)})
		if err != nil {
			return err
		}
		if abi, err = cx.abiOf(in.Ty, false, def.Span); err != nil {
			return err
		}
		fnv = in.Fn
	} else if fnv, abi, err = cx.declareFn(def); err != nil {
		return err
	}
	if len(abi.params) != 1 || abi.retIndirect {
		return fatalf(ErrUnimplemented, def.Span, "destructor `%s` must take a single &self", def.Name)
	}
	b.Call(fnv, []emit.Value{coerce(b, p, abi.formal(0))}, abi.sig.Ret)
	return nil
}

func (cx *Context) buildEnvGlue(fn emit.Function, captures types.TypeID) error {
	p := fn.Params()[0]
	er, err := cx.envRepr(captures, source.NoSpan)
	if err != nil {
		return err
	}
	env := fn.Cast(emit.Bitcast, p, er.Ptr())
	if err := cx.dropInPlace(fn, fn.FieldAddr(env, 1), captures, source.NoSpan); err != nil {
		return err
	}
	fn.Call(cx.runtime(rtFree), []emit.Value{p}, emit.Void)
	fn.RetVoid()
	return nil
}

// buildHashGlue folds every scalar leaf of the value as h = h*31 + leaf.
// Pointers hash by address.
func (cx *Context) buildHashGlue(fn emit.Function, ty types.TypeID) error {
	acc := fn.Alloca(emit.I64, "h")
	fn.Store(emit.Const(emit.I64, 0), acc)

	var leaf visitFn
	leaf = func(b emit.Builder, ptr emit.Value, ty types.TypeID) error {
		tt, _ := cx.Types.Lookup(ty)
		switch tt.Kind {
		case types.KindUnit, types.KindNever:
			return nil
		case types.KindBool, types.KindChar, types.KindInt, types.KindUint, types.KindFloat, types.KindPointer, types.KindFn:
			p, err := cx.castPtr(b, ptr, ty, source.NoSpan)
			if err != nil {
				return err
			}
			w := widen(b, b.Load(p), tt)
			h := b.Binary(emit.Mul, b.Load(acc), emit.Const(emit.I64, 31))
			b.Store(b.Binary(emit.Add, h, w), acc)
			return nil
		case types.KindStruct, types.KindTuple, types.KindEnum, types.KindArray, types.KindString:
			return cx.iterStructural(b, ptr, ty, leaf)
		}
		return fatalf(ErrUnimplemented, source.NoSpan, "cannot hash %s type `%s`", tt.Kind, cx.Types.Format(ty))
	}
	if err := leaf(fn, fn.Params()[0], ty); err != nil {
		return err
	}
	fn.Ret(fn.Load(acc))
	return nil
}

// widen turns a scalar into an i64 hash input.
func widen(b emit.Builder, v emit.Value, tt types.Type) emit.Value {
	switch tt.Kind {
	case types.KindPointer, types.KindFn:
		return b.Cast(emit.PtrToInt, v, emit.I64)
	case types.KindFloat:
		v = b.Cast(emit.Bitcast, v, emit.Int(int(tt.Width)))
	case types.KindInt:
		if v.Ty != emit.I64 {
			return b.Cast(emit.SExt, v, emit.I64)
		}
		return v
	}
	if v.Ty == emit.I64 {
		return v
	}
	return b.Cast(emit.ZExt, v, emit.I64)
}

// vtable returns the method table of cap, in trait declaration order.
func (cx *Context) vtable(cap tir.Cap, site mono.UseSite) (emit.Value, error) {
	if cap.Kind != tir.CapImpl {
		return emit.Value{}, fatalf(errInvalidState, site.Span, "a vtable needs a concrete impl")
	}
	key := mono.VtableKey(cap.Impl, cap.Args)
	inst, err := cx.Glue.Resolve(key, func() (*mono.Instance, error) {
		impl, ok := cx.Crate.Impl(cap.Impl)
		if !ok {
			return nil, fatalf(ErrMissingDefinition, site.Span, "impl #%d is not defined", cap.Impl)
		}
		trait, ok := cx.Crate.Trait(impl.Trait)
		if !ok {
			return nil, fatalf(ErrMissingDefinition, site.Span, "trait #%d is not defined", impl.Trait)
		}
		selfTy := cx.Types.Apply(types.Subst{Types: cap.Args}, impl.SelfTy)
		drop, err := cx.dropGlue(cx.Types.Pointer(types.OwnUnique, selfTy), site.Span)
		if err != nil {
			return nil, err
		}
		init := make([]emit.Value, 1, len(trait.Methods)+1)
		init[0] = emit.Value{Ref: "bitcast (" + drop.Fn.String() + " to i8*)", Ty: emit.Opaque}
		for _, m := range trait.Methods {
			def, typeArgs, caps, err := cx.traitMethod(cap, m.Name, nil, nil, site.Span)
			if err != nil {
				return nil, err
			}
			fnv, err := cx.fnValue(def, typeArgs, caps, site)
			if err != nil {
				return nil, err
			}
			init = append(init, emit.Value{Ref: "bitcast (" + fnv.String() + " to i8*)", Ty: emit.Opaque})
		}
		sym := mono.Mangle("vtable_"+trait.Name, key)
		ty := emit.Array(len(init), emit.Opaque)
		return &mono.Instance{Key: key, Symbol: sym, Fn: cx.Module.DefineGlobal(sym, ty, init)}, nil
	})
	if err != nil {
		return emit.Value{}, err
	}
	cx.Glue.Record(key, site)
	return inst.Fn, nil
}

// fnValue returns the symbol of def at the given arguments.
func (cx *Context) fnValue(def *tir.FnDef, typeArgs []types.TypeID, caps []tir.Cap, site mono.UseSite) (emit.Value, error) {
	if def.IsGeneric() {
		inst, err := cx.instantiate(def, typeArgs, caps, site)
		if err != nil {
			return emit.Value{}, err
		}
		return inst.Fn, nil
	}
	fnv, _, err := cx.declareFn(def)
	return fnv, err
}

// traitMethod finds the body of method name for a concrete capability.
// Impl methods take the impl's arguments first; inherited defaults are
// generic over Self and the trait arguments, which are computed from the
// impl header and then instantiated with the capability arguments.
func (cx *Context) traitMethod(cap tir.Cap, name string, methodArgs []types.TypeID, methodCaps []tir.Cap, sp source.Span) (*tir.FnDef, []types.TypeID, []tir.Cap, error) {
	impl, ok := cx.Crate.Impl(cap.Impl)
	if !ok {
		return nil, nil, nil, fatalf(ErrMissingDefinition, sp, "impl #%d is not defined", cap.Impl)
	}
	if id, ok := impl.Methods[name]; ok {
		def, err := cx.fnDef(id, sp)
		if err != nil {
			return nil, nil, nil, err
		}
		typeArgs := append(append([]types.TypeID(nil), cap.Args...), methodArgs...)
		return def, typeArgs, methodCaps, nil
	}
	trait, ok := cx.Crate.Trait(impl.Trait)
	if !ok {
		return nil, nil, nil, fatalf(ErrMissingDefinition, sp, "trait #%d is not defined", impl.Trait)
	}
	idx, ok := trait.MethodIndex(name)
	if !ok {
		return nil, nil, nil, fatalf(ErrMissingDefinition, sp, "trait `%s` has no method `%s`", trait.Name, name)
	}
	m := trait.Methods[idx]
	if m.Default == tir.NoDefID {
		return nil, nil, nil, fatalf(ErrMissingDefinition, sp, "impl #%d does not provide `%s::%s` and the trait has no default", impl.ID, trait.Name, name)
	}
	def, err := cx.fnDef(m.Default, sp)
	if err != nil {
		return nil, nil, nil, err
	}
	implToTrait := types.Subst{Types: append([]types.TypeID{impl.SelfTy}, impl.TraitArgs...)}
	composed := cx.Types.Compose(implToTrait, types.Subst{Types: cap.Args})
	typeArgs := append(append([]types.TypeID(nil), composed.Types...), methodArgs...)
	caps := append([]tir.Cap{cap}, methodCaps...)
	return def, typeArgs, caps, nil
}
