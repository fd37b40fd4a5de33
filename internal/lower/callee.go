package lower

import (
	"trans/internal/emit"
	"trans/internal/mono"
	"trans/internal/source"
	"trans/internal/tir"
	"trans/internal/types"
)

// CalleeTarget is what a call expression resolved to.
type CalleeTarget interface {
	callABI() *fnABI
}

// Direct is a statically known function, possibly a fresh instance.
type Direct struct {
	Fn emit.Value
	// Instance is set when the callee was monomorphized for this call.
	Instance *mono.Instance
	abi      *fnABI
}

// Closure is a code pointer with its environment.
type Closure struct {
	Code, Env emit.Value
	abi       *fnABI
}

// Method is a call through a trait object: the receiver travels in the
// environment slot.
type Method struct {
	Fn, Receiver emit.Value
	// Temp guards a receiver temporary until the call takes it over.
	Temp *CleanupHandle
	abi  *fnABI
}

func (d *Direct) callABI() *fnABI  { return d.abi }
func (c *Closure) callABI() *fnABI { return c.abi }
func (m *Method) callABI() *fnABI  { return m.abi }

// resolveCallee turns the callee of a call into something callable.
// Expressions evaluated on the way, such as a closure value or a trait
// object receiver, leave their temporaries in the call scope.
func (fl *fnLowerer) resolveCallee(c *tir.Callee, args []tir.Arg, ret types.TypeID, sp source.Span) (CalleeTarget, error) {
	switch c.Kind {
	case tir.CalleeFn:
		def, err := fl.cx.fnDef(c.Def, sp)
		if err != nil {
			return nil, err
		}
		typeArgs, err := fl.monoTypes(c.TypeArgs, sp)
		if err != nil {
			return nil, err
		}
		caps, err := fl.concreteCaps(c.Caps, sp)
		if err != nil {
			return nil, err
		}
		return fl.directTarget(def, typeArgs, caps, sp)
	case tir.CalleeMethod:
		if c.Self == nil {
			return nil, fatalf(errInvalidState, sp, "method call `%s` has no capability", c.Method)
		}
		self, err := fl.concreteCap(*c.Self, sp)
		if err != nil {
			return nil, err
		}
		if self.Kind == tir.CapDyn {
			return fl.dynTarget(c, args, ret, sp)
		}
		typeArgs, err := fl.monoTypes(c.TypeArgs, sp)
		if err != nil {
			return nil, err
		}
		caps, err := fl.concreteCaps(c.Caps, sp)
		if err != nil {
			return nil, err
		}
		def, typeArgs, caps, err := fl.cx.traitMethod(self, c.Method, typeArgs, caps, sp)
		if err != nil {
			return nil, err
		}
		return fl.directTarget(def, typeArgs, caps, sp)
	case tir.CalleeValue:
		if c.Value == nil {
			return nil, fatalf(errInvalidState, sp, "value callee without an expression")
		}
		return fl.valueTarget(c.Value, sp)
	}
	return nil, fatalf(errInvalidState, sp, "unknown callee kind %d", c.Kind)
}

func (fl *fnLowerer) directTarget(def *tir.FnDef, typeArgs []types.TypeID, caps []tir.Cap, sp source.Span) (CalleeTarget, error) {
	if def.IsClosure {
		return nil, fatalf(errInvalidState, sp, "closure body `%s` called without its environment", def.Name)
	}
	if !def.IsGeneric() {
		fnv, abi, err := fl.cx.declareFn(def)
		if err != nil {
			return nil, err
		}
		return &Direct{Fn: fnv, abi: abi}, nil
	}
	inst, err := fl.cx.instantiate(def, typeArgs, caps, fl.site(sp))
	if err != nil {
		return nil, err
	}
	abi, err := fl.cx.abiOf(inst.Ty, false, sp)
	if err != nil {
		return nil, err
	}
	return &Direct{Fn: inst.Fn, Instance: inst, abi: abi}, nil
}

// dynTarget loads the method from the vtable of the receiver in args[0].
func (fl *fnLowerer) dynTarget(c *tir.Callee, args []tir.Arg, ret types.TypeID, sp source.Span) (CalleeTarget, error) {
	if len(args) == 0 {
		return nil, fatalf(errInvalidState, sp, "trait object call `%s` has no receiver", c.Method)
	}
	trait, ok := fl.cx.Crate.Trait(c.Trait)
	if !ok {
		return nil, fatalf(ErrMissingDefinition, sp, "trait #%d is not defined", c.Trait)
	}
	idx, ok := trait.MethodIndex(c.Method)
	if !ok {
		return nil, fatalf(ErrMissingDefinition, sp, "trait `%s` has no method `%s`", trait.Name, c.Method)
	}
	pair, temp, err := fl.dynReceiver(args[0])
	if err != nil {
		return nil, err
	}
	if fl.fn.Terminated() {
		return &Method{}, nil
	}
	pair = coerce(fl.fn, pair, dynRepr.Ptr())
	data := fl.fn.Load(fl.fn.FieldAddr(pair, 0))
	vt := fl.fn.Load(fl.fn.FieldAddr(pair, 1))

	params := make([]types.TypeID, 0, len(args)-1)
	byRef := make([]bool, 0, len(args)-1)
	for _, a := range args[1:] {
		ty, err := fl.monoType(a.Expr.Ty, sp)
		if err != nil {
			return nil, err
		}
		params = append(params, ty)
		byRef = append(byRef, a.Mode == tir.ByReference)
	}
	abi, err := fl.cx.abiOfParts(params, byRef, ret, types.CCDefault, true, sp, nil)
	if err != nil {
		return nil, err
	}
	raw := fl.fn.Load(fl.fn.ElemAddr(vt, emit.Const(emit.I64, int64(vtableDrop+1+idx))))
	fnv := fl.fn.Cast(emit.Bitcast, raw, emit.FuncPtr(abi.sig))
	return &Method{Fn: fnv, Receiver: data, Temp: temp, abi: abi}, nil
}

// dynReceiver returns the address of a trait object receiver. An owned
// receiver passed by value moves into a slot of the call scope; the
// returned handle is revoked once the callee has taken it. Everything
// else is borrowed, and an rvalue is dropped when the call scope ends.
func (fl *fnLowerer) dynReceiver(arg tir.Arg) (emit.Value, *CleanupHandle, error) {
	if arg.Expr == nil {
		return emit.Value{}, nil, fatalf(errInvalidState, fl.def.Span, "%s: trait object call without a receiver expression", fl.name)
	}
	ty, err := fl.monoType(arg.Expr.Ty, arg.Expr.Span)
	if err != nil {
		return emit.Value{}, nil, err
	}
	if arg.Mode == tir.ByReference || !fl.cx.Types.NeedsDrop(ty) {
		ptr, err := fl.lowerPlace(arg.Expr)
		return ptr, nil, err
	}
	v, err := fl.lowerValue(arg.Expr)
	if err != nil || fl.fn.Terminated() {
		return v, nil, err
	}
	slot := fl.fn.Alloca(dynRepr, "self")
	fl.fn.Store(coerce(fl.fn, v, dynRepr), slot)
	return slot, fl.frame.schedule(slot, ty, cleanUnwind), nil
}

// valueTarget calls a function pointer or a closure value.
func (fl *fnLowerer) valueTarget(v *tir.Expr, sp source.Span) (CalleeTarget, error) {
	ty, err := fl.monoType(v.Ty, sp)
	if err != nil {
		return nil, err
	}
	tt, _ := fl.cx.Types.Lookup(ty)
	switch tt.Kind {
	case types.KindFn:
		fnv, err := fl.lowerValue(v)
		if err != nil {
			return nil, err
		}
		abi, err := fl.cx.abiOf(ty, false, sp)
		if err != nil {
			return nil, err
		}
		return &Direct{Fn: fnv, abi: abi}, nil
	case types.KindClosure:
		ptr, err := fl.lowerPlace(v)
		if err != nil {
			return nil, err
		}
		if ptr, err = fl.cx.castPtr(fl.fn, ptr, ty, sp); err != nil {
			return nil, err
		}
		abi, err := fl.cx.abiOf(tt.Elem, true, sp)
		if err != nil {
			return nil, err
		}
		code := fl.fn.Load(fl.fn.FieldAddr(ptr, 0))
		env := fl.fn.Load(fl.fn.FieldAddr(ptr, 1))
		return &Closure{Code: code, Env: env, abi: abi}, nil
	}
	return nil, fatalf(ErrUnimplemented, sp, "`%s` is not callable", fl.cx.Types.Format(ty))
}
