package lower

import (
	"trans/internal/emit"
	"trans/internal/tir"
	"trans/internal/types"
)

// lowerArgument evaluates one call argument into its lowered form.
// Owned values are built in a scratch slot guarded by a temporary cleanup
// appended to temps; the caller revokes those once the call is emitted.
// A by-reference argument is always copied into a scratch slot whose
// address is passed; its formal must be declared by reference.
func (fl *fnLowerer) lowerArgument(arg tir.Arg, formal emit.Type, indirect bool, temps *[]*CleanupHandle) (emit.Value, error) {
	e := arg.Expr
	if e == nil {
		return emit.Value{}, fatalf(errInvalidState, fl.def.Span, "%s: call argument without an expression", fl.name)
	}
	ty, err := fl.monoType(e.Ty, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	if fl.cx.isNever(ty) {
		if err := fl.lowerExpr(e, ignore); err != nil {
			return emit.Value{}, err
		}
		return emit.Undef(formal), nil
	}
	if arg.Mode == tir.ByReference && !indirect {
		return emit.Value{}, fatalf(errInvalidState, e.Span, "%s: by-reference argument of type `%s` passed to a by-value parameter", fl.name, fl.cx.Types.Format(ty))
	}
	owned := fl.cx.Types.NeedsDrop(ty)
	if !indirect && !owned && fl.cx.Layout.IsImmediate(ty) {
		v, err := fl.lowerValue(e)
		if err != nil {
			return emit.Value{}, err
		}
		return coerce(fl.fn, v, formal), nil
	}

	slot, err := fl.scratch(ty, e)
	if err != nil || fl.fn.Terminated() {
		return emit.Undef(formal), err
	}
	if owned {
		*temps = append(*temps, fl.frame.schedule(slot, ty, cleanUnwind))
	}
	if indirect {
		return coerce(fl.fn, slot, formal), nil
	}
	return coerce(fl.fn, fl.fn.Load(slot), formal), nil
}

// scratch evaluates e into a fresh stack slot of type ty.
func (fl *fnLowerer) scratch(ty types.TypeID, e *tir.Expr) (emit.Value, error) {
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	slot := fl.fn.Alloca(r, "arg")
	if err := fl.lowerExpr(e, saveIn(slot)); err != nil {
		return emit.Value{}, err
	}
	return slot, nil
}

// lowerCall emits a call and delivers its result to d.
func (fl *fnLowerer) lowerCall(e *tir.Expr, ret types.TypeID, d dest) error {
	if e.Callee == nil {
		return fatalf(errInvalidState, e.Span, "call without a callee")
	}
	// callee temporaries, such as a spilled receiver, belong to the call
	sc := fl.frame.pushScope("call")
	target, err := fl.resolveCallee(e.Callee, e.Args, ret, e.Span)
	if err != nil {
		return err
	}
	if fl.fn.Terminated() {
		return fl.popScope(sc)
	}
	abi := target.callABI()
	args := e.Args
	var (
		fnv     emit.Value
		lowered []emit.Value
		temps   []*CleanupHandle
		retSlot emit.Value
	)
	if abi.retIndirect {
		r, err := fl.cx.repr(abi.ret, e.Span)
		if err != nil {
			return err
		}
		if d.kind == destSaveIn {
			retSlot = coerce(fl.fn, d.ptr, r.Ptr())
		} else {
			retSlot = fl.fn.Alloca(r, "ret.tmp")
		}
		lowered = append(lowered, retSlot)
	}
	switch t := target.(type) {
	case *Direct:
		fnv = t.Fn
	case *Closure:
		fnv = t.Code
		lowered = append(lowered, t.Env)
	case *Method:
		fnv = t.Fn
		lowered = append(lowered, t.Receiver)
		args = args[1:]
		if t.Temp != nil {
			temps = append(temps, t.Temp)
		}
	}
	if len(args) != len(abi.params) {
		return fatalf(errInvalidState, e.Span, "call passes %d arguments, callee takes %d", len(args), len(abi.params))
	}

	var res emit.Value
	for i, a := range args {
		v, err := fl.lowerArgument(a, abi.formal(i), abi.indirect[i], &temps)
		if err != nil {
			return err
		}
		if fl.fn.Terminated() {
			break
		}
		lowered = append(lowered, v)
	}
	if !fl.fn.Terminated() {
		// the callee owns the arguments from here on
		for _, h := range temps {
			h.Revoke()
		}
		if res, err = fl.emitCall(fnv, lowered, abi.sig.Ret); err != nil {
			return err
		}
	}
	if err := fl.popScope(sc); err != nil {
		return err
	}
	if fl.fn.Terminated() {
		return nil
	}
	switch {
	case fl.cx.isNever(abi.ret):
		fl.fn.Unreachable()
	case abi.retIndirect:
		if d.kind == destIgnore {
			return fl.cx.dropInPlace(fl.fn, retSlot, abi.ret, e.Span)
		}
	case fl.cx.isVoid(abi.ret):
	default:
		return fl.storeValue(res, abi.ret, d, e)
	}
	return nil
}
