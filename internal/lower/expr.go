package lower

import (
	"trans/internal/emit"
	"trans/internal/source"
	"trans/internal/tir"
	"trans/internal/types"
)

type destKind uint8

const (
	destIgnore destKind = iota
	destSaveIn
)

// dest says where an expression's value goes: nowhere, or into memory.
type dest struct {
	kind destKind
	ptr  emit.Value
}

var ignore = dest{}

func saveIn(ptr emit.Value) dest { return dest{kind: destSaveIn, ptr: ptr} }

// lowerExpr lowers e and delivers its value to d. Nothing is emitted
// once the current block is terminated.
func (fl *fnLowerer) lowerExpr(e *tir.Expr, d dest) error {
	if e == nil || fl.fn.Terminated() {
		return nil
	}
	ty, err := fl.monoType(e.Ty, e.Span)
	if err != nil {
		return err
	}
	switch e.Kind {
	case tir.ExprUnit:
		return nil
	case tir.ExprLit, tir.ExprBinary:
		v, err := fl.lowerValue(e)
		if err != nil {
			return err
		}
		return fl.storeValue(v, ty, d, e)
	case tir.ExprLocal, tir.ExprUpvar, tir.ExprField, tir.ExprDeref:
		ptr, err := fl.lowerPlace(e)
		if err != nil || d.kind == destIgnore {
			return err
		}
		return fl.moveInto(ptr, d.ptr, ty, e.Span)
	case tir.ExprCall:
		return fl.lowerCall(e, ty, d)
	case tir.ExprTuple, tir.ExprStruct:
		return fl.lowerAggregate(e, ty, d)
	case tir.ExprEnum:
		return fl.lowerEnum(e, ty, d)
	case tir.ExprIf:
		return fl.lowerIf(e, d)
	case tir.ExprBlock:
		return fl.lowerBlock(e, d)
	case tir.ExprReturn:
		return fl.lowerReturn(e)
	case tir.ExprFail:
		return fl.lowerFail(e)
	case tir.ExprAddrOf:
		ptr, err := fl.lowerPlace(operand(e))
		if err != nil {
			return err
		}
		return fl.storeValue(ptr, ty, d, e)
	case tir.ExprBox:
		return fl.lowerBox(e, ty, d)
	case tir.ExprClosure:
		return fl.lowerClosure(e, ty, d)
	case tir.ExprToDyn:
		return fl.lowerToDyn(e, ty, d)
	case tir.ExprAssign:
		return fl.lowerAssign(e)
	}
	return fatalf(ErrUnimplemented, e.Span, "cannot lower %s expression", e.Kind)
}

func operand(e *tir.Expr) *tir.Expr {
	if len(e.Elems) == 0 {
		return nil
	}
	return e.Elems[0]
}

// storeValue writes an immediate value to d. An ignored owned value is
// dropped on the spot.
func (fl *fnLowerer) storeValue(v emit.Value, ty types.TypeID, d dest, e *tir.Expr) error {
	if fl.cx.isVoid(ty) {
		return nil
	}
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return err
	}
	v = coerce(fl.fn, v, r)
	if d.kind == destIgnore {
		if !fl.cx.Types.NeedsDrop(ty) {
			return nil
		}
		slot := fl.fn.Alloca(r, "discard")
		fl.fn.Store(v, slot)
		return fl.cx.dropInPlace(fl.fn, slot, ty, e.Span)
	}
	fl.fn.Store(v, coerce(fl.fn, d.ptr, r.Ptr()))
	return nil
}

// lowerValue evaluates e to an immediate. Reading an owned place moves
// out of it.
func (fl *fnLowerer) lowerValue(e *tir.Expr) (emit.Value, error) {
	if e == nil {
		return emit.Value{}, fatalf(errInvalidState, fl.def.Span, "%s: missing operand", fl.name)
	}
	ty, err := fl.monoType(e.Ty, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	if fl.fn.Terminated() {
		return emit.Undef(r), nil
	}
	switch e.Kind {
	case tir.ExprLit:
		if tt, _ := fl.cx.Types.Lookup(ty); tt.Kind == types.KindBool {
			return emit.Bool(e.Lit != 0), nil
		}
		return emit.Const(r, e.Lit), nil
	case tir.ExprUnit:
		return emit.Undef(r), nil
	case tir.ExprBinary:
		return fl.lowerBinary(e, r)
	case tir.ExprAddrOf:
		ptr, err := fl.lowerPlace(operand(e))
		if err != nil {
			return emit.Value{}, err
		}
		return coerce(fl.fn, ptr, r), nil
	case tir.ExprLocal, tir.ExprUpvar, tir.ExprField, tir.ExprDeref:
		ptr, err := fl.lowerPlace(e)
		if err != nil {
			return emit.Value{}, err
		}
		if fl.cx.isVoid(ty) {
			return emit.Undef(r), nil
		}
		v := fl.fn.Load(ptr)
		if fl.cx.Types.NeedsDrop(ty) {
			fl.fn.Store(emit.Zero(r), ptr)
		}
		return v, nil
	}
	if fl.cx.isVoid(ty) {
		return emit.Undef(r), fl.lowerExpr(e, ignore)
	}
	slot := fl.fn.Alloca(r, "tmp")
	if err := fl.lowerExpr(e, saveIn(slot)); err != nil {
		return emit.Value{}, err
	}
	if fl.fn.Terminated() {
		return emit.Undef(r), nil
	}
	return fl.fn.Load(slot), nil
}

// lowerPlace returns a pointer to the storage of e. Rvalues are spilled
// into a temporary that the enclosing scope drops.
func (fl *fnLowerer) lowerPlace(e *tir.Expr) (emit.Value, error) {
	if e == nil {
		return emit.Value{}, fatalf(errInvalidState, fl.def.Span, "%s: missing place", fl.name)
	}
	ty, err := fl.monoType(e.Ty, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	switch e.Kind {
	case tir.ExprLocal:
		slot, ok := fl.frame.Local(e.Local)
		if !ok {
			return emit.Value{}, fatalf(errInvalidState, e.Span, "%s: local %d is used before it is bound", fl.name, e.Local)
		}
		return fl.cx.castPtr(fl.fn, slot, ty, e.Span)
	case tir.ExprUpvar:
		return fl.upvar(e.Index, ty, e.Span)
	case tir.ExprField:
		inner := operand(e)
		base, err := fl.lowerPlace(inner)
		if err != nil {
			return emit.Value{}, err
		}
		baseTy, err := fl.monoType(inner.Ty, inner.Span)
		if err != nil {
			return emit.Value{}, err
		}
		fields, ok := fl.cx.Types.Fields(baseTy)
		if !ok || e.Index < 0 || e.Index >= len(fields) {
			return emit.Value{}, fatalf(ErrUnimplemented, e.Span, "`%s` has no field %d", fl.cx.Types.Format(baseTy), e.Index)
		}
		if base, err = fl.cx.castPtr(fl.fn, base, baseTy, e.Span); err != nil {
			return emit.Value{}, err
		}
		return fl.cx.castPtr(fl.fn, fl.fn.FieldAddr(base, e.Index), ty, e.Span)
	case tir.ExprDeref:
		// the pointer itself is read in place, never moved
		pp, err := fl.lowerPlace(operand(e))
		if err != nil {
			return emit.Value{}, err
		}
		return fl.cx.castPtr(fl.fn, fl.fn.Load(pp), ty, e.Span)
	}
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	slot := fl.fn.Alloca(r, "tmp")
	if err := fl.lowerExpr(e, saveIn(slot)); err != nil {
		return emit.Value{}, err
	}
	if fl.cx.Types.NeedsDrop(ty) && !fl.fn.Terminated() {
		fl.frame.schedule(slot, ty, cleanUnwind)
	}
	return slot, nil
}

// upvar addresses capture index of the closure environment.
func (fl *fnLowerer) upvar(index int, ty types.TypeID, sp source.Span) (emit.Value, error) {
	env := fl.frame.Env()
	if !env.IsValid() {
		return emit.Value{}, fatalf(errInvalidState, sp, "%s: upvar %d outside of a closure body", fl.name, index)
	}
	captures, err := fl.monoTypes(fl.def.Env, sp)
	if err != nil {
		return emit.Value{}, err
	}
	if index < 0 || index >= len(captures) {
		return emit.Value{}, fatalf(errInvalidState, sp, "%s: upvar %d out of %d captures", fl.name, index, len(captures))
	}
	if !fl.envPtr.IsValid() {
		er, err := fl.cx.envRepr(fl.cx.Types.Tuple(captures), sp)
		if err != nil {
			return emit.Value{}, err
		}
		fl.envPtr = fl.fn.Cast(emit.Bitcast, env, er.Ptr())
	}
	payload := fl.fn.FieldAddr(fl.envPtr, 1)
	return fl.cx.castPtr(fl.fn, fl.fn.FieldAddr(payload, index), ty, sp)
}

var signedPreds = map[tir.BinOp]emit.Predicate{
	tir.OpEq: emit.EQ, tir.OpNe: emit.NE,
	tir.OpLt: emit.SLT, tir.OpLe: emit.SLE, tir.OpGt: emit.SGT, tir.OpGe: emit.SGE,
}

var unsignedPreds = map[tir.BinOp]emit.Predicate{
	tir.OpEq: emit.EQ, tir.OpNe: emit.NE,
	tir.OpLt: emit.ULT, tir.OpLe: emit.ULE, tir.OpGt: emit.UGT, tir.OpGe: emit.UGE,
}

var arith = map[tir.BinOp]emit.BinOp{tir.OpAdd: emit.Add, tir.OpSub: emit.Sub, tir.OpMul: emit.Mul}

func (fl *fnLowerer) lowerBinary(e *tir.Expr, r emit.Type) (emit.Value, error) {
	if len(e.Elems) != 2 {
		return emit.Value{}, fatalf(errInvalidState, e.Span, "binary expression with %d operands", len(e.Elems))
	}
	if e.Op == tir.OpAnd || e.Op == tir.OpOr {
		return fl.lowerShortCircuit(e)
	}
	lhsTy, err := fl.monoType(e.Elems[0].Ty, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	a, err := fl.lowerValue(e.Elems[0])
	if err != nil {
		return emit.Value{}, err
	}
	b, err := fl.lowerValue(e.Elems[1])
	if err != nil || fl.fn.Terminated() {
		return emit.Undef(r), err
	}
	if op, ok := arith[e.Op]; ok {
		return fl.fn.Binary(op, a, b), nil
	}
	preds := unsignedPreds
	if tt, _ := fl.cx.Types.Lookup(lhsTy); tt.Kind == types.KindInt || tt.Kind == types.KindFloat {
		preds = signedPreds
	}
	if pred, ok := preds[e.Op]; ok {
		return fl.fn.Compare(pred, a, b), nil
	}
	return emit.Value{}, fatalf(ErrUnimplemented, e.Span, "unsupported binary operator %d", e.Op)
}

// lowerShortCircuit evaluates the right operand only when the left one
// does not decide the result.
func (fl *fnLowerer) lowerShortCircuit(e *tir.Expr) (emit.Value, error) {
	slot := fl.fn.Alloca(emit.I1, "sc")
	a, err := fl.lowerValue(e.Elems[0])
	if err != nil || fl.fn.Terminated() {
		return emit.Undef(emit.I1), err
	}
	fl.fn.Store(a, slot)
	rhs, join := fl.fn.NewBlock("sc.rhs"), fl.fn.NewBlock("sc.join")
	if e.Op == tir.OpAnd {
		fl.fn.CondBr(a, rhs, join)
	} else {
		fl.fn.CondBr(a, join, rhs)
	}
	fl.fn.SetInsertPoint(rhs)
	sc := fl.frame.pushScope("sc.rhs")
	b, err := fl.lowerValue(e.Elems[1])
	if err != nil {
		return emit.Value{}, err
	}
	if !fl.fn.Terminated() {
		fl.fn.Store(b, slot)
	}
	if err := fl.popScope(sc); err != nil {
		return emit.Value{}, err
	}
	if !fl.fn.Terminated() {
		fl.fn.Br(join)
	}
	fl.fn.SetInsertPoint(join)
	return fl.fn.Load(slot), nil
}

func (fl *fnLowerer) lowerIf(e *tir.Expr, d dest) error {
	cond, err := fl.lowerValue(operand(e))
	if err != nil || fl.fn.Terminated() {
		return err
	}
	then, els, join := fl.fn.NewBlock("if.then"), fl.fn.NewBlock("if.else"), fl.fn.NewBlock("if.join")
	fl.fn.CondBr(cond, then, els)
	reached := 0
	for i, blk := range []emit.Block{then, els} {
		fl.fn.SetInsertPoint(blk)
		// each arm gets its own scope so temporaries never leak into the join
		sc := fl.frame.pushScope("if.arm")
		if 1+i < len(e.Elems) {
			if err := fl.lowerExpr(e.Elems[1+i], d); err != nil {
				return err
			}
		}
		if err := fl.popScope(sc); err != nil {
			return err
		}
		if !fl.fn.Terminated() {
			fl.fn.Br(join)
			reached++
		}
	}
	fl.fn.SetInsertPoint(join)
	if reached == 0 {
		fl.fn.Unreachable()
	}
	return nil
}

func (fl *fnLowerer) lowerBlock(e *tir.Expr, d dest) error {
	sc := fl.frame.pushScope("block")
	for _, st := range e.Stmts {
		if fl.fn.Terminated() {
			break
		}
		if err := fl.lowerStmt(st); err != nil {
			return err
		}
	}
	if err := fl.lowerExpr(operand(e), d); err != nil {
		return err
	}
	return fl.popScope(sc)
}

func (fl *fnLowerer) lowerReturn(e *tir.Expr) error {
	if err := fl.lowerExpr(operand(e), fl.retDest()); err != nil {
		return err
	}
	if fl.fn.Terminated() {
		return nil
	}
	return fl.branchOut(0, fl.frame.ReturnBlock())
}

func (fl *fnLowerer) lowerFail(e *tir.Expr) error {
	if _, err := fl.emitCall(fl.cx.runtime(rtFail), nil, emit.Void); err != nil {
		return err
	}
	fl.fn.Unreachable()
	return nil
}

// fieldTemps collects cleanups of fields already written into a
// partially built value; they are revoked once the value is complete.
type fieldTemps []*CleanupHandle

func (ft fieldTemps) revoke() {
	for _, h := range ft {
		h.Revoke()
	}
}

// lowerFields writes elems into consecutive fields of base.
func (fl *fnLowerer) lowerFields(base emit.Value, elems []*tir.Expr, fields []types.TypeID) error {
	var built fieldTemps
	defer built.revoke()
	for i, el := range elems {
		fp := fl.fn.FieldAddr(base, i)
		if err := fl.lowerExpr(el, saveIn(fp)); err != nil {
			return err
		}
		if fl.fn.Terminated() {
			return nil
		}
		if fl.cx.Types.NeedsDrop(fields[i]) {
			built = append(built, fl.frame.schedule(fp, fields[i], cleanUnwind))
		}
	}
	return nil
}

// spillIgnored gives an ignored owned aggregate a slot so it can be
// dropped after construction.
func (fl *fnLowerer) spillIgnored(e *tir.Expr, ty types.TypeID, build func(dest) error) error {
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return err
	}
	slot := fl.fn.Alloca(r, "discard")
	if err := build(saveIn(slot)); err != nil || fl.fn.Terminated() {
		return err
	}
	return fl.cx.dropInPlace(fl.fn, slot, ty, e.Span)
}

func (fl *fnLowerer) lowerAggregate(e *tir.Expr, ty types.TypeID, d dest) error {
	fields, ok := fl.cx.Types.Fields(ty)
	if !ok || len(fields) != len(e.Elems) {
		return fatalf(ErrUnimplemented, e.Span, "%s expression does not match `%s`", e.Kind, fl.cx.Types.Format(ty))
	}
	if d.kind == destIgnore {
		if fl.cx.Types.NeedsDrop(ty) {
			return fl.spillIgnored(e, ty, func(d dest) error { return fl.lowerAggregate(e, ty, d) })
		}
		for _, el := range e.Elems {
			if err := fl.lowerExpr(el, ignore); err != nil {
				return err
			}
		}
		return nil
	}
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return err
	}
	if fl.cx.Layout.IsImmediate(ty) && !fl.cx.Types.NeedsDrop(ty) {
		// build the value in registers and store it once
		agg := emit.Undef(r)
		parts := r.Fields()
		for i, el := range e.Elems {
			v, err := fl.lowerValue(el)
			if err != nil || fl.fn.Terminated() {
				return err
			}
			if fl.cx.isVoid(fields[i]) {
				continue
			}
			agg = fl.fn.InsertValue(agg, coerce(fl.fn, v, parts[i]), i)
		}
		fl.fn.Store(agg, coerce(fl.fn, d.ptr, r.Ptr()))
		return nil
	}
	return fl.lowerFields(coerce(fl.fn, d.ptr, r.Ptr()), e.Elems, fields)
}

// lowerEnum writes the payload first and the tag last.
func (fl *fnLowerer) lowerEnum(e *tir.Expr, ty types.TypeID, d dest) error {
	variants, ok := fl.cx.Types.Variants(ty)
	if !ok || e.Index < 0 || e.Index >= len(variants) {
		return fatalf(ErrUnimplemented, e.Span, "`%s` has no variant %d", fl.cx.Types.Format(ty), e.Index)
	}
	v := variants[e.Index]
	if len(v.Fields) != len(e.Elems) {
		return fatalf(ErrUnimplemented, e.Span, "variant `%s` takes %d fields, got %d", v.Name, len(v.Fields), len(e.Elems))
	}
	if d.kind == destIgnore {
		return fl.spillIgnored(e, ty, func(d dest) error { return fl.lowerEnum(e, ty, d) })
	}
	base, err := fl.cx.castPtr(fl.fn, d.ptr, ty, e.Span)
	if err != nil {
		return err
	}
	if len(v.Fields) > 0 && len(base.Ty.Elem().Fields()) > 1 {
		vr, err := fl.cx.variantRepr(v.Fields, e.Span)
		if err != nil {
			return err
		}
		payload := fl.fn.Cast(emit.Bitcast, fl.fn.FieldAddr(base, 1), vr.Ptr())
		if err := fl.lowerFields(payload, e.Elems, v.Fields); err != nil || fl.fn.Terminated() {
			return err
		}
	}
	fl.fn.Store(emit.Const(emit.I32, v.Discr), fl.fn.FieldAddr(base, 0))
	return nil
}

// lowerBox allocates the box, builds the value in it and yields the pointer.
func (fl *fnLowerer) lowerBox(e *tir.Expr, ty types.TypeID, d dest) error {
	tt, _ := fl.cx.Types.Lookup(ty)
	if tt.Kind != types.KindPointer {
		return fatalf(ErrUnimplemented, e.Span, "box expression of non-pointer type `%s`", fl.cx.Types.Format(ty))
	}
	size, err := fl.cx.Layout.SizeOf(tt.Elem)
	if err != nil {
		return fatalf(ErrUnimplemented, e.Span, "box of `%s`: %v", fl.cx.Types.Format(tt.Elem), err)
	}
	raw, err := fl.emitCall(fl.cx.runtime(rtMalloc), []emit.Value{emit.Const(emit.I64, int64(size))}, emit.Opaque)
	if err != nil {
		return err
	}
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return err
	}
	p := coerce(fl.fn, raw, r)
	if err := fl.lowerExpr(operand(e), saveIn(p)); err != nil || fl.fn.Terminated() {
		return err
	}
	return fl.storeValue(p, ty, d, e)
}

// lowerClosure builds the code/environment pair. The environment lives
// on the heap behind a header pointing at its drop glue.
func (fl *fnLowerer) lowerClosure(e *tir.Expr, ty types.TypeID, d dest) error {
	def, err := fl.cx.fnDef(e.Def, e.Span)
	if err != nil {
		return err
	}
	if !def.IsClosure {
		return fatalf(errInvalidState, e.Span, "`%s` is not a closure body", def.Name)
	}
	typeArgs, err := fl.monoTypes(e.TypeArgs, e.Span)
	if err != nil {
		return err
	}
	caps, err := fl.concreteCaps(e.Caps, e.Span)
	if err != nil {
		return err
	}
	code, err := fl.cx.fnValue(def, typeArgs, caps, fl.site(e.Span))
	if err != nil {
		return err
	}
	captureTys := fl.cx.Types.ApplyAll(types.Subst{Types: typeArgs}, def.Env)
	if len(captureTys) != len(e.Elems) {
		return fatalf(ErrUnimplemented, e.Span, "closure `%s` captures %d values, got %d", def.Name, len(captureTys), len(e.Elems))
	}
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return err
	}
	env := emit.Null(emit.Opaque)
	if len(captureTys) > 0 {
		if env, err = fl.buildEnv(e, captureTys); err != nil || fl.fn.Terminated() {
			return err
		}
	}
	parts := r.Fields()
	pair := fl.fn.InsertValue(emit.Undef(r), coerce(fl.fn, code, parts[0]), 0)
	pair = fl.fn.InsertValue(pair, env, 1)
	return fl.storeValue(pair, ty, d, e)
}

func (fl *fnLowerer) buildEnv(e *tir.Expr, captureTys []types.TypeID) (emit.Value, error) {
	captures := fl.cx.Types.Tuple(captureTys)
	if fl.cx.Types.HasParams(captures) {
		return emit.Value{}, fatalf(ErrUnresolvedGeneric, e.Span, "closure captures generic `%s`", fl.cx.Types.Format(captures))
	}
	hdr := fl.cx.Types.Pointer(types.OwnShared, fl.cx.Types.Builtins().Unit)
	size, err := fl.cx.Layout.SizeOf(fl.cx.Types.Tuple([]types.TypeID{hdr, captures}))
	if err != nil {
		return emit.Value{}, fatalf(ErrUnimplemented, e.Span, "closure environment: %v", err)
	}
	er, err := fl.cx.envRepr(captures, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	glue, err := fl.cx.envGlue(captures, e.Span)
	if err != nil {
		return emit.Value{}, err
	}
	raw, err := fl.emitCall(fl.cx.runtime(rtMalloc), []emit.Value{emit.Const(emit.I64, int64(size))}, emit.Opaque)
	if err != nil {
		return emit.Value{}, err
	}
	envp := fl.fn.Cast(emit.Bitcast, raw, er.Ptr())
	fl.fn.Store(coerce(fl.fn, glue.Fn, envHeader), fl.fn.FieldAddr(envp, 0))
	if err := fl.lowerFields(fl.fn.FieldAddr(envp, 1), e.Elems, captureTys); err != nil {
		return emit.Value{}, err
	}
	return raw, nil
}

// lowerToDyn pairs a data pointer with the vtable of a concrete impl.
// An owned object takes over a ~T and frees it through vtable slot 0;
// a borrowed one only accepts &T.
func (fl *fnLowerer) lowerToDyn(e *tir.Expr, ty types.TypeID, d dest) error {
	if e.Cap == nil || operand(e) == nil {
		return fatalf(errInvalidState, e.Span, "trait object coercion without a capability or an operand")
	}
	src, err := fl.monoType(operand(e).Ty, e.Span)
	if err != nil {
		return err
	}
	from, _ := fl.cx.Types.Lookup(src)
	to, _ := fl.cx.Types.Lookup(ty)
	if from.Kind != types.KindPointer {
		return fatalf(errInvalidState, e.Span, "trait object coercion from non-pointer `%s`", fl.cx.Types.Format(src))
	}
	switch {
	case from.Own == types.OwnBox || to.Own == types.OwnBox:
		return fatalf(ErrUnimplemented, e.Span, "managed box `%s` cannot become a trait object", fl.cx.Types.Format(src))
	case from.Own != to.Own:
		return fatalf(ErrUnimplemented, e.Span, "coercing `%s` to `%s` changes ownership", fl.cx.Types.Format(src), fl.cx.Types.Format(ty))
	}
	c, err := fl.concreteCap(*e.Cap, e.Span)
	if err != nil {
		return err
	}
	vt, err := fl.cx.vtable(c, fl.site(e.Span))
	if err != nil {
		return err
	}
	data, err := fl.lowerValue(operand(e))
	if err != nil || fl.fn.Terminated() {
		return err
	}
	pair := fl.fn.InsertValue(emit.Undef(dynRepr), coerce(fl.fn, data, emit.Opaque), 0)
	pair = fl.fn.InsertValue(pair, coerce(fl.fn, vt, emit.Opaque.Ptr()), 1)
	return fl.storeValue(pair, ty, d, e)
}

// lowerAssign evaluates the new value before dropping the old one.
func (fl *fnLowerer) lowerAssign(e *tir.Expr) error {
	if len(e.Elems) != 2 {
		return fatalf(errInvalidState, e.Span, "assignment with %d operands", len(e.Elems))
	}
	lhs, rhs := e.Elems[0], e.Elems[1]
	ty, err := fl.monoType(lhs.Ty, lhs.Span)
	if err != nil {
		return err
	}
	if !fl.cx.Types.NeedsDrop(ty) {
		ptr, err := fl.lowerPlace(lhs)
		if err != nil {
			return err
		}
		return fl.lowerExpr(rhs, saveIn(ptr))
	}
	r, err := fl.cx.repr(ty, e.Span)
	if err != nil {
		return err
	}
	tmp := fl.fn.Alloca(r, "assign")
	if err := fl.lowerExpr(rhs, saveIn(tmp)); err != nil || fl.fn.Terminated() {
		return err
	}
	ptr, err := fl.lowerPlace(lhs)
	if err != nil {
		return err
	}
	if err := fl.cx.dropInPlace(fl.fn, ptr, ty, e.Span); err != nil {
		return err
	}
	fl.fn.Store(fl.fn.Load(tmp), ptr)
	return nil
}
