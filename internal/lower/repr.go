package lower

import (
	"trans/internal/emit"
	"trans/internal/source"
	"trans/internal/types"
)

// fnABI describes how a function type is called: which parameters travel
// by pointer and whether the result comes back through a hidden slot.
// A parameter travels by pointer when its type is not immediate or when
// the function type declares it by reference.
//
// Lowered parameter order: [hidden return pointer] [env or receiver] params.
type fnABI struct {
	ret         types.TypeID
	retIndirect bool
	hasEnv      bool // closure environment or dyn receiver, both i8*
	params      []types.TypeID
	indirect    []bool
	byRef       []bool
	sig         emit.Signature
}

// formal returns the lowered type of the i-th declared parameter.
func (a *fnABI) formal(i int) emit.Type {
	off := len(a.sig.Params) - len(a.params)
	return a.sig.Params[off+i]
}

// isVoid reports types lowered to no value at all.
func (cx *Context) isVoid(ty types.TypeID) bool {
	tt, ok := cx.Types.Lookup(ty)
	return ok && (tt.Kind == types.KindUnit || tt.Kind == types.KindNever)
}

func (cx *Context) isNever(ty types.TypeID) bool {
	tt, ok := cx.Types.Lookup(ty)
	return ok && tt.Kind == types.KindNever
}

func (cx *Context) abiOf(fnTy types.TypeID, hasEnv bool, sp source.Span) (*fnABI, error) {
	return cx.abiIn(fnTy, hasEnv, sp, nil)
}

func (cx *Context) abiIn(fnTy types.TypeID, hasEnv bool, sp source.Span, visiting map[types.TypeID]bool) (*fnABI, error) {
	info, ok := cx.Types.FnInfo(fnTy)
	if !ok {
		return nil, fatalf(ErrUnimplemented, sp, "`%s` is not callable", cx.Types.Format(fnTy))
	}
	return cx.abiOfParts(info.Params, info.ByRef, info.Result, info.CC, hasEnv, sp, visiting)
}

func (cx *Context) abiOfParts(params []types.TypeID, byRef []bool, ret types.TypeID, cc types.CallConv, hasEnv bool, sp source.Span, visiting map[types.TypeID]bool) (*fnABI, error) {
	for _, p := range append([]types.TypeID{ret}, params...) {
		if cx.Types.HasParams(p) {
			return nil, fatalf(ErrUnresolvedGeneric, sp, "signature mentions generic type `%s`", cx.Types.Format(p))
		}
	}
	a := &fnABI{
		ret:      ret,
		hasEnv:   hasEnv,
		params:   params,
		indirect: make([]bool, len(params)),
		byRef:    make([]bool, len(params)),
	}
	copy(a.byRef, byRef)
	if cc == types.CCC {
		a.sig.Conv = emit.ConvC
	}
	retRepr, err := cx.reprWith(ret, sp, visiting)
	if err != nil {
		return nil, err
	}
	switch {
	case cx.isVoid(ret):
		a.sig.Ret = emit.Void
	case !cx.Layout.IsImmediate(ret):
		a.retIndirect = true
		a.sig.Ret = emit.Void
		a.sig.Params = append(a.sig.Params, retRepr.Ptr())
	default:
		a.sig.Ret = retRepr
	}
	if hasEnv {
		a.sig.Params = append(a.sig.Params, emit.Opaque)
	}
	for i, p := range params {
		r, err := cx.reprWith(p, sp, visiting)
		if err != nil {
			return nil, err
		}
		if a.byRef[i] || !cx.Layout.IsImmediate(p) {
			a.indirect[i] = true
			r = r.Ptr()
		}
		a.sig.Params = append(a.sig.Params, r)
	}
	return a, nil
}

// repr returns the backend representation of a concrete type.
func (cx *Context) repr(ty types.TypeID, sp source.Span) (emit.Type, error) {
	return cx.reprWith(ty, sp, nil)
}

func (cx *Context) reprWith(ty types.TypeID, sp source.Span, visiting map[types.TypeID]bool) (emit.Type, error) {
	if visiting == nil {
		if v, ok := cx.reprs.Load(ty); ok {
			return v.(emit.Type), nil
		}
		r, err := cx.reprIn(ty, sp, make(map[types.TypeID]bool))
		if err != nil {
			return "", err
		}
		cx.reprs.Store(ty, r)
		return r, nil
	}
	return cx.reprIn(ty, sp, visiting)
}

// reprIn lowers ty. A pointer back into a type that is still being
// lowered becomes i8*; users cast it when they dereference.
func (cx *Context) reprIn(ty types.TypeID, sp source.Span, visiting map[types.TypeID]bool) (emit.Type, error) {
	tt, ok := cx.Types.Lookup(ty)
	if !ok {
		return "", fatalf(ErrUnimplemented, sp, "unknown type #%d", ty)
	}
	switch tt.Kind {
	case types.KindNever, types.KindUnit:
		return emit.Struct(), nil
	case types.KindBool:
		return emit.I1, nil
	case types.KindChar:
		return emit.I32, nil
	case types.KindInt, types.KindUint:
		return emit.Int(int(tt.Width)), nil
	case types.KindFloat:
		return emit.Float(int(tt.Width)), nil
	case types.KindPointer:
		if visiting[tt.Elem] {
			return emit.Opaque, nil
		}
		elem, err := cx.reprIn(tt.Elem, sp, visiting)
		if err != nil {
			return "", err
		}
		return elem.Ptr(), nil
	case types.KindStruct, types.KindTuple:
		if visiting[ty] {
			return "", fatalf(ErrUnimplemented, sp, "type `%s` contains itself by value", cx.Types.Format(ty))
		}
		visiting[ty] = true
		defer delete(visiting, ty)
		fields, _ := cx.Types.Fields(ty)
		parts := make([]emit.Type, len(fields))
		for i, f := range fields {
			r, err := cx.reprIn(f, sp, visiting)
			if err != nil {
				return "", err
			}
			parts[i] = r
		}
		return emit.Struct(parts...), nil
	case types.KindEnum:
		l, err := cx.Layout.LayoutOf(ty)
		if err != nil {
			return "", fatalf(ErrUnimplemented, sp, "enum `%s`: %v", cx.Types.Format(ty), err)
		}
		if n := l.Size - l.PayloadOffset; n > 0 {
			return emit.Struct(emit.I32, emit.Array(n, emit.I8)), nil
		}
		return emit.Struct(emit.I32), nil
	case types.KindFn:
		a, err := cx.abiIn(ty, false, sp, visiting)
		if err != nil {
			return "", err
		}
		return emit.FuncPtr(a.sig), nil
	case types.KindClosure:
		a, err := cx.abiIn(tt.Elem, true, sp, visiting)
		if err != nil {
			return "", err
		}
		return emit.Struct(emit.FuncPtr(a.sig), emit.Opaque), nil
	case types.KindDyn:
		return dynRepr, nil
	case types.KindArray:
		elem, err := cx.reprIn(tt.Elem, sp, visiting)
		if err != nil {
			return "", err
		}
		return emit.Array(int(tt.Count), elem), nil
	case types.KindString:
		return emit.Array(int(tt.Count), emit.I8), nil
	case types.KindParam:
		return "", fatalf(ErrUnresolvedGeneric, sp, "type `%s` is still generic", cx.Types.Format(ty))
	}
	return "", fatalf(ErrUnimplemented, sp, "cannot represent %s type `%s`", tt.Kind, cx.Types.Format(ty))
}

// dynRepr is a trait object: data pointer and vtable pointer.
var dynRepr = emit.Struct(emit.Opaque, emit.Opaque.Ptr())

// variantRepr is the shape of one enum variant's payload.
func (cx *Context) variantRepr(fields []types.TypeID, sp source.Span) (emit.Type, error) {
	parts := make([]emit.Type, len(fields))
	for i, f := range fields {
		r, err := cx.repr(f, sp)
		if err != nil {
			return "", err
		}
		parts[i] = r
	}
	return emit.Struct(parts...), nil
}

// castPtr makes ptr a pointer to ty's representation.
func (cx *Context) castPtr(b emit.Builder, ptr emit.Value, ty types.TypeID, sp source.Span) (emit.Value, error) {
	r, err := cx.repr(ty, sp)
	if err != nil {
		return emit.Value{}, err
	}
	return coerce(b, ptr, r.Ptr()), nil
}

// coerce bitcasts v to want when the representations differ.
func coerce(b emit.Builder, v emit.Value, want emit.Type) emit.Value {
	if v.Ty == want || !v.IsValid() {
		return v
	}
	if v.Ref == "undef" {
		return emit.Undef(want)
	}
	return b.Cast(emit.Bitcast, v, want)
}
