package lower

import (
	"trans/internal/emit"
)

// lowerIntrinsic emits the body of a compiler-provided function. Every
// intrinsic but abort is generic over one type, its first type argument.
func (fl *fnLowerer) lowerIntrinsic() error {
	if err := fl.expect(stateFrameBuilt); err != nil {
		return err
	}
	sp := fl.def.Span
	if fl.def.Intrinsic == "abort" {
		fl.fn.Call(fl.cx.runtime(rtFail), nil, emit.Void)
		fl.fn.Unreachable()
		return fl.seal()
	}
	if len(fl.subst.Types) == 0 {
		return fatalf(ErrUnresolvedGeneric, sp, "intrinsic `%s` instantiated without a type argument", fl.def.Intrinsic)
	}
	ty := fl.subst.Types[0]
	f := fl.frame
	switch fl.def.Intrinsic {
	case "size_of", "align_of":
		get := fl.cx.Layout.SizeOf
		if fl.def.Intrinsic == "align_of" {
			get = fl.cx.Layout.AlignOf
		}
		n, err := get(ty)
		if err != nil {
			return fatalf(ErrUnimplemented, sp, "%s::<%s>: %v", fl.def.Intrinsic, fl.cx.Types.Format(ty), err)
		}
		fl.fn.Ret(emit.Const(f.abi.sig.Ret, int64(n)))
	case "hash":
		if len(f.Params) != 1 || f.abi.sig.Ret != emit.I64 {
			return fatalf(ErrUnimplemented, sp, "hash::<%s> must take one pointer and return u64", fl.cx.Types.Format(ty))
		}
		g, err := fl.cx.hashGlue(ty, sp)
		if err != nil {
			return err
		}
		fl.fn.Ret(fl.fn.Call(g.Fn, []emit.Value{coerce(fl.fn, f.Params[0], g.Sig.Params[0])}, emit.I64))
	case "drop":
		if len(f.Params) != 1 {
			return fatalf(ErrUnimplemented, sp, "drop::<%s> must take one value", fl.cx.Types.Format(ty))
		}
		ptr := f.Params[0]
		if !f.abi.indirect[0] {
			ptr = fl.fn.Alloca(ptr.Ty, "dropped")
			fl.fn.Store(f.Params[0], ptr)
		}
		if err := fl.cx.dropInPlace(fl.fn, ptr, ty, sp); err != nil {
			return err
		}
		fl.fn.RetVoid()
	default:
		return fatalf(ErrUnimplemented, sp, "unknown intrinsic `%s`", fl.def.Intrinsic)
	}
	return fl.seal()
}

func (fl *fnLowerer) seal() error {
	if err := fl.fn.Finish(); err != nil {
		return fatalf(errInvalidState, fl.def.Span, "%v", err)
	}
	fl.state = stateFinished
	return nil
}
