package lower

import (
	"trans/internal/emit"
	"trans/internal/tir"
)

func (fl *fnLowerer) lowerStmt(st *tir.Stmt) error {
	switch st.Kind {
	case tir.StmtExpr:
		return fl.lowerExpr(st.Expr, ignore)
	case tir.StmtLet:
		return fl.lowerLet(st)
	}
	return fatalf(ErrUnimplemented, st.Span, "unsupported statement kind %d", st.Kind)
}

// lowerLet binds a local. A plain binding is initialized in its own slot;
// a destructuring one spills the initializer and moves fields out of it.
func (fl *fnLowerer) lowerLet(st *tir.Stmt) error {
	pat := st.Pat
	if pat == nil {
		return fatalf(errInvalidState, st.Span, "let without a pattern")
	}
	ty, err := fl.monoType(pat.Ty, pat.Span)
	if err != nil {
		return err
	}
	r, err := fl.cx.repr(ty, pat.Span)
	if err != nil {
		return err
	}
	switch {
	case pat.Kind == tir.PatBind:
		slot := fl.fn.Alloca(r, pat.Name)
		if st.Init != nil {
			if err := fl.lowerExpr(st.Init, saveIn(slot)); err != nil {
				return err
			}
		} else {
			fl.fn.Store(emit.Zero(r), slot)
		}
		if fl.fn.Terminated() {
			return nil
		}
		fl.frame.bind(pat.Local, slot)
		if fl.cx.Types.NeedsDrop(ty) {
			fl.frame.schedule(slot, ty, cleanUnwind)
		}
		return nil
	case st.Init == nil:
		slot := fl.fn.Alloca(r, "uninit")
		fl.fn.Store(emit.Zero(r), slot)
		return fl.bindPattern(pat, slot, ty, false)
	case pat.Kind == tir.PatWild:
		return fl.lowerExpr(st.Init, ignore)
	}
	src, err := fl.lowerPlace(st.Init)
	if err != nil || fl.fn.Terminated() {
		return err
	}
	return fl.bindPattern(pat, src, ty, false)
}
