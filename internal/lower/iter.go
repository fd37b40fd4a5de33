package lower

import (
	"trans/internal/emit"
	"trans/internal/source"
	"trans/internal/types"
)

// visitFn is called once per field or element with a typed pointer to it.
type visitFn func(b emit.Builder, ptr emit.Value, ty types.TypeID) error

// iterStructural visits the immediate components of the value at ptr.
// Struct and tuple fields come in declaration order, array elements in
// index order. For enums the tag is loaded once and control switches to
// the active variant; an unknown tag is unreachable.
func (cx *Context) iterStructural(b emit.Builder, ptr emit.Value, ty types.TypeID, visit visitFn) error {
	tt, ok := cx.Types.Lookup(ty)
	if !ok {
		return fatalf(ErrUnimplemented, source.NoSpan, "unknown type #%d", ty)
	}
	base, err := cx.castPtr(b, ptr, ty, source.NoSpan)
	if err != nil {
		return err
	}
	switch tt.Kind {
	case types.KindStruct, types.KindTuple:
		fields, _ := cx.Types.Fields(ty)
		for i, f := range fields {
			fp := b.FieldAddr(base, i)
			if err := visit(b, fp, f); err != nil {
				return err
			}
		}
		return nil
	case types.KindArray, types.KindString:
		elem := tt.Elem
		if tt.Kind == types.KindString {
			elem = cx.Types.Builtins().Uint8
		}
		return cx.iterElements(b, base, elem, int64(tt.Count), visit)
	case types.KindEnum:
		return cx.iterVariants(b, base, ty, visit)
	}
	return fatalf(ErrUnimplemented, source.NoSpan, "cannot iterate over %s type `%s`", tt.Kind, cx.Types.Format(ty))
}

func (cx *Context) iterElements(b emit.Builder, base emit.Value, elem types.TypeID, count int64, visit visitFn) error {
	if count == 0 {
		return nil
	}
	idx := b.Alloca(emit.I64, "iter.idx")
	b.Store(emit.Const(emit.I64, 0), idx)
	header := b.NewBlock("iter.header")
	body := b.NewBlock("iter.body")
	exit := b.NewBlock("iter.exit")
	b.Br(header)

	b.SetInsertPoint(header)
	i := b.Load(idx)
	b.CondBr(b.Compare(emit.ULT, i, emit.Const(emit.I64, count)), body, exit)

	b.SetInsertPoint(body)
	ep, err := cx.castPtr(b, b.ElemAddr(base, i), elem, source.NoSpan)
	if err != nil {
		return err
	}
	if err := visit(b, ep, elem); err != nil {
		return err
	}
	if !b.Terminated() {
		b.Store(b.Binary(emit.Add, b.Load(idx), emit.Const(emit.I64, 1)), idx)
		b.Br(header)
	}
	b.SetInsertPoint(exit)
	return nil
}

func (cx *Context) iterVariants(b emit.Builder, base emit.Value, ty types.TypeID, visit visitFn) error {
	variants, _ := cx.Types.Variants(ty)
	tag := b.Load(b.FieldAddr(base, 0))
	if len(variants) == 0 {
		return nil
	}
	payload := func(v types.VariantInfo) error {
		if len(v.Fields) == 0 || len(base.Ty.Elem().Fields()) < 2 {
			return nil
		}
		vr, err := cx.variantRepr(v.Fields, source.NoSpan)
		if err != nil {
			return err
		}
		p := b.Cast(emit.Bitcast, b.FieldAddr(base, 1), vr.Ptr())
		for i, f := range v.Fields {
			if err := visit(b, b.FieldAddr(p, i), f); err != nil {
				return err
			}
		}
		return nil
	}
	if len(variants) == 1 {
		return payload(variants[0])
	}

	join := b.NewBlock("enum.join")
	unknown := b.NewBlock("enum.unreachable")
	cases := make([]emit.SwitchCase, len(variants))
	arms := make([]emit.Block, len(variants))
	for i, v := range variants {
		arms[i] = b.NewBlock("enum.variant")
		cases[i] = emit.SwitchCase{Value: v.Discr, Dest: arms[i]}
	}
	b.Switch(tag, unknown, cases)
	b.SetInsertPoint(unknown)
	b.Unreachable()
	for i, v := range variants {
		b.SetInsertPoint(arms[i])
		if err := payload(v); err != nil {
			return err
		}
		if !b.Terminated() {
			b.Br(join)
		}
	}
	b.SetInsertPoint(join)
	return nil
}
