package layout

import (
	"fortio.org/safecast"

	"trans/internal/types"
)

func (e *LayoutEngine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return unsized, e.errorf(LayoutErrUnknownType, id)
	}

	switch tt.Kind {
	case types.KindUnit, types.KindNever:
		return TypeLayout{Size: 0, Align: 1}, nil

	case types.KindBool:
		return TypeLayout{Size: 1, Align: 1}, nil

	case types.KindChar:
		return scalarLayoutBytes(4), nil

	case types.KindInt, types.KindUint, types.KindFloat:
		return scalarLayoutBytes(int(tt.Width) / 8), nil

	case types.KindPointer, types.KindFn:
		return e.ptrLayout(), nil

	case types.KindClosure, types.KindDyn:
		// (code, env) and (data, vtable) pairs
		return e.pairLayout(), nil

	case types.KindString:
		return e.arrayFixedLayout(id, e.Types.Builtins().Uint8, tt.Count, state)

	case types.KindArray:
		return e.arrayFixedLayout(id, tt.Elem, tt.Count, state)

	case types.KindStruct, types.KindTuple:
		fields, _ := e.Types.Fields(id)
		return e.sequenceLayout(fields, state)

	case types.KindEnum:
		return e.enumLayout(id, state)

	case types.KindParam:
		return unsized, e.errorf(LayoutErrGeneric, id)

	default:
		return unsized, e.errorf(LayoutErrUnknownType, id)
	}
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func (e *LayoutEngine) pairLayout() TypeLayout {
	p := e.ptrLayout()
	return TypeLayout{
		Size:         2 * p.Size,
		Align:        p.Align,
		FieldOffsets: []int{0, p.Size},
		FieldAligns:  []int{p.Align, p.Align},
	}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func (e *LayoutEngine) arrayFixedLayout(id, elem types.TypeID, length uint32, state *layoutState) (TypeLayout, *LayoutError) {
	n, convErr := safecast.Conv[int](length)
	if convErr != nil {
		err := e.errorf(LayoutErrLengthConversion, id)
		err.Err = convErr
		return unsized, err
	}
	elemLayout, err := e.layoutOf(elem, state)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	elemAlign := max(elemLayout.Align, 1)
	stride := roundUp(elemLayout.Size, elemAlign)
	return TypeLayout{
		Size:  stride * n,
		Align: elemAlign,
	}, nil
}

func (e *LayoutEngine) sequenceLayout(fields []types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if len(fields) == 0 {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	offsets := make([]int, len(fields))
	aligns := make([]int, len(fields))
	size := 0
	align := 1
	for i, f := range fields {
		fl, err := e.layoutOf(f, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := max(fl.Align, 1)
		size = roundUp(size, fAlign)
		offsets[i] = size
		aligns[i] = fAlign
		size += fl.Size
		align = max(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{
		Size:         size,
		Align:        align,
		FieldOffsets: offsets,
		FieldAligns:  aligns,
	}, nil
}

func (e *LayoutEngine) enumLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	variants, _ := e.Types.Variants(id)

	maxPayloadSize := 0
	payloadAlign := 1
	for _, v := range variants {
		pl, err := e.sequenceLayout(v.Fields, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		maxPayloadSize = max(maxPayloadSize, pl.Size)
		payloadAlign = max(payloadAlign, pl.Align)
	}

	// tag:uint32 then payload aligned up to payloadAlign.
	tagSize := 4
	tagAlign := 4
	payloadOffset := roundUp(tagSize, payloadAlign)
	overallAlign := max(tagAlign, payloadAlign)
	size := roundUp(payloadOffset+maxPayloadSize, overallAlign)
	return TypeLayout{
		Size:          size,
		Align:         overallAlign,
		TagSize:       tagSize,
		TagAlign:      tagAlign,
		PayloadOffset: payloadOffset,
	}, nil
}
