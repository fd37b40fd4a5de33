package types

import (
	"fmt"
	"strconv"
)

// AdtKind separates product and sum definitions.
type AdtKind uint8

const (
	AdtStruct AdtKind = iota
	AdtEnum
)

// FieldDef is a named field. Its type may mention Param(i) for i < Params.
type FieldDef struct {
	Name string
	Type TypeID
}

// VariantDef describes one enum variant.
type VariantDef struct {
	Name   string
	Discr  int64
	Fields []FieldDef
}

// AdtDef is a generic struct or enum definition.
type AdtDef struct {
	Name     string
	Kind     AdtKind
	Params   int
	Fields   []FieldDef
	Variants []VariantDef
	// Dtor is the DefID of a user destructor taking &Self, or 0.
	Dtor uint32
}

// AdtInst is one instantiation of a definition.
type AdtInst struct {
	Adt  AdtID
	Args []TypeID
}

// VariantInfo is a variant with the instance arguments already applied.
type VariantInfo struct {
	Name   string
	Discr  int64
	Fields []TypeID
}

// DefineAdt registers a definition. Fields and variants may be attached
// later with SetFields/SetVariants so recursive types can refer to themselves.
func (in *Interner) DefineAdt(def AdtDef) AdtID {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.adts = append(in.adts, def)
	return AdtID(slot(len(in.adts)-1, "adt def"))
}

// SetFields replaces the struct fields of a definition.
func (in *Interner) SetFields(id AdtID, fields []FieldDef) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id == 0 || int(id) >= len(in.adts) {
		panic(fmt.Sprintf("types: unknown AdtID %d", id))
	}
	in.adts[id].Fields = append([]FieldDef(nil), fields...)
}

// SetVariants replaces the variants of an enum definition.
func (in *Interner) SetVariants(id AdtID, variants []VariantDef) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id == 0 || int(id) >= len(in.adts) {
		panic(fmt.Sprintf("types: unknown AdtID %d", id))
	}
	in.adts[id].Variants = append([]VariantDef(nil), variants...)
}

// AdtDef returns a copy of the definition.
func (in *Interner) AdtDef(id AdtID) (AdtDef, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == 0 || int(id) >= len(in.adts) {
		return AdtDef{}, false
	}
	return in.adts[id], true
}

// Adt interns the instance of a definition with the given arguments.
func (in *Interner) Adt(id AdtID, args []TypeID) TypeID {
	def, ok := in.AdtDef(id)
	if !ok {
		panic(fmt.Sprintf("types: unknown AdtID %d", id))
	}
	if len(args) != def.Params {
		panic(fmt.Sprintf("types: %s expects %d type args, got %d", def.Name, def.Params, len(args)))
	}
	kind := KindStruct
	if def.Kind == AdtEnum {
		kind = KindEnum
	}
	return in.intern(Type{Kind: kind}, adtKey(id, args), func(t *Type) {
		in.insts = append(in.insts, AdtInst{Adt: id, Args: cloneTypeArgs(args)})
		t.Payload = slot(len(in.insts)-1, "adt instance")
	})
}

// AdtOf returns the definition id and arguments of a struct or enum type.
func (in *Interner) AdtOf(id TypeID) (AdtInst, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return AdtInst{}, false
	}
	tt := in.types[id]
	if tt.Kind != KindStruct && tt.Kind != KindEnum {
		return AdtInst{}, false
	}
	return in.insts[tt.Payload], true
}

// Dtor returns the destructor DefID of the type's definition, if any.
func (in *Interner) Dtor(id TypeID) (uint32, bool) {
	inst, ok := in.AdtOf(id)
	if !ok {
		return 0, false
	}
	def, _ := in.AdtDef(inst.Adt)
	return def.Dtor, def.Dtor != 0
}

// Fields returns the element types of a struct or tuple in declaration order,
// substituted with the instance's arguments.
func (in *Interner) Fields(id TypeID) ([]TypeID, bool) {
	tt, ok := in.Lookup(id)
	if !ok {
		return nil, false
	}
	switch tt.Kind {
	case KindTuple:
		return in.TupleElems(id)
	case KindStruct:
		inst, _ := in.AdtOf(id)
		def, _ := in.AdtDef(inst.Adt)
		s := Subst{Types: inst.Args}
		out := make([]TypeID, len(def.Fields))
		for i, f := range def.Fields {
			out[i] = in.Apply(s, f.Type)
		}
		return out, true
	default:
		return nil, false
	}
}

// Variants returns the variants of an enum type with the enum's own type
// arguments applied to every field.
func (in *Interner) Variants(id TypeID) ([]VariantInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindEnum {
		return nil, false
	}
	inst, _ := in.AdtOf(id)
	def, _ := in.AdtDef(inst.Adt)
	s := Subst{Types: inst.Args}
	out := make([]VariantInfo, len(def.Variants))
	for i, v := range def.Variants {
		fields := make([]TypeID, len(v.Fields))
		for j, f := range v.Fields {
			fields[j] = in.Apply(s, f.Type)
		}
		out[i] = VariantInfo{Name: v.Name, Discr: v.Discr, Fields: fields}
	}
	return out, true
}

func adtKey(id AdtID, args []TypeID) string {
	return listKey("adt"+strconv.FormatUint(uint64(id), 10), args)
}
