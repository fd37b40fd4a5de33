package types

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Never   TypeID
	Unit    TypeID
	Bool    TypeID
	Char    TypeID
	Int8    TypeID
	Int16   TypeID
	Int32   TypeID
	Int64   TypeID
	Uint8   TypeID
	Uint16  TypeID
	Uint32  TypeID
	Uint64  TypeID
	Float32 TypeID
	Float64 TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Lowering runs in parallel and substitution interns new types, so every
// method is safe for concurrent use.
type Interner struct {
	mu       sync.RWMutex
	types    []Type
	index    map[string]TypeID
	tuples   [][]TypeID
	fns      []FnInfo
	insts    []AdtInst
	adts     []AdtDef
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[string]TypeID, 64),
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // reserve 0 as NoTypeID
	in.tuples = append(in.tuples, nil)
	in.fns = append(in.fns, FnInfo{})
	in.insts = append(in.insts, AdtInst{})
	in.adts = append(in.adts, AdtDef{})
	in.seedBuiltins()
	return in
}

func (in *Interner) seedBuiltins() {
	in.builtins = Builtins{
		Never:   in.Intern(Type{Kind: KindNever}),
		Unit:    in.Intern(Type{Kind: KindUnit}),
		Bool:    in.Intern(Type{Kind: KindBool}),
		Char:    in.Intern(Type{Kind: KindChar}),
		Int8:    in.Intern(MakeInt(Width8)),
		Int16:   in.Intern(MakeInt(Width16)),
		Int32:   in.Intern(MakeInt(Width32)),
		Int64:   in.Intern(MakeInt(Width64)),
		Uint8:   in.Intern(MakeUint(Width8)),
		Uint16:  in.Intern(MakeUint(Width16)),
		Uint32:  in.Intern(MakeUint(Width32)),
		Uint64:  in.Intern(MakeUint(Width64)),
		Float32: in.Intern(MakeFloat(Width32)),
		Float64: in.Intern(MakeFloat(Width64)),
	}
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID. Descriptors
// with side-table payloads (tuples, functions, ADT instances) must be built
// through their dedicated constructors.
func (in *Interner) Intern(t Type) TypeID {
	switch t.Kind {
	case KindInvalid:
		return NoTypeID
	case KindTuple, KindFn, KindStruct, KindEnum:
		panic(fmt.Sprintf("types: Intern called with %s descriptor", t.Kind))
	}
	return in.intern(t, plainKey(t), nil)
}

// Pointer interns a pointer type.
func (in *Interner) Pointer(own Own, elem TypeID) TypeID {
	return in.Intern(MakePointer(own, elem))
}

// Array interns a fixed-length array type.
func (in *Interner) Array(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeArray(elem, count))
}

// FixedString interns a fixed-length string type.
func (in *Interner) FixedString(count uint32) TypeID {
	return in.Intern(MakeString(count))
}

// Param interns the generic parameter with the given index.
func (in *Interner) Param(index uint32) TypeID {
	return in.Intern(MakeParam(index))
}

// Dyn interns the borrowed trait object type for a trait.
func (in *Interner) Dyn(trait TraitID) TypeID {
	return in.Intern(MakeDyn(OwnShared, trait))
}

// OwnedDyn interns a trait object that owns its data.
func (in *Interner) OwnedDyn(own Own, trait TraitID) TypeID {
	return in.Intern(MakeDyn(own, trait))
}

// Closure interns a closure whose code pointer has the given fn signature.
func (in *Interner) Closure(sig TypeID) TypeID {
	return in.Intern(Type{Kind: KindClosure, Elem: sig})
}

// intern looks the key up and, when absent, calls fill (under the write lock)
// to populate side tables and finish the descriptor.
func (in *Interner) intern(t Type, key string, fill func(*Type)) TypeID {
	in.mu.RLock()
	id, ok := in.index[key]
	in.mu.RUnlock()
	if ok {
		return id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[key]; ok {
		return id
	}
	if fill != nil {
		fill(&t)
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id = TypeID(n)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup returns the descriptor or panics when the id is unknown.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: unknown TypeID %d", id))
	}
	return t
}

// Len reports how many descriptors exist, including the reserved zero slot.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.types)
}

func slot(n int, what string) uint32 {
	s, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s overflow: %w", what, err))
	}
	return s
}

func plainKey(t Type) string {
	var sb strings.Builder
	sb.Grow(24)
	sb.WriteString(strconv.Itoa(int(t.Kind)))
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(int(t.Width)))
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(int(t.Own)))
	sb.WriteByte('/')
	sb.WriteString(strconv.FormatUint(uint64(t.Elem), 10))
	sb.WriteByte('/')
	sb.WriteString(strconv.FormatUint(uint64(t.Count), 10))
	return sb.String()
}

func listKey(prefix string, ids []TypeID) string {
	var sb strings.Builder
	sb.Grow(len(prefix) + 4*len(ids) + 2)
	sb.WriteString(prefix)
	sb.WriteByte('(')
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	sb.WriteByte(')')
	return sb.String()
}

func cloneTypeArgs(ids []TypeID) []TypeID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]TypeID, len(ids))
	copy(out, ids)
	return out
}
