// Package emit declares the instruction-emission interface the lowering
// engine targets. Implementations own register naming, block storage and
// the final textual or binary form.
package emit

// CallConv is a backend calling-convention tag.
type CallConv string

const (
	ConvDefault CallConv = ""
	ConvC       CallConv = "ccc"
)

// Signature is the lowered shape of a function symbol.
type Signature struct {
	Ret    Type
	Params []Type
	Conv   CallConv
}

// Predicate selects an integer comparison.
type Predicate uint8

const (
	EQ Predicate = iota
	NE
	SLT
	SLE
	SGT
	SGE
	ULT
	ULE
	UGT
	UGE
)

var predNames = [...]string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge"}

func (p Predicate) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return "?"
}

// BinOp selects an integer arithmetic instruction.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	And
	Or
	Xor
	Shl
)

var binNames = [...]string{"add", "sub", "mul", "and", "or", "xor", "shl"}

func (op BinOp) String() string {
	if int(op) < len(binNames) {
		return binNames[op]
	}
	return "?"
}

// CastOp selects a conversion instruction.
type CastOp uint8

const (
	Bitcast CastOp = iota
	Trunc
	ZExt
	SExt
	PtrToInt
	IntToPtr
)

var castNames = [...]string{"bitcast", "trunc", "zext", "sext", "ptrtoint", "inttoptr"}

func (op CastOp) String() string {
	if int(op) < len(castNames) {
		return castNames[op]
	}
	return "?"
}

// SwitchCase is one arm of a Switch.
type SwitchCase struct {
	Value int64
	Dest  Block
}

// Module collects function and global definitions. Declarations are
// idempotent and safe for concurrent use.
type Module interface {
	// DeclareFunction returns the symbol for name, declaring it on first use.
	DeclareFunction(name string, sig Signature) Value
	// DefineFunction opens a body for name. Defining a name twice is an error.
	DefineFunction(name string, sig Signature) (Function, error)
	// DefineGlobal defines a constant global once; later calls with the same
	// name return the existing symbol.
	DefineGlobal(name string, ty Type, init []Value) Value
}

// Function is a function body under construction.
type Function interface {
	Builder
	Name() string
	Params() []Value
	// Finish seals the body. Every block must end in a terminator.
	Finish() error
}

// Builder appends instructions at the current insertion point.
type Builder interface {
	NewBlock(name string) Block
	SetInsertPoint(b Block)
	InsertPoint() Block
	// Terminated reports whether the current block already has a terminator.
	Terminated() bool

	// Alloca reserves a stack slot in the entry block regardless of the
	// current insertion point.
	Alloca(ty Type, name string) Value
	Load(ptr Value) Value
	Store(val, ptr Value)
	FieldAddr(ptr Value, index int) Value
	ElemAddr(ptr Value, index Value) Value
	InsertValue(agg, elem Value, index int) Value
	ExtractValue(agg Value, index int) Value
	Compare(pred Predicate, a, b Value) Value
	Binary(op BinOp, a, b Value) Value
	Cast(op CastOp, v Value, to Type) Value

	Call(fn Value, args []Value, ret Type) Value
	Invoke(fn Value, args []Value, ret Type, normal, unwind Block) Value
	LandingPad() Value

	Br(target Block)
	CondBr(cond Value, then, els Block)
	Switch(v Value, def Block, cases []SwitchCase)
	Resume(v Value)
	Ret(v Value)
	RetVoid()
	Unreachable()
}

// Inspector is implemented by backends that let the lowerer peek at what
// has been emitted so far.
type Inspector interface {
	// DominatingStore finds the single store into ptr, provided every path
	// from the entry to block from passes through it.
	DominatingStore(ptr Value, from Block) (Instr, bool)
	// StoredValue returns the value operand of a store.
	StoredValue(store Instr) Value
	// Erase removes an instruction.
	Erase(in Instr)
	// HasUses reports whether any live instruction reads v.
	HasUses(v Value) bool
	// EraseDef removes the instruction that defines v.
	EraseDef(v Value)
}
