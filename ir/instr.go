package ir

import (
	"math"

	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

// Instr is a single instruction. The set of implementations is closed.
type Instr interface {
	instr()
}

// BlockKind selects the shape of a BlockType.
type BlockKind byte

const (
	BlockEmpty BlockKind = iota
	BlockSingle
	BlockMulti
)

// BlockType is the type of an instruction sequence: nothing, a single
// result, or a function type for multi-value (and parameterized) blocks.
type BlockType struct {
	Result ValType
	Kind   BlockKind
	Type   TypeID
}

// EmptyBlock returns the [] -> [] block type.
func EmptyBlock() BlockType {
	return BlockType{Kind: BlockEmpty}
}

// SingleBlock returns the [] -> [v] block type.
func SingleBlock(v ValType) BlockType {
	return BlockType{Kind: BlockSingle, Result: v}
}

// MultiBlock returns a block type described by a function type.
func MultiBlock(t TypeID) BlockType {
	return BlockType{Kind: BlockMulti, Type: t}
}

// InstrSeq is an ordered list of instructions with a block type.
type InstrSeq struct {
	Instrs []Instr
	Type   BlockType
	ID     SeqID
}

// Block is a structured block.
type Block struct{ Seq SeqID }

// Loop is a structured loop. Branches to Seq jump to its start.
type Loop struct{ Seq SeqID }

// IfElse is a two-armed conditional. Alternative may be empty.
type IfElse struct {
	Consequent  SeqID
	Alternative SeqID
}

// Br branches to the label of Block.
type Br struct{ Block SeqID }

// BrIf conditionally branches to the label of Block.
type BrIf struct{ Block SeqID }

// BrTable branches through a jump table.
type BrTable struct {
	Blocks  []SeqID
	Default SeqID
}

// Call is a direct call.
type Call struct{ Func FunctionID }

// ReturnCall is a direct tail call.
type ReturnCall struct{ Func FunctionID }

// CallIndirect calls through a table.
type CallIndirect struct {
	Type  TypeID
	Table TableID
}

// ReturnCallIndirect tail-calls through a table.
type ReturnCallIndirect struct {
	Type  TypeID
	Table TableID
}

// LocalGet pushes a local.
type LocalGet struct{ Local LocalID }

// LocalSet pops into a local.
type LocalSet struct{ Local LocalID }

// LocalTee stores into a local and keeps the value on the stack.
type LocalTee struct{ Local LocalID }

// TableGet reads a table element.
type TableGet struct{ Table TableID }

// TableSet writes a table element.
type TableSet struct{ Table TableID }

// Const pushes a numeric constant.
type Const struct{ Value Value }

// RefNull pushes a null reference of Type's heap type.
type RefNull struct{ Type RefType }

// RefFunc pushes a reference to a function.
type RefFunc struct{ Func FunctionID }

// Throw raises an exception with Tag.
type Throw struct{ Tag TagID }

// LegacyCatch is one handler of a legacy try. All marks catch_all.
type LegacyCatch struct {
	Tag     TagID
	Handler SeqID
	All     bool
}

// Try is the legacy try/catch/delegate construct. When Delegate is set the
// try has no handlers and ends with delegate at that depth.
type Try struct {
	Delegate *uint32
	Catches  []LegacyCatch
	Seq      SeqID
}

// CatchKind is the kind of a try_table catch clause.
type CatchKind byte

const (
	CatchTag    = CatchKind(wasm.CatchKindCatch)
	CatchTagRef = CatchKind(wasm.CatchKindCatchRef)
	CatchAll    = CatchKind(wasm.CatchKindCatchAll)
	CatchAllRef = CatchKind(wasm.CatchKindCatchAllRef)
)

// TryTableCatch is one clause of a try_table; Label is the sequence whose
// label is branched to when the clause matches.
type TryTableCatch struct {
	Kind  CatchKind
	Tag   TagID
	Label SeqID
}

// TryTable is the try_table construct.
type TryTable struct {
	Catches []TryTableCatch
	Seq     SeqID
}

// Return returns from the function.
type Return struct{}

// Unreachable traps.
type Unreachable struct{}

// Raw is any instruction without a dedicated variant, kept as decoded.
type Raw struct{ Instr wasm.Instruction }

func (*Block) instr()              {}
func (*Loop) instr()               {}
func (*IfElse) instr()             {}
func (*Br) instr()                 {}
func (*BrIf) instr()               {}
func (*BrTable) instr()            {}
func (*Call) instr()               {}
func (*ReturnCall) instr()         {}
func (*CallIndirect) instr()       {}
func (*ReturnCallIndirect) instr() {}
func (*LocalGet) instr()           {}
func (*LocalSet) instr()           {}
func (*LocalTee) instr()           {}
func (*TableGet) instr()           {}
func (*TableSet) instr()           {}
func (*Const) instr()              {}
func (*RefNull) instr()            {}
func (*RefFunc) instr()            {}
func (*Throw) instr()              {}
func (*Try) instr()                {}
func (*TryTable) instr()           {}
func (*Return) instr()             {}
func (*Unreachable) instr()        {}
func (*Raw) instr()                {}

// Children returns the sequences directly nested in in, in encoding order.
func Children(in Instr) []SeqID {
	switch n := in.(type) {
	case *Block:
		return []SeqID{n.Seq}
	case *Loop:
		return []SeqID{n.Seq}
	case *IfElse:
		return []SeqID{n.Consequent, n.Alternative}
	case *Try:
		out := make([]SeqID, 0, 1+len(n.Catches))
		out = append(out, n.Seq)
		for _, c := range n.Catches {
			out = append(out, c.Handler)
		}
		return out
	case *TryTable:
		return []SeqID{n.Seq}
	}
	return nil
}

// Value is a numeric constant.
type Value struct {
	Kind ValKind
	I32  int32
	I64  int64
	F32  float32
	F64  float64
}

// I32Value returns an i32 constant.
func I32Value(v int32) Value { return Value{Kind: KindI32, I32: v} }

// I64Value returns an i64 constant.
func I64Value(v int64) Value { return Value{Kind: KindI64, I64: v} }

// F32Value returns an f32 constant.
func F32Value(v float32) Value { return Value{Kind: KindF32, F32: v} }

// F64Value returns an f64 constant.
func F64Value(v float64) Value { return Value{Kind: KindF64, F64: v} }

// IsPositiveZero reports whether the constant is +0 of its kind.
func (v Value) IsPositiveZero() bool {
	switch v.Kind {
	case KindI32:
		return v.I32 == 0
	case KindI64:
		return v.I64 == 0
	case KindF32:
		return math.Float32bits(v.F32) == 0
	case KindF64:
		return math.Float64bits(v.F64) == 0
	}
	return false
}
