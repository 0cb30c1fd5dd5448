package ir

import "go.uber.org/zap"

// FunctionBuilder assembles a new local function.
type FunctionBuilder struct {
	m    *Module
	fn   *LocalFunction
	name string
	ty   TypeID
}

// NewFunctionBuilder starts a function of type ty.
func NewFunctionBuilder(m *Module, ty TypeID) *FunctionBuilder {
	fn := &LocalFunction{}
	fn.Entry = fn.newSeq(MultiBlock(ty)).ID
	return &FunctionBuilder{m: m, fn: fn, ty: ty}
}

// Name sets the debug name of the function.
func (fb *FunctionBuilder) Name(name string) *FunctionBuilder {
	fb.name = name
	return fb
}

// Body returns a builder for the entry sequence.
func (fb *FunctionBuilder) Body() *SeqBuilder {
	return &SeqBuilder{fb: fb, seq: fb.fn.seqs[fb.fn.Entry]}
}

// DanglingSeq allocates a sequence that is not yet referenced by any
// instruction. The caller attaches it, typically through Try handlers.
func (fb *FunctionBuilder) DanglingSeq(bt BlockType) *SeqBuilder {
	return &SeqBuilder{fb: fb, seq: fb.fn.newSeq(bt)}
}

// Seq returns a builder appending to an existing sequence of this function.
func (fb *FunctionBuilder) Seq(id SeqID) *SeqBuilder {
	return &SeqBuilder{fb: fb, seq: fb.fn.seqs[id]}
}

// Finish adds the function to the module. params are the locals bound to
// the function's parameters, in order; every other local referenced by the
// body becomes a declared local in first-use order.
func (fb *FunctionBuilder) Finish(params []LocalID) FunctionID {
	fb.fn.Params = append([]LocalID(nil), params...)
	isParam := make(map[LocalID]bool, len(params))
	for _, p := range params {
		isParam[p] = true
	}
	seen := make(map[LocalID]bool)
	Walk(fb.fn, func(in Instr) {
		var id LocalID
		switch n := in.(type) {
		case *LocalGet:
			id = n.Local
		case *LocalSet:
			id = n.Local
		case *LocalTee:
			id = n.Local
		default:
			return
		}
		if isParam[id] || seen[id] {
			return
		}
		seen[id] = true
		fb.fn.Locals = append(fb.fn.Locals, id)
	})
	f := fb.m.Funcs.add(fb.ty, fb.fn)
	f.Name = fb.name
	Logger().Debug("function built",
		zap.Uint32("func", uint32(f.ID)),
		zap.String("name", f.Name),
		zap.Int("locals", len(fb.fn.Locals)))
	return f.ID
}

// SeqBuilder appends instructions to one sequence.
type SeqBuilder struct {
	fb  *FunctionBuilder
	seq *InstrSeq
}

// ID returns the sequence being built.
func (b *SeqBuilder) ID() SeqID {
	return b.seq.ID
}

// Instr appends an arbitrary instruction.
func (b *SeqBuilder) Instr(in Instr) *SeqBuilder {
	b.seq.Instrs = append(b.seq.Instrs, in)
	return b
}

func (b *SeqBuilder) Call(f FunctionID) *SeqBuilder       { return b.Instr(&Call{Func: f}) }
func (b *SeqBuilder) ReturnCall(f FunctionID) *SeqBuilder { return b.Instr(&ReturnCall{Func: f}) }
func (b *SeqBuilder) LocalGet(l LocalID) *SeqBuilder      { return b.Instr(&LocalGet{Local: l}) }
func (b *SeqBuilder) LocalSet(l LocalID) *SeqBuilder      { return b.Instr(&LocalSet{Local: l}) }
func (b *SeqBuilder) LocalTee(l LocalID) *SeqBuilder      { return b.Instr(&LocalTee{Local: l}) }
func (b *SeqBuilder) TableGet(t TableID) *SeqBuilder      { return b.Instr(&TableGet{Table: t}) }
func (b *SeqBuilder) TableSet(t TableID) *SeqBuilder      { return b.Instr(&TableSet{Table: t}) }
func (b *SeqBuilder) I32Const(v int32) *SeqBuilder        { return b.Instr(&Const{Value: I32Value(v)}) }
func (b *SeqBuilder) I64Const(v int64) *SeqBuilder        { return b.Instr(&Const{Value: I64Value(v)}) }
func (b *SeqBuilder) F32Const(v float32) *SeqBuilder      { return b.Instr(&Const{Value: F32Value(v)}) }
func (b *SeqBuilder) F64Const(v float64) *SeqBuilder      { return b.Instr(&Const{Value: F64Value(v)}) }
func (b *SeqBuilder) RefNull(r RefType) *SeqBuilder       { return b.Instr(&RefNull{Type: r}) }
func (b *SeqBuilder) RefFunc(f FunctionID) *SeqBuilder    { return b.Instr(&RefFunc{Func: f}) }
func (b *SeqBuilder) Throw(t TagID) *SeqBuilder           { return b.Instr(&Throw{Tag: t}) }
func (b *SeqBuilder) Br(s SeqID) *SeqBuilder              { return b.Instr(&Br{Block: s}) }
func (b *SeqBuilder) BrIf(s SeqID) *SeqBuilder            { return b.Instr(&BrIf{Block: s}) }
func (b *SeqBuilder) Return() *SeqBuilder                 { return b.Instr(&Return{}) }
func (b *SeqBuilder) Unreachable() *SeqBuilder            { return b.Instr(&Unreachable{}) }

// Block appends a block whose body is filled by body.
func (b *SeqBuilder) Block(bt BlockType, body func(*SeqBuilder)) *SeqBuilder {
	inner := b.fb.DanglingSeq(bt)
	body(inner)
	return b.Instr(&Block{Seq: inner.ID()})
}

// Loop appends a loop whose body is filled by body.
func (b *SeqBuilder) Loop(bt BlockType, body func(*SeqBuilder)) *SeqBuilder {
	inner := b.fb.DanglingSeq(bt)
	body(inner)
	return b.Instr(&Loop{Seq: inner.ID()})
}

// IfElse appends a conditional. alt may be nil.
func (b *SeqBuilder) IfElse(bt BlockType, cons, alt func(*SeqBuilder)) *SeqBuilder {
	c := b.fb.DanglingSeq(bt)
	cons(c)
	a := b.fb.DanglingSeq(bt)
	if alt != nil {
		alt(a)
	}
	return b.Instr(&IfElse{Consequent: c.ID(), Alternative: a.ID()})
}

// TryTable appends a try_table. Catch labels usually name an enclosing
// block, so the clauses are supplied by the caller.
func (b *SeqBuilder) TryTable(bt BlockType, catches []TryTableCatch, body func(*SeqBuilder)) *SeqBuilder {
	inner := b.fb.DanglingSeq(bt)
	body(inner)
	return b.Instr(&TryTable{Seq: inner.ID(), Catches: catches})
}

// Try appends a legacy try whose handlers were built with DanglingSeq.
func (b *SeqBuilder) Try(bt BlockType, body func(*SeqBuilder), catches ...LegacyCatch) *SeqBuilder {
	inner := b.fb.DanglingSeq(bt)
	body(inner)
	return b.Instr(&Try{Seq: inner.ID(), Catches: catches})
}
