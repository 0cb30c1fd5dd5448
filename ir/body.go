package ir

import (
	"fmt"

	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

const blockTypeEmpty int32 = -64

type frameKind byte

const (
	frameFunc frameKind = iota
	frameBlock
	frameIf
	frameElse
	frameTry
	frameCatch
)

// frame is an open structured instruction while decoding a body.
type frame struct {
	seq    *InstrSeq
	ifElse *IfElse
	try    *Try
	kind   frameKind
}

type bodyReader struct {
	m      *Module
	fn     *LocalFunction
	locals []LocalID
	stack  []frame
	id     FunctionID
}

func (m *Module) readBody(f *Function, body wasm.FuncBody) error {
	fn, _ := f.Local()
	r := &bodyReader{m: m, fn: fn, id: f.ID}
	for _, p := range m.Types.Params(f.Type) {
		l := m.Locals.Add(p)
		fn.Params = append(fn.Params, l)
		r.locals = append(r.locals, l)
	}
	for _, entry := range body.Locals {
		var (
			vt  ValType
			err error
		)
		if entry.ExtType != nil {
			vt, err = fromWasmExt(*entry.ExtType)
		} else {
			vt, err = fromWasm(entry.ValType)
		}
		if err != nil {
			return r.fail(err.Error())
		}
		for i := uint32(0); i < entry.Count; i++ {
			l := m.Locals.Add(vt)
			fn.Locals = append(fn.Locals, l)
			r.locals = append(r.locals, l)
		}
	}
	instrs, err := wasm.DecodeInstructions(body.Code)
	if err != nil {
		return errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, fmt.Sprintf("func %d body", f.ID))
	}
	entry := fn.newSeq(MultiBlock(f.Type))
	fn.Entry = entry.ID
	r.stack = []frame{{seq: entry, kind: frameFunc}}
	for i := range instrs {
		if len(r.stack) == 0 {
			return r.fail("instructions after final end")
		}
		if err := r.instr(&instrs[i]); err != nil {
			return err
		}
	}
	if len(r.stack) != 0 {
		return r.fail("unterminated body")
	}
	return nil
}

func (r *bodyReader) fail(detail string) error {
	return errors.InvalidData(errors.PhaseParse, []string{"func", fmt.Sprint(r.id)}, detail)
}

func (r *bodyReader) top() *frame {
	return &r.stack[len(r.stack)-1]
}

func (r *bodyReader) emit(in Instr) {
	s := r.top().seq
	s.Instrs = append(s.Instrs, in)
}

func (r *bodyReader) push(f frame) {
	r.stack = append(r.stack, f)
}

func (r *bodyReader) pop() frame {
	f := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return f
}

// label resolves a relative branch depth to the targeted sequence.
func (r *bodyReader) label(depth uint32) (SeqID, error) {
	if int(depth) >= len(r.stack) {
		return 0, errors.New(errors.PhaseParse, errors.KindUnresolved).
			Path("func", fmt.Sprint(r.id)).
			Value(depth).
			Detail("branch depth %d exceeds nesting %d", depth, len(r.stack)).
			Build()
	}
	return r.stack[len(r.stack)-1-int(depth)].seq.ID, nil
}

func (r *bodyReader) blockType(bt int32) (BlockType, error) {
	if bt == blockTypeEmpty {
		return EmptyBlock(), nil
	}
	if bt >= 0 {
		if int(bt) >= r.m.Types.Len() {
			return BlockType{}, errors.OutOfBounds(errors.PhaseParse, []string{"func", fmt.Sprint(r.id), "blocktype"}, int(bt), r.m.Types.Len())
		}
		return MultiBlock(TypeID(bt)), nil
	}
	v, err := fromWasm(wasm.ValType(byte(bt + 0x80)))
	if err != nil {
		return BlockType{}, r.fail(err.Error())
	}
	return SingleBlock(v), nil
}

func (r *bodyReader) local(idx uint32) (LocalID, error) {
	if int(idx) >= len(r.locals) {
		return 0, errors.OutOfBounds(errors.PhaseParse, []string{"func", fmt.Sprint(r.id), "local"}, int(idx), len(r.locals))
	}
	return r.locals[idx], nil
}

func (r *bodyReader) funcRef(idx uint32) (FunctionID, error) {
	if int(idx) >= r.m.Funcs.Len() {
		return 0, errors.OutOfBounds(errors.PhaseParse, []string{"func", fmt.Sprint(r.id), "call"}, int(idx), r.m.Funcs.Len())
	}
	return FunctionID(idx), nil
}

func (r *bodyReader) tagRef(idx uint32) (TagID, error) {
	if int(idx) >= r.m.Tags.Len() {
		return 0, errors.OutOfBounds(errors.PhaseParse, []string{"func", fmt.Sprint(r.id), "tag"}, int(idx), r.m.Tags.Len())
	}
	return TagID(idx), nil
}

func (r *bodyReader) tableRef(idx uint32) (TableID, error) {
	if int(idx) >= r.m.Tables.Len() {
		return 0, errors.OutOfBounds(errors.PhaseParse, []string{"func", fmt.Sprint(r.id), "table"}, int(idx), r.m.Tables.Len())
	}
	return TableID(idx), nil
}

func (r *bodyReader) instr(in *wasm.Instruction) error {
	switch in.Opcode {
	case wasm.OpBlock, wasm.OpLoop:
		bt, err := r.blockType(in.Imm.(wasm.BlockImm).Type)
		if err != nil {
			return err
		}
		seq := r.fn.newSeq(bt)
		if in.Opcode == wasm.OpBlock {
			r.emit(&Block{Seq: seq.ID})
		} else {
			r.emit(&Loop{Seq: seq.ID})
		}
		r.push(frame{seq: seq, kind: frameBlock})

	case wasm.OpIf:
		bt, err := r.blockType(in.Imm.(wasm.BlockImm).Type)
		if err != nil {
			return err
		}
		cons, alt := r.fn.newSeq(bt), r.fn.newSeq(bt)
		ie := &IfElse{Consequent: cons.ID, Alternative: alt.ID}
		r.emit(ie)
		r.push(frame{seq: cons, ifElse: ie, kind: frameIf})

	case wasm.OpElse:
		if r.top().kind != frameIf {
			return r.fail("else outside if")
		}
		f := r.pop()
		r.push(frame{seq: r.fn.seqs[f.ifElse.Alternative], kind: frameElse})

	case wasm.OpTry:
		bt, err := r.blockType(in.Imm.(wasm.BlockImm).Type)
		if err != nil {
			return err
		}
		seq := r.fn.newSeq(bt)
		t := &Try{Seq: seq.ID}
		r.emit(t)
		r.push(frame{seq: seq, try: t, kind: frameTry})

	case wasm.OpCatch, wasm.OpCatchAll:
		k := r.top().kind
		if k != frameTry && k != frameCatch {
			return r.fail("catch outside try")
		}
		f := r.pop()
		c := LegacyCatch{All: in.Opcode == wasm.OpCatchAll}
		if !c.All {
			tag, err := r.tagRef(in.Imm.(wasm.ThrowImm).TagIdx)
			if err != nil {
				return err
			}
			c.Tag = tag
		}
		h := r.fn.newSeq(r.fn.seqs[f.try.Seq].Type)
		c.Handler = h.ID
		f.try.Catches = append(f.try.Catches, c)
		r.push(frame{seq: h, try: f.try, kind: frameCatch})

	case wasm.OpDelegate:
		if r.top().kind != frameTry {
			return r.fail("delegate outside try")
		}
		f := r.pop()
		depth := in.Imm.(wasm.BranchImm).LabelIdx
		f.try.Delegate = &depth

	case wasm.OpTryTable:
		imm := in.Imm.(wasm.TryTableImm)
		bt, err := r.blockType(imm.BlockType)
		if err != nil {
			return err
		}
		tt := &TryTable{}
		for _, c := range imm.Catches {
			label, err := r.label(c.LabelIdx)
			if err != nil {
				return err
			}
			cc := TryTableCatch{Kind: CatchKind(c.Kind), Label: label}
			if c.Kind == wasm.CatchKindCatch || c.Kind == wasm.CatchKindCatchRef {
				if cc.Tag, err = r.tagRef(c.TagIdx); err != nil {
					return err
				}
			}
			tt.Catches = append(tt.Catches, cc)
		}
		seq := r.fn.newSeq(bt)
		tt.Seq = seq.ID
		r.emit(tt)
		r.push(frame{seq: seq, kind: frameBlock})

	case wasm.OpEnd:
		r.pop()

	case wasm.OpBr, wasm.OpBrIf:
		label, err := r.label(in.Imm.(wasm.BranchImm).LabelIdx)
		if err != nil {
			return err
		}
		if in.Opcode == wasm.OpBr {
			r.emit(&Br{Block: label})
		} else {
			r.emit(&BrIf{Block: label})
		}

	case wasm.OpBrTable:
		imm := in.Imm.(wasm.BrTableImm)
		bt := &BrTable{Blocks: make([]SeqID, len(imm.Labels))}
		for i, l := range imm.Labels {
			label, err := r.label(l)
			if err != nil {
				return err
			}
			bt.Blocks[i] = label
		}
		def, err := r.label(imm.Default)
		if err != nil {
			return err
		}
		bt.Default = def
		r.emit(bt)

	case wasm.OpCall, wasm.OpReturnCall:
		f, err := r.funcRef(in.Imm.(wasm.CallImm).FuncIdx)
		if err != nil {
			return err
		}
		if in.Opcode == wasm.OpCall {
			r.emit(&Call{Func: f})
		} else {
			r.emit(&ReturnCall{Func: f})
		}

	case wasm.OpCallIndirect, wasm.OpReturnCallIndirect:
		imm := in.Imm.(wasm.CallIndirectImm)
		if int(imm.TypeIdx) >= r.m.Types.Len() {
			return errors.OutOfBounds(errors.PhaseParse, []string{"func", fmt.Sprint(r.id), "call_indirect"}, int(imm.TypeIdx), r.m.Types.Len())
		}
		t, err := r.tableRef(imm.TableIdx)
		if err != nil {
			return err
		}
		if in.Opcode == wasm.OpCallIndirect {
			r.emit(&CallIndirect{Type: TypeID(imm.TypeIdx), Table: t})
		} else {
			r.emit(&ReturnCallIndirect{Type: TypeID(imm.TypeIdx), Table: t})
		}

	case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee:
		l, err := r.local(in.Imm.(wasm.LocalImm).LocalIdx)
		if err != nil {
			return err
		}
		switch in.Opcode {
		case wasm.OpLocalGet:
			r.emit(&LocalGet{Local: l})
		case wasm.OpLocalSet:
			r.emit(&LocalSet{Local: l})
		default:
			r.emit(&LocalTee{Local: l})
		}

	case wasm.OpTableGet, wasm.OpTableSet:
		t, err := r.tableRef(in.Imm.(wasm.TableImm).TableIdx)
		if err != nil {
			return err
		}
		if in.Opcode == wasm.OpTableGet {
			r.emit(&TableGet{Table: t})
		} else {
			r.emit(&TableSet{Table: t})
		}

	case wasm.OpI32Const:
		r.emit(&Const{Value: I32Value(in.Imm.(wasm.I32Imm).Value)})
	case wasm.OpI64Const:
		r.emit(&Const{Value: I64Value(in.Imm.(wasm.I64Imm).Value)})
	case wasm.OpF32Const:
		r.emit(&Const{Value: F32Value(in.Imm.(wasm.F32Imm).Value)})
	case wasm.OpF64Const:
		r.emit(&Const{Value: F64Value(in.Imm.(wasm.F64Imm).Value)})

	case wasm.OpRefNull:
		// ref.null always produces a nullable reference
		r.emit(&RefNull{Type: RefType{Nullable: true, Heap: HeapType(in.Imm.(wasm.RefNullImm).HeapType)}})

	case wasm.OpRefFunc:
		f, err := r.funcRef(in.Imm.(wasm.RefFuncImm).FuncIdx)
		if err != nil {
			return err
		}
		r.emit(&RefFunc{Func: f})

	case wasm.OpThrow:
		tag, err := r.tagRef(in.Imm.(wasm.ThrowImm).TagIdx)
		if err != nil {
			return err
		}
		r.emit(&Throw{Tag: tag})

	case wasm.OpReturn:
		r.emit(&Return{})
	case wasm.OpUnreachable:
		r.emit(&Unreachable{})

	default:
		r.emit(&Raw{Instr: *in})
	}
	return nil
}
