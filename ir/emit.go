package ir

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

// Emit encodes the module to the binary format. The lowered module is
// checked with wasm's structural validation first.
func (m *Module) Emit() ([]byte, error) {
	wm, err := m.ToWasm()
	if err != nil {
		return nil, err
	}
	if err := wm.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidData, err, "emitted module is invalid")
	}
	return wm.Encode(), nil
}

// emitter lays out the index spaces of one emission. Imported entities are
// numbered in import section order, defined ones follow in ID order.
type emitter struct {
	m         *Module
	extraIdx  map[ValType]uint32
	funcIdx   []uint32
	tableIdx  []uint32
	tagIdx    []uint32
	defFuncs  []*Function
	defTables []*Table
	defTags   []*Tag
	extra     []ValType
	// funcsMoved is set when some function's index differs from its ID
	funcsMoved bool
}

func newEmitter(m *Module) *emitter {
	e := &emitter{
		m:        m,
		extraIdx: make(map[ValType]uint32),
		funcIdx:  make([]uint32, m.Funcs.Len()),
		tableIdx: make([]uint32, m.Tables.Len()),
		tagIdx:   make([]uint32, m.Tags.Len()),
	}
	var nf, nt, ng uint32
	for _, imp := range m.Imports.All() {
		switch imp.Kind {
		case wasm.KindFunc:
			e.funcIdx[imp.Func] = nf
			nf++
		case wasm.KindTable:
			e.tableIdx[imp.Table] = nt
			nt++
		case wasm.KindTag:
			e.tagIdx[imp.Tag] = ng
			ng++
		}
	}
	for _, f := range m.Funcs.All() {
		if _, ok := f.Local(); ok {
			e.funcIdx[f.ID] = nf
			nf++
			e.defFuncs = append(e.defFuncs, f)
		}
	}
	for _, t := range m.Tables.All() {
		if t.Import == nil {
			e.tableIdx[t.ID] = nt
			nt++
			e.defTables = append(e.defTables, t)
		}
	}
	for _, t := range m.Tags.All() {
		if t.Import == nil {
			e.tagIdx[t.ID] = ng
			ng++
			e.defTags = append(e.defTags, t)
		}
	}
	for id, idx := range e.funcIdx {
		if uint32(id) != idx {
			e.funcsMoved = true
			break
		}
	}
	return e
}

// ToWasm lowers the module to the wasm package's representation.
func (m *Module) ToWasm() (*wasm.Module, error) {
	e := newEmitter(m)
	wm := &wasm.Module{}

	// bodies first: they may need extra block types
	for _, f := range e.defFuncs {
		if int(f.Type) >= m.Types.Len() {
			return nil, errors.OutOfBounds(errors.PhaseEmit, []string{"func", fmt.Sprint(f.ID), "type"}, int(f.Type), m.Types.Len())
		}
		body, err := e.body(f)
		if err != nil {
			return nil, err
		}
		wm.Funcs = append(wm.Funcs, uint32(f.Type))
		wm.Code = append(wm.Code, body)
	}
	e.types(wm)

	for _, imp := range m.Imports.All() {
		wi := wasm.Import{Module: imp.Module, Name: imp.Name}
		switch imp.Kind {
		case wasm.KindFunc:
			wi.Desc = wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: uint32(m.Funcs.Get(imp.Func).Type)}
		case wasm.KindTable:
			tt := tableToWasm(m.Tables.Get(imp.Table))
			wi.Desc = wasm.ImportDesc{Kind: wasm.KindTable, Table: &tt}
		case wasm.KindTag:
			tag := m.Tags.Get(imp.Tag)
			wi.Desc = wasm.ImportDesc{Kind: wasm.KindTag, Tag: &wasm.TagType{Attribute: tag.Attribute, TypeIdx: uint32(tag.Type)}}
		default:
			wi.Desc = imp.Desc
		}
		wm.Imports = append(wm.Imports, wi)
	}
	for _, t := range e.defTables {
		wm.Tables = append(wm.Tables, tableToWasm(t))
	}
	for _, t := range e.defTags {
		wm.Tags = append(wm.Tags, wasm.TagType{Attribute: t.Attribute, TypeIdx: uint32(t.Type)})
	}
	wm.Memories = m.Memories
	wm.Data = m.Data
	wm.DataCount = m.DataCount

	for i, g := range m.Globals {
		init, err := e.constExpr(g.Init)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidData, err, fmt.Sprintf("global %d init", i))
		}
		g.Init = init
		wm.Globals = append(wm.Globals, g)
	}
	for i, el := range m.Elements {
		out, err := e.element(el)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidData, err, fmt.Sprintf("element %d", i))
		}
		wm.Elements = append(wm.Elements, out)
	}
	for _, ex := range m.Exports.All() {
		we := wasm.Export{Name: ex.Name, Kind: ex.Kind, Idx: ex.Index}
		switch ex.Kind {
		case wasm.KindFunc:
			we.Idx = e.funcIdx[ex.Func]
		case wasm.KindTable:
			we.Idx = e.tableIdx[ex.Table]
		case wasm.KindTag:
			we.Idx = e.tagIdx[ex.Tag]
		}
		wm.Exports = append(wm.Exports, we)
	}
	if m.Start != nil {
		s := e.funcIdx[*m.Start]
		wm.Start = &s
	}

	names, ok, err := e.nameSection()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidData, err, "name section")
	}
	if ok {
		wm.CustomSections = append(wm.CustomSections, wasm.CustomSection{Name: nameSectionName, Data: names})
	}
	wm.CustomSections = append(wm.CustomSections, m.Customs...)

	Logger().Debug("module emitted",
		zap.Int("funcs", len(e.funcIdx)),
		zap.Int("defined", len(e.defFuncs)),
		zap.Int("extra_block_types", len(e.extra)))
	return wm, nil
}

func (e *emitter) types(wm *wasm.Module) {
	add := func(params, results []ValType) {
		ft := wasm.FuncType{}
		ft.Params, ft.ExtParams = toWasmTypes(params)
		ft.Results, ft.ExtResults = toWasmTypes(results)
		wm.Types = append(wm.Types, ft)
		wm.TypeDefs = append(wm.TypeDefs, wasm.TypeDef{Kind: wasm.TypeDefKindFunc, Func: &ft})
	}
	for _, t := range e.m.Types.All() {
		add(t.Params, t.Results)
	}
	for _, v := range e.extra {
		add(nil, []ValType{v})
	}
}

// blockType returns the s33 block type encoding of bt.
func (e *emitter) blockType(bt BlockType) int32 {
	switch bt.Kind {
	case BlockSingle:
		simple, _, needsExt := toWasm(bt.Result)
		if !needsExt {
			return int32(simple) - 0x80
		}
		// a single typed reference result has no shorthand; use [] -> [t]
		if id, ok := e.m.Types.Find(nil, []ValType{bt.Result}); ok {
			return int32(id)
		}
		if idx, ok := e.extraIdx[bt.Result]; ok {
			return int32(idx)
		}
		idx := uint32(e.m.Types.Len() + len(e.extra))
		e.extra = append(e.extra, bt.Result)
		e.extraIdx[bt.Result] = idx
		return int32(idx)
	case BlockMulti:
		return int32(bt.Type)
	}
	return blockTypeEmpty
}

func tableToWasm(t *Table) wasm.TableType {
	tt := wasm.TableType{Limits: t.Limits, Init: t.Init}
	if b, ok := shorthand(t.Elem); ok {
		tt.ElemType = byte(b)
		return tt
	}
	tt.ElemType = byte(wasm.ValRef)
	if t.Elem.Nullable {
		tt.ElemType = byte(wasm.ValRefNull)
	}
	tt.RefElemType = &wasm.RefType{Nullable: t.Elem.Nullable, HeapType: int64(t.Elem.Heap)}
	return tt
}

// constExpr rewrites ref.func indices in a constant expression. Expressions
// are returned untouched when no function moved.
func (e *emitter) constExpr(expr []byte) ([]byte, error) {
	if !e.funcsMoved || len(expr) == 0 {
		return expr, nil
	}
	instrs, err := wasm.DecodeInstructions(expr)
	if err != nil {
		return nil, err
	}
	changed := false
	for i := range instrs {
		if instrs[i].Opcode != wasm.OpRefFunc {
			continue
		}
		imm := instrs[i].Imm.(wasm.RefFuncImm)
		if int(imm.FuncIdx) >= len(e.funcIdx) {
			return nil, fmt.Errorf("ref.func %d out of range", imm.FuncIdx)
		}
		instrs[i].Imm = wasm.RefFuncImm{FuncIdx: e.funcIdx[imm.FuncIdx]}
		changed = true
	}
	if !changed {
		return expr, nil
	}
	return wasm.EncodeInstructions(instrs), nil
}

func (e *emitter) element(el wasm.Element) (wasm.Element, error) {
	if int(el.TableIdx) < len(e.tableIdx) {
		el.TableIdx = e.tableIdx[el.TableIdx]
	}
	if len(el.FuncIdxs) > 0 {
		idxs := make([]uint32, len(el.FuncIdxs))
		for i, f := range el.FuncIdxs {
			if int(f) >= len(e.funcIdx) {
				return el, fmt.Errorf("function %d out of range", f)
			}
			idxs[i] = e.funcIdx[f]
		}
		el.FuncIdxs = idxs
	}
	if len(el.Exprs) > 0 {
		exprs := make([][]byte, len(el.Exprs))
		for i, x := range el.Exprs {
			out, err := e.constExpr(x)
			if err != nil {
				return el, err
			}
			exprs[i] = out
		}
		el.Exprs = exprs
	}
	return el, nil
}

type bodyWriter struct {
	e      *emitter
	fn     *LocalFunction
	locals map[LocalID]uint32
	labels []SeqID
	out    []wasm.Instruction
	id     FunctionID
}

func (e *emitter) body(f *Function) (wasm.FuncBody, error) {
	fn, _ := f.Local()
	w := &bodyWriter{e: e, fn: fn, id: f.ID, locals: make(map[LocalID]uint32, len(fn.Params)+len(fn.Locals))}
	var next uint32
	for _, p := range fn.Params {
		w.locals[p] = next
		next++
	}
	var entries []wasm.LocalEntry
	var last ValType
	for _, l := range fn.Locals {
		if _, dup := w.locals[l]; dup {
			continue
		}
		local := e.m.Locals.Get(l)
		if local == nil {
			return wasm.FuncBody{}, errors.OutOfBounds(errors.PhaseEmit, []string{"func", fmt.Sprint(f.ID), "local"}, int(l), e.m.Locals.Len())
		}
		w.locals[l] = next
		next++
		if len(entries) > 0 && last == local.Type {
			entries[len(entries)-1].Count++
			continue
		}
		simple, ext, needsExt := toWasm(local.Type)
		entry := wasm.LocalEntry{Count: 1, ValType: simple}
		if needsExt {
			entry.ExtType = &ext
		}
		entries = append(entries, entry)
		last = local.Type
	}

	w.labels = []SeqID{fn.Entry}
	if err := w.seq(fn.Entry); err != nil {
		return wasm.FuncBody{}, err
	}
	w.op(wasm.OpEnd, nil)
	return wasm.FuncBody{Locals: entries, Code: wasm.EncodeInstructions(w.out)}, nil
}

func (w *bodyWriter) op(opcode byte, imm interface{}) {
	w.out = append(w.out, wasm.Instruction{Opcode: opcode, Imm: imm})
}

func (w *bodyWriter) depth(target SeqID) (uint32, error) {
	for i := len(w.labels) - 1; i >= 0; i-- {
		if w.labels[i] == target {
			return uint32(len(w.labels) - 1 - i), nil
		}
	}
	return 0, errors.New(errors.PhaseEmit, errors.KindUnresolved).
		Path("func", fmt.Sprint(w.id)).
		Value(target).
		Detail("sequence %d is not an enclosing label", target).
		Build()
}

func (w *bodyWriter) nested(id SeqID) error {
	w.labels = append(w.labels, id)
	err := w.seq(id)
	w.labels = w.labels[:len(w.labels)-1]
	return err
}

func (w *bodyWriter) seq(id SeqID) error {
	if int(id) >= len(w.fn.seqs) {
		return errors.OutOfBounds(errors.PhaseEmit, []string{"func", fmt.Sprint(w.id), "seq"}, int(id), len(w.fn.seqs))
	}
	for _, in := range w.fn.seqs[id].Instrs {
		if err := w.instr(in); err != nil {
			return err
		}
	}
	return nil
}

func (w *bodyWriter) funcIdx(f FunctionID) (uint32, error) {
	if int(f) >= len(w.e.funcIdx) {
		return 0, errors.OutOfBounds(errors.PhaseEmit, []string{"func", fmt.Sprint(w.id), "call"}, int(f), len(w.e.funcIdx))
	}
	return w.e.funcIdx[f], nil
}

func (w *bodyWriter) local(l LocalID) (uint32, error) {
	idx, ok := w.locals[l]
	if !ok {
		return 0, errors.New(errors.PhaseEmit, errors.KindNotFound).
			Path("func", fmt.Sprint(w.id)).
			Value(l).
			Detail("local %d is not declared by this function", l).
			Build()
	}
	return idx, nil
}

func (w *bodyWriter) instr(in Instr) error {
	switch n := in.(type) {
	case *Block:
		w.op(wasm.OpBlock, wasm.BlockImm{Type: w.e.blockType(w.fn.seqs[n.Seq].Type)})
		if err := w.nested(n.Seq); err != nil {
			return err
		}
		w.op(wasm.OpEnd, nil)

	case *Loop:
		w.op(wasm.OpLoop, wasm.BlockImm{Type: w.e.blockType(w.fn.seqs[n.Seq].Type)})
		if err := w.nested(n.Seq); err != nil {
			return err
		}
		w.op(wasm.OpEnd, nil)

	case *IfElse:
		w.op(wasm.OpIf, wasm.BlockImm{Type: w.e.blockType(w.fn.seqs[n.Consequent].Type)})
		if err := w.nested(n.Consequent); err != nil {
			return err
		}
		if len(w.fn.seqs[n.Alternative].Instrs) > 0 {
			w.op(wasm.OpElse, nil)
			if err := w.nested(n.Alternative); err != nil {
				return err
			}
		}
		w.op(wasm.OpEnd, nil)

	case *Try:
		w.op(wasm.OpTry, wasm.BlockImm{Type: w.e.blockType(w.fn.seqs[n.Seq].Type)})
		if err := w.nested(n.Seq); err != nil {
			return err
		}
		for _, c := range n.Catches {
			if c.All {
				w.op(wasm.OpCatchAll, nil)
			} else {
				w.op(wasm.OpCatch, wasm.ThrowImm{TagIdx: w.e.tagIdx[c.Tag]})
			}
			if err := w.nested(c.Handler); err != nil {
				return err
			}
		}
		if n.Delegate != nil {
			w.op(wasm.OpDelegate, wasm.BranchImm{LabelIdx: *n.Delegate})
		} else {
			w.op(wasm.OpEnd, nil)
		}

	case *TryTable:
		// catch labels are resolved outside the try_table's own label
		imm := wasm.TryTableImm{BlockType: w.e.blockType(w.fn.seqs[n.Seq].Type)}
		for _, c := range n.Catches {
			d, err := w.depth(c.Label)
			if err != nil {
				return err
			}
			cc := wasm.CatchClause{Kind: byte(c.Kind), LabelIdx: d}
			if c.Kind == CatchTag || c.Kind == CatchTagRef {
				cc.TagIdx = w.e.tagIdx[c.Tag]
			}
			imm.Catches = append(imm.Catches, cc)
		}
		w.op(wasm.OpTryTable, imm)
		if err := w.nested(n.Seq); err != nil {
			return err
		}
		w.op(wasm.OpEnd, nil)

	case *Br:
		d, err := w.depth(n.Block)
		if err != nil {
			return err
		}
		w.op(wasm.OpBr, wasm.BranchImm{LabelIdx: d})

	case *BrIf:
		d, err := w.depth(n.Block)
		if err != nil {
			return err
		}
		w.op(wasm.OpBrIf, wasm.BranchImm{LabelIdx: d})

	case *BrTable:
		imm := wasm.BrTableImm{Labels: make([]uint32, len(n.Blocks))}
		for i, b := range n.Blocks {
			d, err := w.depth(b)
			if err != nil {
				return err
			}
			imm.Labels[i] = d
		}
		d, err := w.depth(n.Default)
		if err != nil {
			return err
		}
		imm.Default = d
		w.op(wasm.OpBrTable, imm)

	case *Call:
		idx, err := w.funcIdx(n.Func)
		if err != nil {
			return err
		}
		w.op(wasm.OpCall, wasm.CallImm{FuncIdx: idx})

	case *ReturnCall:
		idx, err := w.funcIdx(n.Func)
		if err != nil {
			return err
		}
		w.op(wasm.OpReturnCall, wasm.CallImm{FuncIdx: idx})

	case *CallIndirect:
		w.op(wasm.OpCallIndirect, wasm.CallIndirectImm{TypeIdx: uint32(n.Type), TableIdx: w.e.tableIdx[n.Table]})

	case *ReturnCallIndirect:
		w.op(wasm.OpReturnCallIndirect, wasm.CallIndirectImm{TypeIdx: uint32(n.Type), TableIdx: w.e.tableIdx[n.Table]})

	case *LocalGet:
		idx, err := w.local(n.Local)
		if err != nil {
			return err
		}
		w.op(wasm.OpLocalGet, wasm.LocalImm{LocalIdx: idx})

	case *LocalSet:
		idx, err := w.local(n.Local)
		if err != nil {
			return err
		}
		w.op(wasm.OpLocalSet, wasm.LocalImm{LocalIdx: idx})

	case *LocalTee:
		idx, err := w.local(n.Local)
		if err != nil {
			return err
		}
		w.op(wasm.OpLocalTee, wasm.LocalImm{LocalIdx: idx})

	case *TableGet:
		w.op(wasm.OpTableGet, wasm.TableImm{TableIdx: w.e.tableIdx[n.Table]})

	case *TableSet:
		w.op(wasm.OpTableSet, wasm.TableImm{TableIdx: w.e.tableIdx[n.Table]})

	case *Const:
		switch n.Value.Kind {
		case KindI32:
			w.op(wasm.OpI32Const, wasm.I32Imm{Value: n.Value.I32})
		case KindI64:
			w.op(wasm.OpI64Const, wasm.I64Imm{Value: n.Value.I64})
		case KindF32:
			w.op(wasm.OpF32Const, wasm.F32Imm{Value: n.Value.F32})
		case KindF64:
			w.op(wasm.OpF64Const, wasm.F64Imm{Value: n.Value.F64})
		default:
			return errors.UnsupportedType(errors.PhaseEmit, []string{"func", fmt.Sprint(w.id), "const"}, n.Value.Kind.String())
		}

	case *RefNull:
		w.op(wasm.OpRefNull, wasm.RefNullImm{HeapType: int64(n.Type.Heap)})

	case *RefFunc:
		idx, err := w.funcIdx(n.Func)
		if err != nil {
			return err
		}
		w.op(wasm.OpRefFunc, wasm.RefFuncImm{FuncIdx: idx})

	case *Throw:
		w.op(wasm.OpThrow, wasm.ThrowImm{TagIdx: w.e.tagIdx[n.Tag]})

	case *Return:
		w.op(wasm.OpReturn, nil)

	case *Unreachable:
		w.op(wasm.OpUnreachable, nil)

	case *Raw:
		w.out = append(w.out, n.Instr)

	default:
		return errors.Unsupported(errors.PhaseEmit, fmt.Sprintf("instruction %T", in))
	}
	return nil
}
