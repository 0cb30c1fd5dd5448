package catch

import (
	"strings"

	"github.com/poccariswet/wasm-bindgen-sub000/ir"
)

const wrapperSuffix = " catch wrapper"

// wrapperBaseName is the import's debug name, or its field name when the
// function is unnamed.
func wrapperBaseName(m *ir.Module, fn *ir.Function) string {
	if fn.Name != "" {
		return fn.Name
	}
	if name, ok := m.ImportName(fn.ID); ok {
		return name
	}
	return ""
}

// existingWrappers maps imports to the catch wrappers an earlier run left in
// m. A wrapper is recognized by its name and its direct call to the import.
func existingWrappers(m *ir.Module) map[ir.FunctionID]ir.FunctionID {
	out := make(map[ir.FunctionID]ir.FunctionID)
	for _, f := range m.Funcs.All() {
		lf, ok := f.Local()
		if !ok || !strings.HasSuffix(f.Name, wrapperSuffix) {
			continue
		}
		ir.Walk(lf, func(in ir.Instr) {
			c, ok := in.(*ir.Call)
			if !ok {
				return
			}
			callee := m.Funcs.Get(c.Func)
			if callee == nil {
				return
			}
			if _, imported := callee.Imported(); imported && wrapperBaseName(m, callee)+wrapperSuffix == f.Name {
				out[c.Func] = f.ID
			}
		})
	}
	return out
}

// generateWrapper builds a function with the import's type that forwards its
// parameters to the import and converts a tag exception into the handler
// sequence.
func generateWrapper(m *ir.Module, strategy Strategy, fn *ir.Function, tag ir.TagID, h handles) ir.FunctionID {
	ty := m.Types.Get(fn.Type)
	params := make([]ir.LocalID, len(ty.Params))
	for i, p := range ty.Params {
		params[i] = m.Locals.Add(p)
	}
	idx := m.Locals.Add(ir.I32)
	exn := m.Locals.Add(ir.ExternRef)

	fb := ir.NewFunctionBuilder(m, fn.Type)
	fb.Name(wrapperBaseName(m, fn) + wrapperSuffix)

	switch strategy {
	case StrategyModern:
		modernWrapper(fb, fn.ID, params, tag, h, exn, idx, ty.Results)
	case StrategyLegacy:
		legacyWrapper(m, fb, fn.ID, params, tag, h, exn, idx, ty.Results)
	default:
		panic("catch: unknown strategy " + strategy.String())
	}
	return fb.Finish(params)
}

// modernWrapper:
//
//	block (result externref)
//	  try_table (catch $tag 0)
//	    params; call; return
//	  end
//	  unreachable
//	end
//	handler
func modernWrapper(fb *ir.FunctionBuilder, callee ir.FunctionID, params []ir.LocalID, tag ir.TagID, h handles, exn, idx ir.LocalID, results []ir.ValType) {
	body := fb.Body()
	body.Block(ir.SingleBlock(ir.ExternRef), func(caught *ir.SeqBuilder) {
		clauses := []ir.TryTableCatch{{Kind: ir.CatchTag, Tag: tag, Label: caught.ID()}}
		caught.TryTable(ir.EmptyBlock(), clauses, func(inner *ir.SeqBuilder) {
			for _, p := range params {
				inner.LocalGet(p)
			}
			inner.Call(callee).Return()
		})
		caught.Unreachable()
	})
	emitHandler(body, h, exn, idx, results)
}

// legacyWrapper:
//
//	try (results)
//	  params; call
//	catch $tag
//	  handler
//	end
//
// The handler sequence gets a fresh (externref) -> (results) type for every
// wrapper, even when an identical type exists.
func legacyWrapper(m *ir.Module, fb *ir.FunctionBuilder, callee ir.FunctionID, params []ir.LocalID, tag ir.TagID, h handles, exn, idx ir.LocalID, results []ir.ValType) {
	handlerTy := m.Types.Insert([]ir.ValType{ir.ExternRef}, results)
	handler := fb.DanglingSeq(ir.MultiBlock(handlerTy))
	emitHandler(handler, h, exn, idx, results)

	fb.Body().Try(resultBlockType(m, results), func(inner *ir.SeqBuilder) {
		for _, p := range params {
			inner.LocalGet(p)
		}
		inner.Call(callee)
	}, ir.LegacyCatch{Tag: tag, Handler: handler.ID()})
}

// resultBlockType is the block type producing results from nothing.
func resultBlockType(m *ir.Module, results []ir.ValType) ir.BlockType {
	switch len(results) {
	case 0:
		return ir.EmptyBlock()
	case 1:
		return ir.SingleBlock(results[0])
	}
	return ir.MultiBlock(m.Types.Add(nil, results))
}
