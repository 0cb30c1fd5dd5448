package catch

import (
	"testing"

	"github.com/poccariswet/wasm-bindgen-sub000/ir"
	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

// fixture is a module with a flagged-candidate import, the runtime support
// functions and a caller of the import.
type fixture struct {
	m       *ir.Module
	imp     ir.FunctionID
	impID   ir.ImportID
	table   ir.TableID
	alloc   ir.FunctionID
	store   ir.FunctionID
	caller  ir.FunctionID
	meta    *Metadata
	impls   []Implement
	adapter AdapterID
}

type fixtureOpts struct {
	params  []ir.ValType
	results []ir.ValType
	legacy  bool // add a function using try/catch_all
	modern  bool // add a function using try_table
}

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	if o.params == nil {
		o.params = []ir.ValType{ir.I32}
	}
	m := ir.NewModule()
	f := &fixture{m: m}

	impTy := m.Types.Add(o.params, o.results)
	f.imp, f.impID = m.AddImportFunction("env", "my_import", impTy)
	m.Funcs.Get(f.imp).Name = "my_import"

	f.table = m.AddTable(ir.ExternRefType, 128, nil)
	m.ExportTable(DefaultTable, f.table)

	allocTy := m.Types.Add(nil, []ir.ValType{ir.I32})
	ab := ir.NewFunctionBuilder(m, allocTy).Name("alloc")
	ab.Body().I32Const(1)
	f.alloc = ab.Finish(nil)
	m.ExportFunc(DefaultAlloc, f.alloc)

	storeTy := m.Types.Add([]ir.ValType{ir.I32}, nil)
	slot := m.Locals.Add(ir.I32)
	f.store = ir.NewFunctionBuilder(m, storeTy).Name("store").Finish([]ir.LocalID{slot})
	m.ExportFunc(DefaultSignal, f.store)

	cb := ir.NewFunctionBuilder(m, impTy).Name("caller")
	var args []ir.LocalID
	for _, p := range o.params {
		l := m.Locals.Add(p)
		args = append(args, l)
		cb.Body().LocalGet(l)
	}
	cb.Body().Call(f.imp)
	f.caller = cb.Finish(args)
	m.ExportFunc("caller", f.caller)

	empty := m.Types.Add(nil, nil)
	if o.legacy {
		lb := ir.NewFunctionBuilder(m, empty).Name("uses_try")
		h := lb.DanglingSeq(ir.EmptyBlock())
		lb.Body().Try(ir.EmptyBlock(), func(in *ir.SeqBuilder) {
			in.Call(f.alloc).Instr(&ir.Raw{Instr: wasm.Instruction{Opcode: wasm.OpDrop}})
		}, ir.LegacyCatch{All: true, Handler: h.ID()})
		lb.Finish(nil)
	}
	if o.modern {
		own := m.AddTag(m.Types.Add([]ir.ValType{ir.I32}, nil))
		mb := ir.NewFunctionBuilder(m, empty).Name("uses_try_table")
		mb.Body().Block(ir.EmptyBlock(), func(blk *ir.SeqBuilder) {
			blk.TryTable(ir.EmptyBlock(), []ir.TryTableCatch{{Kind: ir.CatchAll, Label: blk.ID()}}, func(in *ir.SeqBuilder) {
				in.I32Const(3).Throw(own)
			})
		})
		mb.Finish(nil)
	}

	f.meta, f.impls = Bind(m, nil)
	f.adapter = f.impls[0].Adapter
	f.meta.ExternrefTable = &f.table
	f.meta.ExternrefAlloc = &f.alloc
	f.meta.ExnStore = &f.store
	return f
}

func (f *fixture) flag() *fixture {
	f.meta.ImportsWithCatch[f.adapter] = struct{}{}
	return f
}

// body returns the entry sequence instructions of a local function.
func body(t *testing.T, m *ir.Module, id ir.FunctionID) (*ir.LocalFunction, []ir.Instr) {
	t.Helper()
	lf, ok := m.Funcs.Get(id).Local()
	if !ok {
		t.Fatalf("function %d is not local", id)
	}
	return lf, lf.EntrySeq().Instrs
}

// calls lists the direct and tail call targets in a function.
func calls(t *testing.T, m *ir.Module, id ir.FunctionID) []ir.FunctionID {
	t.Helper()
	lf, _ := body(t, m, id)
	var out []ir.FunctionID
	ir.Walk(lf, func(in ir.Instr) {
		switch c := in.(type) {
		case *ir.Call:
			out = append(out, c.Func)
		case *ir.ReturnCall:
			out = append(out, c.Func)
		}
	})
	return out
}

func wrapperOf(t *testing.T, m *ir.Module, name string) ir.FunctionID {
	t.Helper()
	fn, ok := m.Funcs.ByName(name + wrapperSuffix)
	if !ok {
		t.Fatalf("no wrapper named %q", name+wrapperSuffix)
	}
	return fn.ID
}
