package catch

import (
	stderrors "errors"
	"testing"

	"go.uber.org/multierr"

	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/ir"
)

func TestRun_LegacyWrapsFlaggedImport(t *testing.T) {
	f := newFixture(t, fixtureOpts{results: []ir.ValType{ir.I32}, legacy: true}).flag()
	before := f.m.Funcs.Len()

	if err := Run(f.m, f.meta, f.impls, StrategyLegacy); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.m.Funcs.Len(); got != before+1 {
		t.Fatalf("Funcs.Len = %d, want %d", got, before+1)
	}
	if f.meta.JSTag == nil {
		t.Fatal("JSTag not set")
	}
	imp, ok := f.m.Imports.Find(TagModule, TagName)
	if !ok {
		t.Fatal("tag import missing")
	}
	if imp.Tag != *f.meta.JSTag {
		t.Errorf("tag import = %d, JSTag = %d", imp.Tag, *f.meta.JSTag)
	}
	tagTy := f.m.Tags.Get(*f.meta.JSTag).Type
	if p := f.m.Types.Params(tagTy); len(p) != 1 || p[0] != ir.ExternRef {
		t.Errorf("tag params = %v, want [externref]", p)
	}

	w := wrapperOf(t, f.m, "my_import")
	if f.m.Funcs.Get(w).Type != f.m.Funcs.Get(f.imp).Type {
		t.Error("wrapper type differs from import type")
	}
	if got := calls(t, f.m, f.caller); len(got) != 1 || got[0] != w {
		t.Errorf("caller calls %v, want [%d]", got, w)
	}
	if got := calls(t, f.m, w); len(got) < 1 || got[0] != f.imp {
		t.Errorf("wrapper calls %v, want the import first", got)
	}
}

func TestRun_LegacyWrapperShape(t *testing.T) {
	results := []ir.ValType{ir.I32}
	f := newFixture(t, fixtureOpts{results: results, legacy: true}).flag()
	if err := Run(f.m, f.meta, f.impls, StrategyLegacy); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lf, instrs := body(t, f.m, wrapperOf(t, f.m, "my_import"))
	if len(instrs) != 1 {
		t.Fatalf("entry has %d instructions, want a single try", len(instrs))
	}
	try, ok := instrs[0].(*ir.Try)
	if !ok {
		t.Fatalf("entry[0] = %T, want *ir.Try", instrs[0])
	}
	if bt := lf.Seq(try.Seq).Type; bt.Kind != ir.BlockSingle || bt.Result != ir.I32 {
		t.Errorf("try block type = %+v, want single i32", bt)
	}
	if len(try.Catches) != 1 || try.Catches[0].All || try.Catches[0].Tag != *f.meta.JSTag {
		t.Fatalf("catches = %+v, want one clause on the host tag", try.Catches)
	}

	handler := lf.Seq(try.Catches[0].Handler)
	if handler.Type.Kind != ir.BlockMulti {
		t.Fatalf("handler block type kind = %v, want multi", handler.Type.Kind)
	}
	hty := f.m.Types.Get(handler.Type.Type)
	if len(hty.Params) != 1 || hty.Params[0] != ir.ExternRef || len(hty.Results) != 1 || hty.Results[0] != ir.I32 {
		t.Errorf("handler type = %s, want (externref) -> (i32)", hty)
	}
	assertHandler(t, f, handler.Instrs, results)
	assertSingleEncoding(t, lf, StrategyLegacy)
}

// assertSingleEncoding fails when a wrapper mixes try/catch with try_table.
func assertSingleEncoding(t *testing.T, lf *ir.LocalFunction, s Strategy) {
	t.Helper()
	var tries, tables int
	ir.Walk(lf, func(in ir.Instr) {
		switch in.(type) {
		case *ir.Try:
			tries++
		case *ir.TryTable:
			tables++
		}
	})
	switch s {
	case StrategyLegacy:
		if tries != 1 || tables != 0 {
			t.Errorf("legacy wrapper has %d try and %d try_table, want 1 and 0", tries, tables)
		}
	case StrategyModern:
		if tries != 0 || tables != 1 {
			t.Errorf("modern wrapper has %d try and %d try_table, want 0 and 1", tries, tables)
		}
	}
}

func TestRun_LegacyHandlerTypeIsFreshPerWrapper(t *testing.T) {
	f := newFixture(t, fixtureOpts{legacy: true})
	m := f.m
	// a second import with the same signature
	second, _ := m.AddImportFunction("env", "other", m.Funcs.Get(f.imp).Type)
	pre := m.Types.Add([]ir.ValType{ir.ExternRef}, nil)

	meta, impls := Bind(m, NewWildcardMatcher([]string{"env.my_import", "other"}))
	meta.ExternrefTable, meta.ExternrefAlloc, meta.ExnStore = &f.table, &f.alloc, &f.store
	if len(meta.ImportsWithCatch) != 2 {
		t.Fatalf("flagged %d adapters, want 2", len(meta.ImportsWithCatch))
	}

	if err := Run(m, meta, impls, StrategyLegacy); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var handlerTypes []ir.TypeID
	for _, name := range []string{"my_import", "other"} {
		lf, instrs := body(t, m, wrapperOf(t, m, name))
		try := instrs[0].(*ir.Try)
		handlerTypes = append(handlerTypes, lf.Seq(try.Catches[0].Handler).Type.Type)
	}
	if handlerTypes[0] == handlerTypes[1] {
		t.Error("wrappers share a handler type")
	}
	for _, ty := range handlerTypes {
		if ty == pre {
			t.Error("handler reused the existing (externref) -> () type")
		}
	}
	if got := calls(t, m, wrapperOf(t, m, "other")); got[0] != second {
		t.Errorf("other wrapper calls %d, want %d", got[0], second)
	}
}

func TestRun_ModernWrapperShape(t *testing.T) {
	results := []ir.ValType{ir.I64, ir.ExternRef}
	f := newFixture(t, fixtureOpts{params: []ir.ValType{ir.I32, ir.F64}, results: results, modern: true}).flag()
	if err := Run(f.m, f.meta, f.impls, StrategyModern); err != nil {
		t.Fatalf("Run: %v", err)
	}
	w := wrapperOf(t, f.m, "my_import")
	lf, instrs := body(t, f.m, w)
	if len(instrs) < 1 {
		t.Fatal("empty wrapper")
	}
	blk, ok := instrs[0].(*ir.Block)
	if !ok {
		t.Fatalf("entry[0] = %T, want *ir.Block", instrs[0])
	}
	outer := lf.Seq(blk.Seq)
	if outer.Type.Kind != ir.BlockSingle || outer.Type.Result != ir.ExternRef {
		t.Errorf("outer block type = %+v, want single externref", outer.Type)
	}
	if len(outer.Instrs) != 2 {
		t.Fatalf("outer block has %d instructions, want try_table and unreachable", len(outer.Instrs))
	}
	tt, ok := outer.Instrs[0].(*ir.TryTable)
	if !ok {
		t.Fatalf("outer[0] = %T, want *ir.TryTable", outer.Instrs[0])
	}
	if _, ok := outer.Instrs[1].(*ir.Unreachable); !ok {
		t.Errorf("outer[1] = %T, want *ir.Unreachable", outer.Instrs[1])
	}
	if len(tt.Catches) != 1 {
		t.Fatalf("catches = %+v", tt.Catches)
	}
	c := tt.Catches[0]
	if c.Kind != ir.CatchTag || c.Tag != *f.meta.JSTag || c.Label != blk.Seq {
		t.Errorf("catch = %+v, want catch on host tag targeting the outer block", c)
	}

	inner := lf.Seq(tt.Seq).Instrs
	if len(inner) != len(lf.Params)+2 {
		t.Fatalf("protected body has %d instructions, want %d", len(inner), len(lf.Params)+2)
	}
	for i, p := range lf.Params {
		g, ok := inner[i].(*ir.LocalGet)
		if !ok || g.Local != p {
			t.Errorf("inner[%d] = %#v, want local.get of param %d", i, inner[i], i)
		}
	}
	if call, ok := inner[len(lf.Params)].(*ir.Call); !ok || call.Func != f.imp {
		t.Errorf("protected call = %#v, want call of the import", inner[len(lf.Params)])
	}
	if _, ok := inner[len(inner)-1].(*ir.Return); !ok {
		t.Errorf("protected body ends with %T, want return", inner[len(inner)-1])
	}

	assertHandler(t, f, instrs[1:], results)
	assertSingleEncoding(t, lf, StrategyModern)
	if got := calls(t, f.m, f.caller); got[0] != w {
		t.Errorf("caller calls %d, want wrapper %d", got[0], w)
	}
}

func TestRun_SecondRunReusesTagAndWrapper(t *testing.T) {
	for _, s := range []Strategy{StrategyLegacy, StrategyModern} {
		t.Run(s.String(), func(t *testing.T) {
			f := newFixture(t, fixtureOpts{results: []ir.ValType{ir.I32}}).flag()
			if err := Run(f.m, f.meta, f.impls, s); err != nil {
				t.Fatalf("first Run: %v", err)
			}
			firstTag := *f.meta.JSTag
			w := wrapperOf(t, f.m, "my_import")
			funcs, imports := f.m.Funcs.Len(), f.m.Imports.Len()

			f.meta.JSTag = nil
			if err := Run(f.m, f.meta, f.impls, s); err != nil {
				t.Fatalf("second Run: %v", err)
			}
			if f.m.Funcs.Len() != funcs || f.m.Imports.Len() != imports {
				t.Errorf("second run grew the module: funcs %d -> %d, imports %d -> %d",
					funcs, f.m.Funcs.Len(), imports, f.m.Imports.Len())
			}
			if f.meta.JSTag == nil || *f.meta.JSTag != firstTag {
				t.Errorf("JSTag = %v, want reused tag %d", f.meta.JSTag, firstTag)
			}
			if got := calls(t, f.m, w); len(got) < 1 || got[0] != f.imp {
				t.Errorf("wrapper calls %v, want the import first", got)
			}
			if got := calls(t, f.m, f.caller); len(got) != 1 || got[0] != w {
				t.Errorf("caller calls %v, want [%d]", got, w)
			}
		})
	}
}

func TestRun_ReusesExistingHostTagImport(t *testing.T) {
	f := newFixture(t, fixtureOpts{}).flag()
	tagTy := f.m.Types.Add([]ir.ValType{ir.ExternRef}, nil)
	pre, _ := f.m.AddImportTag(TagModule, TagName, tagTy)
	imports := f.m.Imports.Len()

	if err := Run(f.m, f.meta, f.impls, StrategyModern); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.m.Imports.Len() != imports {
		t.Errorf("Imports.Len = %d, want %d", f.m.Imports.Len(), imports)
	}
	if *f.meta.JSTag != pre {
		t.Errorf("JSTag = %d, want existing tag %d", *f.meta.JSTag, pre)
	}
}

func TestRun_MistypedHostTagImport(t *testing.T) {
	f := newFixture(t, fixtureOpts{}).flag()
	f.m.AddImportTag(TagModule, TagName, f.m.Types.Add([]ir.ValType{ir.I32}, nil))
	funcs := f.m.Funcs.Len()

	err := Run(f.m, f.meta, f.impls, StrategyLegacy)
	var ee *errors.Error
	if !stderrors.As(err, &ee) || ee.Kind != errors.KindInvalidInput || ee.Phase != errors.PhaseConfig {
		t.Fatalf("err = %v, want config invalid input", err)
	}
	if f.m.Funcs.Len() != funcs {
		t.Error("module modified on error")
	}
}

// assertHandler checks the stash-and-default sequence.
func assertHandler(t *testing.T, f *fixture, instrs []ir.Instr, results []ir.ValType) {
	t.Helper()
	if len(instrs) != 7+len(results) {
		t.Fatalf("handler has %d instructions, want %d", len(instrs), 7+len(results))
	}
	set, ok := instrs[0].(*ir.LocalSet)
	if !ok {
		t.Fatalf("handler[0] = %T, want local.set", instrs[0])
	}
	exn := set.Local
	if l := f.m.Locals.Get(exn); l.Type != ir.ExternRef {
		t.Errorf("exception local type = %s, want externref", l.Type)
	}
	if c, ok := instrs[1].(*ir.Call); !ok || c.Func != f.alloc {
		t.Errorf("handler[1] = %#v, want call of the allocator", instrs[1])
	}
	tee, ok := instrs[2].(*ir.LocalTee)
	if !ok {
		t.Fatalf("handler[2] = %T, want local.tee", instrs[2])
	}
	if l := f.m.Locals.Get(tee.Local); l.Type != ir.I32 {
		t.Errorf("slot local type = %s, want i32", l.Type)
	}
	if g, ok := instrs[3].(*ir.LocalGet); !ok || g.Local != exn {
		t.Errorf("handler[3] = %#v, want local.get of the exception", instrs[3])
	}
	if s, ok := instrs[4].(*ir.TableSet); !ok || s.Table != f.table {
		t.Errorf("handler[4] = %#v, want table.set on the externref table", instrs[4])
	}
	if g, ok := instrs[5].(*ir.LocalGet); !ok || g.Local != tee.Local {
		t.Errorf("handler[5] = %#v, want local.get of the slot", instrs[5])
	}
	if c, ok := instrs[6].(*ir.Call); !ok || c.Func != f.store {
		t.Errorf("handler[6] = %#v, want call of the store", instrs[6])
	}
	for i, r := range results {
		if got, want := instrs[7+i], DefaultValue(r); !sameInstr(got, want) {
			t.Errorf("default %d = %#v, want %#v", i, got, want)
		}
	}
}

func sameInstr(a, b ir.Instr) bool {
	switch x := a.(type) {
	case *ir.Const:
		y, ok := b.(*ir.Const)
		return ok && x.Value == y.Value
	case *ir.RefNull:
		y, ok := b.(*ir.RefNull)
		return ok && x.Type == y.Type
	}
	return false
}

func TestRun_EmptyFlaggedSetIsNoOp(t *testing.T) {
	f := newFixture(t, fixtureOpts{results: []ir.ValType{ir.I32}, legacy: true})
	funcs, types, imports := f.m.Funcs.Len(), f.m.Types.Len(), f.m.Imports.Len()

	if err := Run(f.m, f.meta, f.impls, StrategyLegacy); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.m.Funcs.Len() != funcs || f.m.Types.Len() != types || f.m.Imports.Len() != imports {
		t.Error("module changed with nothing flagged")
	}
	if f.meta.JSTag != nil {
		t.Error("JSTag set with nothing flagged")
	}
	if got := calls(t, f.m, f.caller); got[0] != f.imp {
		t.Errorf("caller retargeted to %d", got[0])
	}
}

func TestRun_EmptyFlaggedSetSkipsChecks(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.meta.ExternrefTable, f.meta.ExternrefAlloc, f.meta.ExnStore = nil, nil, nil
	if err := Run(f.m, f.meta, f.impls, StrategyNone); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_V128ResultAborts(t *testing.T) {
	f := newFixture(t, fixtureOpts{results: []ir.ValType{ir.V128}, legacy: true}).flag()
	funcs, imports := f.m.Funcs.Len(), f.m.Imports.Len()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Run did not panic")
		}
		err, ok := r.(*errors.Error)
		if !ok {
			t.Fatalf("panic value = %T, want *errors.Error", r)
		}
		if !stderrors.Is(err, errors.ErrUnsupportedType) {
			t.Errorf("panic = %v, want unsupported type", err)
		}
		if err.Type != "v128" {
			t.Errorf("Type = %q, want v128", err.Type)
		}
		if f.m.Funcs.Len() != funcs || f.m.Imports.Len() != imports {
			t.Error("module changed before the abort")
		}
		if f.meta.JSTag != nil {
			t.Error("JSTag set after abort")
		}
	}()
	_ = Run(f.m, f.meta, f.impls, StrategyLegacy)
}

func TestRun_StrategyNonePanics(t *testing.T) {
	f := newFixture(t, fixtureOpts{}).flag()
	defer func() {
		if recover() == nil {
			t.Fatal("Run did not panic")
		}
	}()
	_ = Run(f.m, f.meta, f.impls, StrategyNone)
}

func TestRun_MissingHandles(t *testing.T) {
	tests := []struct {
		name    string
		clear   func(*Metadata)
		handles []string
	}{
		{"table", func(m *Metadata) { m.ExternrefTable = nil }, []string{"externref table"}},
		{"allocator", func(m *Metadata) { m.ExternrefAlloc = nil }, []string{"externref allocator"}},
		{"store", func(m *Metadata) { m.ExnStore = nil }, []string{"exception store"}},
		{"all", func(m *Metadata) {
			m.ExternrefTable, m.ExternrefAlloc, m.ExnStore = nil, nil, nil
		}, []string{"externref table", "externref allocator", "exception store"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureOpts{legacy: true}).flag()
			tt.clear(f.meta)
			funcs, imports := f.m.Funcs.Len(), f.m.Imports.Len()

			err := Run(f.m, f.meta, f.impls, StrategyLegacy)
			if err == nil {
				t.Fatal("expected error")
			}
			errs := multierr.Errors(err)
			if len(errs) != len(tt.handles) {
				t.Fatalf("got %d errors, want %d: %v", len(errs), len(tt.handles), err)
			}
			for i, e := range errs {
				if !stderrors.Is(e, errors.ErrMissingHandle) {
					t.Errorf("error %d = %v, want missing handle", i, e)
				}
				var ee *errors.Error
				if stderrors.As(e, &ee) && ee.Handle != tt.handles[i] {
					t.Errorf("error %d handle = %q, want %q", i, ee.Handle, tt.handles[i])
				}
			}
			if f.m.Funcs.Len() != funcs || f.m.Imports.Len() != imports || f.meta.JSTag != nil {
				t.Error("module changed after a configuration error")
			}
		})
	}
}

func TestRun_FlaggedLocalFunctionIsRejected(t *testing.T) {
	f := newFixture(t, fixtureOpts{legacy: true})
	f.impls = append(f.impls, Implement{Func: f.caller, Adapter: 99})
	f.meta.ImportsWithCatch[99] = struct{}{}

	err := Run(f.m, f.meta, f.impls, StrategyLegacy)
	if err == nil {
		t.Fatal("expected error")
	}
	var ee *errors.Error
	if !stderrors.As(err, &ee) || ee.Kind != errors.KindInvalidInput {
		t.Errorf("err = %v, want invalid input", err)
	}
}

func TestRun_NilMetadata(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	if err := Run(f.m, nil, f.impls, StrategyLegacy); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_DuplicateAdaptersWrapOnce(t *testing.T) {
	f := newFixture(t, fixtureOpts{legacy: true}).flag()
	f.impls = append(f.impls, Implement{Import: f.impID, Func: f.imp, Adapter: 7})
	f.meta.ImportsWithCatch[7] = struct{}{}
	before := f.m.Funcs.Len()

	if err := Run(f.m, f.meta, f.impls, StrategyLegacy); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.m.Funcs.Len(); got != before+1 {
		t.Errorf("Funcs.Len = %d, want %d", got, before+1)
	}
}

func TestRun_UnnamedImportUsesFieldName(t *testing.T) {
	f := newFixture(t, fixtureOpts{legacy: true}).flag()
	f.m.Funcs.Get(f.imp).Name = ""
	if err := Run(f.m, f.meta, f.impls, StrategyLegacy); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wrapperOf(t, f.m, "my_import")
}

func TestRun_EmitsDecodableModule(t *testing.T) {
	for _, s := range []Strategy{StrategyLegacy, StrategyModern} {
		t.Run(s.String(), func(t *testing.T) {
			f := newFixture(t, fixtureOpts{results: []ir.ValType{ir.I32, ir.F32}, legacy: true}).flag()
			if err := Run(f.m, f.meta, f.impls, s); err != nil {
				t.Fatalf("Run: %v", err)
			}
			bin, err := f.m.Emit()
			if err != nil {
				t.Fatalf("Emit: %v", err)
			}
			back, err := ir.Parse(bin)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			w := wrapperOf(t, back, "my_import")
			caller, ok := back.ExportedFunc("caller")
			if !ok {
				t.Fatal("caller export lost")
			}
			if got := calls(t, back, caller); got[0] != w {
				t.Errorf("caller calls %d after re-parse, want %d", got[0], w)
			}
			if _, ok := back.Imports.Find(TagModule, TagName); !ok {
				t.Error("tag import lost")
			}
		})
	}
}
