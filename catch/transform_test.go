package catch

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/ir"
)

// supportModule imports env.my_import (i32) -> i32 and env.log (i32) -> (),
// exports the externref support functions under the given names and a
// caller that invokes log and then my_import. It uses no exception handling.
func supportModule(t *testing.T, table, alloc, signal string) []byte {
	t.Helper()
	m := ir.NewModule()
	impTy := m.Types.Add([]ir.ValType{ir.I32}, []ir.ValType{ir.I32})
	sinkTy := m.Types.Add([]ir.ValType{ir.I32}, nil)
	imp, _ := m.AddImportFunction("env", "my_import", impTy)
	log, _ := m.AddImportFunction("env", "log", sinkTy)

	m.ExportTable(table, m.AddTable(ir.ExternRefType, 128, nil))

	ab := ir.NewFunctionBuilder(m, m.Types.Add(nil, []ir.ValType{ir.I32}))
	ab.Body().I32Const(1)
	m.ExportFunc(alloc, ab.Finish(nil))

	slot := m.Locals.Add(ir.I32)
	m.ExportFunc(signal, ir.NewFunctionBuilder(m, sinkTy).Finish([]ir.LocalID{slot}))

	arg := m.Locals.Add(ir.I32)
	cb := ir.NewFunctionBuilder(m, impTy)
	cb.Body().LocalGet(arg).Call(log).LocalGet(arg).Call(imp)
	m.ExportFunc("caller", cb.Finish([]ir.LocalID{arg}))

	bin, err := m.Emit()
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	return bin
}

func defaultSupportModule(t *testing.T) []byte {
	return supportModule(t, DefaultTable, DefaultAlloc, DefaultSignal)
}

func TestTransform_ForcedStrategy(t *testing.T) {
	for _, s := range []Strategy{StrategyLegacy, StrategyModern} {
		t.Run(s.String(), func(t *testing.T) {
			out, report, err := Transform(defaultSupportModule(t), Config{
				Matcher:  NewWildcardMatcher([]string{"env.my_import"}),
				Strategy: s,
			})
			if err != nil {
				t.Fatalf("Transform: %v", err)
			}
			if report.Strategy != s {
				t.Errorf("Strategy = %s, want %s", report.Strategy, s)
			}
			if len(report.Wrapped) != 1 {
				t.Fatalf("Wrapped = %+v, want one import", report.Wrapped)
			}
			w := report.Wrapped[0]
			if w.Module != "env" || w.Name != "my_import" {
				t.Errorf("wrapped %s.%s, want env.my_import", w.Module, w.Name)
			}
			if report.RewrittenCalls != 1 {
				t.Errorf("RewrittenCalls = %d, want 1", report.RewrittenCalls)
			}
			if report.Tag == nil {
				t.Error("Tag not reported")
			}

			m, err := ir.Parse(out)
			if err != nil {
				t.Fatalf("Parse output: %v", err)
			}
			if _, ok := m.Imports.Find(TagModule, TagName); !ok {
				t.Error("tag import missing from output")
			}
			wrapper := wrapperOf(t, m, "my_import")
			caller, _ := m.ExportedFunc("caller")
			log, _ := m.Imports.Find("env", "log")
			got := calls(t, m, caller)
			if len(got) != 2 || got[0] != log.Func || got[1] != wrapper {
				t.Errorf("caller calls %v, want [log wrapper]", got)
			}
			if got := DetectStrategy(m); got != s {
				t.Errorf("output detects as %s, want %s", got, s)
			}
		})
	}
}

func TestTransform_TwiceWrapsOnce(t *testing.T) {
	for _, s := range []Strategy{StrategyLegacy, StrategyModern} {
		t.Run(s.String(), func(t *testing.T) {
			matcher := NewWildcardMatcher([]string{"my_import"})
			once, _, err := Transform(defaultSupportModule(t), Config{Matcher: matcher, Strategy: s})
			if err != nil {
				t.Fatalf("first Transform: %v", err)
			}
			twice, report, err := Transform(once, Config{Matcher: matcher})
			if err != nil {
				t.Fatalf("second Transform: %v", err)
			}
			if report.Strategy != s {
				t.Errorf("second run detected %s, want %s", report.Strategy, s)
			}
			if len(report.Wrapped) != 1 || !report.Wrapped[0].Existing {
				t.Errorf("Wrapped = %+v, want the existing wrapper", report.Wrapped)
			}
			if report.RewrittenCalls != 0 {
				t.Errorf("RewrittenCalls = %d, want 0", report.RewrittenCalls)
			}

			m, err := ir.Parse(twice)
			if err != nil {
				t.Fatalf("Parse output: %v", err)
			}
			tags := 0
			for _, imp := range m.Imports.All() {
				if imp.Module == TagModule && imp.Name == TagName {
					tags++
				}
			}
			if tags != 1 {
				t.Errorf("host tag imported %d times, want once", tags)
			}
			wrappers := 0
			for _, fn := range m.Funcs.All() {
				if strings.HasSuffix(fn.Name, wrapperSuffix) {
					wrappers++
				}
			}
			if wrappers != 1 {
				t.Errorf("%d wrappers, want 1", wrappers)
			}
			imp, _ := m.Imports.Find("env", "my_import")
			w := wrapperOf(t, m, "my_import")
			if got := calls(t, m, w); len(got) < 1 || got[0] != imp.Func {
				t.Errorf("wrapper calls %v, want env.my_import first", got)
			}
			caller, _ := m.ExportedFunc("caller")
			if got := calls(t, m, caller); len(got) != 2 || got[1] != w {
				t.Errorf("caller calls %v, want [log wrapper]", got)
			}
		})
	}
}

func TestTransform_DetectsStrategy(t *testing.T) {
	f := newFixture(t, fixtureOpts{results: []ir.ValType{ir.I32}, legacy: true})
	bin, err := f.m.Emit()
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	_, report, err := Transform(bin, Config{Matcher: NewWildcardMatcher([]string{"env.*"})})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if report.Strategy != StrategyLegacy {
		t.Errorf("Strategy = %s, want legacy", report.Strategy)
	}
}

func TestTransform_NoMatchReturnsInput(t *testing.T) {
	bin := defaultSupportModule(t)
	out, report, err := Transform(bin, Config{Matcher: NewWildcardMatcher([]string{"nothing"})})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !bytes.Equal(out, bin) {
		t.Error("output differs from input")
	}
	if report.Tag != nil || len(report.Wrapped) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestTransform_NoEncodingToDetect(t *testing.T) {
	_, _, err := Transform(defaultSupportModule(t), Config{Matcher: NewWildcardMatcher([]string{"my_import"})})
	if err == nil {
		t.Fatal("expected error")
	}
	var ee *errors.Error
	if !stderrors.As(err, &ee) || ee.Phase != errors.PhaseConfig {
		t.Errorf("err = %v, want a config error", err)
	}
}

func TestTransform_CustomHandleNames(t *testing.T) {
	bin := supportModule(t, "refs", "alloc", "store")

	_, _, err := Transform(bin, Config{Matcher: NewWildcardMatcher([]string{"my_import"}), Strategy: StrategyModern})
	if !stderrors.Is(err, errors.ErrMissingHandle) {
		t.Fatalf("err = %v, want missing handles under default names", err)
	}

	_, report, err := Transform(bin, Config{
		Matcher:  NewWildcardMatcher([]string{"my_import"}),
		Table:    "refs",
		Alloc:    "alloc",
		Signal:   "store",
		Strategy: StrategyModern,
	})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(report.Wrapped) != 1 {
		t.Errorf("Wrapped = %+v", report.Wrapped)
	}
}

func TestTransform_InvalidInput(t *testing.T) {
	if _, _, err := Transform([]byte("not wasm"), Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBind(t *testing.T) {
	m, err := ir.Parse(defaultSupportModule(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	meta, impls := Bind(m, NewWildcardMatcher([]string{"log"}))
	if len(impls) != 2 {
		t.Fatalf("implements = %d, want 2", len(impls))
	}
	for i, impl := range impls {
		if impl.Adapter != AdapterID(i) {
			t.Errorf("adapter %d = %d", i, impl.Adapter)
		}
	}
	if _, ok := meta.ImportsWithCatch[impls[1].Adapter]; !ok {
		t.Error("log not flagged")
	}
	if _, ok := meta.ImportsWithCatch[impls[0].Adapter]; ok {
		t.Error("my_import flagged")
	}
}
