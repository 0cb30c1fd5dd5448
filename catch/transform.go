package catch

import (
	"go.uber.org/zap"

	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/ir"
	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

// Default export names of the runtime support handles.
const (
	DefaultTable  = "__wbindgen_externrefs"
	DefaultAlloc  = "__externref_table_alloc"
	DefaultSignal = "__wbindgen_exn_store"
)

// Config configures Transform.
type Config struct {
	// Matcher selects the function imports to wrap. Nil wraps nothing.
	Matcher ImportMatcher

	// Export names of the externref table, its slot allocator and the
	// exception store. Empty means the default name.
	Table  string
	Alloc  string
	Signal string

	// Strategy forces an encoding. StrategyNone detects it from the module's code.
	Strategy Strategy
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Alloc == "" {
		c.Alloc = DefaultAlloc
	}
	if c.Signal == "" {
		c.Signal = DefaultSignal
	}
	return c
}

// WrappedImport describes the wrapper of one matched import. Existing is
// set when the wrapper came from an earlier run.
type WrappedImport struct {
	Module   string
	Name     string
	Import   ir.FunctionID
	Wrapper  ir.FunctionID
	Existing bool
}

// Report summarizes a Transform.
type Report struct {
	Strategy       Strategy
	Tag            *ir.TagID
	Wrapped        []WrappedImport
	RewrittenCalls int
}

// Transform parses a module, wraps the matching function imports and
// re-encodes it. When no import matches, data is returned unchanged.
func Transform(data []byte, cfg Config) ([]byte, *Report, error) {
	cfg = cfg.withDefaults()
	m, err := ir.Parse(data)
	if err != nil {
		return nil, nil, err
	}

	meta, implements := Bind(m, cfg.Matcher)
	report := &Report{Strategy: cfg.Strategy}
	if len(flaggedImports(meta, implements)) == 0 {
		Logger().Debug("no import matched")
		return data, report, nil
	}

	if report.Strategy == StrategyNone {
		report.Strategy = DetectStrategy(m)
		if report.Strategy == StrategyNone {
			return nil, nil, errors.InvalidInput(errors.PhaseConfig,
				"module uses no exception handling instructions; select a strategy explicitly")
		}
		Logger().Debug("detected exception handling encoding", zap.Stringer("strategy", report.Strategy))
	}

	if id, ok := m.ExportedTable(cfg.Table); ok {
		meta.ExternrefTable = &id
	}
	if id, ok := m.ExportedFunc(cfg.Alloc); ok {
		meta.ExternrefAlloc = &id
	}
	if id, ok := m.ExportedFunc(cfg.Signal); ok {
		meta.ExnStore = &id
	}

	out, err := run(m, meta, implements, report.Strategy)
	if err != nil {
		return nil, nil, err
	}
	report.Tag = out.tag
	report.RewrittenCalls = out.rewritten
	for _, f := range out.flagged {
		w := WrappedImport{Import: f, Wrapper: out.wrappers[f], Existing: out.reused[f]}
		if imp, ok := m.Funcs.Get(f).Imported(); ok {
			i := m.Imports.Get(imp.Import)
			w.Module, w.Name = i.Module, i.Name
		}
		report.Wrapped = append(report.Wrapped, w)
	}

	encoded, err := m.Emit()
	if err != nil {
		return nil, nil, err
	}
	return encoded, report, nil
}

// Bind assigns one adapter per function import, in import order, and flags
// the adapters whose import matches.
func Bind(m *ir.Module, matcher ImportMatcher) (*Metadata, []Implement) {
	meta := &Metadata{ImportsWithCatch: make(map[AdapterID]struct{})}
	var implements []Implement
	for _, imp := range m.Imports.All() {
		if imp.Kind != wasm.KindFunc {
			continue
		}
		a := AdapterID(len(implements))
		implements = append(implements, Implement{Import: imp.ID, Func: imp.Func, Adapter: a})
		if matcher != nil && matcher.Match(imp.Module, imp.Name) {
			meta.ImportsWithCatch[a] = struct{}{}
		}
	}
	return meta, implements
}
