package catch

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/ir"
)

// AdapterID identifies an adapter assigned by the interface layer.
type AdapterID uint32

// Implement ties an adapter to the low-level import that implements it.
type Implement struct {
	Import  ir.ImportID
	Func    ir.FunctionID
	Adapter AdapterID
}

// Metadata is the interface-layer state the pass consumes and extends.
// ImportsWithCatch lists adapters whose host calls may throw. JSTag is
// written by Run.
type Metadata struct {
	ImportsWithCatch map[AdapterID]struct{}
	ExternrefTable   *ir.TableID
	ExternrefAlloc   *ir.FunctionID
	ExnStore         *ir.FunctionID
	JSTag            *ir.TagID
}

// Strategy selects the exception-handling encoding of the wrappers.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyLegacy
	StrategyModern
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyLegacy:
		return "legacy"
	case StrategyModern:
		return "modern"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses "legacy", "modern", or "auto" (StrategyNone, which
// Transform resolves by probing the module).
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "auto", "none":
		return StrategyNone, nil
	case "legacy":
		return StrategyLegacy, nil
	case "modern":
		return StrategyModern, nil
	}
	return StrategyNone, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown strategy %q", s))
}

type handles struct {
	table ir.TableID
	alloc ir.FunctionID
	store ir.FunctionID
}

// outcome is what a run did, for reporting. wrappers covers every flagged
// import; reused marks the ones wrapped by an earlier run.
type outcome struct {
	wrappers  map[ir.FunctionID]ir.FunctionID
	reused    map[ir.FunctionID]bool
	tag       *ir.TagID
	flagged   []ir.FunctionID
	rewritten int
}

// Run generates catch wrappers for every import whose adapter is flagged in
// meta and retargets calls to them. Nothing is changed when no adapter is
// flagged. A missing table, allocator or store handle is a configuration
// error; all of them are reported together and the module is left as is.
//
// Imports that already have a wrapper from an earlier run are not wrapped
// again, and an existing host tag import is reused.
//
// Run panics if strategy is StrategyNone while imports are flagged, or if a
// flagged import returns v128. Both are checked before the module is
// modified.
func Run(m *ir.Module, meta *Metadata, implements []Implement, strategy Strategy) error {
	_, err := run(m, meta, implements, strategy)
	return err
}

func run(m *ir.Module, meta *Metadata, implements []Implement, strategy Strategy) (*outcome, error) {
	if meta == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "nil metadata")
	}
	flagged := flaggedImports(meta, implements)
	if len(flagged) == 0 {
		Logger().Debug("no imports flagged for catching")
		return &outcome{}, nil
	}
	h, err := checkPreconditions(m, meta, flagged)
	if err != nil {
		return nil, err
	}
	if strategy == StrategyNone {
		panic("catch: imports are flagged but no exception-handling strategy was selected")
	}
	for _, f := range flagged {
		fn := m.Funcs.Get(f)
		for _, r := range m.Types.Results(fn.Type) {
			if r.Kind == ir.KindV128 {
				panic(errors.UnsupportedType(errors.PhaseTransform, []string{wrapperBaseName(m, fn)}, r.String()))
			}
		}
	}

	tag, found, err := existingJSTag(m)
	if err != nil {
		return nil, err
	}
	if !found {
		tag = importJSTag(m)
	}
	existing := existingWrappers(m)
	wrappers := make(map[ir.FunctionID]ir.FunctionID, len(flagged))
	reused := make(map[ir.FunctionID]bool)
	for _, f := range flagged {
		if w, ok := existing[f]; ok {
			wrappers[f] = w
			reused[f] = true
			Logger().Debug("import already wrapped",
				zap.Uint32("import", uint32(f)),
				zap.Uint32("wrapper", uint32(w)))
			continue
		}
		w := generateWrapper(m, strategy, m.Funcs.Get(f), tag, h)
		wrappers[f] = w
		Logger().Debug("generated catch wrapper",
			zap.Uint32("import", uint32(f)),
			zap.Uint32("wrapper", uint32(w)),
			zap.Stringer("strategy", strategy))
	}
	n := RewriteCalls(m, wrappers)
	meta.JSTag = &tag
	Logger().Debug("catch pass complete",
		zap.Int("wrapped", len(wrappers)-len(reused)),
		zap.Int("reused", len(reused)),
		zap.Int("rewritten_calls", n))
	return &outcome{wrappers: wrappers, reused: reused, tag: &tag, flagged: flagged, rewritten: n}, nil
}

// flaggedImports returns the distinct functions of flagged adapters in
// ascending order.
func flaggedImports(meta *Metadata, implements []Implement) []ir.FunctionID {
	seen := make(map[ir.FunctionID]bool)
	var out []ir.FunctionID
	for _, impl := range implements {
		if _, ok := meta.ImportsWithCatch[impl.Adapter]; !ok {
			continue
		}
		if seen[impl.Func] {
			continue
		}
		seen[impl.Func] = true
		out = append(out, impl.Func)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func checkPreconditions(m *ir.Module, meta *Metadata, flagged []ir.FunctionID) (handles, error) {
	var (
		h   handles
		err error
	)
	if meta.ExternrefTable == nil {
		err = multierr.Append(err, errors.MissingHandle("externref table"))
	} else {
		h.table = *meta.ExternrefTable
	}
	if meta.ExternrefAlloc == nil {
		err = multierr.Append(err, errors.MissingHandle("externref allocator"))
	} else {
		h.alloc = *meta.ExternrefAlloc
	}
	if meta.ExnStore == nil {
		err = multierr.Append(err, errors.MissingHandle("exception store"))
	} else {
		h.store = *meta.ExnStore
	}
	for _, f := range flagged {
		fn := m.Funcs.Get(f)
		if fn == nil {
			err = multierr.Append(err, errors.NotFound(errors.PhaseConfig, "function", fmt.Sprint(f)))
			continue
		}
		if _, ok := fn.Imported(); !ok {
			err = multierr.Append(err, errors.InvalidInput(errors.PhaseConfig,
				fmt.Sprintf("function %d (%s) is not an import", f, fn.Name)))
		}
	}
	return h, err
}
