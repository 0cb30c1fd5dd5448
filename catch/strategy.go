package catch

import "github.com/poccariswet/wasm-bindgen-sub000/ir"

// DetectStrategy reports which exception-handling encoding the module's code
// already uses: StrategyModern if any function contains try_table,
// StrategyLegacy if some function contains try, StrategyNone otherwise.
func DetectStrategy(m *ir.Module) Strategy {
	legacy := false
	for _, f := range m.Funcs.All() {
		lf, ok := f.Local()
		if !ok {
			continue
		}
		modern := false
		ir.Walk(lf, func(in ir.Instr) {
			switch in.(type) {
			case *ir.TryTable:
				modern = true
			case *ir.Try:
				legacy = true
			}
		})
		if modern {
			return StrategyModern
		}
	}
	if legacy {
		return StrategyLegacy
	}
	return StrategyNone
}
