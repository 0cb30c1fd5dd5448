package catch

import "github.com/poccariswet/wasm-bindgen-sub000/ir"

// RewriteCalls retargets direct calls and tail calls whose callee is a key
// of wrappers to the mapped function. The mapped functions themselves are
// not rewritten, so a wrapper keeps calling its original import. It returns
// the number of retargeted instructions.
func RewriteCalls(m *ir.Module, wrappers map[ir.FunctionID]ir.FunctionID) int {
	if len(wrappers) == 0 {
		return 0
	}
	skip := make(map[ir.FunctionID]struct{}, len(wrappers))
	for _, w := range wrappers {
		skip[w] = struct{}{}
	}
	n := 0
	for _, f := range m.Funcs.All() {
		if _, ok := skip[f.ID]; ok {
			continue
		}
		lf, ok := f.Local()
		if !ok {
			continue
		}
		ir.Walk(lf, func(in ir.Instr) {
			switch c := in.(type) {
			case *ir.Call:
				if w, ok := wrappers[c.Func]; ok {
					c.Func = w
					n++
				}
			case *ir.ReturnCall:
				if w, ok := wrappers[c.Func]; ok {
					c.Func = w
					n++
				}
			}
		})
	}
	return n
}
