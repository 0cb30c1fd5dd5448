package catch

import "github.com/poccariswet/wasm-bindgen-sub000/ir"

// emitHandler appends the code run once the tag caught an exception. The
// caught externref is on the stack on entry; on exit the stack holds one
// default per result.
func emitHandler(b *ir.SeqBuilder, h handles, exn, idx ir.LocalID, results []ir.ValType) {
	b.LocalSet(exn).
		Call(h.alloc).
		LocalTee(idx).
		LocalGet(exn).
		TableSet(h.table).
		LocalGet(idx).
		Call(h.store)
	for _, r := range results {
		b.Instr(DefaultValue(r))
	}
}
