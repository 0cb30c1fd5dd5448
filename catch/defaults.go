package catch

import (
	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/ir"
)

// DefaultValue returns an instruction pushing the zero value of v: a zero
// constant for numbers and ref.null of v's exact reference type for
// references. There is no default for v128; DefaultValue panics.
func DefaultValue(v ir.ValType) ir.Instr {
	switch v.Kind {
	case ir.KindI32:
		return &ir.Const{Value: ir.I32Value(0)}
	case ir.KindI64:
		return &ir.Const{Value: ir.I64Value(0)}
	case ir.KindF32:
		return &ir.Const{Value: ir.F32Value(0)}
	case ir.KindF64:
		return &ir.Const{Value: ir.F64Value(0)}
	case ir.KindRef:
		return &ir.RefNull{Type: v.Ref}
	}
	panic(errors.UnsupportedType(errors.PhaseTransform, nil, v.String()))
}
