package catch

import (
	"math"
	"testing"

	"github.com/poccariswet/wasm-bindgen-sub000/ir"
)

func TestDefaultValue(t *testing.T) {
	tests := []struct {
		name string
		v    ir.ValType
		want ir.Instr
	}{
		{"i32", ir.I32, &ir.Const{Value: ir.I32Value(0)}},
		{"i64", ir.I64, &ir.Const{Value: ir.I64Value(0)}},
		{"f32", ir.F32, &ir.Const{Value: ir.F32Value(0)}},
		{"f64", ir.F64, &ir.Const{Value: ir.F64Value(0)}},
		{"externref", ir.ExternRef, &ir.RefNull{Type: ir.ExternRefType}},
		{"funcref", ir.FuncRef, &ir.RefNull{Type: ir.FuncRefType}},
		{"exnref", ir.Ref(ir.RefType{Nullable: true, Heap: ir.HeapExn}), &ir.RefNull{Type: ir.RefType{Nullable: true, Heap: ir.HeapExn}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultValue(tt.v)
			if !sameInstr(got, tt.want) {
				t.Errorf("DefaultValue(%s) = %#v, want %#v", tt.v, got, tt.want)
			}
		})
	}
}

func TestDefaultValue_FloatsArePositiveZero(t *testing.T) {
	for _, v := range []ir.ValType{ir.F32, ir.F64} {
		c, ok := DefaultValue(v).(*ir.Const)
		if !ok {
			t.Fatalf("DefaultValue(%s) is not a constant", v)
		}
		if !c.Value.IsPositiveZero() {
			t.Errorf("DefaultValue(%s) is not +0", v)
		}
		if math.Signbit(c.Value.F64) || math.Signbit(float64(c.Value.F32)) {
			t.Errorf("DefaultValue(%s) has the sign bit set", v)
		}
	}
}

func TestDefaultValue_V128Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("DefaultValue(v128) did not panic")
		}
	}()
	DefaultValue(ir.V128)
}
