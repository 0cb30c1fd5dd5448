package ir

import (
	"fmt"

	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

// ValKind is the kind of a value type.
type ValKind byte

const (
	KindI32 ValKind = iota + 1
	KindI64
	KindF32
	KindF64
	KindV128
	KindRef
)

func (k ValKind) String() string {
	if k == KindRef {
		return "ref"
	}
	return ValType{Kind: k}.String()
}

// HeapType is an abstract heap type code (negative, as encoded in s33) or a
// concrete type index (non-negative).
type HeapType int64

// Abstract heap types.
const (
	HeapFunc     = HeapType(wasm.HeapTypeFunc)
	HeapExtern   = HeapType(wasm.HeapTypeExtern)
	HeapAny      = HeapType(wasm.HeapTypeAny)
	HeapEq       = HeapType(wasm.HeapTypeEq)
	HeapI31      = HeapType(wasm.HeapTypeI31)
	HeapStruct   = HeapType(wasm.HeapTypeStruct)
	HeapArray    = HeapType(wasm.HeapTypeArray)
	HeapExn      = HeapType(wasm.HeapTypeExn)
	HeapNone     = HeapType(wasm.HeapTypeNone)
	HeapNoExtern = HeapType(wasm.HeapTypeNoExtern)
	HeapNoFunc   = HeapType(wasm.HeapTypeNoFunc)
	HeapNoExn    = HeapType(wasm.HeapTypeNoExn)
)

// ConcreteHeap returns the heap type referring to a defined type.
func ConcreteHeap(t TypeID) HeapType {
	return HeapType(t)
}

// IsAbstract reports whether h is one of the predefined heap types.
func (h HeapType) IsAbstract() bool {
	return h < 0
}

func (h HeapType) String() string {
	switch h {
	case HeapFunc:
		return "func"
	case HeapExtern:
		return "extern"
	case HeapAny:
		return "any"
	case HeapEq:
		return "eq"
	case HeapI31:
		return "i31"
	case HeapStruct:
		return "struct"
	case HeapArray:
		return "array"
	case HeapExn:
		return "exn"
	case HeapNone:
		return "none"
	case HeapNoExtern:
		return "noextern"
	case HeapNoFunc:
		return "nofunc"
	case HeapNoExn:
		return "noexn"
	}
	if h >= 0 {
		return fmt.Sprintf("%d", int64(h))
	}
	return fmt.Sprintf("heap(%d)", int64(h))
}

// RefType is a reference type.
type RefType struct {
	Nullable bool
	Heap     HeapType
}

// Common reference types.
var (
	ExternRefType = RefType{Nullable: true, Heap: HeapExtern}
	FuncRefType   = RefType{Nullable: true, Heap: HeapFunc}
)

func (r RefType) String() string {
	if r.Nullable {
		switch r.Heap {
		case HeapExtern:
			return "externref"
		case HeapFunc:
			return "funcref"
		}
		return "(ref null " + r.Heap.String() + ")"
	}
	return "(ref " + r.Heap.String() + ")"
}

// ValType is a WebAssembly value type. It is comparable with ==.
type ValType struct {
	Ref  RefType // only meaningful for KindRef
	Kind ValKind
}

// Value types.
var (
	I32       = ValType{Kind: KindI32}
	I64       = ValType{Kind: KindI64}
	F32       = ValType{Kind: KindF32}
	F64       = ValType{Kind: KindF64}
	V128      = ValType{Kind: KindV128}
	ExternRef = Ref(ExternRefType)
	FuncRef   = Ref(FuncRefType)
)

// Ref returns the value type of a reference.
func Ref(r RefType) ValType {
	return ValType{Kind: KindRef, Ref: r}
}

// IsRef reports whether v is a reference type.
func (v ValType) IsRef() bool {
	return v.Kind == KindRef
}

func (v ValType) String() string {
	switch v.Kind {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindV128:
		return "v128"
	case KindRef:
		return v.Ref.String()
	default:
		return "unknown"
	}
}

// exnref and nullexnref shorthands are not named by the codec.
const (
	valExnRef     wasm.ValType = 0x69
	valNullExnRef wasm.ValType = 0x74
)

// shorthand returns the single-byte encoding of a nullable abstract reference.
func shorthand(r RefType) (wasm.ValType, bool) {
	if !r.Nullable || !r.Heap.IsAbstract() {
		return 0, false
	}
	switch r.Heap {
	case HeapFunc, HeapExtern, HeapAny, HeapEq, HeapI31, HeapStruct,
		HeapArray, HeapExn, HeapNone, HeapNoExtern, HeapNoFunc, HeapNoExn:
		return wasm.ValType(byte(int64(r.Heap) + 0x80)), true
	}
	return 0, false
}

// fromWasm converts a single-byte value type.
func fromWasm(b wasm.ValType) (ValType, error) {
	switch b {
	case wasm.ValI32:
		return I32, nil
	case wasm.ValI64:
		return I64, nil
	case wasm.ValF32:
		return F32, nil
	case wasm.ValF64:
		return F64, nil
	case wasm.ValV128:
		return V128, nil
	case wasm.ValFuncRef, wasm.ValExtern, wasm.ValAnyRef, wasm.ValEqRef, wasm.ValI31Ref,
		wasm.ValStructRef, wasm.ValArrayRef, wasm.ValNullRef, wasm.ValNullExternRef,
		wasm.ValNullFuncRef, valExnRef, valNullExnRef:
		return Ref(RefType{Nullable: true, Heap: HeapType(int64(b) - 0x80)}), nil
	}
	return ValType{}, fmt.Errorf("unknown value type 0x%02x", byte(b))
}

// fromWasmExt converts an extended value type (GC aware).
func fromWasmExt(e wasm.ExtValType) (ValType, error) {
	if e.Kind == wasm.ExtValKindRef {
		return Ref(RefType{Nullable: e.RefType.Nullable, Heap: HeapType(e.RefType.HeapType)}), nil
	}
	return fromWasm(e.ValType)
}

// fromWasmTypes converts a type vector, preferring the extended form.
func fromWasmTypes(simple []wasm.ValType, ext []wasm.ExtValType) ([]ValType, error) {
	n := len(simple)
	if len(ext) > 0 {
		n = len(ext)
	}
	out := make([]ValType, n)
	for i := 0; i < n; i++ {
		var (
			v   ValType
			err error
		)
		if len(ext) > 0 {
			v, err = fromWasmExt(ext[i])
		} else {
			v, err = fromWasm(simple[i])
		}
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// toWasm converts v to the codec's representation. needsExt is set when the
// type has no single-byte encoding.
func toWasm(v ValType) (simple wasm.ValType, ext wasm.ExtValType, needsExt bool) {
	switch v.Kind {
	case KindI32:
		simple = wasm.ValI32
	case KindI64:
		simple = wasm.ValI64
	case KindF32:
		simple = wasm.ValF32
	case KindF64:
		simple = wasm.ValF64
	case KindV128:
		simple = wasm.ValV128
	case KindRef:
		if b, ok := shorthand(v.Ref); ok {
			simple = b
			break
		}
		simple = wasm.ValRef
		if v.Ref.Nullable {
			simple = wasm.ValRefNull
		}
		return simple, wasm.ExtValType{
			Kind:    wasm.ExtValKindRef,
			ValType: simple,
			RefType: wasm.RefType{Nullable: v.Ref.Nullable, HeapType: int64(v.Ref.Heap)},
		}, true
	}
	return simple, wasm.ExtValType{Kind: wasm.ExtValKindSimple, ValType: simple}, false
}

// toWasmTypes converts a type vector. ext is nil unless some entry needs it.
func toWasmTypes(types []ValType) (simple []wasm.ValType, ext []wasm.ExtValType) {
	simple = make([]wasm.ValType, len(types))
	all := make([]wasm.ExtValType, len(types))
	needs := false
	for i, t := range types {
		s, e, n := toWasm(t)
		simple[i] = s
		all[i] = e
		needs = needs || n
	}
	if needs {
		ext = all
	}
	return simple, ext
}
