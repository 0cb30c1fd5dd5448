package ir

import "testing"

func TestTypes_AddDeduplicates(t *testing.T) {
	var ts Types
	a := ts.Add([]ValType{ExternRef}, nil)
	b := ts.Add([]ValType{ExternRef}, nil)
	if a != b {
		t.Errorf("Add returned %d and %d for the same signature", a, b)
	}
	c := ts.Add([]ValType{ExternRef}, []ValType{I32})
	if c == a {
		t.Error("different signatures share an ID")
	}
	if ts.Len() != 2 {
		t.Errorf("Len = %d, want 2", ts.Len())
	}
}

func TestTypes_InsertAlwaysAppends(t *testing.T) {
	var ts Types
	a := ts.Add([]ValType{ExternRef}, []ValType{I32})
	b := ts.Insert([]ValType{ExternRef}, []ValType{I32})
	if a == b {
		t.Fatal("Insert reused an existing type")
	}
	if got, _ := ts.Find([]ValType{ExternRef}, []ValType{I32}); got != a {
		t.Errorf("Find = %d, want first match %d", got, a)
	}
}

func TestTypes_InsertCopiesSlices(t *testing.T) {
	var ts Types
	params := []ValType{I32}
	id := ts.Insert(params, nil)
	params[0] = F64
	if ts.Params(id)[0] != I32 {
		t.Error("Insert kept a reference to the caller's slice")
	}
}

func TestTypes_String(t *testing.T) {
	var ts Types
	id := ts.Add([]ValType{I32, ExternRef}, []ValType{Ref(RefType{Heap: HeapFunc})})
	if got, want := ts.Get(id).String(), "(i32, externref) -> ((ref func))"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
	if ts.Get(99) != nil {
		t.Error("Get out of range should be nil")
	}
}

func TestValType_Encoding(t *testing.T) {
	tests := []struct {
		name     string
		v        ValType
		needsExt bool
	}{
		{"i32", I32, false},
		{"f64", F64, false},
		{"v128", V128, false},
		{"externref", ExternRef, false},
		{"funcref", FuncRef, false},
		{"exnref", Ref(RefType{Nullable: true, Heap: HeapExn}), false},
		{"non-null extern", Ref(RefType{Heap: HeapExtern}), true},
		{"concrete", Ref(RefType{Nullable: true, Heap: ConcreteHeap(3)}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simple, ext, needsExt := toWasm(tt.v)
			if needsExt != tt.needsExt {
				t.Fatalf("needsExt = %v, want %v", needsExt, tt.needsExt)
			}
			var back ValType
			var err error
			if needsExt {
				back, err = fromWasmExt(ext)
			} else {
				back, err = fromWasm(simple)
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if back != tt.v {
				t.Errorf("round trip = %s, want %s", back, tt.v)
			}
		})
	}
}
