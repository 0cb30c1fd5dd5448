package wasm_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

func TestInstructions_ExceptionHandling(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		check func(t *testing.T, instrs []wasm.Instruction)
	}{
		{
			name: "legacy try with catch and catch_all",
			code: []byte{
				wasm.OpTry, 0x40,
				wasm.OpI32Const, 0x01,
				wasm.OpThrow, 0x00,
				wasm.OpCatch, 0x00,
				wasm.OpDrop,
				wasm.OpCatchAll,
				wasm.OpEnd,
				wasm.OpEnd,
			},
			check: func(t *testing.T, instrs []wasm.Instruction) {
				if got := instrs[0].Imm.(wasm.BlockImm).Type; got != -64 {
					t.Errorf("try block type = %d, want -64", got)
				}
				if got := instrs[3].Imm.(wasm.ThrowImm).TagIdx; got != 0 {
					t.Errorf("catch tag = %d, want 0", got)
				}
				if instrs[5].Opcode != wasm.OpCatchAll || instrs[5].Imm != nil {
					t.Errorf("catch_all = %+v", instrs[5])
				}
			},
		},
		{
			name: "delegate and rethrow carry labels",
			code: []byte{
				wasm.OpTry, 0x40,
				wasm.OpTry, 0x40,
				wasm.OpNop,
				wasm.OpDelegate, 0x00,
				wasm.OpCatch, 0x02,
				wasm.OpRethrow, 0x00,
				wasm.OpEnd,
				wasm.OpEnd,
			},
			check: func(t *testing.T, instrs []wasm.Instruction) {
				if got := instrs[3].Imm.(wasm.BranchImm).LabelIdx; got != 0 {
					t.Errorf("delegate label = %d, want 0", got)
				}
				if got := instrs[4].Imm.(wasm.ThrowImm).TagIdx; got != 2 {
					t.Errorf("catch tag = %d, want 2", got)
				}
				if instrs[5].Opcode != wasm.OpRethrow {
					t.Errorf("opcode = 0x%02x, want rethrow", instrs[5].Opcode)
				}
			},
		},
		{
			name: "try_table with every clause kind",
			code: []byte{
				wasm.OpTryTable, 0x40, 0x04,
				wasm.CatchKindCatch, 0x00, 0x00,
				wasm.CatchKindCatchRef, 0x01, 0x01,
				wasm.CatchKindCatchAll, 0x02,
				wasm.CatchKindCatchAllRef, 0x03,
				wasm.OpEnd,
				wasm.OpEnd,
			},
			check: func(t *testing.T, instrs []wasm.Instruction) {
				imm := instrs[0].Imm.(wasm.TryTableImm)
				want := []wasm.CatchClause{
					{Kind: wasm.CatchKindCatch, TagIdx: 0, LabelIdx: 0},
					{Kind: wasm.CatchKindCatchRef, TagIdx: 1, LabelIdx: 1},
					{Kind: wasm.CatchKindCatchAll, LabelIdx: 2},
					{Kind: wasm.CatchKindCatchAllRef, LabelIdx: 3},
				}
				if !reflect.DeepEqual(imm.Catches, want) {
					t.Errorf("catches = %+v, want %+v", imm.Catches, want)
				}
			},
		},
		{
			name: "try_table producing externref",
			code: []byte{
				wasm.OpBlock, 0x6f,
				wasm.OpTryTable, 0x40, 0x01, wasm.CatchKindCatch, 0x00, 0x00,
				wasm.OpRefNull, 0x6f,
				wasm.OpThrow, 0x00,
				wasm.OpEnd,
				wasm.OpUnreachable,
				wasm.OpEnd,
				wasm.OpThrowRef,
				wasm.OpEnd,
			},
			check: func(t *testing.T, instrs []wasm.Instruction) {
				if got := instrs[0].Imm.(wasm.BlockImm).Type; got != int32(wasm.HeapTypeExtern) {
					t.Errorf("block type = %d, want %d", got, wasm.HeapTypeExtern)
				}
				if got := instrs[2].Imm.(wasm.RefNullImm).HeapType; got != wasm.HeapTypeExtern {
					t.Errorf("ref.null heap type = %d, want %d", got, wasm.HeapTypeExtern)
				}
				if instrs[7].Opcode != wasm.OpThrowRef {
					t.Errorf("opcode = 0x%02x, want throw_ref", instrs[7].Opcode)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instrs, err := wasm.DecodeInstructions(tt.code)
			if err != nil {
				t.Fatalf("DecodeInstructions: %v", err)
			}
			tt.check(t, instrs)
			if got := wasm.EncodeInstructions(instrs); !bytes.Equal(got, tt.code) {
				t.Errorf("re-encoded = % x, want % x", got, tt.code)
			}
		})
	}
}

func TestInstructions_Truncated(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"try_table clause count", []byte{wasm.OpTryTable, 0x40}},
		{"try_table clause label", []byte{wasm.OpTryTable, 0x40, 0x01, wasm.CatchKindCatch, 0x00}},
		{"catch tag", []byte{wasm.OpCatch}},
		{"delegate label", []byte{wasm.OpDelegate}},
		{"overlong call index", []byte{wasm.OpCall, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := wasm.DecodeInstructions(tt.code); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// ehModule imports the host exception tag, defines a second tag and a
// function whose locals cover the value types handled by rewrites.
func ehModule() *wasm.Module {
	refNull := &wasm.ExtValType{
		Kind:    wasm.ExtValKindRef,
		ValType: wasm.ValRefNull,
		RefType: wasm.RefType{Nullable: true, HeapType: wasm.HeapTypeExtern},
	}
	return &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValExtern}},
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValExtern}},
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "get", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 1}},
			{Module: "__wbindgen_placeholder__", Name: "__wbindgen_jstag", Desc: wasm.ImportDesc{
				Kind: wasm.KindTag,
				Tag:  &wasm.TagType{TypeIdx: 0},
			}},
		},
		Funcs: []uint32{1},
		Tags:  []wasm.TagType{{TypeIdx: 0}},
		Exports: []wasm.Export{
			{Name: "get_wrapped", Kind: wasm.KindFunc, Idx: 1},
			{Name: "local_tag", Kind: wasm.KindTag, Idx: 1},
		},
		Code: []wasm.FuncBody{{
			Locals: []wasm.LocalEntry{
				{Count: 1, ValType: wasm.ValExtern},
				{Count: 2, ValType: wasm.ValV128},
				{Count: 1, ValType: wasm.ValRefNull, ExtType: refNull},
			},
			Code: []byte{wasm.OpLocalGet, 0x00, wasm.OpCall, 0x00, wasm.OpEnd},
		}},
		CustomSections: []wasm.CustomSection{
			{Name: "name", Data: []byte{0x01, 0x06, 0x01, 0x01, 0x03, 'g', 'e', 't'}},
		},
	}
}

func TestEncode_ExceptionHandlingModuleRoundTrip(t *testing.T) {
	in := ehModule()
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	out, err := wasm.ParseModule(in.Encode())
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	if len(out.Types) != len(in.Types) {
		t.Fatalf("types = %d, want %d", len(out.Types), len(in.Types))
	}
	for i := range in.Types {
		got, want := out.Types[i], in.Types[i]
		if len(got.Params) != len(want.Params) || len(got.Results) != len(want.Results) {
			t.Errorf("type %d = %+v, want %+v", i, got, want)
			continue
		}
		for j := range want.Params {
			if got.Params[j] != want.Params[j] {
				t.Errorf("type %d param %d = %v, want %v", i, j, got.Params[j], want.Params[j])
			}
		}
		for j := range want.Results {
			if got.Results[j] != want.Results[j] {
				t.Errorf("type %d result %d = %v, want %v", i, j, got.Results[j], want.Results[j])
			}
		}
	}
	tag := out.Imports[1]
	if tag.Desc.Kind != wasm.KindTag || tag.Desc.Tag == nil || tag.Desc.Tag.TypeIdx != 0 {
		t.Errorf("tag import = %+v", tag)
	}
	if len(out.Tags) != 1 || out.Tags[0].TypeIdx != 0 {
		t.Errorf("tags = %+v", out.Tags)
	}
	if !reflect.DeepEqual(out.Exports, in.Exports) {
		t.Errorf("exports = %+v, want %+v", out.Exports, in.Exports)
	}

	locals := out.Code[0].Locals
	if len(locals) != 3 {
		t.Fatalf("local groups = %d, want 3", len(locals))
	}
	if locals[0].ValType != wasm.ValExtern || locals[1].ValType != wasm.ValV128 || locals[1].Count != 2 {
		t.Errorf("simple locals = %+v %+v", locals[0], locals[1])
	}
	if ext := locals[2].ExtType; ext == nil || !ext.RefType.Nullable || ext.RefType.HeapType != wasm.HeapTypeExtern {
		t.Errorf("typed reference local = %+v", locals[2])
	}
	if !bytes.Equal(out.Code[0].Code, in.Code[0].Code) {
		t.Errorf("code = % x, want % x", out.Code[0].Code, in.Code[0].Code)
	}

	if len(out.CustomSections) != 1 {
		t.Fatalf("custom sections = %d, want 1", len(out.CustomSections))
	}
	if cs := out.CustomSections[0]; cs.Name != "name" || !bytes.Equal(cs.Data, in.CustomSections[0].Data) {
		t.Errorf("name section = %q % x", cs.Name, cs.Data)
	}

	if again := out.Encode(); !bytes.Equal(again, in.Encode()) {
		t.Error("second encoding differs from the first")
	}
}

func TestValidate(t *testing.T) {
	one := uint32(1)
	tests := []struct {
		name   string
		modify func(m *wasm.Module)
		want   string
	}{
		{
			name:   "tag import with missing type",
			modify: func(m *wasm.Module) { m.Imports[1].Desc.Tag.TypeIdx = 9 },
			want:   "tag references invalid type index 9",
		},
		{
			name:   "tag export past imported and defined tags",
			modify: func(m *wasm.Module) { m.Exports[1].Idx = 2 },
			want:   "invalid tag index 2",
		},
		{
			name:   "function export past both index spaces",
			modify: func(m *wasm.Module) { m.Exports[0].Idx = 2 },
			want:   "invalid function index 2",
		},
		{
			name:   "duplicate export",
			modify: func(m *wasm.Module) { m.Exports[1].Name = "get_wrapped" },
			want:   "duplicate export name",
		},
		{
			name:   "start function with parameters",
			modify: func(m *wasm.Module) { m.Start = &one },
			want:   "start function must have signature",
		},
		{
			name:   "code without function",
			modify: func(m *wasm.Module) { m.Code = append(m.Code, m.Code[0]) },
			want:   "code section has 2 entries",
		},
		{
			name: "shared memory without maximum",
			modify: func(m *wasm.Module) {
				m.Memories = []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Shared: true}}}
			},
			want: "shared memory must have maximum limit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ehModule()
			tt.modify(m)
			err := m.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLEB128(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 624485, 1<<32 - 1} {
		var buf bytes.Buffer
		wasm.WriteLEB128u(&buf, v)
		got, err := wasm.ReadLEB128u(&buf)
		if err != nil {
			t.Fatalf("ReadLEB128u(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d = %d", v, got)
		}
	}

	var buf bytes.Buffer
	wasm.WriteLEB128u(&buf, 624485)
	if want := []byte{0xe5, 0x8e, 0x26}; !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoding = % x, want % x", buf.Bytes(), want)
	}

	_, err := wasm.ReadLEB128u(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}))
	if !errors.Is(err, wasm.ErrOverflow) {
		t.Errorf("overlong value error = %v, want ErrOverflow", err)
	}
}
