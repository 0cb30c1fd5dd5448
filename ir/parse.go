package ir

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

// Parse decodes a binary module into the IR.
func Parse(data []byte) (*Module, error) {
	wm, err := wasm.ParseModule(data)
	if err != nil {
		return nil, errors.ParseFailed("module", err)
	}
	return FromWasm(wm)
}

// FromWasm converts a module decoded by the wasm package.
func FromWasm(wm *wasm.Module) (*Module, error) {
	m := NewModule()
	if err := m.readTypes(wm); err != nil {
		return nil, err
	}
	if err := m.readImports(wm); err != nil {
		return nil, err
	}
	if len(wm.Funcs) != len(wm.Code) {
		return nil, errors.InvalidData(errors.PhaseParse, []string{"code"},
			fmt.Sprintf("%d function declarations but %d bodies", len(wm.Funcs), len(wm.Code)))
	}
	firstLocal := m.Funcs.Len()
	for i, ty := range wm.Funcs {
		if int(ty) >= m.Types.Len() {
			return nil, errors.OutOfBounds(errors.PhaseParse, []string{"func", fmt.Sprint(i), "type"}, int(ty), m.Types.Len())
		}
		m.Funcs.add(TypeID(ty), &LocalFunction{})
	}
	for i, tt := range wm.Tables {
		t, err := tableFromWasm(tt)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, fmt.Sprintf("table %d", i))
		}
		m.Tables.add(t)
	}
	for i, tt := range wm.Tags {
		if int(tt.TypeIdx) >= m.Types.Len() {
			return nil, errors.OutOfBounds(errors.PhaseParse, []string{"tag", fmt.Sprint(i), "type"}, int(tt.TypeIdx), m.Types.Len())
		}
		m.Tags.add(TypeID(tt.TypeIdx)).Attribute = tt.Attribute
	}
	m.Memories = wm.Memories
	m.Globals = wm.Globals
	m.Elements = wm.Elements
	m.Data = wm.Data
	m.DataCount = wm.DataCount
	if wm.Start != nil {
		s := FunctionID(*wm.Start)
		m.Start = &s
	}
	if err := m.readExports(wm); err != nil {
		return nil, err
	}
	for _, cs := range wm.CustomSections {
		if cs.Name != nameSectionName {
			m.Customs = append(m.Customs, cs)
			continue
		}
		if err := m.readNames(cs.Data); err != nil {
			// A malformed name section is not fatal; keep it as is.
			Logger().Debug("keeping unparsed name section", zap.Error(err))
			m.Customs = append(m.Customs, cs)
		}
	}
	for i, body := range wm.Code {
		f := m.Funcs.Get(FunctionID(firstLocal + i))
		if err := m.readBody(f, body); err != nil {
			return nil, err
		}
	}
	Logger().Debug("module parsed",
		zap.Int("types", m.Types.Len()),
		zap.Int("funcs", m.Funcs.Len()),
		zap.Int("imports", m.Imports.Len()),
		zap.Int("tags", m.Tags.Len()))
	return m, nil
}

func (m *Module) readTypes(wm *wasm.Module) error {
	for i, td := range wm.TypeDefs {
		if td.Kind != wasm.TypeDefKindFunc {
			return errors.New(errors.PhaseParse, errors.KindUnsupported).
				Path("type", fmt.Sprint(i)).
				Detail("GC type definitions are not supported").
				Build()
		}
	}
	for i, ft := range wm.Types {
		params, err := fromWasmTypes(ft.Params, ft.ExtParams)
		if err != nil {
			return errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, fmt.Sprintf("type %d params", i))
		}
		results, err := fromWasmTypes(ft.Results, ft.ExtResults)
		if err != nil {
			return errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, fmt.Sprintf("type %d results", i))
		}
		m.Types.Insert(params, results)
	}
	return nil
}

func (m *Module) readImports(wm *wasm.Module) error {
	for i, wi := range wm.Imports {
		imp := m.Imports.add(&Import{Module: wi.Module, Name: wi.Name, Kind: wi.Desc.Kind, Desc: wi.Desc})
		id := imp.ID
		switch wi.Desc.Kind {
		case wasm.KindFunc:
			if int(wi.Desc.TypeIdx) >= m.Types.Len() {
				return errors.OutOfBounds(errors.PhaseParse, []string{"import", fmt.Sprint(i), "type"}, int(wi.Desc.TypeIdx), m.Types.Len())
			}
			imp.Func = m.Funcs.add(TypeID(wi.Desc.TypeIdx), &ImportedFunction{Import: id}).ID
		case wasm.KindTable:
			if wi.Desc.Table == nil {
				return errors.InvalidData(errors.PhaseParse, []string{"import", fmt.Sprint(i)}, "table import without table type")
			}
			t, err := tableFromWasm(*wi.Desc.Table)
			if err != nil {
				return errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, fmt.Sprintf("import %d", i))
			}
			t.Import = &id
			imp.Table = m.Tables.add(t).ID
		case wasm.KindTag:
			if wi.Desc.Tag == nil {
				return errors.InvalidData(errors.PhaseParse, []string{"import", fmt.Sprint(i)}, "tag import without tag type")
			}
			tag := m.Tags.add(TypeID(wi.Desc.Tag.TypeIdx))
			tag.Attribute = wi.Desc.Tag.Attribute
			tag.Import = &id
			imp.Tag = tag.ID
		}
	}
	return nil
}

func (m *Module) readExports(wm *wasm.Module) error {
	for _, we := range wm.Exports {
		e := &Export{Name: we.Name, Kind: we.Kind}
		switch we.Kind {
		case wasm.KindFunc:
			if int(we.Idx) >= m.Funcs.Len() {
				return errors.OutOfBounds(errors.PhaseParse, []string{"export", we.Name}, int(we.Idx), m.Funcs.Len())
			}
			e.Func = FunctionID(we.Idx)
		case wasm.KindTable:
			if int(we.Idx) >= m.Tables.Len() {
				return errors.OutOfBounds(errors.PhaseParse, []string{"export", we.Name}, int(we.Idx), m.Tables.Len())
			}
			e.Table = TableID(we.Idx)
		case wasm.KindTag:
			if int(we.Idx) >= m.Tags.Len() {
				return errors.OutOfBounds(errors.PhaseParse, []string{"export", we.Name}, int(we.Idx), m.Tags.Len())
			}
			e.Tag = TagID(we.Idx)
		default:
			e.Index = we.Idx
		}
		m.Exports.add(e)
	}
	return nil
}

func tableFromWasm(tt wasm.TableType) (*Table, error) {
	t := &Table{Limits: tt.Limits, Init: tt.Init}
	if tt.RefElemType != nil {
		t.Elem = RefType{Nullable: tt.RefElemType.Nullable, Heap: HeapType(tt.RefElemType.HeapType)}
		return t, nil
	}
	v, err := fromWasm(wasm.ValType(tt.ElemType))
	if err != nil {
		return nil, err
	}
	if !v.IsRef() {
		return nil, fmt.Errorf("table element type %s is not a reference", v)
	}
	t.Elem = v.Ref
	return t, nil
}
