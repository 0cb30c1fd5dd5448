package wasm

import "fmt"

// Validate checks the structural invariants Encode relies on: indices in
// bounds, unique export names, matching function and code counts, memory
// limits, and a nullary start function.
func (m *Module) Validate() error {
	s := m.indexSpaces()
	checks := []func(indexSpaces) error{
		m.checkTypeRefs,
		m.checkFuncRefs,
		m.checkSegmentRefs,
		m.checkExports,
		m.checkStart,
		m.checkCounts,
		m.checkMemoryLimits,
	}
	for _, check := range checks {
		if err := check(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) checkTypeRefs(s indexSpaces) error {
	for i, ty := range m.Funcs {
		if ty >= s.types {
			return fmt.Errorf("function %d references invalid type index %d (%d types)", i, ty, s.types)
		}
	}
	for i, imp := range m.Imports {
		switch {
		case imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= s.types:
			return fmt.Errorf("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.TypeIdx)
		case imp.Desc.Kind == KindTag && imp.Desc.Tag != nil && imp.Desc.Tag.TypeIdx >= s.types:
			return fmt.Errorf("import %d (%s.%s) tag references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.Tag.TypeIdx)
		}
	}
	for i, tag := range m.Tags {
		if tag.TypeIdx >= s.types {
			return fmt.Errorf("tag %d references invalid type index %d", i, tag.TypeIdx)
		}
	}
	return nil
}

func (m *Module) checkFuncRefs(s indexSpaces) error {
	if m.Start != nil && *m.Start >= s.funcs {
		return fmt.Errorf("start function index %d exceeds function count %d", *m.Start, s.funcs)
	}
	for i, elem := range m.Elements {
		for j, fn := range elem.FuncIdxs {
			if fn >= s.funcs {
				return fmt.Errorf("element %d, entry %d references invalid function index %d", i, j, fn)
			}
		}
	}
	return nil
}

// checkSegmentRefs checks the table and memory of active segments. Bit 0 of
// an element segment's flags and flag value 1 of a data segment mark them
// passive or declarative.
func (m *Module) checkSegmentRefs(s indexSpaces) error {
	for i, elem := range m.Elements {
		if elem.Flags&0x01 == 0 && elem.TableIdx >= s.tables {
			return fmt.Errorf("element %d references invalid table index %d", i, elem.TableIdx)
		}
	}
	for i, data := range m.Data {
		if data.Flags != 1 && data.MemIdx >= s.memories {
			return fmt.Errorf("data segment %d references invalid memory index %d", i, data.MemIdx)
		}
	}
	return nil
}

func (m *Module) checkExports(s indexSpaces) error {
	bounds := map[byte]uint32{
		KindFunc:   s.funcs,
		KindTable:  s.tables,
		KindMemory: s.memories,
		KindGlobal: s.globals,
		KindTag:    s.tags,
	}
	seen := make(map[string]bool, len(m.Exports))
	for i, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export name %q at index %d", exp.Name, i)
		}
		seen[exp.Name] = true
		if n, ok := bounds[exp.Kind]; ok && exp.Idx >= n {
			return fmt.Errorf("export %d (%s) references invalid %s index %d", i, exp.Name, kindName(exp.Kind), exp.Idx)
		}
	}
	return nil
}

func (m *Module) checkStart(indexSpaces) error {
	if m.Start == nil {
		return nil
	}
	ft := m.funcSignature(*m.Start)
	if ft == nil {
		return fmt.Errorf("start function %d has no type", *m.Start)
	}
	if len(ft.Params) != 0 || len(ft.Results) != 0 {
		return fmt.Errorf("start function must have signature [] -> [], got [%d params] -> [%d results]",
			len(ft.Params), len(ft.Results))
	}
	return nil
}

func (m *Module) checkCounts(indexSpaces) error {
	if m.DataCount != nil && *m.DataCount != uint32(len(m.Data)) {
		return fmt.Errorf("data count section declares %d segments, but data section has %d",
			*m.DataCount, len(m.Data))
	}
	if len(m.Code) > 0 && len(m.Code) != len(m.Funcs) {
		return fmt.Errorf("code section has %d entries but function section has %d",
			len(m.Code), len(m.Funcs))
	}
	return nil
}

func (m *Module) checkMemoryLimits(indexSpaces) error {
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory && imp.Desc.Memory != nil {
			if err := checkMemoryType(imp.Desc.Memory, "imported memory", i); err != nil {
				return err
			}
		}
	}
	for i := range m.Memories {
		if err := checkMemoryType(&m.Memories[i], "memory", i); err != nil {
			return err
		}
	}
	return nil
}

func checkMemoryType(mem *MemoryType, what string, idx int) error {
	maxPages := uint64(MemoryMaxPages32)
	if mem.Limits.Memory64 {
		maxPages = MemoryMaxPages64
	}
	if mem.Limits.Shared && mem.Limits.Max == nil {
		return fmt.Errorf("%s %d: shared memory must have maximum limit", what, idx)
	}
	if mem.Limits.Min > maxPages {
		return fmt.Errorf("%s %d: min pages %d exceeds maximum %d", what, idx, mem.Limits.Min, maxPages)
	}
	if mem.Limits.Max != nil && *mem.Limits.Max > maxPages {
		return fmt.Errorf("%s %d: max pages %d exceeds maximum %d", what, idx, *mem.Limits.Max, maxPages)
	}
	return nil
}

func kindName(kind byte) string {
	switch kind {
	case KindFunc:
		return "function"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	case KindTag:
		return "tag"
	}
	return fmt.Sprintf("kind 0x%02x", kind)
}
