package ir

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

const nameSectionName = "name"

// name section subsection ids
const (
	nameModule byte = 0
	nameFunc   byte = 1
	nameLocal  byte = 2
	nameLabel  byte = 3
	nameTable  byte = 5
	nameTag    byte = 11
)

type nameSubsection struct {
	data []byte
	id   byte
}

type nameEntry struct {
	name string
	idx  uint32
}

type indirectEntry struct {
	names []nameEntry
	idx   uint32
}

// readNames fills Function.Name from the function-name subsection and keeps
// every other subsection for re-emission.
func (m *Module) readNames(data []byte) error {
	r := bytes.NewReader(data)
	var extra []nameSubsection
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return err
		}
		size, err := wasm.ReadLEB128u(r)
		if err != nil {
			return err
		}
		if int(size) > r.Len() {
			return fmt.Errorf("name subsection %d: size %d exceeds remaining %d", id, size, r.Len())
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}
		if id != nameFunc {
			extra = append(extra, nameSubsection{id: id, data: payload})
			continue
		}
		entries, err := readNameMap(bytes.NewReader(payload))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if f := m.Funcs.Get(FunctionID(e.idx)); f != nil {
				f.Name = e.name
			}
		}
	}
	// the section is only committed once it parsed completely
	m.nameExtra = extra
	return nil
}

// nameSection rebuilds the name section with indices remapped to the
// emitted index spaces. ok is false when there is nothing to write.
func (e *emitter) nameSection() (data []byte, ok bool, err error) {
	var funcs []nameEntry
	for _, f := range e.m.Funcs.All() {
		if f.Name != "" {
			funcs = append(funcs, nameEntry{idx: e.funcIdx[f.ID], name: f.Name})
		}
	}
	if len(funcs) == 0 && len(e.m.nameExtra) == 0 {
		return nil, false, nil
	}
	var out bytes.Buffer
	wroteFuncs := false
	writeFuncs := func() {
		if wroteFuncs || len(funcs) == 0 {
			return
		}
		wroteFuncs = true
		writeSubsection(&out, nameFunc, encodeNameMap(funcs))
	}
	for _, sub := range e.m.nameExtra {
		if sub.id > nameFunc {
			writeFuncs()
		}
		payload, err := e.remapSubsection(sub)
		if err != nil {
			return nil, false, err
		}
		writeSubsection(&out, sub.id, payload)
	}
	writeFuncs()
	return out.Bytes(), true, nil
}

func (e *emitter) remapSubsection(sub nameSubsection) ([]byte, error) {
	switch sub.id {
	case nameLocal, nameLabel:
		entries, err := readIndirectNameMap(bytes.NewReader(sub.data))
		if err != nil {
			return nil, fmt.Errorf("name subsection %d: %w", sub.id, err)
		}
		for i := range entries {
			if int(entries[i].idx) < len(e.funcIdx) {
				entries[i].idx = e.funcIdx[entries[i].idx]
			}
		}
		return encodeIndirectNameMap(entries), nil
	case nameTable, nameTag:
		entries, err := readNameMap(bytes.NewReader(sub.data))
		if err != nil {
			return nil, fmt.Errorf("name subsection %d: %w", sub.id, err)
		}
		idx := e.tableIdx
		if sub.id == nameTag {
			idx = e.tagIdx
		}
		for i := range entries {
			if int(entries[i].idx) < len(idx) {
				entries[i].idx = idx[entries[i].idx]
			}
		}
		return encodeNameMap(entries), nil
	}
	return sub.data, nil
}

func writeSubsection(out *bytes.Buffer, id byte, payload []byte) {
	out.WriteByte(id)
	wasm.WriteLEB128u(out, uint32(len(payload)))
	out.Write(payload)
}

func readName(r *bytes.Reader) (string, error) {
	n, err := wasm.ReadLEB128u(r)
	if err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", fmt.Errorf("name length %d exceeds remaining %d", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readNameMap(r *bytes.Reader) ([]nameEntry, error) {
	count, err := wasm.ReadLEB128u(r)
	if err != nil {
		return nil, err
	}
	entries := make([]nameEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		idx, err := wasm.ReadLEB128u(r)
		if err != nil {
			return nil, err
		}
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, nameEntry{idx: idx, name: name})
	}
	return entries, nil
}

func readIndirectNameMap(r *bytes.Reader) ([]indirectEntry, error) {
	count, err := wasm.ReadLEB128u(r)
	if err != nil {
		return nil, err
	}
	entries := make([]indirectEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		idx, err := wasm.ReadLEB128u(r)
		if err != nil {
			return nil, err
		}
		names, err := readNameMap(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, indirectEntry{idx: idx, names: names})
	}
	return entries, nil
}

// encodeNameMap writes entries sorted by index, as the format requires.
func encodeNameMap(entries []nameEntry) []byte {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	var b bytes.Buffer
	wasm.WriteLEB128u(&b, uint32(len(entries)))
	for _, e := range entries {
		wasm.WriteLEB128u(&b, e.idx)
		wasm.WriteLEB128u(&b, uint32(len(e.name)))
		b.WriteString(e.name)
	}
	return b.Bytes()
}

func encodeIndirectNameMap(entries []indirectEntry) []byte {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	var b bytes.Buffer
	wasm.WriteLEB128u(&b, uint32(len(entries)))
	for _, e := range entries {
		wasm.WriteLEB128u(&b, e.idx)
		b.Write(encodeNameMap(e.names))
	}
	return b.Bytes()
}
