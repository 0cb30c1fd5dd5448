package ir

import (
	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

// Module is an editable WebAssembly module. Entities live in arenas and
// refer to each other by ID.
type Module struct {
	Start *FunctionID

	DataCount *uint32

	Types   Types
	Funcs   Functions
	Tables  Tables
	Tags    Tags
	Imports Imports
	Exports Exports
	Locals  Locals

	// Sections the IR does not model are carried through as decoded.
	Memories []wasm.MemoryType
	Globals  []wasm.Global
	Elements []wasm.Element
	Data     []wasm.DataSegment
	Customs  []wasm.CustomSection

	// name section subsections other than function names, kept verbatim
	nameExtra []nameSubsection
}

// NewModule returns an empty module.
func NewModule() *Module {
	return &Module{}
}

// Function is a function in the module.
type Function struct {
	Kind FunctionKind
	Name string
	ID   FunctionID
	Type TypeID
}

// FunctionKind is *ImportedFunction or *LocalFunction.
type FunctionKind interface {
	functionKind()
}

// ImportedFunction is a function provided by the host.
type ImportedFunction struct {
	Import ImportID
}

// LocalFunction is a function with a body.
type LocalFunction struct {
	Params []LocalID
	Locals []LocalID
	seqs   []*InstrSeq
	Entry  SeqID
}

func (*ImportedFunction) functionKind() {}
func (*LocalFunction) functionKind()    {}

// Local returns the body of f, if it has one.
func (f *Function) Local() (*LocalFunction, bool) {
	lf, ok := f.Kind.(*LocalFunction)
	return lf, ok
}

// Imported returns the import of f, if it is imported.
func (f *Function) Imported() (*ImportedFunction, bool) {
	imp, ok := f.Kind.(*ImportedFunction)
	return imp, ok
}

// Seq returns an instruction sequence of the function.
func (lf *LocalFunction) Seq(id SeqID) *InstrSeq {
	return lf.seqs[id]
}

// EntrySeq returns the function's top-level sequence.
func (lf *LocalFunction) EntrySeq() *InstrSeq {
	return lf.seqs[lf.Entry]
}

// NumSeqs returns the number of sequences allocated for the function.
func (lf *LocalFunction) NumSeqs() int {
	return len(lf.seqs)
}

func (lf *LocalFunction) newSeq(bt BlockType) *InstrSeq {
	s := &InstrSeq{ID: SeqID(len(lf.seqs)), Type: bt}
	lf.seqs = append(lf.seqs, s)
	return s
}

// Functions is the function arena. IDs follow the wasm function index space
// as parsed; functions added later are appended.
type Functions struct {
	arena []*Function
}

// Get returns the function with the given ID, or nil.
func (fs *Functions) Get(id FunctionID) *Function {
	if int(id) >= len(fs.arena) {
		return nil
	}
	return fs.arena[id]
}

// All returns every function in ID order.
func (fs *Functions) All() []*Function {
	return fs.arena
}

// Len returns the number of functions.
func (fs *Functions) Len() int {
	return len(fs.arena)
}

// ByName returns the first function with the given name.
func (fs *Functions) ByName(name string) (*Function, bool) {
	for _, f := range fs.arena {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (fs *Functions) add(ty TypeID, kind FunctionKind) *Function {
	f := &Function{ID: FunctionID(len(fs.arena)), Type: ty, Kind: kind}
	fs.arena = append(fs.arena, f)
	return f
}

// Table is a table of references.
type Table struct {
	Import *ImportID
	Init   []byte
	Limits wasm.Limits
	Elem   RefType
	ID     TableID
}

// Tables is the table arena.
type Tables struct {
	arena []*Table
}

// Get returns the table with the given ID, or nil.
func (ts *Tables) Get(id TableID) *Table {
	if int(id) >= len(ts.arena) {
		return nil
	}
	return ts.arena[id]
}

// All returns every table in ID order.
func (ts *Tables) All() []*Table {
	return ts.arena
}

// Len returns the number of tables.
func (ts *Tables) Len() int {
	return len(ts.arena)
}

func (ts *Tables) add(t *Table) *Table {
	t.ID = TableID(len(ts.arena))
	ts.arena = append(ts.arena, t)
	return t
}

// Tag is an exception tag.
type Tag struct {
	Import    *ImportID
	ID        TagID
	Type      TypeID
	Attribute byte
}

// Tags is the tag arena.
type Tags struct {
	arena []*Tag
}

// Get returns the tag with the given ID, or nil.
func (ts *Tags) Get(id TagID) *Tag {
	if int(id) >= len(ts.arena) {
		return nil
	}
	return ts.arena[id]
}

// All returns every tag in ID order.
func (ts *Tags) All() []*Tag {
	return ts.arena
}

// Len returns the number of tags.
func (ts *Tags) Len() int {
	return len(ts.arena)
}

func (ts *Tags) add(ty TypeID) *Tag {
	t := &Tag{ID: TagID(len(ts.arena)), Type: ty}
	ts.arena = append(ts.arena, t)
	return t
}

// Import is an entry of the import section. Exactly one of Func, Table and
// Tag is meaningful for those kinds; memories and globals keep their raw
// descriptor.
type Import struct {
	Module string
	Name   string
	Desc   wasm.ImportDesc
	ID     ImportID
	Func   FunctionID
	Table  TableID
	Tag    TagID
	Kind   byte
}

// Imports is the import arena, in import section order.
type Imports struct {
	arena []*Import
}

// Get returns the import with the given ID, or nil.
func (is *Imports) Get(id ImportID) *Import {
	if int(id) >= len(is.arena) {
		return nil
	}
	return is.arena[id]
}

// All returns every import in section order.
func (is *Imports) All() []*Import {
	return is.arena
}

// Len returns the number of imports.
func (is *Imports) Len() int {
	return len(is.arena)
}

// Find returns the import with the given module and field name.
func (is *Imports) Find(module, name string) (*Import, bool) {
	for _, imp := range is.arena {
		if imp.Module == module && imp.Name == name {
			return imp, true
		}
	}
	return nil, false
}

func (is *Imports) add(imp *Import) *Import {
	imp.ID = ImportID(len(is.arena))
	is.arena = append(is.arena, imp)
	return imp
}

// Export is an entry of the export section. Index holds the raw index for
// memories and globals.
type Export struct {
	Name  string
	ID    ExportID
	Func  FunctionID
	Table TableID
	Tag   TagID
	Index uint32
	Kind  byte
}

// Exports is the export arena.
type Exports struct {
	arena []*Export
}

// Get returns the export with the given ID, or nil.
func (es *Exports) Get(id ExportID) *Export {
	if int(id) >= len(es.arena) {
		return nil
	}
	return es.arena[id]
}

// All returns every export in section order.
func (es *Exports) All() []*Export {
	return es.arena
}

// Len returns the number of exports.
func (es *Exports) Len() int {
	return len(es.arena)
}

// ByName returns the export with the given name.
func (es *Exports) ByName(name string) (*Export, bool) {
	for _, e := range es.arena {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

func (es *Exports) add(e *Export) *Export {
	e.ID = ExportID(len(es.arena))
	es.arena = append(es.arena, e)
	return e
}

// Local is a parameter or local variable of some function.
type Local struct {
	ID   LocalID
	Type ValType
}

// Locals is the module-wide local arena.
type Locals struct {
	arena []*Local
}

// Add allocates a new local of the given type.
func (ls *Locals) Add(vt ValType) LocalID {
	id := LocalID(len(ls.arena))
	ls.arena = append(ls.arena, &Local{ID: id, Type: vt})
	return id
}

// Get returns the local with the given ID, or nil.
func (ls *Locals) Get(id LocalID) *Local {
	if int(id) >= len(ls.arena) {
		return nil
	}
	return ls.arena[id]
}

// Len returns the number of locals.
func (ls *Locals) Len() int {
	return len(ls.arena)
}

// AddImportFunction imports a function of type ty.
func (m *Module) AddImportFunction(module, name string, ty TypeID) (FunctionID, ImportID) {
	imp := m.Imports.add(&Import{Module: module, Name: name, Kind: wasm.KindFunc})
	f := m.Funcs.add(ty, &ImportedFunction{Import: imp.ID})
	imp.Func = f.ID
	return f.ID, imp.ID
}

// AddImportTag imports a tag of type ty.
func (m *Module) AddImportTag(module, name string, ty TypeID) (TagID, ImportID) {
	imp := m.Imports.add(&Import{Module: module, Name: name, Kind: wasm.KindTag})
	t := m.Tags.add(ty)
	id := imp.ID
	t.Import = &id
	imp.Tag = t.ID
	return t.ID, imp.ID
}

// AddImportTable imports a table.
func (m *Module) AddImportTable(module, name string, elem RefType, min uint64, max *uint64) (TableID, ImportID) {
	imp := m.Imports.add(&Import{Module: module, Name: name, Kind: wasm.KindTable})
	id := imp.ID
	t := m.Tables.add(&Table{Elem: elem, Limits: wasm.Limits{Min: min, Max: max}, Import: &id})
	imp.Table = t.ID
	return t.ID, imp.ID
}

// AddTag defines a tag of type ty.
func (m *Module) AddTag(ty TypeID) TagID {
	return m.Tags.add(ty).ID
}

// AddTable defines a table.
func (m *Module) AddTable(elem RefType, min uint64, max *uint64) TableID {
	return m.Tables.add(&Table{Elem: elem, Limits: wasm.Limits{Min: min, Max: max}}).ID
}

// ExportFunc exports a function under name.
func (m *Module) ExportFunc(name string, f FunctionID) ExportID {
	return m.Exports.add(&Export{Name: name, Kind: wasm.KindFunc, Func: f}).ID
}

// ExportTable exports a table under name.
func (m *Module) ExportTable(name string, t TableID) ExportID {
	return m.Exports.add(&Export{Name: name, Kind: wasm.KindTable, Table: t}).ID
}

// ExportTag exports a tag under name.
func (m *Module) ExportTag(name string, t TagID) ExportID {
	return m.Exports.add(&Export{Name: name, Kind: wasm.KindTag, Tag: t}).ID
}

// ExportedFunc returns the function exported under name.
func (m *Module) ExportedFunc(name string) (FunctionID, bool) {
	e, ok := m.Exports.ByName(name)
	if !ok || e.Kind != wasm.KindFunc {
		return 0, false
	}
	return e.Func, true
}

// ExportedTable returns the table exported under name.
func (m *Module) ExportedTable(name string) (TableID, bool) {
	e, ok := m.Exports.ByName(name)
	if !ok || e.Kind != wasm.KindTable {
		return 0, false
	}
	return e.Table, true
}

// ImportName returns the import field name of an imported function.
func (m *Module) ImportName(f FunctionID) (string, bool) {
	fn := m.Funcs.Get(f)
	if fn == nil {
		return "", false
	}
	imp, ok := fn.Imported()
	if !ok {
		return "", false
	}
	return m.Imports.Get(imp.Import).Name, true
}
