package ir

// FunctionID identifies a function in Module.Funcs.
type FunctionID uint32

// TypeID identifies a function type in Module.Types.
type TypeID uint32

// TableID identifies a table in Module.Tables.
type TableID uint32

// TagID identifies an exception tag in Module.Tags.
type TagID uint32

// ImportID identifies an entry in Module.Imports.
type ImportID uint32

// ExportID identifies an entry in Module.Exports.
type ExportID uint32

// LocalID identifies a local variable in Module.Locals.
type LocalID uint32

// SeqID identifies an instruction sequence within a single LocalFunction.
type SeqID uint32
