// Package ir provides an arena-based intermediate representation of a
// WebAssembly module for whole-module transforms.
//
// Every entity lives in an arena owned by Module and is addressed by a small
// integer handle (FunctionID, TypeID, TableID, TagID, ImportID, ExportID,
// LocalID). Function bodies are trees of instruction sequences; each sequence
// is addressed by a SeqID local to its function. Cross references (call
// targets, branch labels, try_table catch labels, local accesses) are handles,
// never pointers, so transforms can add functions and tags without
// renumbering anything by hand.
//
// # Parsing and Emitting
//
// Sections and instructions are decoded and encoded by package wasm, and
// Parse runs its structural validation:
//
//	m, err := ir.Parse(data)
//	...
//	out, err := m.Emit()
//
// Emit recomputes the function, table and tag index spaces. Imported entities
// always precede defined ones, so importing a tag into a module that defines
// tags shifts the defined tags and every throw/catch that names them.
//
// # Instructions
//
// Instr is a closed sum type. Structured control (Block, Loop, IfElse, Try,
// TryTable) refers to child sequences by SeqID. Opcodes that no transform in
// this module needs to inspect are carried verbatim in Raw.
//
// # Building Functions
//
//	fb := ir.NewFunctionBuilder(m, ty)
//	x := m.Locals.Add(ir.I32)
//	fb.Body().LocalGet(x).Call(callee)
//	id := fb.Finish([]ir.LocalID{x})
//
// # Limitations
//
// GC composite types (struct, array, rec groups) are rejected by Parse.
// Legacy rethrow and delegate depths, and the branch depths of GC
// instructions, are kept as decoded; transforms must not restructure the
// code around them. Constant expressions are decoded only when a function
// index actually moved.
package ir
