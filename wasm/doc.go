// Package wasm is the binary codec under the ir package.
//
// ParseModule decodes every section into a Module, keeping function bodies
// as raw code with their local declarations. DecodeInstructions and
// EncodeInstructions convert a body's code to and from Instruction values.
// Module.Encode writes the sections back in canonical order with custom
// sections last.
//
// Besides the 2.0 instruction set the codec understands the exception
// handling opcodes in both encodings (try/catch/delegate/rethrow and
// try_table/throw_ref), tag sections and tag imports, typed references with
// heap types, tail calls, SIMD, atomics and GC instructions, so modules
// using them pass through unchanged.
//
// Validate checks only the structure Encode relies on: index bounds, export
// names, section counts and memory limits. It does not type-check code.
package wasm
