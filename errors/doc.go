// Package errors provides structured error types for the catch-wrapper toolchain.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the handle or item it concerns, the value type involved, a
// location path (function, import) and an optional cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConfig, errors.KindMissingHandle).
//		Handle("externref table").
//		Detail("required when imports are flagged for catching").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingHandle("exception store function")
//	err := errors.UnsupportedType(errors.PhaseTransform, []string{"env", "f"}, "v128")
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind only.
package errors
