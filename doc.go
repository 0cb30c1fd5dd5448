// Package bindgen rewrites compiled WebAssembly modules so that calls into
// host imports which may throw are caught inside the module.
//
// A host function reached through an import can raise a host exception. The
// catch pass generates, for each such import, a wrapper with the same
// signature that calls the import inside an exception handler. When the host
// throws, the handler stores the exception in the externref table, hands the
// slot to the exception store and returns zero values. Every call site of the
// import is then retargeted to its wrapper.
//
// # Architecture Overview
//
//	bindgen/
//	├── ir/              Arena-based module IR: parse, build, walk, emit
//	├── catch/           The catch-wrapper pass, byte-level Transform, matchers
//	├── wasm/            Core WASM binary decoding, encoding and validation
//	├── errors/          Structured error types
//	└── cmd/catchwrap/   Command line front end with an interactive picker
//
// # Quick Start
//
//	out, report, err := catch.Transform(data, catch.Config{
//		Matcher: catch.NewWildcardMatcher([]string{"__wbindgen_placeholder__.*"}),
//	})
//	if err != nil {
//		return err
//	}
//	for _, w := range report.Wrapped {
//		fmt.Printf("%s.%s -> func %d\n", w.Module, w.Name, w.Wrapper)
//	}
//
// # Exception Handling Encodings
//
// Wrappers are emitted either with try_table (the current exception handling
// proposal) or with legacy try/catch. Transform picks the encoding the module
// already uses unless Config.Strategy forces one.
//
// # Error Handling
//
// Errors are *errors.Error values carrying a phase (parse, emit, config,
// transform, load) and a kind. Missing runtime handles are reported together
// through go.uber.org/multierr. A flagged import returning v128 has no
// default value and aborts the pass with a panic before the module is
// modified.
//
// # Logging
//
// The ir and catch packages log through zap. Both default to a no-op logger;
// install one with ir.SetLogger and catch.SetLogger.
package bindgen
