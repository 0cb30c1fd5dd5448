// Package catch wraps calls to host imports so that host exceptions are
// caught inside the module.
//
// A host function flagged upstream may throw a JavaScript exception. The pass
// imports the host's exception tag (module "__wbindgen_placeholder__", name
// "__wbindgen_jstag", type (externref) -> ()), generates one wrapper per
// flagged import, and retargets every direct call to the import so that it
// goes through the wrapper instead. Wrappers themselves keep calling the
// original import.
//
// When the tag fires, the wrapper stores the caught value in the externref
// table at a freshly allocated slot, hands the slot index to the exception
// store function, and returns zero or null for every declared result.
//
// # Strategies
//
// StrategyModern emits try_table (exception handling as standardized):
//
//	block (result externref)
//	  try_table (catch $jstag 0)
//	    local.get 0 ... call $import return
//	  end
//	  unreachable
//	end
//	local.set $exn call $alloc local.tee $idx local.get $exn
//	table.set $table local.get $idx call $exn_store
//	<defaults>
//
// StrategyLegacy emits the pre-standard try/catch form. Exactly one strategy
// is used per module.
//
// # Usage
//
// Run operates on an ir.Module with handles provided by earlier passes:
//
//	err := catch.Run(m, meta, implements, catch.StrategyModern)
//
// Transform drives the same pass over a binary, resolving handles by export
// name and flagging imports through an ImportMatcher:
//
//	out, report, err := catch.Transform(data, catch.Config{
//	    Matcher: catch.NewWildcardMatcher([]string{"env.*"}),
//	})
package catch
