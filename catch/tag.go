package catch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/ir"
	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
)

// Host exception tag import.
const (
	TagModule = "__wbindgen_placeholder__"
	TagName   = "__wbindgen_jstag"
)

// existingJSTag finds a host tag import left by an earlier run. An import
// under that name that is not an (externref) -> () tag is an error.
func existingJSTag(m *ir.Module) (ir.TagID, bool, error) {
	imp, ok := m.Imports.Find(TagModule, TagName)
	if !ok {
		return 0, false, nil
	}
	if imp.Kind != wasm.KindTag {
		return 0, false, errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("import %s.%s exists but is not a tag", TagModule, TagName))
	}
	ty := m.Tags.Get(imp.Tag).Type
	params, results := m.Types.Params(ty), m.Types.Results(ty)
	if len(params) != 1 || params[0] != ir.ExternRef || len(results) != 0 {
		return 0, false, errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("tag import %s.%s does not have type (externref) -> ()", TagModule, TagName))
	}
	return imp.Tag, true, nil
}

// importJSTag imports the host's exception tag, of type (externref) -> ().
func importJSTag(m *ir.Module) ir.TagID {
	ty := m.Types.Add([]ir.ValType{ir.ExternRef}, nil)
	tag, _ := m.AddImportTag(TagModule, TagName, ty)
	Logger().Debug("imported host exception tag",
		zap.Uint32("tag", uint32(tag)),
		zap.Uint32("type", uint32(ty)))
	return tag
}
