package symbols

import (
	"strings"

	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
	"github.com/xonecas/outline/internal/analysis"
	"github.com/xonecas/outline/internal/config"
)

// unusedName is the conventional placeholder for values that are ignored.
const unusedName = "_"

// Settings exposes per-plugin configuration.
type Settings interface {
	PluginSettings(name string) config.PluginSettings
}

type extractor struct {
	all            []analysis.Definition
	includeImports bool
}

// DocumentSymbols returns the symbol tree of doc. Top-level definitions
// become roots; class members, nested functions and constructor-assigned
// fields become children. An empty document yields an empty slice.
func DocumentSymbols(cfg Settings, doc analysis.Document) []protocol.DocumentSymbol {
	ex := &extractor{
		all:            doc.Names(true),
		includeImports: cfg.PluginSettings(config.SymbolsPlugin).Bool(config.IncludeImportSymbols, true),
	}

	out := make([]protocol.DocumentSymbol, 0)
	for _, def := range doc.Names(false) {
		if sym, ok := ex.extract(def, true); ok {
			out = append(out, sym)
		}
	}
	return out
}

func (ex *extractor) extractAll(defs []analysis.Definition, includeVars bool) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, def := range defs {
		if sym, ok := ex.extract(def, includeVars); ok {
			out = append(out, sym)
		}
	}
	return out
}

func (ex *extractor) extract(def analysis.Definition, includeVars bool) (protocol.DocumentSymbol, bool) {
	kind, ok := includeDefinition(def)
	if !ok {
		return protocol.DocumentSymbol{}, false
	}
	if def.Type() == analysis.TypeStatement && !includeVars {
		return protocol.DocumentSymbol{}, false
	}

	var (
		detail   string
		children []protocol.DocumentSymbol
	)

	if def.IsImport() {
		if !ex.includeImports {
			return protocol.DocumentSymbol{}, false
		}
	} else {
		switch def.Type() {
		case analysis.TypeClass:
			children = ex.extractAll(def.DefinedNames(), true)

		case analysis.TypeFunction:
			detail = signatureDetail(def)

			inClass := def.Parent() != nil && def.Parent().Type() == analysis.TypeClass
			if inClass {
				kind = kindTable["method"]
			}
			if inClass && def.Name() == "__init__" {
				children = append(children, extractFields(def, ex.all)...)
			}

			// Locals are dropped; nested functions and classes are kept.
			children = append(children, ex.extractAll(def.DefinedNames(), false)...)
		}
	}

	rng := symbolRange(def)
	return protocol.DocumentSymbol{
		Name:           def.Name(),
		Detail:         detail,
		Kind:           kind,
		Range:          rng,
		SelectionRange: rng,
		Children:       children,
	}, true
}

// extractFields returns a Field symbol for every definition whose full name
// is nested under the constructor's full name, e.g. self.x = 1.
func extractFields(ctor analysis.Definition, all []analysis.Definition) []protocol.DocumentSymbol {
	if ctor.FullName() == "" {
		return nil
	}
	prefix := ctor.FullName() + "."

	var fields []protocol.DocumentSymbol
	for _, candidate := range all {
		full := candidate.FullName()
		if full == "" || !strings.HasPrefix(full, prefix) {
			continue
		}
		rng := symbolRange(candidate)
		fields = append(fields, protocol.DocumentSymbol{
			Name:           full[strings.LastIndexByte(full, '.')+1:],
			Kind:           protocol.Field,
			Range:          rng,
			SelectionRange: rng,
		})
	}
	return fields
}

// includeDefinition reports whether def can become a symbol at all, and
// with which kind.
func includeDefinition(def analysis.Definition) (protocol.SymbolKind, bool) {
	if def.Type() == analysis.TypeParam || def.Name() == unusedName {
		return 0, false
	}
	return Kind(def.Type())
}

// signatureDetail renders the first signature as "(a, b)", without a
// leading self. It returns "" when there is no signature.
func signatureDetail(def analysis.Definition) string {
	sigs := def.Signatures()
	if len(sigs) == 0 {
		return ""
	}
	params := sigs[0].Params
	if len(params) > 0 && params[0] == "self" {
		params = params[1:]
	}
	return "(" + strings.Join(params, ", ") + ")"
}

func symbolRange(def analysis.Definition) protocol.Range {
	span := def.Span()
	return protocol.Range{
		Start: protocol.Position{Line: uint32(span.Start.Line - 1), Character: uint32(span.Start.Column)},
		End:   protocol.Position{Line: uint32(span.End.Line - 1), Character: uint32(span.End.Column)},
	}
}
