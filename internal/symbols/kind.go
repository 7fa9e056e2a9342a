// Package symbols builds the document outline shown by an editor's
// "document symbols" view from the definitions an analyzer reports.
package symbols

import "github.com/charmbracelet/x/powernap/pkg/lsp/protocol"

// kindTable maps analyzer type tags to protocol symbol kinds. Tags missing
// from the table (traceback, frame, slice, ...) produce no symbol at all.
var kindTable = map[string]protocol.SymbolKind{
	"none":            protocol.Variable,
	"type":            protocol.Class,
	"tuple":           protocol.Class,
	"dict":            protocol.Class,
	"dictionary":      protocol.Class,
	"function":        protocol.Function,
	"lambda":          protocol.Function,
	"generator":       protocol.Function,
	"class":           protocol.Class,
	"instance":        protocol.Class,
	"method":          protocol.Method,
	"builtin":         protocol.Class,
	"builtinfunction": protocol.Function,
	"module":          protocol.Module,
	"file":            protocol.File,
	"xrange":          protocol.Array,
	"buffer":          protocol.Array,
	"funcdef":         protocol.Function,
	"property":        protocol.Property,
	"import":          protocol.Module,
	"keyword":         protocol.Variable,
	"constant":        protocol.Constant,
	"variable":        protocol.Variable,
	"value":           protocol.Variable,
	"param":           protocol.Variable,
	"statement":       protocol.Variable,
	"boolean":         protocol.Boolean,
	"int":             protocol.Number,
	"float":           protocol.Number,
	"complex":         protocol.Number,
	"string":          protocol.String,
	"unicode":         protocol.String,
	"list":            protocol.Array,
	"field":           protocol.Field,
}

// Kind returns the symbol kind for an analyzer type tag. ok is false when
// the tag has no kind, in which case the definition is left out.
func Kind(tag string) (kind protocol.SymbolKind, ok bool) {
	kind, ok = kindTable[tag]
	return kind, ok
}

var kindNames = map[protocol.SymbolKind]string{
	protocol.File:     "file",
	protocol.Module:   "module",
	protocol.Class:    "class",
	protocol.Method:   "method",
	protocol.Property: "property",
	protocol.Field:    "field",
	protocol.Function: "function",
	protocol.Variable: "variable",
	protocol.Constant: "constant",
	protocol.String:   "string",
	protocol.Number:   "number",
	protocol.Boolean:  "boolean",
	protocol.Array:    "array",
}

// KindName returns a short label for a symbol kind.
func KindName(k protocol.SymbolKind) string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}
