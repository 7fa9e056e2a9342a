// Package analysis describes what the outline builder needs from a code
// analyzer: the named definitions of one document and a few facts about each.
package analysis

// Type tags an analyzer can report for a definition.
const (
	TypeModule    = "module"
	TypeClass     = "class"
	TypeFunction  = "function"
	TypeParam     = "param"
	TypeStatement = "statement"
)

// Position is a point in a source file. Line is 1-indexed, Column is
// 0-indexed in UTF-16 code units.
type Position struct {
	Line   int
	Column int
}

// Span is the extent of a definition node. End is exclusive.
type Span struct {
	Start Position
	End   Position
}

// Signature lists the parameter names of one callable signature, in order.
type Signature struct {
	Params []string
}

// Definition is a named program element produced by an analyzer.
type Definition interface {
	// Type returns the analyzer's semantic tag, e.g. "class" or "statement".
	Type() string
	Name() string
	// FullName returns the dotted qualified name, or "" when unknown.
	FullName() string
	// Parent returns the enclosing scope definition, or nil for a module.
	Parent() Definition
	// DefinedNames returns the names defined directly in this definition's
	// scope, in source order.
	DefinedNames() []Definition
	Signatures() []Signature
	IsImport() bool
	// Span covers the whole syntactic definition, not just the name token.
	Span() Span
}

// Document exposes the definitions of a single source file.
type Document interface {
	// Names returns module-scope definitions, or every definition in the
	// file when allScopes is true. Both are ordered by position.
	Names(allScopes bool) []Definition
}
