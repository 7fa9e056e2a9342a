// Package treesitter analyzes Python sources with tree-sitter and reports
// their named definitions: classes, functions, parameters, assignments and
// imports, with scopes, qualified names and source spans.
package treesitter

import (
	"sort"

	"github.com/xonecas/outline/internal/analysis"
)

// Name is a single definition found in a module. It implements
// analysis.Definition.
type Name struct {
	typ      string
	name     string
	fullName string
	parent   *Name
	isImport bool
	// attribute marks targets like self.x; they are listed by Module.Names
	// but not by the enclosing scope's DefinedNames.
	attribute bool
	// params is non-nil for functions, even when they take no arguments.
	params  []string
	defined []*Name
	span    analysis.Span
	// pos is where the name token starts; definitions are ordered by it.
	pos analysis.Position
}

var _ analysis.Definition = (*Name)(nil)

func (n *Name) Type() string        { return n.typ }
func (n *Name) Name() string        { return n.name }
func (n *Name) FullName() string    { return n.fullName }
func (n *Name) IsImport() bool      { return n.isImport }
func (n *Name) Span() analysis.Span { return n.span }

// Parent returns the enclosing class, function or module.
func (n *Name) Parent() analysis.Definition {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// DefinedNames returns the names bound directly in this class or function
// body, in source order.
func (n *Name) DefinedNames() []analysis.Definition {
	out := make([]analysis.Definition, 0, len(n.defined))
	for _, d := range n.defined {
		if d.attribute {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Signatures returns the parameter list of a function.
func (n *Name) Signatures() []analysis.Signature {
	if n.typ != analysis.TypeFunction || n.params == nil {
		return nil
	}
	return []analysis.Signature{{Params: append([]string(nil), n.params...)}}
}

// Module is an analyzed Python file. It implements analysis.Document.
type Module struct {
	root *Name
	all  []*Name
}

var _ analysis.Document = (*Module)(nil)

// Root returns the definition that stands for the module itself.
func (m *Module) Root() *Name { return m.root }

// Names returns the module-scope definitions, or every definition when
// allScopes is set. Both lists are ordered by name position.
func (m *Module) Names(allScopes bool) []analysis.Definition {
	out := make([]analysis.Definition, 0, len(m.all))
	for _, n := range m.all {
		if allScopes || n.parent == m.root {
			out = append(out, n)
		}
	}
	return out
}

func sortByPos(names []*Name) {
	sort.SliceStable(names, func(i, j int) bool {
		a, b := names[i].pos, names[j].pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}
