package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xonecas/outline/internal/analysis"
)

// opaqueScopes bind names that are invisible outside of them and that the
// outline does not report.
var opaqueScopes = map[string]bool{
	"lambda":                   true,
	"list_comprehension":       true,
	"set_comprehension":        true,
	"dictionary_comprehension": true,
	"generator_expression":     true,
}

type collector struct {
	lineIndex
	module *Module
}

func newCollector(src []byte) *collector {
	return &collector{lineIndex: newLineIndex(src)}
}

func (c *collector) text(node *sitter.Node) string {
	return node.Content(c.src)
}

// add records a definition bound in scope.
func (c *collector) add(scope *Name, n *Name) *Name {
	n.parent = scope
	scope.defined = append(scope.defined, n)
	c.module.all = append(c.module.all, n)
	return n
}

// walk visits node and everything below it that belongs to scope.
func (c *collector) walk(node *sitter.Node, scope *Name) {
	if node == nil {
		return
	}
	typ := node.Type()
	if opaqueScopes[typ] {
		return
	}

	switch typ {
	case "function_definition":
		c.function(node, scope)
		return
	case "class_definition":
		c.class(node, scope)
		return
	case "decorated_definition":
		c.walk(node.ChildByFieldName("definition"), scope)
		return
	case "import_statement", "future_import_statement":
		c.importNames(node, scope)
		return
	case "import_from_statement":
		c.importFrom(node, scope)
		return
	case "assignment", "augmented_assignment":
		c.assignment(node, node, scope)
		return
	case "named_expression":
		if name := node.ChildByFieldName("name"); name != nil {
			c.statement(name, c.span(node), scope)
		}
		c.walk(node.ChildByFieldName("value"), scope)
		return
	case "for_statement":
		c.targets(node.ChildByFieldName("left"), c.blockSpan(node), scope)
		c.walk(node.ChildByFieldName("right"), scope)
		c.walk(node.ChildByFieldName("body"), scope)
		c.walk(node.ChildByFieldName("alternative"), scope)
		return
	case "with_statement":
		span := c.blockSpan(node)
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "block" {
				c.walk(child, scope)
			} else {
				c.asTargets(child, span, scope)
			}
		}
		return
	case "except_clause", "except_group_clause":
		c.exceptClause(node, scope)
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		c.walk(node.NamedChild(i), scope)
	}
}

func (c *collector) function(node *sitter.Node, scope *Name) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := c.text(nameNode)
	fn := c.add(scope, &Name{
		typ:      analysis.TypeFunction,
		name:     name,
		fullName: qualify(scope, name),
		params:   []string{},
		span:     c.blockSpan(node),
		pos:      c.position(nameNode.StartPoint()),
	})

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(i)
			id := paramIdentifier(param)
			if id == nil {
				continue
			}
			pname := c.text(id)
			fn.params = append(fn.params, pname)
			c.add(fn, &Name{
				typ:  analysis.TypeParam,
				name: pname,
				span: c.span(param),
				pos:  c.position(id.StartPoint()),
			})
		}
	}

	c.walk(node.ChildByFieldName("body"), fn)
}

// paramIdentifier returns the identifier a parameter binds, or nil for
// separators such as a bare * or /.
func paramIdentifier(param *sitter.Node) *sitter.Node {
	switch param.Type() {
	case "identifier":
		return param
	case "default_parameter", "typed_default_parameter":
		if name := param.ChildByFieldName("name"); name != nil {
			return paramIdentifier(name)
		}
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		for i := 0; i < int(param.NamedChildCount()); i++ {
			child := param.NamedChild(i)
			if id := paramIdentifier(child); id != nil {
				return id
			}
		}
	}
	return nil
}

func (c *collector) class(node *sitter.Node, scope *Name) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := c.text(nameNode)
	cls := c.add(scope, &Name{
		typ:      analysis.TypeClass,
		name:     name,
		fullName: qualify(scope, name),
		span:     c.blockSpan(node),
		pos:      c.position(nameNode.StartPoint()),
	})
	c.walk(node.ChildByFieldName("body"), cls)
}

// assignment records the targets of node. stmt is the outermost assignment
// of a chain like a = b = 1 and provides the span of every target.
func (c *collector) assignment(node, stmt *sitter.Node, scope *Name) {
	span := c.span(stmt)
	c.targets(node.ChildByFieldName("left"), span, scope)

	right := node.ChildByFieldName("right")
	if right != nil && (right.Type() == "assignment" || right.Type() == "augmented_assignment") {
		c.assignment(right, stmt, scope)
		return
	}
	c.walk(right, scope)
}

// targets records every name bound by an assignment target.
func (c *collector) targets(node *sitter.Node, span analysis.Span, scope *Name) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier":
		c.statement(node, span, scope)
	case "attribute":
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return
		}
		name := c.text(attr)
		c.add(scope, &Name{
			typ:       analysis.TypeStatement,
			name:      name,
			fullName:  qualify(scope, name),
			attribute: true,
			span:      span,
			pos:       c.position(attr.StartPoint()),
		})
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list",
		"tuple", "list", "parenthesized_expression", "list_splat_pattern",
		"list_splat", "as_pattern_target":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c.targets(node.NamedChild(i), span, scope)
		}
	}
}

func (c *collector) statement(id *sitter.Node, span analysis.Span, scope *Name) {
	name := c.text(id)
	c.add(scope, &Name{
		typ:      analysis.TypeStatement,
		name:     name,
		fullName: qualify(scope, name),
		span:     span,
		pos:      c.position(id.StartPoint()),
	})
}

// asTargets finds "expr as target" bindings below a with item.
func (c *collector) asTargets(node *sitter.Node, span analysis.Span, scope *Name) {
	if node == nil {
		return
	}
	if node.Type() == "as_pattern" {
		if node.NamedChildCount() > 0 {
			c.walk(node.NamedChild(0), scope)
		}
		c.targets(node.ChildByFieldName("alias"), span, scope)
		return
	}
	if opaqueScopes[node.Type()] {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c.asTargets(node.NamedChild(i), span, scope)
	}
}

// exceptClause handles both "except E as e" layouts the grammar has used:
// a bare "as" token followed by the name, and an as_pattern node.
func (c *collector) exceptClause(node *sitter.Node, scope *Name) {
	span := c.blockSpan(node)
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		switch {
		case child.Type() == "block":
			c.walk(child, scope)
		case child.Type() == "as_pattern":
			c.asTargets(child, span, scope)
		case !child.IsNamed() && child.Type() == "as" && i+1 < count:
			c.targets(node.Child(i+1), span, scope)
			i++
		case child.IsNamed():
			c.walk(child, scope)
		}
	}
}

// importNames handles "import a.b" and "import a.b as c". The bound name is
// the alias, or the first component of the dotted path.
func (c *collector) importNames(node *sitter.Node, scope *Name) {
	prefix := ""
	if node.Type() == "future_import_statement" {
		prefix = "__future__"
	}
	span := c.span(node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			first := child.NamedChild(0)
			if first == nil {
				continue
			}
			full := c.text(first)
			if prefix != "" {
				full = prefix + "." + c.text(child)
			}
			c.importName(first, full, span, scope)
		case "aliased_import":
			alias := child.ChildByFieldName("alias")
			path := child.ChildByFieldName("name")
			if alias == nil || path == nil {
				continue
			}
			full := c.text(path)
			if prefix != "" {
				full = prefix + "." + full
			}
			c.importName(alias, full, span, scope)
		}
	}
}

// importFrom handles "from m import a, b as c". Wildcard imports bind
// nothing the outline can name.
func (c *collector) importFrom(node *sitter.Node, scope *Name) {
	module := ""
	if m := node.ChildByFieldName("module_name"); m != nil {
		module = strings.TrimLeft(c.text(m), ".")
	}
	span := c.span(node)

	// The first named child is the module name.
	for i := 1; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		var id, path *sitter.Node
		switch child.Type() {
		case "dotted_name":
			id, path = child, child
		case "aliased_import":
			id, path = child.ChildByFieldName("alias"), child.ChildByFieldName("name")
		default:
			continue
		}
		if id == nil || path == nil {
			continue
		}
		full := c.text(path)
		if module != "" {
			full = module + "." + full
		}
		c.importName(id, full, span, scope)
	}
}

func (c *collector) importName(id *sitter.Node, fullName string, span analysis.Span, scope *Name) {
	c.add(scope, &Name{
		typ:      analysis.TypeModule,
		name:     c.text(id),
		fullName: fullName,
		isImport: true,
		span:     span,
		pos:      c.position(id.StartPoint()),
	})
}
