package treesitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/xonecas/outline/internal/analysis"
	"github.com/xonecas/outline/internal/workspace"
)

// Supported reports whether path is a source file the analyzer understands.
func Supported(path string) bool {
	return workspace.IsPython(path)
}

// ParseFile reads and analyzes a Python file.
func ParseFile(ctx context.Context, path string) (*Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePython(ctx, path, src)
}

// ParsePython parses Python source and collects its definitions. path is
// only used to derive the module name and may be empty.
func ParsePython(ctx context.Context, path string, src []byte) (*Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		// Tree-sitter recovers from syntax errors; keep whatever parsed.
		log.Debug().Str("path", path).Msg("treesitter: source has syntax errors")
	}

	c := newCollector(src)
	modName := moduleName(path)
	mod := &Module{
		root: &Name{
			typ:      analysis.TypeModule,
			name:     modName,
			fullName: modName,
			span:     c.span(root),
		},
	}
	c.module = mod
	c.walk(root, mod.root)

	sortByPos(mod.all)
	sortByPos(mod.root.defined)
	for _, n := range mod.all {
		sortByPos(n.defined)
	}
	return mod, nil
}

// moduleName derives a dotted-name root from a file path: the file stem, or
// the package directory for __init__.py.
func moduleName(path string) string {
	if path == "" {
		return "__main__"
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "__init__" {
		dir := filepath.Base(filepath.Dir(path))
		if dir != "." && dir != string(filepath.Separator) {
			return dir
		}
	}
	return stem
}

// qualify joins a scope's full name with a child name.
func qualify(scope *Name, name string) string {
	if scope == nil || scope.fullName == "" {
		return name
	}
	return scope.fullName + "." + name
}
