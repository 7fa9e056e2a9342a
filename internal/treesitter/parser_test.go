package treesitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xonecas/outline/internal/analysis"
)

const sample = `import os
import os.path as osp
from collections import OrderedDict, defaultdict as dd

CONST = 1

class Shape(object):
    sides = 0

    def __init__(self, name, *args, scale=1.0, **kw):
        self.name = name
        self.scale = scale

    def area(self):
        return 0


def helper(a, b):
    def inner():
        pass
    total = a + b
    return total

for i in range(3):
    pass

with open("f") as fh:
    data = fh.read()
`

func parse(t *testing.T, path, src string) *Module {
	t.Helper()
	mod, err := ParsePython(context.Background(), path, []byte(src))
	if err != nil {
		t.Fatalf("ParsePython: %v", err)
	}
	return mod
}

func defNames(defs []analysis.Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name()
	}
	return out
}

func find(t *testing.T, defs []analysis.Definition, name string) analysis.Definition {
	t.Helper()
	for _, d := range defs {
		if d.Name() == name {
			return d
		}
	}
	t.Fatalf("definition %q not found in %v", name, defNames(defs))
	return nil
}

func TestParsePython_TopLevel(t *testing.T) {
	mod := parse(t, "shapes.py", sample)

	got := strings.Join(defNames(mod.Names(false)), " ")
	want := "os osp OrderedDict dd CONST Shape helper i fh data"
	if got != want {
		t.Fatalf("top-level names:\n got  %s\n want %s", got, want)
	}

	tests := []struct {
		name     string
		typ      string
		fullName string
		isImport bool
	}{
		{"os", analysis.TypeModule, "os", true},
		{"osp", analysis.TypeModule, "os.path", true},
		{"OrderedDict", analysis.TypeModule, "collections.OrderedDict", true},
		{"dd", analysis.TypeModule, "collections.defaultdict", true},
		{"CONST", analysis.TypeStatement, "shapes.CONST", false},
		{"Shape", analysis.TypeClass, "shapes.Shape", false},
		{"helper", analysis.TypeFunction, "shapes.helper", false},
		{"i", analysis.TypeStatement, "shapes.i", false},
		{"fh", analysis.TypeStatement, "shapes.fh", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := find(t, mod.Names(false), tt.name)
			if d.Type() != tt.typ {
				t.Errorf("type = %q, want %q", d.Type(), tt.typ)
			}
			if d.FullName() != tt.fullName {
				t.Errorf("full name = %q, want %q", d.FullName(), tt.fullName)
			}
			if d.IsImport() != tt.isImport {
				t.Errorf("IsImport = %v, want %v", d.IsImport(), tt.isImport)
			}
			if d.Parent() == nil || d.Parent().Type() != analysis.TypeModule {
				t.Errorf("parent should be the module")
			}
		})
	}
}

func TestParsePython_ClassScope(t *testing.T) {
	mod := parse(t, "shapes.py", sample)
	shape := find(t, mod.Names(false), "Shape")

	members := shape.DefinedNames()
	if got := strings.Join(defNames(members), " "); got != "sides __init__ area" {
		t.Fatalf("class members = %s", got)
	}

	ctor := find(t, members, "__init__")
	if ctor.Parent() == nil || ctor.Parent().Name() != "Shape" {
		t.Errorf("__init__ parent = %v", ctor.Parent())
	}
	if ctor.FullName() != "shapes.Shape.__init__" {
		t.Errorf("__init__ full name = %q", ctor.FullName())
	}

	sigs := ctor.Signatures()
	if len(sigs) != 1 {
		t.Fatalf("signatures = %v", sigs)
	}
	if got := strings.Join(sigs[0].Params, ","); got != "self,name,args,scale,kw" {
		t.Errorf("params = %s", got)
	}

	// Parameters are scope members; self attributes are not.
	locals := ctor.DefinedNames()
	if got := strings.Join(defNames(locals), " "); got != "self name args scale kw" {
		t.Errorf("__init__ names = %s", got)
	}
	for _, p := range locals {
		if p.Type() != analysis.TypeParam {
			t.Errorf("%s type = %q, want param", p.Name(), p.Type())
		}
		if p.FullName() != "" {
			t.Errorf("param %s has full name %q", p.Name(), p.FullName())
		}
	}
}

func TestParsePython_AttributeTargets(t *testing.T) {
	mod := parse(t, "shapes.py", sample)

	var fields []string
	for _, d := range mod.Names(true) {
		if strings.HasPrefix(d.FullName(), "shapes.Shape.__init__.") {
			fields = append(fields, d.Name())
		}
	}
	if got := strings.Join(fields, " "); got != "name scale" {
		t.Fatalf("constructor attributes = %s", got)
	}

	var attr analysis.Definition
	for _, d := range mod.Names(true) {
		if d.FullName() == "shapes.Shape.__init__.scale" {
			attr = d
		}
	}
	if attr == nil {
		t.Fatal("self.scale not found")
	}
	if attr.Type() != analysis.TypeStatement {
		t.Errorf("attribute type = %q", attr.Type())
	}
	// Span covers "self.scale = scale" on line 12.
	want := analysis.Span{
		Start: analysis.Position{Line: 12, Column: 8},
		End:   analysis.Position{Line: 12, Column: 26},
	}
	if attr.Span() != want {
		t.Errorf("span = %+v, want %+v", attr.Span(), want)
	}
}

func TestParsePython_FunctionScope(t *testing.T) {
	mod := parse(t, "shapes.py", sample)
	helper := find(t, mod.Names(false), "helper")

	if got := strings.Join(defNames(helper.DefinedNames()), " "); got != "a b inner total" {
		t.Fatalf("helper names = %s", got)
	}
	inner := find(t, helper.DefinedNames(), "inner")
	if inner.FullName() != "shapes.helper.inner" {
		t.Errorf("inner full name = %q", inner.FullName())
	}
	if inner.Parent().Type() != analysis.TypeFunction {
		t.Errorf("inner parent type = %q", inner.Parent().Type())
	}
	if sigs := inner.Signatures(); len(sigs) != 1 || len(sigs[0].Params) != 0 {
		t.Errorf("inner signatures = %v", sigs)
	}
	if sigs := find(t, helper.DefinedNames(), "total").Signatures(); sigs != nil {
		t.Errorf("statement has signatures: %v", sigs)
	}
}

func TestParsePython_Spans(t *testing.T) {
	src := "def f(x):\n    return x\ny = f(1)\n"
	mod := parse(t, "", src)

	f := find(t, mod.Names(false), "f")
	want := analysis.Span{
		Start: analysis.Position{Line: 1, Column: 0},
		End:   analysis.Position{Line: 3, Column: 0},
	}
	if f.Span() != want {
		t.Errorf("f span = %+v, want %+v", f.Span(), want)
	}

	y := find(t, mod.Names(false), "y")
	want = analysis.Span{
		Start: analysis.Position{Line: 3, Column: 0},
		End:   analysis.Position{Line: 3, Column: 8},
	}
	if y.Span() != want {
		t.Errorf("y span = %+v, want %+v", y.Span(), want)
	}
}

func TestParsePython_DecoratedSpanStartsAtDef(t *testing.T) {
	src := "class C:\n    @property\n    def value(self):\n        return 1\n"
	mod := parse(t, "c.py", src)
	value := find(t, find(t, mod.Names(false), "C").DefinedNames(), "value")

	if value.Type() != analysis.TypeFunction {
		t.Errorf("type = %q", value.Type())
	}
	if start := value.Span().Start; start.Line != 3 || start.Column != 4 {
		t.Errorf("start = %+v, want line 3 column 4", start)
	}
}

func TestParsePython_UTF16Columns(t *testing.T) {
	mod := parse(t, "", "x = \"é𝄞\"\n")
	x := find(t, mod.Names(false), "x")
	if end := x.Span().End; end.Column != 9 {
		t.Errorf("end column = %d, want 9", end.Column)
	}
}

func TestParsePython_Bindings(t *testing.T) {
	src := `a, (b, c) = 1, (2, 3)
first, *rest = items
p = q = 0
n += 1
ann: int = 3
if (w := 10) > 5:
    pass
try:
    pass
except ValueError as err:
    pass
sq = [k * k for k in range(3)]
fn = lambda z: z
obj.attr = 1
items[0] = 2
_ = ignored()
`
	mod := parse(t, "", src)
	got := strings.Join(defNames(mod.Names(false)), " ")
	want := "a b c first rest p q n ann w err sq fn attr _"
	if got != want {
		t.Fatalf("names:\n got  %s\n want %s", got, want)
	}

	for _, d := range mod.Names(true) {
		if d.Type() != analysis.TypeStatement {
			t.Errorf("%s type = %q, want statement", d.Name(), d.Type())
		}
	}

	// Both targets of a chained assignment span the whole statement.
	q := find(t, mod.Names(false), "q")
	if end := q.Span().End; end.Line != 3 || end.Column != 9 {
		t.Errorf("q end = %+v", end)
	}
	if attr := find(t, mod.Names(false), "attr"); attr.FullName() != "__main__.attr" {
		t.Errorf("attr full name = %q", attr.FullName())
	}
}

func TestParsePython_Parameters(t *testing.T) {
	src := "def g(a: int = 1, /, b=2, *, c, d: str, **opts):\n    pass\n"
	mod := parse(t, "", src)
	g := find(t, mod.Names(false), "g")
	if got := strings.Join(g.Signatures()[0].Params, ","); got != "a,b,c,d,opts" {
		t.Errorf("params = %s", got)
	}
}

func TestParsePython_Empty(t *testing.T) {
	mod := parse(t, "empty.py", "")
	if n := len(mod.Names(true)); n != 0 {
		t.Errorf("got %d names for empty source", n)
	}
	if mod.Root().Name() != "empty" {
		t.Errorf("module name = %q", mod.Root().Name())
	}
}

func TestParsePython_SyntaxError(t *testing.T) {
	mod := parse(t, "", "def ok():\n    pass\n\nclass (:\n")
	if len(mod.Names(false)) == 0 {
		t.Fatal("expected the valid function to survive a syntax error")
	}
	find(t, mod.Names(false), "ok")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg", "__init__.py")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("VERSION = '1'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mod, err := ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	v := find(t, mod.Names(false), "VERSION")
	if v.FullName() != "pkg.VERSION" {
		t.Errorf("full name = %q", v.FullName())
	}

	if _, err := ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "__main__"},
		{"mod.py", "mod"},
		{"a/b/mod.pyi", "mod"},
		{"a/pkg/__init__.py", "pkg"},
		{"__init__.py", "__init__"},
	}
	for _, tt := range tests {
		if got := moduleName(tt.path); got != tt.want {
			t.Errorf("moduleName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.py":        true,
		"stubs/a.pyi": true,
		"README.md":   false,
		"main.go":     false,
		"":            false,
		"dir/noext":   false,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
