package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/golden"
	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
)

func rng(startLine, startChar, endLine, endChar uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: startLine, Character: startChar},
		End:   protocol.Position{Line: endLine, Character: endChar},
	}
}

func sym(name, detail string, kind protocol.SymbolKind, r protocol.Range, children ...protocol.DocumentSymbol) protocol.DocumentSymbol {
	return protocol.DocumentSymbol{
		Name:           name,
		Detail:         detail,
		Kind:           kind,
		Range:          r,
		SelectionRange: r,
		Children:       children,
	}
}

func fixture() []protocol.DocumentSymbol {
	return []protocol.DocumentSymbol{
		sym("sys", "", protocol.Module, rng(0, 0, 0, 10)),
		sym("B", "", protocol.Class, rng(4, 0, 8, 0),
			sym("__init__", "()", protocol.Method, rng(5, 4, 8, 0),
				sym("x", "", protocol.Field, rng(6, 8, 6, 13)),
				sym("y", "", protocol.Field, rng(7, 8, 7, 18)),
			),
		),
		sym("main", "(x)", protocol.Function, rng(9, 0, 12, 0)),
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, fixture()); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	golden.RequireEqual(t, buf.Bytes())
}

func TestJSON_Empty(t *testing.T) {
	for _, syms := range [][]protocol.DocumentSymbol{nil, {}} {
		var buf bytes.Buffer
		if err := JSON(&buf, syms); err != nil {
			t.Fatalf("JSON: %v", err)
		}
		if got := buf.String(); got != "[]\n" {
			t.Errorf("got %q, want %q", got, "[]\n")
		}
	}
}

func TestText(t *testing.T) {
	out := Text(fixture(), Options{})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	want := []struct {
		label string
		depth int
	}{
		{"sys  module", 0},
		{"B  class", 0},
		{"__init__()  method", 1},
		{"x  field", 2},
		{"y  field", 2},
		{"main(x)  function", 0},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out)
	}
	for i, w := range want {
		idx := strings.Index(lines[i], w.label)
		if idx < 0 {
			t.Errorf("line %d = %q, want label %q", i, lines[i], w.label)
			continue
		}
		if !strings.HasSuffix(lines[i], w.label) {
			t.Errorf("line %d = %q has trailing text", i, lines[i])
		}
		// Each level adds one four-cell branch prefix.
		if prefix := ansi.StringWidth(lines[i][:idx]); prefix != 4*(w.depth+1) {
			t.Errorf("line %d prefix width = %d, want %d", i, prefix, 4*(w.depth+1))
		}
	}
}

func TestText_Empty(t *testing.T) {
	if got := Text(nil, Options{}); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestText_Width(t *testing.T) {
	out := Text(fixture(), Options{Width: 12})
	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		if w := ansi.StringWidth(line); w > 12 {
			t.Errorf("line %q is %d cells wide", line, w)
		}
	}
	if !strings.Contains(out, "…") {
		t.Errorf("expected a truncated line:\n%s", out)
	}
}

func TestText_Styled(t *testing.T) {
	out := Text(fixture(), Options{Styled: true})
	if ansi.Strip(out) == out {
		t.Fatal("styled output has no escape sequences")
	}
	if !strings.Contains(ansi.Strip(out), "main(x)  function") {
		t.Errorf("stripped output:\n%s", ansi.Strip(out))
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		sym  protocol.DocumentSymbol
		opts Options
		want string
	}{
		{"variable", sym("a", "", protocol.Variable, rng(2, 0, 2, 11)), Options{}, "a  variable"},
		{"function", sym("f", "(a, b)", protocol.Function, rng(0, 0, 2, 0)), Options{}, "f(a, b)  function"},
		{"single line range", sym("a", "", protocol.Variable, rng(2, 0, 2, 11)), Options{Ranges: true}, "a  variable  L3-3"},
		{"block range", sym("f", "()", protocol.Function, rng(0, 0, 2, 0)), Options{Ranges: true}, "f()  function  L1-2"},
		{"open end", sym("f", "()", protocol.Function, rng(0, 0, 1, 12)), Options{Ranges: true}, "f()  function  L1-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.sym, tt.opts); got != tt.want {
				t.Errorf("Label = %q, want %q", got, tt.want)
			}
		})
	}
}
