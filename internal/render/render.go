// Package render formats document symbols for the command line.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/tree"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"

	"github.com/xonecas/outline/internal/symbols"
)

var (
	kindStyle   = lipgloss.NewStyle().Faint(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
)

// JSON writes syms as indented JSON in the LSP DocumentSymbol shape.
func JSON(w io.Writer, syms []protocol.DocumentSymbol) error {
	if syms == nil {
		syms = []protocol.DocumentSymbol{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(syms)
}

// Options controls Text output.
type Options struct {
	// Width truncates every line to this many cells. Zero disables it.
	Width int
	// Ranges appends the 1-based line span of each symbol.
	Ranges bool
	// Styled colors details and kinds with ANSI sequences.
	Styled bool
}

// Text renders syms as an indented tree, one symbol per line.
func Text(syms []protocol.DocumentSymbol, opts Options) string {
	if len(syms) == 0 {
		return ""
	}

	t := tree.New()
	if opts.Styled {
		t = t.EnumeratorStyle(branchStyle)
	}
	for _, sym := range syms {
		t.Child(node(sym, opts))
	}

	lines := strings.Split(strings.TrimRight(t.String(), "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " ")
		if opts.Width > 0 {
			line = ansi.Truncate(line, opts.Width, "…")
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n") + "\n"
}

func node(sym protocol.DocumentSymbol, opts Options) any {
	label := Label(sym, opts)
	if len(sym.Children) == 0 {
		return label
	}
	sub := tree.Root(label)
	if opts.Styled {
		sub = sub.EnumeratorStyle(branchStyle)
	}
	for _, child := range sym.Children {
		sub.Child(node(child, opts))
	}
	return sub
}

// Label formats one symbol as "name(detail)  kind".
func Label(sym protocol.DocumentSymbol, opts Options) string {
	detail := sym.Detail
	kind := symbols.KindName(sym.Kind)
	if opts.Styled {
		detail = detailStyle.Render(detail)
		kind = kindStyle.Render(kind)
	}

	var b strings.Builder
	b.WriteString(sym.Name)
	if sym.Detail != "" {
		b.WriteString(detail)
	}
	b.WriteString("  ")
	b.WriteString(kind)
	if opts.Ranges {
		fmt.Fprintf(&b, "  L%d-%d", sym.Range.Start.Line+1, lastLine(sym.Range))
	}
	return b.String()
}

// lastLine returns the 1-based last line a range covers. An end at column
// 0 of a later line does not cover that line.
func lastLine(r protocol.Range) uint32 {
	if r.End.Character == 0 && r.End.Line > r.Start.Line {
		return r.End.Line
	}
	return r.End.Line + 1
}
