package treesitter

import (
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xonecas/outline/internal/analysis"
)

// lineIndex converts tree-sitter byte columns to UTF-16 columns.
type lineIndex struct {
	src    []byte
	starts []int // byte offset of each line start
}

func newLineIndex(src []byte) lineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{src: src, starts: starts}
}

// position converts a tree-sitter point to a 1-indexed line and a UTF-16
// column.
func (li lineIndex) position(p sitter.Point) analysis.Position {
	row := int(p.Row)
	if row >= len(li.starts) {
		return analysis.Position{Line: row + 1, Column: int(p.Column)}
	}
	start := li.starts[row]
	end := start + int(p.Column)
	if end > len(li.src) {
		end = len(li.src)
	}

	col := 0
	for b := li.src[start:end]; len(b) > 0; {
		r, size := utf8.DecodeRune(b)
		if r >= 0x10000 {
			col += 2
		} else {
			col++
		}
		b = b[size:]
	}
	return analysis.Position{Line: row + 1, Column: col}
}

// span returns the exact extent of node.
func (li lineIndex) span(node *sitter.Node) analysis.Span {
	return analysis.Span{
		Start: li.position(node.StartPoint()),
		End:   li.position(node.EndPoint()),
	}
}

// blockSpan returns the extent of a compound statement, extended over the
// newline that ends its last line, so the end sits at column 0 of the next
// line. Trailing blanks and a comment before that newline are included.
func (li lineIndex) blockSpan(node *sitter.Node) analysis.Span {
	s := li.span(node)
	end := int(node.EndByte())
	if end == 0 || end > len(li.src) || li.src[end-1] == '\n' {
		return s
	}

	i := end
	for i < len(li.src) && (li.src[i] == ' ' || li.src[i] == '\t' || li.src[i] == '\f') {
		i++
	}
	if i < len(li.src) && li.src[i] == '#' {
		for i < len(li.src) && li.src[i] != '\n' {
			i++
		}
	}
	if i < len(li.src) && li.src[i] == '\r' {
		i++
	}
	if i < len(li.src) && li.src[i] == '\n' {
		s.End = analysis.Position{Line: int(node.EndPoint().Row) + 2, Column: 0}
	}
	return s
}
