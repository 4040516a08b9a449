// Package markdown wraps the goldmark parser used for structural scans of
// page content. Nothing here renders HTML: callers inspect the block and
// inline tree and splice the original source by segment offsets.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Parse builds the goldmark AST for source. A new engine is created per call
// so concurrent callers share no parser state.
func Parse(source []byte) ast.Node {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
		),
	)
	return md.Parser().Parse(text.NewReader(source))
}

// LineStart returns the offset of the first byte of the line containing pos.
func LineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	if i := bytes.LastIndexByte(source[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// LineEnd returns the offset just past the newline ending the line that
// contains pos, or len(source) on the last line.
func LineEnd(source []byte, pos int) int {
	if pos >= len(source) {
		return len(source)
	}
	if i := bytes.IndexByte(source[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(source)
}

// IsBlankLine reports whether line holds only whitespace.
func IsBlankLine(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}

// HasAncestor reports whether any parent of n satisfies match.
func HasAncestor(n ast.Node, match func(ast.Node) bool) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if match(p) {
			return true
		}
	}
	return false
}
