// Package anchor turns page-break sentinels into numbered in-page anchors.
package anchor

import (
	"strconv"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/starford/coleus/internal/markdown"
)

// Sentinel is the text run that marks a page break.
const Sentinel = ";;;;;"

// Marker returns the inline anchor emitted for the n-th sentinel.
func Marker(n int) string {
	return `<a id="` + strconv.Itoa(n) + `"></a>`
}

// Insert replaces every sentinel in source with Marker(1), Marker(2), ... in
// document order and returns the rewritten content with the anchor count.
// Only text runs that consist of the sentinel alone are replaced; sentinels
// inside code spans or code blocks are left as written. Bytes outside the
// replaced runs are copied unchanged, so a page with no sentinel comes back
// identical.
func Insert(source []byte) ([]byte, int) {
	segs := sentinels(source)
	if len(segs) == 0 {
		return source, 0
	}

	out := make([]byte, 0, len(source)+len(segs)*len(Marker(len(segs))))
	last := 0
	for i, seg := range segs {
		out = append(out, source[last:seg.Start]...)
		out = append(out, Marker(i+1)...)
		last = seg.Stop
	}
	out = append(out, source[last:]...)
	return out, len(segs)
}

// Count returns how many anchors Insert would produce for source.
func Count(source []byte) int {
	return len(sentinels(source))
}

func sentinels(source []byte) []text.Segment {
	var segs []text.Segment
	doc := markdown.Parse(source)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		t, ok := n.(*ast.Text)
		if !ok {
			return ast.WalkContinue, nil
		}
		if string(t.Segment.Value(source)) != Sentinel {
			return ast.WalkContinue, nil
		}
		if markdown.HasAncestor(t, isCodeSpan) {
			return ast.WalkContinue, nil
		}
		segs = append(segs, t.Segment)
		return ast.WalkContinue, nil
	})
	return segs
}

func isCodeSpan(n ast.Node) bool {
	return n.Kind() == ast.KindCodeSpan
}
