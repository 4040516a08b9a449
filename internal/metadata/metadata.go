// Package metadata isolates the fenced JSON metadata block embedded in a page.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/markdown"
	"github.com/starford/coleus/internal/models"
)

// Language is the info string that tags the metadata block.
const Language = "json"

// Block locates a metadata block inside its source.
type Block struct {
	Raw   []byte // captured block text, verbatim
	Start int    // offset of the opening fence line
	End   int    // offset just past the closing fence line
}

// Find returns the first fenced code block tagged Language, in document
// order. Indented code blocks, untagged fences and fences tagged with any
// other language are ignored.
func Find(source []byte) (Block, bool) {
	var found *ast.FencedCodeBlock
	doc := markdown.Parse(source)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok || fcb.Info == nil {
			return ast.WalkContinue, nil
		}
		info := strings.TrimSpace(string(fcb.Info.Segment.Value(source)))
		if info != Language {
			return ast.WalkContinue, nil
		}
		found = fcb
		return ast.WalkStop, nil
	})
	if found == nil {
		return Block{}, false
	}
	return locate(source, found), true
}

// locate computes the byte extent of fcb: from the start of the opening
// fence line through the newline of the closing fence, when there is one.
func locate(source []byte, fcb *ast.FencedCodeBlock) Block {
	start := markdown.LineStart(source, fcb.Info.Segment.Start)

	var raw bytes.Buffer
	bodyEnd := markdown.LineEnd(source, fcb.Info.Segment.Stop)
	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		raw.Write(seg.Value(source))
		bodyEnd = seg.Stop
	}

	end := bodyEnd
	if closing := source[bodyEnd:markdown.LineEnd(source, bodyEnd)]; isClosingFence(closing) {
		end = bodyEnd + len(closing)
	}
	return Block{Raw: raw.Bytes(), Start: start, End: end}
}

// isClosingFence reports whether line is a ``` or ~~~ fence with nothing
// after the fence characters. Container prefixes (blockquote markers,
// indentation) are skipped.
func isClosingFence(line []byte) bool {
	trimmed := bytes.TrimLeft(line, " \t>")
	for _, fence := range []byte{'`', '~'} {
		n := 0
		for n < len(trimmed) && trimmed[n] == fence {
			n++
		}
		if n >= 3 {
			return markdown.IsBlankLine(trimmed[n:])
		}
	}
	return false
}

// Extract returns the metadata block text and the source with that block
// removed. Every other byte of source is passed through unchanged. When the
// block stood on its own (preceded by a blank line or the start of the
// document) the blank lines that followed it are removed as well, so no
// empty gap is left behind. When it sat directly between two lines of
// content it is replaced by a blank line, keeping those lines in separate
// blocks.
func Extract(source []byte) (raw, cleaned []byte, err error) {
	block, ok := Find(source)
	if !ok {
		return nil, nil, apperr.ErrMetadataMissing
	}

	end := block.End
	var gap []byte
	if standsAlone(source, block.Start) {
		for end < len(source) {
			next := markdown.LineEnd(source, end)
			if !markdown.IsBlankLine(source[end:next]) {
				break
			}
			end = next
		}
	} else if end < len(source) && !markdown.IsBlankLine(source[end:markdown.LineEnd(source, end)]) {
		gap = []byte("\n")
	}

	cleaned = make([]byte, 0, len(source)-(end-block.Start)+len(gap))
	cleaned = append(cleaned, source[:block.Start]...)
	cleaned = append(cleaned, gap...)
	cleaned = append(cleaned, source[end:]...)
	return block.Raw, cleaned, nil
}

func standsAlone(source []byte, start int) bool {
	if start == 0 {
		return true
	}
	prev := markdown.LineStart(source, start-1)
	return markdown.IsBlankLine(source[prev:start])
}

// ParseCategory extracts and decodes a category page's metadata.
func ParseCategory(source []byte) (models.CategoryMetadata, []byte, error) {
	var meta models.CategoryMetadata
	cleaned, err := parse(source, categorySchema, &meta)
	return meta, cleaned, err
}

// ParseEntry extracts and decodes an entry page's metadata.
func ParseEntry(source []byte) (models.EntryMetadata, []byte, error) {
	var meta models.EntryMetadata
	cleaned, err := parse(source, entrySchema, &meta)
	return meta, cleaned, err
}

func parse(source []byte, schema validator, target any) ([]byte, error) {
	raw, cleaned, err := Extract(source)
	if err != nil {
		return nil, err
	}
	if err := schema.validate(raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrMetadataInvalid, err)
	}
	return cleaned, nil
}
