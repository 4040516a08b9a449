// Package links rewrites symbolic cross-references into relative links.
//
// A cross-reference has the form
//
//	[display](^<corpus-id>:<target-path>#<n>)
//
// where the trailing #<n> is optional. The last slash-separated segment of
// target-path is the id of the referenced document.
package links

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/coleus/internal/apperr"
)

// Reference is one cross-reference found in a document.
type Reference struct {
	TargetID string `json:"target_id"`
	Path     string `json:"path"`             // corpus-relative path of the target, empty when unresolved
	Href     string `json:"href"`             // rewritten link destination
	Anchor   int    `json:"anchor,omitempty"` // 0 when the token had none
	Resolved bool   `json:"resolved"`
}

// Resolution is the outcome of resolving one document.
type Resolution struct {
	Content     string
	References  []Reference
	Diagnostics apperr.Diagnostics
}

// Resolver rewrites cross-references of a single corpus.
// It is safe for concurrent use once constructed.
type Resolver struct {
	pattern *regexp.Regexp
	paths   map[string]string
	anchors map[string]int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAnchorCounts enables anchor validation: a reference to #n is reported
// when n is zero or exceeds the anchor count of the target document.
func WithAnchorCounts(counts map[string]int) Option {
	return func(r *Resolver) { r.anchors = counts }
}

// NewResolver returns a Resolver for tokens carrying corpusID, looking
// targets up in paths (document id to corpus-relative, slash-separated path).
// The maps are read, never modified.
func NewResolver(corpusID string, paths map[string]string, opts ...Option) *Resolver {
	r := &Resolver{
		pattern: regexp.MustCompile(`\[(?P<name>[^\]]*)\]\(\^` + regexp.QuoteMeta(corpusID) + `:(?P<page>[^#)]*)(?P<anchor>#\d+)?\)`),
		paths:   paths,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve rewrites every cross-reference in content, which belongs to the
// document at current. Tokens are matched once against the original content
// and the rewritten output is never rescanned. An unknown target is
// rewritten with an empty path and reported as LinkUnresolved.
func (r *Resolver) Resolve(current, content string) Resolution {
	matches := r.pattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return Resolution{Content: content}
	}

	var (
		res  Resolution
		b    strings.Builder
		last int
	)
	b.Grow(len(content))
	for _, m := range matches {
		name := content[m[2]:m[3]]
		page := content[m[4]:m[5]]
		anchor := ""
		if m[6] >= 0 {
			anchor = content[m[6]:m[7]]
		}

		ref, diag := r.reference(current, page, anchor)
		if diag != nil {
			res.Diagnostics = append(res.Diagnostics, *diag)
		}
		res.References = append(res.References, ref)

		b.WriteString(content[last:m[0]])
		b.WriteString("[" + name + "](" + ref.Href + ")")
		last = m[1]
	}
	b.WriteString(content[last:])
	res.Content = b.String()
	return res
}

func (r *Resolver) reference(current, page, anchor string) (Reference, *apperr.Diagnostic) {
	id := page
	if i := strings.LastIndex(page, "/"); i >= 0 {
		id = page[i+1:]
	}
	ref := Reference{TargetID: id}
	if anchor != "" {
		// The pattern guarantees digits; only overflow can fail here.
		n, err := strconv.Atoi(anchor[1:])
		if err != nil {
			n = -1
		}
		ref.Anchor = n
	}

	target, ok := r.paths[id]
	if !ok {
		ref.Href = anchor
		return ref, &apperr.Diagnostic{
			Kind:    apperr.KindLinkUnresolved,
			Path:    current,
			Target:  id,
			Message: "no document with this id",
		}
	}
	ref.Resolved = true
	ref.Path = target
	ref.Href = Relative(current, target) + anchor

	if anchor == "" || r.anchors == nil {
		return ref, nil
	}
	if count := r.anchors[id]; ref.Anchor < 1 || ref.Anchor > count {
		return ref, &apperr.Diagnostic{
			Kind:    apperr.KindAnchorUnresolved,
			Path:    current,
			Target:  id + anchor,
			Message: fmt.Sprintf("target has %d anchors", count),
		}
	}
	return ref, nil
}

// Relative returns target relative to the directory of from, with forward
// slashes. Both arguments are corpus-relative, slash-separated paths. An
// empty string is returned when no relative path exists.
func Relative(from, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(from)), filepath.FromSlash(target))
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}
