// Package hierarchy folds category and entry metadata into the numbered outline.
//
// Construction happens in two passes. Categories produces an immutable
// Catalog from every category landing page. Fold then consumes a sequence of
// entries against that catalog and returns a fresh Outline; nothing shared is
// mutated while entries are classified.
package hierarchy

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"github.com/starford/coleus/internal/apperr"
	"github.com/starford/coleus/internal/models"
)

// CategorySource is a parsed category landing page.
type CategorySource struct {
	ID   string
	Path string
	Meta models.CategoryMetadata
}

// EntrySource is a parsed entry page.
type EntrySource struct {
	ID   string
	Path string
	Meta models.EntryMetadata
}

// Catalog is the frozen set of categories in outline order.
type Catalog struct {
	order []CategorySource
	byID  map[string]int
}

// Categories builds the catalog. Categories are ordered by ordinal, then by
// id, so the result never depends on discovery order. A repeated id is
// reported as a duplicate and only its first occurrence in that order is kept.
func Categories(srcs []CategorySource) (Catalog, apperr.Diagnostics) {
	sorted := slices.Clone(srcs)
	slices.SortStableFunc(sorted, func(a, b CategorySource) int {
		return cmp.Or(
			cmp.Compare(a.Meta.SortKey(), b.Meta.SortKey()),
			undeclaredLast(a.Meta.Ordinal != nil, b.Meta.Ordinal != nil),
			cmp.Compare(a.ID, b.ID),
			cmp.Compare(a.Path, b.Path),
		)
	})

	cat := Catalog{byID: make(map[string]int, len(sorted))}
	var diags apperr.Diagnostics
	for _, src := range sorted {
		if first, dup := cat.byID[src.ID]; dup {
			diags = append(diags, apperr.Diagnostic{
				Kind:    apperr.KindDuplicateID,
				Path:    src.Path,
				Target:  src.ID,
				Message: fmt.Sprintf("category id already defined by %s", cat.order[first].Path),
			})
			continue
		}
		cat.byID[src.ID] = len(cat.order)
		cat.order = append(cat.order, src)
	}
	return cat, diags
}

// Len returns the number of categories.
func (c Catalog) Len() int { return len(c.order) }

// Lookup returns the category with the given id.
func (c Catalog) Lookup(id string) (CategorySource, bool) {
	i, ok := c.byID[id]
	if !ok {
		return CategorySource{}, false
	}
	return c.order[i], true
}

// All yields categories in outline order.
func (c Catalog) All() iter.Seq[CategorySource] {
	return slices.Values(c.order)
}

type member struct {
	link     models.Link
	ordinal  uint32
	declared bool
}

// undeclaredLast orders a declared ordinal before a missing one that maps
// to the same sort key.
func undeclaredLast(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	default:
		return 1
	}
}

// Fold classifies every entry against cat and returns the numbered outline.
//
// Entries without a category go to the prefix list. Entries naming an
// unknown category are left out of the outline and reported as
// CategoryUnresolved. Lists are sorted by ordinal with ties broken by
// path, so the yield order of entries does not affect the result. The first
// error yielded by entries aborts the fold.
func Fold(cat Catalog, entries iter.Seq2[EntrySource, error]) (models.Outline, apperr.Diagnostics, error) {
	var (
		prefix  []member
		members = make([][]member, len(cat.order))
		diags   apperr.Diagnostics
	)

	for e, err := range entries {
		if err != nil {
			return models.Outline{}, diags, err
		}
		m := member{
			link:     models.Link{Title: e.Meta.Title, Path: e.Path},
			ordinal:  e.Meta.SortKey(),
			declared: e.Meta.Ordinal != nil,
		}
		id, ok := e.Meta.CategoryID()
		if !ok {
			prefix = append(prefix, m)
			continue
		}
		i, found := cat.byID[id]
		if !found {
			diags = append(diags, apperr.Diagnostic{
				Kind:    apperr.KindCategoryUnresolved,
				Path:    e.Path,
				Target:  id,
				Message: fmt.Sprintf("entry %q names category %q", e.ID, e.Meta.Category),
			})
			continue
		}
		members[i] = append(members[i], m)
	}

	out := models.Outline{
		Prefix:     links(prefix, nil),
		Categories: make([]models.Category, len(cat.order)),
	}
	for i, c := range cat.order {
		n := uint32(i + 1)
		out.Categories[i] = models.Category{
			ID:      c.ID,
			Title:   c.Meta.Title,
			Icon:    c.Meta.Icon,
			Ordinal: c.Meta.SortKey(),
			Landing: models.Link{Title: c.Meta.Title, Path: c.Path, Number: models.SectionNumber{n}},
			Members: links(members[i], &n),
		}
	}
	return out, diags, nil
}

// Slice adapts an in-memory list of entries to the sequence Fold consumes.
func Slice(entries []EntrySource) iter.Seq2[EntrySource, error] {
	return func(yield func(EntrySource, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// links sorts ms by ordinal and, when category is set, numbers them within it.
func links(ms []member, category *uint32) []models.Link {
	slices.SortStableFunc(ms, func(a, b member) int {
		return cmp.Or(
			cmp.Compare(a.ordinal, b.ordinal),
			undeclaredLast(a.declared, b.declared),
			cmp.Compare(a.link.Path, b.link.Path),
		)
	})
	out := make([]models.Link, len(ms))
	for j, m := range ms {
		out[j] = m.link
		if category != nil {
			out[j].Number = models.SectionNumber{*category, uint32(j + 1)}
		}
	}
	return out
}
