// Package models defines the domain types for Coleus.
package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultOrdinal is the sort key of a document that declares no ordinal.
const DefaultOrdinal uint32 = math.MaxUint32

// NamespaceSeparator splits a category reference into namespace and id.
const NamespaceSeparator = ":"

// CategoryMetadata is the metadata block of a category landing page.
// Parent is accepted but not used for hierarchy construction.
type CategoryMetadata struct {
	Title   string  `json:"title"`
	Icon    string  `json:"icon,omitempty"`
	Ordinal *uint32 `json:"ordinal,omitempty"`
	Parent  string  `json:"parent,omitempty"`
}

// SortKey returns the declared ordinal or DefaultOrdinal.
func (m CategoryMetadata) SortKey() uint32 {
	return ordinalOrDefault(m.Ordinal)
}

// EntryMetadata is the metadata block of an entry page.
type EntryMetadata struct {
	Title    string  `json:"title"`
	Icon     string  `json:"icon,omitempty"`
	Ordinal  *uint32 `json:"ordinal,omitempty"`
	Category string  `json:"category,omitempty"`
}

// SortKey returns the declared ordinal or DefaultOrdinal.
func (m EntryMetadata) SortKey() uint32 {
	return ordinalOrDefault(m.Ordinal)
}

// CategoryID returns the trailing segment of the "<namespace>:<id>" category
// reference. ok is false when the entry names no category.
func (m EntryMetadata) CategoryID() (id string, ok bool) {
	ref := strings.TrimSpace(m.Category)
	if ref == "" {
		return "", false
	}
	if i := strings.LastIndex(ref, NamespaceSeparator); i >= 0 {
		ref = ref[i+len(NamespaceSeparator):]
	}
	return ref, true
}

func ordinalOrDefault(o *uint32) uint32 {
	if o == nil {
		return DefaultOrdinal
	}
	return *o
}

// SectionNumber is a hierarchical chapter number: [category] or [category, member].
type SectionNumber []uint32

// String renders the number the way table-of-contents renderers print it ("1.2.").
func (n SectionNumber) String() string {
	if len(n) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range n {
		b.WriteString(strconv.FormatUint(uint64(part), 10))
		b.WriteByte('.')
	}
	return b.String()
}

// Link is a table-of-contents entry pointing at a corpus-relative path.
type Link struct {
	Title  string        `json:"title"`
	Path   string        `json:"path"`
	Number SectionNumber `json:"number,omitempty"`
}

// Category is a numbered group in the outline: its own landing page plus
// its sorted members.
type Category struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Icon    string `json:"icon,omitempty"`
	Ordinal uint32 `json:"ordinal"`
	Landing Link   `json:"landing"`
	Members []Link `json:"members"`
}

// Outline is the book's table of contents: unnumbered prefix links followed
// by numbered categories.
type Outline struct {
	Prefix     []Link     `json:"prefix"`
	Categories []Category `json:"categories"`
}

// Links flattens the outline in reading order.
func (o Outline) Links() []Link {
	out := make([]Link, 0, len(o.Prefix)+len(o.Categories))
	out = append(out, o.Prefix...)
	for _, c := range o.Categories {
		out = append(out, c.Landing)
		out = append(out, c.Members...)
	}
	return out
}

// DocumentKind tells category landing pages apart from entries.
type DocumentKind string

const (
	KindCategory DocumentKind = "category"
	KindEntry    DocumentKind = "entry"
)

// FileInfo describes a markdown file discovered under a storage root.
// Path is root-relative and always uses forward slashes.
type FileInfo struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ID returns the logical document id: the filename stem.
func (f FileInfo) ID() string {
	return DocumentID(f.Path)
}

// DocumentID returns the filename stem of a slash-separated path.
func DocumentID(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	return strings.TrimSuffix(p, ".md")
}
