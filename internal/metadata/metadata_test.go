package metadata

import (
	"errors"
	"testing"

	"github.com/starford/coleus/internal/apperr"
)

func TestExtract_LeadingBlock(t *testing.T) {
	input := []byte("```json\n{\"title\": \"Alpha\", \"ordinal\": 2}\n```\n\n# Heading\nBody.\n")
	raw, cleaned, err := Extract(input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(raw) != "{\"title\": \"Alpha\", \"ordinal\": 2}\n" {
		t.Errorf("raw = %q", raw)
	}
	if string(cleaned) != "# Heading\nBody.\n" {
		t.Errorf("cleaned = %q", cleaned)
	}
}

func TestExtract_BlockAfterContent(t *testing.T) {
	input := []byte("# Title\n\n```json\n{\"title\": \"T\"}\n```\n\nText with *emphasis*.\n")
	_, cleaned, err := Extract(input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(cleaned) != "# Title\n\nText with *emphasis*.\n" {
		t.Errorf("cleaned = %q", cleaned)
	}
}

func TestExtract_BlockBetweenParagraphs(t *testing.T) {
	input := []byte("para\n```json\n{\"title\": \"x\"}\n```\nmore\n")
	_, cleaned, err := Extract(input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(cleaned) != "para\n\nmore\n" {
		t.Errorf("cleaned = %q, want the two paragraphs kept apart", cleaned)
	}
}

func TestExtract_BlockEndsParagraph(t *testing.T) {
	input := []byte("para\n```json\n{\"title\": \"x\"}\n```\n\nmore\n")
	_, cleaned, err := Extract(input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(cleaned) != "para\n\nmore\n" {
		t.Errorf("cleaned = %q", cleaned)
	}
}

func TestExtract_OnlyFirstJSONBlockRemoved(t *testing.T) {
	input := []byte("```go\nx := 1\n```\n\n```json\n{\"title\": \"First\"}\n```\n\n```json\n{\"title\": \"Second\"}\n```\n")
	raw, cleaned, err := Extract(input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(raw) != "{\"title\": \"First\"}\n" {
		t.Errorf("raw = %q", raw)
	}
	want := "```go\nx := 1\n```\n\n```json\n{\"title\": \"Second\"}\n```\n"
	if string(cleaned) != want {
		t.Errorf("cleaned = %q, want %q", cleaned, want)
	}
}

func TestExtract_IgnoresOtherLanguagesAndIndentedCode(t *testing.T) {
	input := []byte("    {\"title\": \"indented\"}\n\n```jsonc\n{\"title\": \"jsonc\"}\n```\n")
	if _, _, err := Extract(input); !errors.Is(err, apperr.ErrMetadataMissing) {
		t.Fatalf("err = %v, want ErrMetadataMissing", err)
	}
}

func TestExtract_TildeFence(t *testing.T) {
	input := []byte("~~~json\n{\"title\": \"Tilde\"}\n~~~\nAfter.\n")
	raw, cleaned, err := Extract(input)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(raw) != "{\"title\": \"Tilde\"}\n" {
		t.Errorf("raw = %q", raw)
	}
	if string(cleaned) != "After.\n" {
		t.Errorf("cleaned = %q", cleaned)
	}
}

func TestExtract_Missing(t *testing.T) {
	_, _, err := Extract([]byte("# No metadata\n\nJust text.\n"))
	if !errors.Is(err, apperr.ErrMetadataMissing) {
		t.Fatalf("err = %v, want ErrMetadataMissing", err)
	}
}

func TestParseEntry_Fields(t *testing.T) {
	input := []byte("```json\n{\"title\": \"Ferns\", \"icon\": \"leaf\", \"ordinal\": 4, \"category\": \"mybook:plants\"}\n```\nBody\n")
	meta, cleaned, err := ParseEntry(input)
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if meta.Title != "Ferns" || meta.Icon != "leaf" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.Ordinal == nil || *meta.Ordinal != 4 {
		t.Errorf("ordinal = %v, want 4", meta.Ordinal)
	}
	if id, ok := meta.CategoryID(); !ok || id != "plants" {
		t.Errorf("CategoryID() = %q, %v", id, ok)
	}
	if string(cleaned) != "Body\n" {
		t.Errorf("cleaned = %q", cleaned)
	}
}

func TestParseCategory_DefaultOrdinal(t *testing.T) {
	input := []byte("```json\n{\"title\": \"Plants\", \"parent\": \"mybook:nature\"}\n```\n")
	meta, _, err := ParseCategory(input)
	if err != nil {
		t.Fatalf("ParseCategory: %v", err)
	}
	if meta.Ordinal != nil {
		t.Errorf("ordinal = %v, want nil", *meta.Ordinal)
	}
	if meta.SortKey() != 4294967295 {
		t.Errorf("SortKey() = %d", meta.SortKey())
	}
	if meta.Parent != "mybook:nature" {
		t.Errorf("parent = %q", meta.Parent)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"malformed json":   "```json\n{title: \n```\n",
		"missing title":    "```json\n{\"icon\": \"x\"}\n```\n",
		"empty title":      "```json\n{\"title\": \"\"}\n```\n",
		"negative ordinal": "```json\n{\"title\": \"T\", \"ordinal\": -1}\n```\n",
		"float ordinal":    "```json\n{\"title\": \"T\", \"ordinal\": 1.5}\n```\n",
		"not an object":    "```json\n[\"title\"]\n```\n",
		"trailing data":    "```json\n{\"title\": \"T\"} {}\n```\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseEntry([]byte(input))
			if !errors.Is(err, apperr.ErrMetadataInvalid) {
				t.Fatalf("err = %v, want ErrMetadataInvalid", err)
			}
		})
	}
}

func TestParseEntry_DanglingCategoryAccepted(t *testing.T) {
	meta, _, err := ParseEntry([]byte("```json\n{\"title\": \"T\", \"category\": \"mybook:\"}\n```\n"))
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if id, ok := meta.CategoryID(); !ok || id != "" {
		t.Errorf("CategoryID() = %q, %v; want empty id left for the outline to report", id, ok)
	}
}
