package mcpserver

// fence keeps the contract readable inside a raw string literal.
const fence = "```"

// MetadataContract describes the source page format that LLM consumers
// should follow when authoring categories and entries for a book.
const MetadataContract = `# Coleus Source Page Contract

A book is built from two directories below the source root:

- ` + "`categories/<book>/`" + ` holds one Markdown page per category. The file stem is the category id.
- ` + "`entries/<book>/`" + ` holds entry pages, nested in any folders. The file stem is the document id.

## Metadata block

Every page MUST carry a fenced JSON block. Only the first ` + fence + `json block counts;
it is removed from the published page.

` + fence + `markdown
` + fence + `json
{
  "title": "Ferns",
  "icon": "leaf",
  "category": "mybook:plants",
  "ordinal": 2
}
` + fence + `

Body text in standard Markdown.
` + fence + `

| Field      | Pages      | Rules                                                              |
|------------|------------|--------------------------------------------------------------------|
| title      | all        | REQUIRED, non-empty string                                         |
| icon       | all        | optional string                                                    |
| ordinal    | all        | optional integer 0..4294967295; missing sorts after every number   |
| category   | entries    | optional "<namespace>:<category-id>"; only the last segment counts |
| parent     | categories | optional, accepted and ignored                                     |

Entries without a category appear before the first category, sorted by ordinal then path.
Entries naming an unknown category are reported and left out of the outline.

## Anchors

A text line holding exactly ` + "`;;;;;`" + ` becomes a numbered anchor. The first one on a
page is ` + "`<a id=\"1\"></a>`" + `, the next ` + "`<a id=\"2\"></a>`" + `, and so on. Sentinels inside code
are left alone.

## Cross-references

Link to another page by document id instead of by path:

` + fence + `markdown
See [ferns](^mybook:ferns) or jump to [the second anchor](^mybook:ferns#2).
` + fence + `

- The prefix after ` + "`^`" + ` is the corpus id of the book.
- The target is a category or entry id, optionally followed by ` + "`#<anchor>`" + `.
- The link is rewritten to a path relative to the referencing page.
- An unknown id or anchor is reported as a diagnostic and the link target is left empty.
`
