package publish

import (
	"bytes"
	"strings"

	"github.com/starford/coleus/internal/models"
)

var (
	titleEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)
	pathEscaper  = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29")
)

// Summary renders o as the renderer's table of contents. Prefix links come
// first and stay unnumbered. Each category becomes a part headed by its
// title, whose landing page is a numbered chapter with the members nested
// below it.
func Summary(o models.Outline) []byte {
	var b bytes.Buffer
	b.WriteString("# Summary\n\n")
	for _, l := range o.Prefix {
		b.WriteString(link(l))
		b.WriteByte('\n')
	}
	gap := len(o.Prefix) > 0
	for _, c := range o.Categories {
		if gap {
			b.WriteByte('\n')
		}
		gap = true
		b.WriteString("# " + c.Title + "\n\n")
		b.WriteString("- " + link(c.Landing) + "\n")
		for _, m := range c.Members {
			b.WriteString("    - " + link(m) + "\n")
		}
	}
	return b.Bytes()
}

func link(l models.Link) string {
	return "[" + titleEscaper.Replace(l.Title) + "](" + pathEscaper.Replace(l.Path) + ")"
}
