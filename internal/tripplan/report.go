package tripplan

import (
	"fmt"
	"strings"
)

// BuildMarkdown renders a report as deterministic markdown for the PDF
// renderer and the offline CLI.
func BuildMarkdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sanitizeLine(r.Title))
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(r.Summary))

	for _, sec := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sanitizeLine(sec.Title))
		for _, item := range sec.Items {
			writeItem(&b, item)
		}
		b.WriteString("\n")
	}

	if len(r.Assumptions) > 0 {
		fmt.Fprintf(&b, "## Assumptions\n\n")
		for _, a := range r.Assumptions {
			fmt.Fprintf(&b, "- %s\n", sanitizeLine(a))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeItem(b *strings.Builder, item Item) {
	line := sanitizeLine(item.Text)
	if item.Tag != "" {
		line = fmt.Sprintf("**%s** — %s", strings.ToUpper(string(item.Tag)), line)
	}
	fmt.Fprintf(b, "- %s\n", line)
	for _, l := range item.Links {
		fmt.Fprintf(b, "  - [%s](%s)\n", sanitizeLine(l.Label), l.URL)
	}
}

func sanitizeLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if s == "" {
		return "-"
	}
	return s
}
