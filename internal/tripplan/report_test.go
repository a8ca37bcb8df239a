package tripplan

import (
	"strings"
	"testing"
)

func TestBuildMarkdownLayout(t *testing.T) {
	r := validReport()
	r.Assumptions = []string{"Prices assume booking at least six weeks ahead."}
	md := BuildMarkdown(r)

	if !strings.HasPrefix(md, "# "+r.Title+"\n") {
		t.Fatalf("missing title heading:\n%s", md)
	}
	for _, sec := range r.Sections {
		if !strings.Contains(md, "## "+sec.Title+"\n") {
			t.Fatalf("missing section heading %q", sec.Title)
		}
	}
	if !strings.Contains(md, "## Assumptions") {
		t.Fatal("missing assumptions heading")
	}
	if !strings.Contains(md, "- Prices assume booking at least six weeks ahead.") {
		t.Fatal("missing assumption bullet")
	}
}

func TestBuildMarkdownRendersTagsAndLinks(t *testing.T) {
	r := validReport()
	r.Sections[0].Items[0] = StructuredItem("Book Sintra palace tickets before arrival.", TagAction,
		Link{Label: "Tickets", URL: "https://example.com/sintra", Type: LinkBooking})
	md := BuildMarkdown(r)

	if !strings.Contains(md, "**ACTION**") {
		t.Fatalf("tag not rendered:\n%s", md)
	}
	if !strings.Contains(md, "[Tickets](https://example.com/sintra)") {
		t.Fatal("link not rendered")
	}
}

func TestBuildMarkdownFlattensNewlines(t *testing.T) {
	r := validReport()
	r.Sections[0].Items[0] = PlainItem("First line of the item\ncontinues on a second line.")
	md := BuildMarkdown(r)
	if !strings.Contains(md, "- First line of the item continues on a second line.") {
		t.Fatalf("newline not flattened:\n%s", md)
	}
}

func TestBuildMarkdownSkipsEmptyAssumptions(t *testing.T) {
	r := validReport()
	r.Assumptions = nil
	if strings.Contains(BuildMarkdown(r), "## Assumptions") {
		t.Fatal("assumptions heading rendered without assumptions")
	}
}
