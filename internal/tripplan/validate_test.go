package tripplan

import (
	"strings"
	"testing"
)

func TestValidateReportAccepts(t *testing.T) {
	if err := ValidateReport(validReport()); err != nil {
		t.Fatalf("valid report rejected: %v", err)
	}
}

func TestValidateReportRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Report)
	}{
		{"empty title", func(r *Report) { r.Title = "  " }},
		{"oversized title", func(r *Report) { r.Title = strings.Repeat("x", MaxTitleChars+1) }},
		{"short summary", func(r *Report) { r.Summary = "too short" }},
		{"too few sections", func(r *Report) { r.Sections = r.Sections[:MinSections-1] }},
		{"empty section title", func(r *Report) { r.Sections[0].Title = "" }},
		{"too few items", func(r *Report) { r.Sections[2].Items = r.Sections[2].Items[:1] }},
		{"short item", func(r *Report) { r.Sections[1].Items[0] = PlainItem("tiny") }},
		{"unknown tag", func(r *Report) { r.Sections[0].Items[0] = StructuredItem("A perfectly reasonable item of text.", Tag("critical")) }},
		{"too many links", func(r *Report) {
			links := make([]Link, MaxLinksPerItem+1)
			for i := range links {
				links[i] = Link{Label: "x", URL: "https://example.com", Type: LinkInfo}
			}
			r.Sections[0].Items[0] = StructuredItem("A perfectly reasonable item of text.", TagTip, links...)
		}},
		{"relative link url", func(r *Report) {
			r.Sections[0].Items[0] = StructuredItem("A perfectly reasonable item of text.", "", Link{Label: "x", URL: "/relative", Type: LinkInfo})
		}},
		{"bad link scheme", func(r *Report) {
			r.Sections[0].Items[0] = StructuredItem("A perfectly reasonable item of text.", "", Link{Label: "x", URL: "ftp://example.com", Type: LinkInfo})
		}},
		{"bad link type", func(r *Report) {
			r.Sections[0].Items[0] = StructuredItem("A perfectly reasonable item of text.", "", Link{Label: "x", URL: "https://example.com", Type: LinkType("portal")})
		}},
		{"short assumption", func(r *Report) { r.Assumptions = []string{"ab"} }},
	}
	for _, tc := range cases {
		r := validReport()
		tc.mutate(&r)
		if err := ValidateReport(r); err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}
}

func TestValidateReportAllowsDuplicates(t *testing.T) {
	r := validReport()
	r.Sections[1] = r.Sections[0]
	if err := ValidateReport(r); err != nil {
		t.Fatalf("duplicate sections should be permitted: %v", err)
	}
}

func TestValidateReportAllowsEmptyAssumptions(t *testing.T) {
	r := validReport()
	r.Assumptions = nil
	if err := ValidateReport(r); err != nil {
		t.Fatalf("empty assumptions should be permitted: %v", err)
	}
}
