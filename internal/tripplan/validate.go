package tripplan

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateReport is the single structural gate for a report. It is
// all-or-nothing: any violated bound rejects the whole value. Both the
// normalizer's direct-match path and stored-report reads run through it.
func ValidateReport(r Report) error {
	if !between(len(strings.TrimSpace(r.Title)), MinTitleChars, MaxTitleChars) {
		return fmt.Errorf("title length")
	}
	if !between(len(strings.TrimSpace(r.Summary)), MinSummaryChars, MaxSummaryChars) {
		return fmt.Errorf("summary length")
	}
	if !between(len(r.Sections), MinSections, MaxSections) {
		return fmt.Errorf("sections count")
	}
	for si, sec := range r.Sections {
		if err := validateSection(sec); err != nil {
			return fmt.Errorf("section %d: %w", si, err)
		}
	}
	if len(r.Assumptions) > MaxAssumptions {
		return fmt.Errorf("assumptions count")
	}
	for ai, a := range r.Assumptions {
		if len(strings.TrimSpace(a)) < MinAssumptionChars {
			return fmt.Errorf("assumption %d too short", ai)
		}
	}
	return nil
}

func validateSection(sec Section) error {
	if !between(len(strings.TrimSpace(sec.Title)), MinSectionTitleChars, MaxSectionTitleChars) {
		return fmt.Errorf("title length")
	}
	if !between(len(sec.Items), MinItemsPerSection, MaxItemsPerSection) {
		return fmt.Errorf("items count")
	}
	for ii, item := range sec.Items {
		if err := validateItem(item); err != nil {
			return fmt.Errorf("item %d: %w", ii, err)
		}
	}
	return nil
}

func validateItem(item Item) error {
	if !between(len(strings.TrimSpace(item.Text)), MinItemChars, MaxItemChars) {
		return fmt.Errorf("text length")
	}
	if item.Tag != "" && !validTag(item.Tag) {
		return fmt.Errorf("tag %q", item.Tag)
	}
	if len(item.Links) > MaxLinksPerItem {
		return fmt.Errorf("links count")
	}
	for li, l := range item.Links {
		if err := validateLink(l); err != nil {
			return fmt.Errorf("link %d: %w", li, err)
		}
	}
	return nil
}

func validateLink(l Link) error {
	if strings.TrimSpace(l.Label) == "" {
		return fmt.Errorf("label empty")
	}
	if !validLinkType(l.Type) {
		return fmt.Errorf("type %q", l.Type)
	}
	if !validAbsoluteURL(l.URL) {
		return fmt.Errorf("url %q", l.URL)
	}
	return nil
}

func validAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func between(v, min, max int) bool {
	return v >= min && v <= max
}
