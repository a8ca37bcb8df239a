package tripplan

import (
	"encoding/json"
	"sort"
	"strings"
)

const assumptionsKey = "assumptions"

// NormalizeCandidate reshapes an untrusted candidate of unknown shape into a
// valid Report. Shape strategies run in a fixed priority order and stop at
// the first one whose output passes ValidateReport:
//
//  1. direct-match: the candidate already is a valid report; returned as-is.
//  2. section-keyed object: own keys become section titles, array values
//     become items; an "assumptions" key feeds the assumptions list.
//  3. embedded text: extract a JSON span and recurse, or chunk plain prose
//     into canonical sections.
//
// Repair happens before rejection: malformed items are dropped, oversized
// link lists truncated, non-enum tags removed. Only when dropping empties a
// required minimum does the attempt fail. The second return is false when no
// strategy produced a valid report; the caller substitutes its fallback —
// this function never does.
func NormalizeCandidate(in NormalizeInput) (Report, bool) {
	return normalizeValue(in.Candidate, NormalizeLocale(in.Locale), in.Fallback)
}

func normalizeValue(candidate any, locale Locale, fallback Report) (Report, bool) {
	if candidate == nil {
		return Report{}, false
	}
	if r, ok := directReport(candidate); ok {
		return r, true
	}
	switch v := candidate.(type) {
	case map[string]any:
		if isSectionKeyedObject(v) {
			if r, ok := fromSectionKeyedObject(v, fallback); ok {
				return r, true
			}
		}
	case []any:
		if r, ok := fromSectionArray(v, fallback); ok {
			return r, true
		}
	case string:
		if embedded, ok := ExtractEmbeddedJSON(v); ok {
			if r, ok := normalizeValue(embedded, locale, fallback); ok {
				return r, true
			}
		}
		if r, ok := fromProse(v, locale, fallback); ok {
			return r, true
		}
	}
	return Report{}, false
}

// directReport attempts the fast path: a candidate that decodes straight
// into the schema and validates is returned without rewriting.
func directReport(candidate any) (Report, bool) {
	var r Report
	switch v := candidate.(type) {
	case Report:
		r = v
	case *Report:
		if v == nil {
			return Report{}, false
		}
		r = *v
	default:
		blob, err := json.Marshal(candidate)
		if err != nil {
			return Report{}, false
		}
		if err := json.Unmarshal(blob, &r); err != nil {
			return Report{}, false
		}
	}
	if err := ValidateReport(r); err != nil {
		return Report{}, false
	}
	return r, true
}

// isSectionKeyedObject reports whether a map looks like {"Section Title":
// [items...], ...}: at least one array-valued key, and nothing beyond
// section arrays, an assumptions array, and optional title/summary strings.
func isSectionKeyedObject(m map[string]any) bool {
	sectionKeys := 0
	for k, v := range m {
		if strings.TrimSpace(k) == "" {
			return false
		}
		switch k {
		case "title", "summary":
			if _, ok := v.(string); !ok {
				return false
			}
		case assumptionsKey:
			if _, ok := v.([]any); !ok {
				return false
			}
		default:
			if _, ok := v.([]any); !ok {
				return false
			}
			sectionKeys++
		}
	}
	return sectionKeys > 0
}

func fromSectionKeyedObject(m map[string]any, fallback Report) (Report, bool) {
	// JSON object order does not survive decoding into a map, so section
	// order is made deterministic by sorting the keys.
	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "title", "summary", assumptionsKey:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sections []Section
	for _, k := range keys {
		raw, _ := m[k].([]any)
		items := coerceItems(raw)
		if len(items) < MinItemsPerSection {
			continue
		}
		sections = append(sections, Section{
			Title: truncate(strings.TrimSpace(k), MaxSectionTitleChars),
			Items: items,
		})
	}
	if len(sections) < MinSections {
		return Report{}, false
	}
	if len(sections) > MaxSections {
		sections = sections[:MaxSections]
	}

	r := Report{
		Title:       synthesizeTitle(m["title"], fallback),
		Summary:     synthesizeSummary(m["summary"], sections),
		Sections:    sections,
		Assumptions: coerceAssumptions(m[assumptionsKey]),
	}
	if err := ValidateReport(r); err != nil {
		return Report{}, false
	}
	return r, true
}

// fromSectionArray handles a bare array candidate as a sections list:
// [{"title": ..., "items": [...]}, ...].
func fromSectionArray(arr []any, fallback Report) (Report, bool) {
	var sections []Section
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		title, _ := m["title"].(string)
		rawItems, _ := m["items"].([]any)
		items := coerceItems(rawItems)
		if strings.TrimSpace(title) == "" || len(items) < MinItemsPerSection {
			continue
		}
		sections = append(sections, Section{
			Title: truncate(strings.TrimSpace(title), MaxSectionTitleChars),
			Items: items,
		})
	}
	if len(sections) < MinSections {
		return Report{}, false
	}
	if len(sections) > MaxSections {
		sections = sections[:MaxSections]
	}
	r := Report{
		Title:    synthesizeTitle(nil, fallback),
		Summary:  synthesizeSummary(nil, sections),
		Sections: sections,
	}
	if err := ValidateReport(r); err != nil {
		return Report{}, false
	}
	return r, true
}

// fromProse distributes qualifying sentence fragments round-robin across the
// canonical section titles. Fragments are reused (never invented) when the
// initial pass leaves a section under its minimum.
func fromProse(text string, locale Locale, fallback Report) (Report, bool) {
	frags := splitFragments(text)
	if len(frags) < 3 {
		return Report{}, false
	}

	ls := stringsFor(locale)
	sections := make([]Section, MinSections)
	for i := range sections {
		sections[i].Title = ls.proseSectionNames[i]
	}
	cursor := 0
	for _, f := range frags {
		s := &sections[cursor%MinSections]
		if len(s.Items) < MaxItemsPerSection {
			s.Items = append(s.Items, PlainItem(f))
		}
		cursor++
	}
	for i := range sections {
		for len(sections[i].Items) < MinItemsPerSection {
			sections[i].Items = append(sections[i].Items, PlainItem(pickFragment(frags, &cursor, sections[i].Items)))
		}
	}

	summary := frags[0]
	if len(summary) < MinSummaryChars && len(frags) > 1 {
		summary += " " + frags[1]
	}

	r := Report{
		Title:    synthesizeTitle(nil, fallback),
		Summary:  truncate(summary, MaxSummaryChars),
		Sections: sections,
	}
	if err := ValidateReport(r); err != nil {
		return Report{}, false
	}
	return r, true
}

// pickFragment prefers a fragment not already present in the section, so
// reuse pads across sections before it repeats within one.
func pickFragment(frags []string, cursor *int, existing []Item) string {
	for range frags {
		f := frags[*cursor%len(frags)]
		*cursor++
		if !containsText(existing, f) {
			return f
		}
	}
	f := frags[*cursor%len(frags)]
	*cursor++
	return f
}

func containsText(items []Item, text string) bool {
	for _, it := range items {
		if it.Text == text {
			return true
		}
	}
	return false
}

func splitFragments(text string) []string {
	var frags []string
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		f = strings.TrimSpace(f)
		if len(f) < MinItemChars {
			continue
		}
		frags = append(frags, truncate(f, MaxItemChars))
	}
	return frags
}

// coerceItems applies the item coercion rule: keep qualifying strings, keep
// objects with a text property (sanitizing tag and links), silently drop
// everything else.
func coerceItems(raw []any) []Item {
	var items []Item
	for _, el := range raw {
		switch v := el.(type) {
		case string:
			t := strings.TrimSpace(v)
			if len(t) < MinItemChars {
				continue
			}
			items = append(items, PlainItem(truncate(t, MaxItemChars)))
		case map[string]any:
			text, _ := v["text"].(string)
			text = strings.TrimSpace(text)
			if len(text) < MinItemChars {
				continue
			}
			item := Item{Text: truncate(text, MaxItemChars)}
			if tag, ok := v["tag"].(string); ok && validTag(Tag(tag)) {
				item.Tag = Tag(tag)
			}
			item.Links = coerceLinks(v["links"])
			items = append(items, item)
		}
		if len(items) == MaxItemsPerSection {
			break
		}
	}
	return items
}

// coerceLinks keeps at most MaxLinksPerItem well-formed links. A link with
// an unknown type is defaulted to info; a link with a bad URL or empty
// label is dropped.
func coerceLinks(raw any) []Link {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	var links []Link
	for _, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		label, _ := m["label"].(string)
		u, _ := m["url"].(string)
		if strings.TrimSpace(label) == "" || !validAbsoluteURL(u) {
			continue
		}
		lt := LinkInfo
		if t, ok := m["type"].(string); ok && validLinkType(LinkType(t)) {
			lt = LinkType(t)
		}
		links = append(links, Link{Label: strings.TrimSpace(label), URL: strings.TrimSpace(u), Type: lt})
		if len(links) == MaxLinksPerItem {
			break
		}
	}
	return links
}

func coerceAssumptions(raw any) []string {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, el := range arr {
		s, ok := el.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if len(s) < MinAssumptionChars {
			continue
		}
		out = append(out, s)
		if len(out) == MaxAssumptions {
			break
		}
	}
	return out
}

// synthesizeTitle keeps the candidate's title when present and within
// bounds, otherwise reuses the fallback's locale-aware title so tone stays
// consistent with the rest of the response.
func synthesizeTitle(raw any, fallback Report) string {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if between(len(s), MinTitleChars, MaxTitleChars) {
			return s
		}
		if len(s) > MaxTitleChars {
			return truncate(s, MaxTitleChars)
		}
	}
	return fallback.Title
}

// synthesizeSummary keeps a qualifying candidate summary, otherwise builds
// one by concatenating the first section's item text.
func synthesizeSummary(raw any, sections []Section) string {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if len(s) >= MinSummaryChars {
			return truncate(s, MaxSummaryChars)
		}
	}
	if len(sections) == 0 {
		return ""
	}
	var b strings.Builder
	for _, it := range sections[0].Items {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(it.Text)
		if b.Len() >= MinSummaryChars {
			break
		}
	}
	return truncate(b.String(), MaxSummaryChars)
}
