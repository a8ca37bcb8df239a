package tripplan

import "time"

const (
	MinTitleChars   = 1
	MaxTitleChars   = 120
	MinSummaryChars = 20
	MaxSummaryChars = 600

	MinSections = 4
	MaxSections = 12

	MinSectionTitleChars = 1
	MaxSectionTitleChars = 80

	MinItemsPerSection = 2
	MaxItemsPerSection = 20

	MinItemChars = 12
	MaxItemChars = 500

	MaxLinksPerItem = 3

	MinAssumptionChars = 5
	MaxAssumptions     = 20
)

type Locale string

const (
	LocaleEN   Locale = "en"
	LocalePTBR Locale = "pt-BR"
)

// NormalizeLocale maps anything outside the supported set to English.
func NormalizeLocale(l Locale) Locale {
	if l == LocalePTBR {
		return LocalePTBR
	}
	return LocaleEN
}

type Tag string

const (
	TagTip     Tag = "tip"
	TagWarning Tag = "warning"
	TagAction  Tag = "action"
	TagInfo    Tag = "info"
)

func validTag(t Tag) bool {
	switch t {
	case TagTip, TagWarning, TagAction, TagInfo:
		return true
	}
	return false
}

type LinkType string

const (
	LinkInfo    LinkType = "info"
	LinkBooking LinkType = "booking"
	LinkMap     LinkType = "map"
)

func validLinkType(t LinkType) bool {
	switch t {
	case LinkInfo, LinkBooking, LinkMap:
		return true
	}
	return false
}

type Link struct {
	Label string   `json:"label"`
	URL   string   `json:"url"`
	Type  LinkType `json:"type"`
}

type Section struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

type Report struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Sections    []Section `json:"sections"`
	Assumptions []string  `json:"assumptions"`
}

type FallbackReason string

const (
	ReasonProviderFailure  FallbackReason = "provider_failure"
	ReasonValidationFailed FallbackReason = "validation_failed"
	ReasonEmptyCandidate   FallbackReason = "empty_candidate"
)

type Preferences struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Travelers   int       `json:"travelers"`
}

type NormalizeInput struct {
	Candidate any
	Locale    Locale
	Fallback  Report
}
