package tripplan

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// localeStrings carries every piece of boilerplate the fallback builder and
// the normalizer's synthesis paths interpolate. Adding a locale means adding
// one table here.
type localeStrings struct {
	defaultTitle      string // fmt with one %s (trip label)
	fallbackSummary   string // fmt with trip label and date range
	assumptionsLabel  string
	fallbackReason    string // fmt with one %s (reason code)
	proseSectionNames [4]string

	secOverview  string
	secTransport string
	secStay      string
	secPractical string

	overviewItems  [2]string // fmt with trip label / date range
	transportItems [2]string
	stayItems      [2]string
	practicalItems [2]string
}

var localeTable = map[Locale]localeStrings{
	LocaleEN: {
		defaultTitle:      "Trip plan: %s",
		fallbackSummary:   "A starting plan for your trip %s, %s. We could not use the generated suggestions this time, so this version sticks to the essentials you told us about.",
		assumptionsLabel:  "Assumptions",
		fallbackReason:    "fallback_reason: %s",
		proseSectionNames: [4]string{"Summary", "Itinerary", "Risks", "Next Steps"},
		secOverview:       "Trip Summary",
		secTransport:      "Getting There",
		secStay:           "Where to Stay",
		secPractical:      "Practical Notes",
		overviewItems: [2]string{
			"You are planning a trip %s for %d traveler(s), %s.",
			"Review the dates and destinations below and adjust anything that changed since you filled in your preferences.",
		},
		transportItems: [2]string{
			"Compare flight and rail options for the route %s well in advance; prices move quickly close to departure.",
			"Check passport validity and any visa or entry requirements for your destination before booking.",
		},
		stayItems: [2]string{
			"Shortlist accommodation near the city center or well-connected transit stops to reduce daily travel time.",
			"Free cancellation rates cost slightly more but keep the plan flexible while details settle.",
		},
		practicalItems: [2]string{
			"Confirm your phone's roaming coverage or plan to buy a local eSIM on arrival.",
			"Keep digital and printed copies of bookings and identification documents in separate places.",
		},
	},
	LocalePTBR: {
		defaultTitle:      "Plano de viagem: %s",
		fallbackSummary:   "Um plano inicial para a sua viagem %s, %s. Não foi possível aproveitar as sugestões geradas desta vez, então esta versão se concentra no essencial que você informou.",
		assumptionsLabel:  "Premissas",
		fallbackReason:    "fallback_reason: %s",
		proseSectionNames: [4]string{"Resumo", "Roteiro", "Riscos", "Próximos Passos"},
		secOverview:       "Resumo da Viagem",
		secTransport:      "Como Chegar",
		secStay:           "Onde Ficar",
		secPractical:      "Notas Práticas",
		overviewItems: [2]string{
			"Você está planejando uma viagem %s para %d viajante(s), %s.",
			"Revise as datas e destinos abaixo e ajuste qualquer coisa que tenha mudado desde que você preencheu suas preferências.",
		},
		transportItems: [2]string{
			"Compare opções de voo e trem para o trecho %s com antecedência; os preços sobem perto da partida.",
			"Verifique a validade do passaporte e as exigências de visto ou entrada do destino antes de reservar.",
		},
		stayItems: [2]string{
			"Priorize hospedagem perto do centro ou de estações bem conectadas para reduzir deslocamentos diários.",
			"Tarifas com cancelamento grátis custam um pouco mais, mas mantêm o plano flexível enquanto os detalhes se definem.",
		},
		practicalItems: [2]string{
			"Confirme a cobertura de roaming do seu celular ou planeje comprar um eSIM local na chegada.",
			"Guarde cópias digitais e impressas das reservas e documentos de identificação em lugares separados.",
		},
	},
}

func stringsFor(locale Locale) localeStrings {
	return localeTable[NormalizeLocale(locale)]
}

// BuildFallbackReport synthesizes a report purely from validated user inputs.
// It is the pipeline's last line of defense and must hold every bound that
// ValidateReport checks for any (locale, prefs, reason) combination.
func BuildFallbackReport(locale Locale, prefs Preferences, reason FallbackReason) Report {
	ls := stringsFor(locale)
	label := tripLabel(prefs, locale)
	dates := dateRange(prefs, locale)
	travelers := prefs.Travelers
	if travelers < 1 {
		travelers = 1
	}

	// Interpolated lines are re-truncated: preference strings are caller
	// input and may push a line past the item bound.
	return Report{
		Title:   truncate(fmt.Sprintf(ls.defaultTitle, label), MaxTitleChars),
		Summary: truncate(fmt.Sprintf(ls.fallbackSummary, label, dates), MaxSummaryChars),
		Sections: []Section{
			{Title: ls.secOverview, Items: []Item{
				PlainItem(truncate(fmt.Sprintf(ls.overviewItems[0], label, travelers, dates), MaxItemChars)),
				PlainItem(ls.overviewItems[1]),
			}},
			{Title: ls.secTransport, Items: []Item{
				PlainItem(truncate(fmt.Sprintf(ls.transportItems[0], label), MaxItemChars)),
				PlainItem(ls.transportItems[1]),
			}},
			{Title: ls.secStay, Items: []Item{
				PlainItem(ls.stayItems[0]),
				PlainItem(ls.stayItems[1]),
			}},
			{Title: ls.secPractical, Items: []Item{
				PlainItem(ls.practicalItems[0]),
				PlainItem(ls.practicalItems[1]),
			}},
		},
		Assumptions: []string{fmt.Sprintf(ls.fallbackReason, reason)},
	}
}

func tripLabel(prefs Preferences, locale Locale) string {
	origin := strings.TrimSpace(prefs.Origin)
	dest := strings.TrimSpace(prefs.Destination)
	switch {
	case origin != "" && dest != "":
		return fmt.Sprintf("%s → %s", origin, dest)
	case dest != "":
		if NormalizeLocale(locale) == LocalePTBR {
			return "para " + dest
		}
		return "to " + dest
	default:
		if NormalizeLocale(locale) == LocalePTBR {
			return "planejada"
		}
		return "you are planning"
	}
}

func dateRange(prefs Preferences, locale Locale) string {
	if prefs.StartDate.IsZero() || prefs.EndDate.IsZero() {
		if NormalizeLocale(locale) == LocalePTBR {
			return "com datas a definir"
		}
		return "with dates to be decided"
	}
	layout := "Jan 2, 2006"
	connector := "from %s to %s"
	if NormalizeLocale(locale) == LocalePTBR {
		layout = "02/01/2006"
		connector = "de %s a %s"
	}
	return fmt.Sprintf(connector, prefs.StartDate.Format(layout), prefs.EndDate.Format(layout))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
