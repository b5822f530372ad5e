package intent

import "regexp"

// rawPatterns maps (intent, language) to regular-expression sources. All
// patterns are compiled case-insensitively at package init. Languages without
// an entry for a given intent fall back to English — the fallback is explicit
// in Detector.patternsFor and covered by tests.
var rawPatterns = map[Intent]map[string][]string{
	Greeting: {
		"en": {
			`\b(hello|hi|hey|good (morning|afternoon|evening))\b`,
		},
		"de": {
			`\b(hallo|guten (morgen|tag|abend)|servus|grüß gott)\b`,
		},
		"es": {
			`\b(hola|buenos días|buenas (tardes|noches))\b`,
		},
		"fr": {
			`\b(bonjour|bonsoir|salut)\b`,
		},
	},
	BookingInquiry: {
		"en": {
			`\b(book|reserve|need|want|looking for)\b.*\broom\b`,
			`\b(availability|available|vacanc(y|ies))\b`,
			`\broom\b.*\b(for|from)\b.*\b(night|nights|week)\b`,
			`\bmake a (reservation|booking)\b`,
		},
		"de": {
			`\b(zimmer)\b.*\b(buchen|reservieren)\b`,
			`\b(buchen|reservieren)\b.*\bzimmer\b`,
			`\b(möchte|hätte gern)\b.*\bzimmer\b`,
			`\b(verfügbar|frei)\b.*\bzimmer\b`,
		},
		"es": {
			`\b(reservar|quisiera|necesito)\b.*\bhabitación\b`,
			`\bdisponibilidad\b`,
		},
		"fr": {
			`\b(réserver|je voudrais)\b.*\bchambre\b`,
			`\bdisponibilité\b`,
		},
	},
	ReservationModify: {
		"en": {
			`\b(change|modify|move|update|reschedule)\b.*\b(reservation|booking|stay)\b`,
			`\b(extend|shorten)\b.*\b(stay|reservation)\b`,
		},
		"de": {
			`\b(ändern|umbuchen|verschieben|verlängern)\b.*\b(reservierung|buchung)\b`,
			`\b(reservierung|buchung)\b.*\b(ändern|umbuchen|verschieben)\b`,
		},
	},
	ReservationCancel: {
		"en": {
			`\bcancel\b`,
			`\bcall off\b.*\b(reservation|booking)\b`,
		},
		"de": {
			`\b(stornieren|absagen)\b`,
			`\b(reservierung|buchung)\b.*\bstornieren\b`,
		},
		"es": {
			`\b(cancelar|anular)\b`,
		},
		"fr": {
			`\bannuler\b`,
		},
	},
	UpsellOpportunity: {
		"en": {
			`\b(upgrade|better room|bigger room|suite instead)\b`,
			`\b(something (nicer|better|special))\b`,
		},
		"de": {
			`\b(upgrade|besseres zimmer|größeres zimmer)\b`,
		},
	},
	RestaurantBooking: {
		"en": {
			`\b(table|dinner|lunch|breakfast)\b.*\b(book|reserve|reservation)\b`,
			`\b(book|reserve)\b.*\btable\b`,
			`\brestaurant\b`,
		},
		"de": {
			`\b(tisch)\b.*\b(reservieren|buchen)\b`,
			`\brestaurant\b`,
		},
	},
	SpaBooking: {
		"en": {
			`\b(spa|massage|facial|sauna|wellness|treatment)\b`,
		},
		"de": {
			`\b(spa|massage|sauna|wellness|anwendung)\b`,
		},
	},
	RoomService: {
		"en": {
			`\broom service\b`,
			`\b(order|bring|send)\b.*\b(food|breakfast|dinner|drinks?)\b.*\broom\b`,
			`\b(order|bring|send)\b.*\bto my room\b`,
		},
		"de": {
			`\bzimmerservice\b`,
			`\b(essen|frühstück)\b.*\b(aufs zimmer|ins zimmer)\b`,
		},
	},
	ConciergeServices: {
		"en": {
			`\b(taxi|transfer|airport pickup|tickets?|tour|excursion|recommendation)\b`,
			`\bconcierge\b`,
		},
		"de": {
			`\b(taxi|transfer|flughafen|tickets?|ausflug|empfehlung)\b`,
			`\bconcierge\b`,
		},
	},
	ComplaintFeedback: {
		"en": {
			`\b(complain|complaint|unacceptable|disappointed|not happy|unhappy)\b`,
			`\b(problem|issue)\b.*\b(room|service|booking|noise)\b`,
			`\b(dirty|broken|cold|noisy|rude)\b`,
		},
		"de": {
			`\b(beschwerde|beschweren|unzufrieden|inakzeptabel)\b`,
			`\b(problem)\b.*\b(zimmer|service)\b`,
			`\b(schmutzig|kaputt|laut|kalt)\b`,
		},
	},
	TransferToOperator: {
		"en": {
			`\b(speak|talk)\b.*\b(human|person|someone|operator|agent|receptionist|staff)\b`,
			`\b(transfer|connect) me\b`,
			`\breal person\b`,
		},
		"de": {
			`\b(mitarbeiter|jemanden|echten menschen)\b.*\b(sprechen|verbinden)\b`,
			`\bverbinden sie mich\b`,
		},
	},
	FallbackToHuman: {
		"en": {
			`\b(you('re| are) not helping|this is(n't| not) working)\b`,
			`\b(stop|enough)\b.*\b(robot|machine|bot)\b`,
		},
	},
	EndCall: {
		"en": {
			`\b(goodbye|bye|that('s| is) all|hang up|end the call|nothing else)\b`,
			`\bthanks?,? (bye|goodbye|that('s| is) (all|everything))\b`,
		},
		"de": {
			`\b(auf wiederhören|tschüss|das wär('s| es)|nichts weiter)\b`,
		},
		"es": {
			`\b(adiós|hasta luego|eso es todo)\b`,
		},
		"fr": {
			`\b(au revoir|c'est tout)\b`,
		},
	},
	HotelInformation: {
		"en": {
			`\b(check.?in|check.?out) time\b`,
			`\b(parking|wifi|pool|gym|pets?|breakfast (time|hours))\b`,
			`\b(where (is|are)|how do i (get|find))\b`,
			`\b(opening|business) hours\b`,
		},
		"de": {
			`\b(check.?in|check.?out)\b.*\b(uhrzeit|zeit)\b`,
			`\b(parkplatz|wlan|pool|haustiere?)\b`,
		},
	},
	RequestInfo: {
		"en": {
			`\b(tell me (more|about)|more information|what (do you|does the hotel) offer)\b`,
		},
	},
	PaymentInquiry: {
		"en": {
			`\b(pay|payment|invoice|bill|credit card|deposit|rate|price|how much)\b`,
		},
		"de": {
			`\b(bezahlen|zahlung|rechnung|kreditkarte|preis|wie viel)\b`,
		},
	},
	GeneralQuestion: {
		"en": {
			`\b(can you|could you|i have a question|i was wondering)\b`,
		},
	},
}

// patterns is the compiled form of rawPatterns.
var patterns = compilePatterns()

func compilePatterns() map[Intent]map[string][]*regexp.Regexp {
	compiled := make(map[Intent]map[string][]*regexp.Regexp, len(rawPatterns))
	for in, byLang := range rawPatterns {
		compiled[in] = make(map[string][]*regexp.Regexp, len(byLang))
		for lang, sources := range byLang {
			res := make([]*regexp.Regexp, 0, len(sources))
			for _, src := range sources {
				res = append(res, regexp.MustCompile(`(?i)`+src))
			}
			compiled[in][lang] = res
		}
	}
	return compiled
}

// Boost token classifiers shared across languages. Dates and counts raise
// booking-flavoured intents, times raise venue bookings, negative sentiment
// raises complaints.
var (
	dateTokenRe = regexp.MustCompile(`(?i)\b(\d{1,2}[./]\d{1,2}(?:[./]\d{2,4})?|today|tomorrow|next week|heute|morgen|nächste woche|` +
		`january|february|march|april|may|june|july|august|september|october|november|december|` +
		`januar|februar|märz|mai|juni|juli|oktober|dezember)\b`)

	countTokenRe = regexp.MustCompile(`(?i)\b\d+\s*(night|nights|day|days|week|weeks|nacht|nächte|tag|tage|woche|wochen)\b`)

	timeTokenRe = regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}|\d{1,2}\s*(am|pm)|noon|midday|morning|afternoon|evening|tonight|` +
		`mittag|abend|vormittag|nachmittag|uhr)\b`)
)

// negativeTokens contribute +0.05 each (capped) to complaint confidence.
var negativeTokens = []string{
	"terrible", "awful", "horrible", "worst", "disgusting",
	"unacceptable", "disappointed", "angry", "furious", "never again",
}

var negativeTokenRes = compileTokens(negativeTokens)

func compileTokens(tokens []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(tokens))
	for _, tok := range tokens {
		res = append(res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(tok)+`\b`))
	}
	return res
}
