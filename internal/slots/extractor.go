package slots

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

const (
	// matchConfidence is assigned to a successful regex extraction.
	matchConfidence = 0.8

	// discardThreshold drops extractions below this confidence.
	discardThreshold = 0.6

	// maxQuestions caps the number of clarification questions per turn.
	maxQuestions = 2

	sourceRegex = "regex"
	sourceFuzzy = "fuzzy"
)

// roomTypes is the closed set of recognised room categories. Multi-word
// entries come first so "junior suite" is not shadowed by "suite".
var roomTypes = []string{
	"junior suite", "standard", "deluxe", "suite",
	"family", "twin", "double", "single",
}

// spaServices is the closed set of recognised spa treatments.
var spaServices = []string{
	"massage", "facial", "sauna", "manicure", "body wrap",
}

// conciergeServices covers the concierge service_type vocabulary. Matched
// after the spa set so "massage" keeps resolving to the spa treatment.
var conciergeServices = []string{
	"taxi", "airport transfer", "tour", "tickets", "restaurant recommendation",
}

var (
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})(?:[./](\d{2,4}))?\b`)
	monthDateRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	namedDateRe   = regexp.MustCompile(`(?i)\b(today|tomorrow|next week|heute|morgen|nächste woche)\b`)

	clockTimeRe  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	amPmTimeRe   = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	namedTimeRe  = regexp.MustCompile(`(?i)\b(noon|midday|morning|afternoon|evening|tonight|mittag|abend)\b`)
	germanHourRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*uhr\b`)

	countRe = regexp.MustCompile(`(?i)\b(?:for|für|para|pour)\s+(\d{1,2}|[a-zäöü]+)\b|\b(\d{1,2})\s*(?:people|persons?|guests?|pax|personen|gäste|personas)\b`)

	roomNumberRe   = regexp.MustCompile(`(?i)\broom\s*#?\s*(\d{3,4})\b|\bzimmer\s*(\d{3,4})\b|\b(\d{3,4})\b`)
	confirmationRe = regexp.MustCompile(`\b([A-Z0-9]{6,})\b`)
)

// numberWords maps spelled-out counts (English and German) to digits.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eins": 1, "zwei": 2, "drei": 3, "vier": 4, "fünf": 5,
	"sechs": 6, "sieben": 7, "acht": 8, "neun": 9, "zehn": 10,
	"un": 1, "deux": 2, "dos": 2, "trois": 3, "tres": 3,
}

// Extractor pulls slot values out of utterances. Safe for concurrent use;
// it carries no mutable state.
type Extractor struct {
	now func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the time source used for fill timestamps. Intended
// for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor creates a slot extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract fills as many of the required and optional slots as the utterance
// supports and reports what is still missing. The overall confidence is the
// share of requested slots that were filled.
func (e *Extractor) Extract(utterance string, required, optional []string) Extraction {
	filled := make(map[string]Slot)
	now := e.now()

	// Dates are positional: when an utterance carries two dates and both a
	// check-in and a check-out slot are requested, the first date is the
	// check-in and the second the check-out.
	dates := extractDates(utterance)
	dateSlots := dateSlotNames(required, optional)
	for i, name := range dateSlots {
		if i >= len(dates) {
			break
		}
		filled[name] = Slot{
			Name: name, Value: dates[i],
			Confidence: matchConfidence, Source: sourceRegex, FilledAt: now,
		}
	}

	for _, name := range append(append([]string{}, required...), optional...) {
		if _, ok := filled[name]; ok {
			continue
		}
		if s, ok := e.extractOne(name, utterance, now); ok && s.Confidence >= discardThreshold {
			filled[name] = s
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := filled[name]; !ok {
			missing = append(missing, name)
		}
	}

	total := len(required) + len(optional)
	var confidence float64
	if total > 0 {
		confidence = float64(len(filled)) / float64(total)
	}

	var questions []string
	for _, name := range missing {
		if len(questions) >= maxQuestions {
			break
		}
		questions = append(questions, QuestionFor(name))
	}

	return Extraction{
		Filled:          filled,
		MissingRequired: missing,
		Confidence:      confidence,
		Questions:       questions,
	}
}

// extractOne dispatches on slot name to the matching extraction rule.
func (e *Extractor) extractOne(name, utterance string, now time.Time) (Slot, bool) {
	mk := func(value string, confidence float64, source string) (Slot, bool) {
		return Slot{
			Name: name, Value: value,
			Confidence: confidence, Source: source, FilledAt: now,
		}, true
	}

	switch name {
	case "time", "delivery_time":
		if v, ok := extractTime(utterance); ok {
			return mk(v, matchConfidence, sourceRegex)
		}

	case "guest_count", "party_size":
		if v, ok := extractCount(utterance); ok {
			return mk(strconv.Itoa(v), matchConfidence, sourceRegex)
		}

	case "room_number":
		if m := roomNumberRe.FindStringSubmatch(utterance); m != nil {
			for _, g := range m[1:] {
				if g != "" {
					return mk(g, matchConfidence, sourceRegex)
				}
			}
		}

	case "confirmation_number", "current_reservation":
		// Plain words uppercase to [A-Z]{6,} too, so require a digit in the
		// candidate before treating it as a confirmation code.
		for _, m := range confirmationRe.FindAllString(strings.ToUpper(utterance), -1) {
			if strings.ContainsAny(m, "0123456789") {
				return mk(m, matchConfidence, sourceRegex)
			}
		}

	case "room_type", "new_room_type":
		if v, conf, ok := fuzzyMatch(utterance, roomTypes); ok {
			return mk(v, conf, sourceFuzzy)
		}

	case "service_type":
		if v, conf, ok := fuzzyMatch(utterance, spaServices); ok {
			return mk(v, conf, sourceFuzzy)
		}
		if v, conf, ok := fuzzyMatch(utterance, conciergeServices); ok {
			return mk(v, conf, sourceFuzzy)
		}

	case "complaint_details":
		if s := strings.TrimSpace(utterance); s != "" {
			return mk(s, matchConfidence, sourceRegex)
		}
	}

	return Slot{}, false
}

// extractDates returns all normalised DD/MM dates found, in textual order.
func extractDates(utterance string) []string {
	type hit struct {
		pos   int
		value string
	}
	var hits []hit

	for _, m := range numericDateRe.FindAllStringSubmatchIndex(utterance, -1) {
		day := utterance[m[2]:m[3]]
		month := utterance[m[4]:m[5]]
		hits = append(hits, hit{pos: m[0], value: fmt.Sprintf("%s/%s", day, month)})
	}
	for _, m := range monthDateRe.FindAllStringSubmatchIndex(utterance, -1) {
		day := utterance[m[2]:m[3]]
		month := monthNumber(strings.ToLower(utterance[m[4]:m[5]]))
		hits = append(hits, hit{pos: m[0], value: fmt.Sprintf("%s/%02d", day, month)})
	}
	for _, m := range namedDateRe.FindAllStringSubmatchIndex(utterance, -1) {
		hits = append(hits, hit{pos: m[0], value: strings.ToLower(utterance[m[2]:m[3]])})
	}

	// Preserve textual order across the three pattern families.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	values := make([]string, 0, len(hits))
	for _, h := range hits {
		values = append(values, h.value)
	}
	return values
}

// dateSlotNames returns the date-typed slot names among the requested slots,
// check-in-flavoured names before check-out-flavoured ones.
func dateSlotNames(required, optional []string) []string {
	ordered := []string{"check_in_date", "new_check_in", "date", "check_out_date", "new_check_out"}
	requested := make(map[string]bool, len(required)+len(optional))
	for _, n := range required {
		requested[n] = true
	}
	for _, n := range optional {
		requested[n] = true
	}

	var names []string
	for _, n := range ordered {
		if requested[n] {
			names = append(names, n)
		}
	}
	return names
}

func extractTime(utterance string) (string, bool) {
	if m := clockTimeRe.FindStringSubmatch(utterance); m != nil {
		return fmt.Sprintf("%s:%s", m[1], m[2]), true
	}
	if m := amPmTimeRe.FindStringSubmatch(utterance); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if strings.EqualFold(m[2], "pm") && hour < 12 {
			hour += 12
		}
		return fmt.Sprintf("%02d:00", hour), true
	}
	if m := germanHourRe.FindStringSubmatch(utterance); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d:00", hour), true
	}
	if m := namedTimeRe.FindString(utterance); m != "" {
		return strings.ToLower(m), true
	}
	return "", false
}

func extractCount(utterance string) (int, bool) {
	m := countRe.FindStringSubmatch(utterance)
	if m == nil {
		return 0, false
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		if n, err := strconv.Atoi(g); err == nil {
			return n, true
		}
		if n, ok := numberWords[strings.ToLower(g)]; ok {
			return n, true
		}
	}
	return 0, false
}

// fuzzyMatch scans the utterance words for the closest vocabulary entry.
// Exact substring matches score matchConfidence; near matches (OSA distance 1
// on words of five or more characters) score just above the discard floor.
func fuzzyMatch(utterance string, vocabulary []string) (string, float64, bool) {
	lower := strings.ToLower(utterance)
	for _, entry := range vocabulary {
		if strings.Contains(lower, entry) {
			return normalizeEntry(entry), matchConfidence, true
		}
	}

	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(word) < 5 {
			continue
		}
		for _, entry := range vocabulary {
			if matchr.OSA(word, entry) == 1 {
				return normalizeEntry(entry), 0.65, true
			}
		}
	}
	return "", 0, false
}

func normalizeEntry(entry string) string {
	return strings.ReplaceAll(entry, " ", "_")
}

func monthNumber(name string) int {
	months := map[string]int{
		"january": 1, "february": 2, "march": 3, "april": 4,
		"may": 5, "june": 6, "july": 7, "august": 8,
		"september": 9, "october": 10, "november": 11, "december": 12,
	}
	return months[name]
}
