package intent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// baseConfidence is the score assigned to any pattern match before
	// coverage and intent-specific boosts.
	baseConfidence = 0.7

	// coverageWeight scales the matched-span/utterance-length ratio.
	coverageWeight = 0.3

	// keepThreshold drops intents scoring at or below it.
	keepThreshold = 0.2

	// ambiguityThreshold is the confidence floor for counting an intent
	// towards ambiguity, and the floor below which the primary intent alone
	// triggers clarification.
	ambiguityThreshold = 0.6

	// negativeBoostStep and negativeBoostCap bound the complaint sentiment boost.
	negativeBoostStep = 0.05
	negativeBoostCap  = 0.20

	// DefaultBudget is the hard wall-clock cap for one detection pass.
	DefaultBudget = 250 * time.Millisecond

	detectorName = "pattern"
)

// genericClarification is spoken when detection produces nothing usable.
const genericClarification = "I'm sorry, I didn't quite catch that. Could you please rephrase?"

// Detector evaluates the static pattern tables against utterances.
// The zero value is not usable; construct with NewDetector. Safe for
// concurrent use — all state is immutable after construction.
type Detector struct {
	budget time.Duration
}

// Option configures a Detector.
type Option func(*Detector)

// WithBudget overrides the hard detection time cap. The default is 250 ms.
func WithBudget(d time.Duration) Option {
	return func(det *Detector) {
		det.budget = d
	}
}

// NewDetector creates a pattern-based intent detector.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{budget: DefaultBudget}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect analyses utterance in the given language and returns the ranked
// multi-intent result. Detect never returns an error: on internal failure or
// budget exhaustion it returns an empty result flagged for clarification so
// the call can always continue.
func (d *Detector) Detect(ctx context.Context, utterance, language string) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, d.budget)
	defer cancel()

	res := Result{
		Utterance: utterance,
		Language:  language,
	}

	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		res.RequiresClarification = true
		res.Clarification = genericClarification
		res.ProcessingTime = time.Since(start)
		return res
	}

	var detected []Detected
	for in := range patterns {
		if ctx.Err() != nil {
			// Budget exhausted mid-pass: degrade to whatever has been
			// scored so far rather than failing the turn.
			slog.Warn("intent: detection budget exhausted", "language", language, "scored", len(detected))
			break
		}
		if dt, ok := d.score(in, trimmed, language); ok {
			detected = append(detected, dt)
		}
	}

	rank(detected)
	res.Intents = detected
	if len(detected) > 0 {
		res.Primary = &detected[0]
	}

	above := 0
	for _, dt := range detected {
		if dt.Confidence > ambiguityThreshold {
			above++
		}
	}
	res.Ambiguous = above >= 2
	res.RequiresClarification = res.Ambiguous ||
		res.Primary == nil ||
		res.Primary.Confidence < ambiguityThreshold

	if res.RequiresClarification {
		res.Clarification = clarificationFor(res)
	}

	res.ProcessingTime = time.Since(start)
	return res
}

// score evaluates every pattern for (in, language) and returns the best
// scoring detection, if any pattern matched above the keep threshold.
func (d *Detector) score(in Intent, utterance, language string) (Detected, bool) {
	best := -1.0
	bestSpan := ""
	for _, re := range d.patternsFor(in, language) {
		loc := re.FindStringIndex(utterance)
		if loc == nil {
			continue
		}
		span := utterance[loc[0]:loc[1]]
		conf := baseConfidence + coverageWeight*float64(len(span))/float64(len(utterance))
		if conf > best {
			best = conf
			bestSpan = span
		}
	}
	if best < 0 {
		return Detected{}, false
	}

	params := map[string]string{"matched": bestSpan}
	best += boostFor(in, utterance, params)
	best = clamp01(best)
	if best <= keepThreshold {
		return Detected{}, false
	}

	return Detected{
		Intent:     in,
		Confidence: best,
		Level:      LevelFor(best),
		Parameters: params,
		Detector:   detectorName,
	}, true
}

// patternsFor returns the compiled patterns for (in, language), falling back
// to English when the language has no registered patterns for the intent.
func (d *Detector) patternsFor(in Intent, language string) []*regexp.Regexp {
	byLang := patterns[in]
	if byLang == nil {
		return nil
	}
	lang := shortCode(language)
	if res, ok := byLang[lang]; ok {
		return res
	}
	return byLang["en"]
}

// boostFor applies intent-specific confidence adjustments and records the
// fired boosts in params.
func boostFor(in Intent, utterance string, params map[string]string) float64 {
	var boost float64
	switch in {
	case EndCall, TransferToOperator, FallbackToHuman:
		boost += 0.1

	case BookingInquiry, ReservationModify:
		if m := dateTokenRe.FindString(utterance); m != "" {
			boost += 0.15
			params["date_token"] = m
		}
		if m := countTokenRe.FindString(utterance); m != "" {
			boost += 0.10
			params["count_token"] = m
		}

	case RestaurantBooking, SpaBooking, RoomService:
		if m := timeTokenRe.FindString(utterance); m != "" {
			boost += 0.10
			params["time_token"] = m
		}

	case ComplaintFeedback:
		var sentiment float64
		for _, re := range negativeTokenRes {
			sentiment += negativeBoostStep * float64(len(re.FindAllStringIndex(utterance, -1)))
		}
		if sentiment > negativeBoostCap {
			sentiment = negativeBoostCap
		}
		boost += sentiment
	}
	return boost
}

// rank sorts detections by confidence descending, breaking exact ties with
// the fixed priority table.
func rank(detected []Detected) {
	sort.SliceStable(detected, func(i, j int) bool {
		if detected[i].Confidence != detected[j].Confidence {
			return detected[i].Confidence > detected[j].Confidence
		}
		return Priority(detected[i].Intent) > Priority(detected[j].Intent)
	})
}

// clarificationFor builds a clarification message. When two concrete intents
// compete, both options are named so the caller can choose.
func clarificationFor(res Result) string {
	if res.Ambiguous && len(res.Intents) >= 2 {
		return fmt.Sprintf("Just to make sure I help you with the right thing — would you like to %s, or %s?",
			describe(res.Intents[0].Intent), describe(res.Intents[1].Intent))
	}
	return genericClarification
}

// describe renders an intent tag as a short verb phrase for clarifications.
func describe(in Intent) string {
	switch in {
	case BookingInquiry:
		return "book a room"
	case ReservationModify:
		return "change an existing reservation"
	case ReservationCancel:
		return "cancel a reservation"
	case RestaurantBooking:
		return "book a table at the restaurant"
	case SpaBooking:
		return "book a spa treatment"
	case RoomService:
		return "order room service"
	case ConciergeServices:
		return "arrange a concierge service"
	case ComplaintFeedback:
		return "report a problem"
	case TransferToOperator, FallbackToHuman:
		return "speak to a member of staff"
	case EndCall:
		return "end the call"
	case UpsellOpportunity:
		return "upgrade your stay"
	default:
		return strings.ReplaceAll(string(in), "_", " ")
	}
}

// shortCode reduces a BCP-47-ish tag ("de-DE") to its primary subtag ("de").
func shortCode(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(language, "-_"); i > 0 {
		language = language[:i]
	}
	if language == "" {
		return "en"
	}
	return language
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
