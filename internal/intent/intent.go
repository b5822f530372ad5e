// Package intent implements multi-intent detection over caller utterances.
//
// Detection is pattern-based: for every (intent, language) pair a set of
// case-insensitive regular expressions is evaluated against the utterance.
// Matches are scored from a base confidence plus a coverage bonus and
// intent-specific boosts, then ranked with a fixed priority table breaking
// confidence ties. The detector never fails; on internal error it returns an
// empty result that asks the caller for clarification.
package intent

import "time"

// Intent is a closed-set tag describing what the caller wants to do.
type Intent string

const (
	Greeting           Intent = "greeting"
	BookingInquiry     Intent = "booking_inquiry"
	ReservationModify  Intent = "existing_reservation_modify"
	ReservationCancel  Intent = "existing_reservation_cancel"
	UpsellOpportunity  Intent = "upselling_opportunity"
	RestaurantBooking  Intent = "restaurant_booking"
	SpaBooking         Intent = "spa_booking"
	RoomService        Intent = "room_service"
	ConciergeServices  Intent = "concierge_services"
	ComplaintFeedback  Intent = "complaint_feedback"
	TransferToOperator Intent = "transfer_to_operator"
	FallbackToHuman    Intent = "fallback_to_human"
	EndCall            Intent = "end_call"
	HotelInformation   Intent = "hotel_information"
	GeneralQuestion    Intent = "general_question"
	RequestInfo        Intent = "request_info"
	PaymentInquiry     Intent = "payment_inquiry"
	Unknown            Intent = "unknown"
)

// All lists every recognised intent tag, in priority order (highest first).
// Used by callers that need to enumerate the closed set, e.g. the response
// template table.
var All = []Intent{
	EndCall, TransferToOperator, FallbackToHuman, ComplaintFeedback,
	ReservationCancel, ReservationModify, BookingInquiry, UpsellOpportunity,
	RestaurantBooking, SpaBooking, RoomService, ConciergeServices,
	HotelInformation, RequestInfo, PaymentInquiry, GeneralQuestion,
	Greeting, Unknown,
}

// priority breaks ties between intents with equal confidence. Higher wins.
var priority = map[Intent]int{
	EndCall:            10,
	TransferToOperator: 9,
	FallbackToHuman:    9,
	ComplaintFeedback:  8,
	ReservationCancel:  7,
	ReservationModify:  6,
	BookingInquiry:     5,
	UpsellOpportunity:  4,
	RestaurantBooking:  3,
	SpaBooking:         3,
	RoomService:        3,
	ConciergeServices:  2,
	HotelInformation:   1,
	RequestInfo:        1,
	PaymentInquiry:     1,
	GeneralQuestion:    1,
	Greeting:           0,
	Unknown:            0,
}

// Priority returns the tie-break rank of in. Unlisted intents rank lowest.
func Priority(in Intent) int {
	return priority[in]
}

// ConfidenceLevel buckets a raw confidence value for logging and routing.
type ConfidenceLevel string

const (
	ConfidenceHigh    ConfidenceLevel = "high"
	ConfidenceMedium  ConfidenceLevel = "medium"
	ConfidenceLow     ConfidenceLevel = "low"
	ConfidenceVeryLow ConfidenceLevel = "very_low"
)

// LevelFor maps a raw confidence in [0,1] to its bucket.
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.6:
		return ConfidenceMedium
	case confidence >= 0.4:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// Detected is a single scored intent produced by the detector.
type Detected struct {
	// Intent is the closed-set tag.
	Intent Intent `json:"intent"`

	// Confidence is the final clamped score in [0,1].
	Confidence float64 `json:"confidence"`

	// Level is the confidence bucket derived from Confidence.
	Level ConfidenceLevel `json:"level"`

	// Parameters holds raw extracted hints (matched span, boost markers).
	Parameters map[string]string `json:"parameters,omitempty"`

	// Detector names the detector that produced this entry.
	Detector string `json:"detector"`
}

// Result is the full outcome of detecting intents in one utterance.
type Result struct {
	// Utterance is the analysed text, verbatim.
	Utterance string `json:"utterance"`

	// Intents is the ranked list of detected intents, best first.
	Intents []Detected `json:"intents"`

	// Primary is the highest-confidence intent after priority tie-breaking.
	// Nil when nothing scored above the keep threshold.
	Primary *Detected `json:"primary,omitempty"`

	// Language is the language the utterance was analysed in.
	Language string `json:"language"`

	// ProcessingTime is the wall-clock detection duration.
	ProcessingTime time.Duration `json:"processing_time_ns"`

	// Ambiguous is true when at least two intents scored above 0.6.
	Ambiguous bool `json:"ambiguous"`

	// RequiresClarification is true when the caller should be asked to
	// rephrase or choose between competing intents.
	RequiresClarification bool `json:"requires_clarification"`

	// Clarification is an optional ready-to-speak clarification message.
	Clarification string `json:"clarification,omitempty"`
}

// PrimaryIntent returns the primary intent tag, or Unknown when no intent
// was detected.
func (r *Result) PrimaryIntent() Intent {
	if r == nil || r.Primary == nil {
		return Unknown
	}
	return r.Primary.Intent
}

// Names returns the detected intent tags in rank order.
func (r *Result) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Intents))
	for _, d := range r.Intents {
		names = append(names, string(d.Intent))
	}
	return names
}
