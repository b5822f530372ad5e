// Package slots extracts structured parameters (dates, times, counts, codes,
// closed-set types) from caller utterances.
//
// Extraction is regex-based per slot type, with fuzzy matching against closed
// vocabularies for room and spa service types to tolerate ASR noise. A
// successful match is assigned a fixed confidence; low-confidence fills are
// discarded rather than propagated.
package slots

import "time"

// Slot is one filled conversation parameter.
type Slot struct {
	// Name is the slot identifier (e.g. "check_in_date").
	Name string `json:"name"`

	// Value is the normalised extracted value.
	Value string `json:"value"`

	// Confidence is the extraction confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Source tags the extraction mechanism that produced the value.
	Source string `json:"source"`

	// FilledAt is when the slot was filled.
	FilledAt time.Time `json:"filled_at"`

	// Confirmed is set once the caller has confirmed the value.
	Confirmed bool `json:"confirmed"`
}

// Extraction is the outcome of running the extractor over one utterance.
type Extraction struct {
	// Filled maps slot name to the extracted slot.
	Filled map[string]Slot `json:"filled"`

	// MissingRequired lists required slot names that remain unfilled,
	// in the order they were requested.
	MissingRequired []string `json:"missing_required"`

	// Confidence is filled / (required ∪ optional).
	Confidence float64 `json:"confidence"`

	// Questions holds at most two clarification questions, one per missing
	// required slot, drawn from the fixed question table.
	Questions []string `json:"questions,omitempty"`
}

// clarificationQuestions is the fixed question table, keyed by slot name.
var clarificationQuestions = map[string]string{
	"check_in_date":       "What date would you like to check in?",
	"check_out_date":      "And when will you be checking out?",
	"guest_count":         "How many guests will be staying?",
	"room_type":           "What type of room would you prefer?",
	"confirmation_number": "Could you give me your confirmation number, please?",
	"date":                "For which date?",
	"time":                "At what time?",
	"party_size":          "For how many people?",
	"service_type":        "Which service would you like to book?",
	"room_number":         "What is your room number?",
	"current_reservation": "Could you give me your current reservation number?",
	"complaint_details":   "Could you tell me a bit more about what happened?",
	"new_check_in":        "What should the new check-in date be?",
	"new_check_out":       "And the new check-out date?",
	"delivery_time":       "When would you like it delivered?",
	"items":               "What would you like to order?",
}

// QuestionFor returns the clarification question for a slot name, with a
// generic fallback for names outside the table.
func QuestionFor(name string) string {
	if q, ok := clarificationQuestions[name]; ok {
		return q
	}
	return "Could you give me the " + humanise(name) + "?"
}

func humanise(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '_' {
			out[i] = ' '
		} else {
			out[i] = name[i]
		}
	}
	return string(out)
}
