// Package flow decides the next conversation state for a call turn.
//
// The state machine is a fixed ten-state graph. Decisions are made by a
// priority-ordered rule set over the detected intents, the filled slots, and
// the current state; every decision carries a human-readable reasoning string
// for logging.
package flow

import "github.com/voicehive/voicehive/internal/intent"

// State is a conversation state. Closing is terminal.
type State string

const (
	StateGreeting       State = "greeting"
	StateInfoGathering  State = "information_gathering"
	StateSlotFilling    State = "slot_filling"
	StateConfirmation   State = "confirmation"
	StateExecution      State = "execution"
	StateClarification  State = "clarification"
	StateUpselling      State = "upselling"
	StateProblemSolving State = "problem_solving"
	StateEscalation     State = "escalation"
	StateClosing        State = "closing"
)

// Initial is the state every call starts in.
const Initial = StateGreeting

// transitions is the allowed-transition adjacency set. Closing has no
// outgoing edges.
var transitions = map[State][]State{
	StateGreeting:       {StateInfoGathering, StateSlotFilling, StateExecution, StateClosing},
	StateInfoGathering:  {StateSlotFilling, StateConfirmation, StateClarification, StateExecution},
	StateSlotFilling:    {StateSlotFilling, StateConfirmation, StateClarification, StateExecution},
	StateConfirmation:   {StateExecution, StateSlotFilling, StateClarification},
	StateExecution:      {StateUpselling, StateClosing, StateProblemSolving, StateInfoGathering},
	StateClarification:  {StateInfoGathering, StateSlotFilling, StateEscalation},
	StateUpselling:      {StateSlotFilling, StateConfirmation, StateClosing, StateExecution},
	StateProblemSolving: {StateExecution, StateEscalation, StateClosing},
	StateEscalation:     {StateClosing},
	StateClosing:        {},
}

// CanTransition reports whether moving from from to to is allowed by the
// state graph. Staying in the same state is treated as a no-op transition
// and is always permitted.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing edges.
func Terminal(s State) bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is a recognised conversation state.
func Valid(s State) bool {
	_, ok := transitions[s]
	return ok
}

// Requirements lists the slots an intent needs before execution.
type Requirements struct {
	Required []string
	Optional []string
}

// intentSlots maps task intents to their slot requirements. Intents outside
// the table need no slots.
var intentSlots = map[intent.Intent]Requirements{
	intent.BookingInquiry: {
		Required: []string{"check_in_date", "check_out_date", "guest_count"},
		Optional: []string{"room_type", "special_requests", "budget_range"},
	},
	intent.ReservationModify: {
		Required: []string{"confirmation_number"},
		Optional: []string{"new_check_in", "new_check_out", "new_room_type", "modification_type"},
	},
	intent.ReservationCancel: {
		Required: []string{"confirmation_number"},
		Optional: []string{"cancellation_reason"},
	},
	intent.RestaurantBooking: {
		Required: []string{"date", "time", "party_size"},
		Optional: []string{"special_requests", "seating_preference"},
	},
	intent.SpaBooking: {
		Required: []string{"service_type", "date", "time"},
		Optional: []string{"duration", "therapist_preference"},
	},
	intent.RoomService: {
		Required: []string{"room_number"},
		Optional: []string{"items", "delivery_time"},
	},
	intent.UpsellOpportunity: {
		Required: []string{"current_reservation"},
		Optional: []string{"upgrade_type", "budget_range", "special_occasion"},
	},
	intent.ConciergeServices: {
		Required: []string{"service_type"},
		Optional: []string{"date", "time", "location", "budget_range"},
	},
}

// SlotsFor returns the slot requirements for in. The second return value is
// false for intents that take no slots.
func SlotsFor(in intent.Intent) (Requirements, bool) {
	req, ok := intentSlots[in]
	return req, ok
}
