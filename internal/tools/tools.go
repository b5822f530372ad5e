// Package tools executes the functions the LLM may request during a call.
//
// The Dispatcher recognises sixteen function names covering availability,
// reservation CRUD, upselling, restaurant/spa/room-service bookings,
// concierge services, complaints, operator transfer, hotel information and
// rate inquiry. PMS-backed functions resolve a connector through the factory
// keyed by the session's hotel; the rest are in-memory helpers. Every call
// returns a Result — the dispatcher never panics or propagates errors, a
// failed function is a Result with Success=false.
package tools

import "encoding/json"

// Result is the outcome of one function execution. The Result field is a
// JSON-compatible map; callers rely only on documented keys per function.
type Result struct {
	Result          map[string]any `json:"result,omitempty"`
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
}

// JSON renders the result for a tool-role message back to the LLM.
func (r Result) JSON() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"unserializable result"}`
	}
	return string(raw)
}

// CallContext is the slice of session state a function execution may read or
// mutate. The Call Session Manager's session type implements it; tests use a
// lightweight fake.
type CallContext interface {
	// CallID identifies the call, used for ticket and order references.
	CallID() string

	// HotelID selects the PMS connector.
	HotelID() string

	// Language is the caller's detected language code.
	Language() string

	// AddEscalationReason appends a reason to the session's escalation list.
	// Complaint and transfer functions call this as a side effect.
	AddEscalationReason(reason string)

	// RecordUpsell notes an accepted or offered upsell on the session.
	RecordUpsell(offer string)
}

// HotelInfo is the static descriptor served by the hotel-information
// functions. Populated from configuration at startup.
type HotelInfo struct {
	Name         string   `json:"name" yaml:"name"`
	Address      string   `json:"address" yaml:"address"`
	Phone        string   `json:"phone" yaml:"phone"`
	CheckInTime  string   `json:"check_in_time" yaml:"check_in_time"`
	CheckOutTime string   `json:"check_out_time" yaml:"check_out_time"`
	Amenities    []string `json:"amenities" yaml:"amenities"`

	// OperatorNumber is where transfer_to_operator routes callers.
	OperatorNumber string `json:"operator_number" yaml:"operator_number"`
}
