package tools

import (
	"fmt"
	"sort"
)

// Property is one argument in a function schema.
type Property struct {
	// Type is a JSON-schema primitive: "string", "integer", "number" or
	// "boolean".
	Type string `json:"type"`

	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Definition declares one callable function: its name, description and
// argument schema. The same definitions are exposed to the LLM as tools and
// used for argument validation before dispatch.
type Definition struct {
	Name        string
	Description string
	Properties  map[string]Property
	Required    []string
}

// ParametersSchema renders the JSON-schema object for the LLM tool
// declaration.
func (d Definition) ParametersSchema() map[string]any {
	props := make(map[string]any, len(d.Properties))
	for name, p := range d.Properties {
		schema := map[string]any{"type": p.Type}
		if p.Description != "" {
			schema["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			schema["enum"] = p.Enum
		}
		props[name] = schema
	}
	required := d.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// validate checks args against the schema: every required argument present,
// every supplied argument of the declared type. Enum membership is checked
// for string arguments.
func (d Definition) validate(args map[string]any) error {
	for _, name := range d.Required {
		v, ok := args[name]
		if !ok || v == nil {
			return fmt.Errorf("missing required argument %q", name)
		}
		if s, isString := v.(string); isString && s == "" {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	for name, v := range args {
		p, ok := d.Properties[name]
		if !ok {
			continue // tolerate extra arguments from the LLM
		}
		if v == nil {
			continue
		}
		switch p.Type {
		case "string":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("argument %q must be a string", name)
			}
			if len(p.Enum) > 0 && !contains(p.Enum, s) {
				return fmt.Errorf("argument %q must be one of %v", name, p.Enum)
			}
		case "integer", "number":
			switch v.(type) {
			case float64, int, int64:
			default:
				return fmt.Errorf("argument %q must be a number", name)
			}
		case "boolean":
			if _, ok := v.(bool); !ok {
				return fmt.Errorf("argument %q must be a boolean", name)
			}
		}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Function names recognised by the dispatcher.
const (
	FnCheckAvailability       = "check_availability"
	FnGetReservation          = "get_reservation"
	FnCreateReservation       = "create_reservation"
	FnModifyReservation       = "modify_reservation"
	FnCancelReservation       = "cancel_reservation"
	FnGetUpsellOffers         = "get_upsell_offers"
	FnProcessUpsell           = "process_upsell"
	FnBookRestaurantTable     = "book_restaurant_table"
	FnBookSpaTreatment        = "book_spa_treatment"
	FnOrderRoomService        = "order_room_service"
	FnListConciergeServices   = "list_concierge_services"
	FnArrangeConciergeService = "arrange_concierge_service"
	FnHandleComplaint         = "handle_complaint"
	FnTransferToOperator      = "transfer_to_operator"
	FnGetHotelInfo            = "get_hotel_info"
	FnGetRatesAndPackages     = "get_rates_and_packages"
)

// definitions is the full function catalogue, keyed by name.
var definitions = map[string]Definition{
	FnCheckAvailability: {
		Name:        FnCheckAvailability,
		Description: "Check room availability for a stay window.",
		Properties: map[string]Property{
			"check_in_date":  {Type: "string", Description: "Arrival date, YYYY-MM-DD or DD/MM"},
			"check_out_date": {Type: "string", Description: "Departure date, YYYY-MM-DD or DD/MM"},
			"guest_count":    {Type: "integer", Description: "Number of guests"},
			"room_type":      {Type: "string", Description: "Preferred room category, optional"},
		},
		Required: []string{"check_in_date", "check_out_date", "guest_count"},
	},
	FnGetReservation: {
		Name:        FnGetReservation,
		Description: "Look up an existing reservation by confirmation number.",
		Properties: map[string]Property{
			"confirmation_number": {Type: "string", Description: "PMS confirmation number"},
		},
		Required: []string{"confirmation_number"},
	},
	FnCreateReservation: {
		Name:        FnCreateReservation,
		Description: "Create a new room reservation. Supply a payment token to book and charge in one step.",
		Properties: map[string]Property{
			"check_in_date":    {Type: "string"},
			"check_out_date":   {Type: "string"},
			"guest_count":      {Type: "integer"},
			"room_type":        {Type: "string"},
			"guest_first_name": {Type: "string"},
			"guest_last_name":  {Type: "string"},
			"guest_email":      {Type: "string"},
			"guest_phone":      {Type: "string"},
			"special_requests": {Type: "string"},
			"payment_token":    {Type: "string", Description: "Tokenised payment instrument, optional"},
			"payment_amount":   {Type: "number"},
			"payment_currency": {Type: "string"},
		},
		Required: []string{"check_in_date", "check_out_date", "guest_count", "guest_last_name"},
	},
	FnModifyReservation: {
		Name:        FnModifyReservation,
		Description: "Modify an existing reservation (dates, room type, guest count).",
		Properties: map[string]Property{
			"confirmation_number": {Type: "string"},
			"new_check_in":        {Type: "string"},
			"new_check_out":       {Type: "string"},
			"new_room_type":       {Type: "string"},
			"new_guest_count":     {Type: "integer"},
		},
		Required: []string{"confirmation_number"},
	},
	FnCancelReservation: {
		Name:        FnCancelReservation,
		Description: "Cancel an existing reservation.",
		Properties: map[string]Property{
			"confirmation_number": {Type: "string"},
			"cancellation_reason": {Type: "string"},
		},
		Required: []string{"confirmation_number"},
	},
	FnGetUpsellOffers: {
		Name:        FnGetUpsellOffers,
		Description: "List upgrade offers available for an existing reservation.",
		Properties: map[string]Property{
			"confirmation_number": {Type: "string"},
		},
		Required: []string{"confirmation_number"},
	},
	FnProcessUpsell: {
		Name:        FnProcessUpsell,
		Description: "Apply an accepted upgrade offer to a reservation.",
		Properties: map[string]Property{
			"confirmation_number": {Type: "string"},
			"upgrade_room_type":   {Type: "string"},
		},
		Required: []string{"confirmation_number", "upgrade_room_type"},
	},
	FnBookRestaurantTable: {
		Name:        FnBookRestaurantTable,
		Description: "Reserve a table at the hotel restaurant.",
		Properties: map[string]Property{
			"date":               {Type: "string"},
			"time":               {Type: "string"},
			"party_size":         {Type: "integer"},
			"seating_preference": {Type: "string"},
			"special_requests":   {Type: "string"},
		},
		Required: []string{"date", "time", "party_size"},
	},
	FnBookSpaTreatment: {
		Name:        FnBookSpaTreatment,
		Description: "Book a spa treatment.",
		Properties: map[string]Property{
			"service_type": {Type: "string", Enum: []string{"massage", "facial", "sauna", "manicure", "body_wrap"}},
			"date":         {Type: "string"},
			"time":         {Type: "string"},
			"duration":     {Type: "string"},
		},
		Required: []string{"service_type", "date", "time"},
	},
	FnOrderRoomService: {
		Name:        FnOrderRoomService,
		Description: "Place a room service order.",
		Properties: map[string]Property{
			"room_number":   {Type: "string"},
			"items":         {Type: "string", Description: "Comma-separated order items"},
			"delivery_time": {Type: "string"},
		},
		Required: []string{"room_number"},
	},
	FnListConciergeServices: {
		Name:        FnListConciergeServices,
		Description: "List the concierge services the hotel can arrange.",
		Properties:  map[string]Property{},
	},
	FnArrangeConciergeService: {
		Name:        FnArrangeConciergeService,
		Description: "Arrange a concierge service (taxi, transfer, tour, tickets).",
		Properties: map[string]Property{
			"service_type": {Type: "string"},
			"date":         {Type: "string"},
			"time":         {Type: "string"},
			"details":      {Type: "string"},
		},
		Required: []string{"service_type"},
	},
	FnHandleComplaint: {
		Name:        FnHandleComplaint,
		Description: "Record a guest complaint and open a follow-up ticket.",
		Properties: map[string]Property{
			"complaint_details": {Type: "string"},
			"room_number":       {Type: "string"},
			"severity":          {Type: "string", Enum: []string{"low", "medium", "high"}},
		},
		Required: []string{"complaint_details"},
	},
	FnTransferToOperator: {
		Name:        FnTransferToOperator,
		Description: "Transfer the caller to a human operator.",
		Properties: map[string]Property{
			"reason": {Type: "string"},
		},
	},
	FnGetHotelInfo: {
		Name:        FnGetHotelInfo,
		Description: "Retrieve general hotel information: address, hours, amenities.",
		Properties: map[string]Property{
			"topic": {Type: "string", Description: "Optional topic filter, e.g. amenities or check_in"},
		},
	},
	FnGetRatesAndPackages: {
		Name:        FnGetRatesAndPackages,
		Description: "Retrieve current room rates and package deals for a stay window.",
		Properties: map[string]Property{
			"check_in_date":  {Type: "string"},
			"check_out_date": {Type: "string"},
			"room_type":      {Type: "string"},
		},
		Required: []string{"check_in_date", "check_out_date"},
	},
}

// Definitions returns the full function catalogue in stable name order, for
// exposure to the LLM as tool declarations.
func Definitions() []Definition {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, definitions[name])
	}
	return defs
}
