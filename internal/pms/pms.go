// Package pms defines the connector contract towards hotel Property
// Management Systems.
//
// A connector wraps one PMS backend (e.g. Apaleo) for one hotel and presents
// the uniform Connector interface. Connectors are resolved per hotel through
// a Factory keyed by hotel identifier. The Tool Dispatcher is the only caller
// in the hot path; every method takes a context and respects its deadline.
//
// Implementations must be safe for concurrent use.
package pms

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by connectors and the factory.
var (
	// ErrUnknownHotel means no connector is registered for the hotel.
	ErrUnknownHotel = errors.New("pms: unknown hotel")

	// ErrNotFound means the referenced reservation or guest does not exist.
	ErrNotFound = errors.New("pms: not found")

	// ErrPaymentUnsupported means the backend cannot take payment at booking
	// time; callers should fall back to CreateReservation.
	ErrPaymentUnsupported = errors.New("pms: payment-backed booking not supported")
)

// AvailabilityQuery asks for bookable rooms in a stay window. Dates are
// ISO 8601 (YYYY-MM-DD).
type AvailabilityQuery struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests"`

	// RoomType narrows the search to one category when non-empty.
	RoomType string `json:"room_type,omitempty"`
}

// RoomOffer is one bookable room category with its nightly rate.
type RoomOffer struct {
	RoomType      string  `json:"room_type"`
	Description   string  `json:"description,omitempty"`
	RatePlan      string  `json:"rate_plan,omitempty"`
	PricePerNight float64 `json:"price_per_night"`
	Currency      string  `json:"currency"`
	Available     int     `json:"available"`
}

// GuestProfile identifies a guest in the PMS.
type GuestProfile struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Reservation is the PMS view of a booking.
type Reservation struct {
	ConfirmationNumber string       `json:"confirmation_number"`
	HotelID            string       `json:"hotel_id"`
	Guest              GuestProfile `json:"guest"`
	RoomType           string       `json:"room_type"`
	CheckIn            string       `json:"check_in"`
	CheckOut           string       `json:"check_out"`
	Guests             int          `json:"guests"`
	Status             string       `json:"status"`
	TotalPrice         float64      `json:"total_price,omitempty"`
	Currency           string       `json:"currency,omitempty"`
	SpecialRequests    string       `json:"special_requests,omitempty"`
	CreatedAt          time.Time    `json:"created_at,omitempty"`
}

// ReservationRequest creates a new booking.
type ReservationRequest struct {
	HotelID         string       `json:"hotel_id"`
	Guest           GuestProfile `json:"guest"`
	RoomType        string       `json:"room_type"`
	CheckIn         string       `json:"check_in"`
	CheckOut        string       `json:"check_out"`
	Guests          int          `json:"guests"`
	RatePlan        string       `json:"rate_plan,omitempty"`
	SpecialRequests string       `json:"special_requests,omitempty"`
}

// ReservationChanges carries the fields to modify on an existing booking.
// Nil pointers leave the corresponding field untouched.
type ReservationChanges struct {
	CheckIn         *string `json:"check_in,omitempty"`
	CheckOut        *string `json:"check_out,omitempty"`
	RoomType        *string `json:"room_type,omitempty"`
	Guests          *int    `json:"guests,omitempty"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

// Cancellation is the outcome of cancelling a reservation.
type Cancellation struct {
	ConfirmationNumber string    `json:"confirmation_number"`
	CancelledAt        time.Time `json:"cancelled_at"`
	FeeAmount          float64   `json:"fee_amount"`
	Currency           string    `json:"currency,omitempty"`
	RefundDue          float64   `json:"refund_due,omitempty"`
}

// GuestQuery searches the guest directory. At least one field must be set.
type GuestQuery struct {
	LastName string `json:"last_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// PaymentDetails is a tokenised payment instrument. Raw card numbers never
// pass through this service.
type PaymentDetails struct {
	Token    string  `json:"token"`
	Method   string  `json:"method"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PaymentBookingRequest creates a booking and takes payment in one step.
type PaymentBookingRequest struct {
	Reservation ReservationRequest `json:"reservation"`
	Payment     PaymentDetails     `json:"payment"`
}

// Connector is the abstraction over any PMS backend for a single hotel.
//
// Implementations must be safe for concurrent use; the dispatcher issues
// calls for many concurrent sessions against the same connector.
type Connector interface {
	// GetAvailability returns the bookable room offers for the query window.
	// An empty slice with a nil error means fully booked.
	GetAvailability(ctx context.Context, q AvailabilityQuery) ([]RoomOffer, error)

	// GetReservation looks up a booking by confirmation number. Returns
	// ErrNotFound when no such booking exists.
	GetReservation(ctx context.Context, confirmationNumber string) (*Reservation, error)

	// CreateReservation books a room and returns the confirmed reservation
	// with its PMS-assigned confirmation number.
	CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error)

	// ModifyReservation applies the non-nil changes to an existing booking
	// and returns the updated reservation. Returns ErrNotFound when the
	// confirmation number is unknown.
	ModifyReservation(ctx context.Context, confirmationNumber string, changes ReservationChanges) (*Reservation, error)

	// CancelReservation cancels a booking, optionally recording a reason,
	// and returns the cancellation outcome including any fee.
	CancelReservation(ctx context.Context, confirmationNumber, reason string) (*Cancellation, error)

	// SearchGuest finds guest profiles matching the query.
	SearchGuest(ctx context.Context, q GuestQuery) ([]GuestProfile, error)

	// CreateBookingWithPayment books and charges in one step. Backends
	// without payment support return ErrPaymentUnsupported; callers fall
	// back to CreateReservation.
	CreateBookingWithPayment(ctx context.Context, req PaymentBookingRequest) (*Reservation, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error
}
