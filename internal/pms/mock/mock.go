// Package mock provides a test double for the pms.Connector interface.
//
// Use Connector in unit tests to feed controlled PMS responses without a live
// backend. Zero values for response fields cause methods to return sensible
// canned data; set Err fields to inject failures.
//
// Example:
//
//	c := &mock.Connector{
//	    Reservation: &pms.Reservation{ConfirmationNumber: "ABC123"},
//	}
//	factory.Register("hotel-1", c)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voicehive/voicehive/internal/pms"
)

// Compile-time interface assertion.
var _ pms.Connector = (*Connector)(nil)

// Call records a single connector invocation.
type Call struct {
	// Method is the connector method name.
	Method string
	// Args holds the method arguments in declaration order, excluding ctx.
	Args []any
}

// Connector is a mock implementation of pms.Connector.
type Connector struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Offers is returned by GetAvailability. Nil yields one canned offer.
	Offers []pms.RoomOffer

	// Reservation is returned by GetReservation, CreateReservation,
	// ModifyReservation and CreateBookingWithPayment. Nil yields a canned
	// reservation echoing the request.
	Reservation *pms.Reservation

	// Cancellation is returned by CancelReservation. Nil yields a canned
	// fee-free cancellation.
	Cancellation *pms.Cancellation

	// Guests is returned by SearchGuest.
	Guests []pms.GuestProfile

	// Err, if non-nil, is returned by every method.
	Err error

	// HealthErr, if non-nil, is returned by Health (Err takes precedence).
	HealthErr error

	// --- Call records (read after test) ---

	// Calls records every invocation in order.
	Calls []Call
}

func (c *Connector) record(method string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, Call{Method: method, Args: args})
}

// CallNames returns the recorded method names in order.
func (c *Connector) CallNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.Calls))
	for i, call := range c.Calls {
		names[i] = call.Method
	}
	return names
}

// GetAvailability implements pms.Connector.
func (c *Connector) GetAvailability(_ context.Context, q pms.AvailabilityQuery) ([]pms.RoomOffer, error) {
	c.record("GetAvailability", q)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Offers != nil {
		return c.Offers, nil
	}
	return []pms.RoomOffer{{
		RoomType: "deluxe", PricePerNight: 189, Currency: "EUR", Available: 3,
	}}, nil
}

// GetReservation implements pms.Connector.
func (c *Connector) GetReservation(_ context.Context, confirmationNumber string) (*pms.Reservation, error) {
	c.record("GetReservation", confirmationNumber)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Reservation != nil {
		return c.Reservation, nil
	}
	return &pms.Reservation{
		ConfirmationNumber: confirmationNumber,
		RoomType:           "deluxe",
		CheckIn:            "2026-12-10",
		CheckOut:           "2026-12-12",
		Guests:             2,
		Status:             "Confirmed",
	}, nil
}

// CreateReservation implements pms.Connector.
func (c *Connector) CreateReservation(_ context.Context, req pms.ReservationRequest) (*pms.Reservation, error) {
	c.record("CreateReservation", req)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Reservation != nil {
		return c.Reservation, nil
	}
	return &pms.Reservation{
		ConfirmationNumber: "MOCK42X",
		HotelID:            req.HotelID,
		Guest:              req.Guest,
		RoomType:           req.RoomType,
		CheckIn:            req.CheckIn,
		CheckOut:           req.CheckOut,
		Guests:             req.Guests,
		Status:             "Confirmed",
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// ModifyReservation implements pms.Connector.
func (c *Connector) ModifyReservation(_ context.Context, confirmationNumber string, changes pms.ReservationChanges) (*pms.Reservation, error) {
	c.record("ModifyReservation", confirmationNumber, changes)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Reservation != nil {
		return c.Reservation, nil
	}
	res := &pms.Reservation{
		ConfirmationNumber: confirmationNumber,
		Status:             "Confirmed",
		RoomType:           "deluxe",
		CheckIn:            "2026-12-10",
		CheckOut:           "2026-12-12",
		Guests:             2,
	}
	if changes.CheckIn != nil {
		res.CheckIn = *changes.CheckIn
	}
	if changes.CheckOut != nil {
		res.CheckOut = *changes.CheckOut
	}
	if changes.RoomType != nil {
		res.RoomType = *changes.RoomType
	}
	if changes.Guests != nil {
		res.Guests = *changes.Guests
	}
	return res, nil
}

// CancelReservation implements pms.Connector.
func (c *Connector) CancelReservation(_ context.Context, confirmationNumber, reason string) (*pms.Cancellation, error) {
	c.record("CancelReservation", confirmationNumber, reason)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Cancellation != nil {
		return c.Cancellation, nil
	}
	return &pms.Cancellation{
		ConfirmationNumber: confirmationNumber,
		CancelledAt:        time.Now().UTC(),
	}, nil
}

// SearchGuest implements pms.Connector.
func (c *Connector) SearchGuest(_ context.Context, q pms.GuestQuery) ([]pms.GuestProfile, error) {
	c.record("SearchGuest", q)
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Guests, nil
}

// CreateBookingWithPayment implements pms.Connector.
func (c *Connector) CreateBookingWithPayment(_ context.Context, req pms.PaymentBookingRequest) (*pms.Reservation, error) {
	c.record("CreateBookingWithPayment", req)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Reservation != nil {
		return c.Reservation, nil
	}
	return &pms.Reservation{
		ConfirmationNumber: "MOCK42X",
		HotelID:            req.Reservation.HotelID,
		Guest:              req.Reservation.Guest,
		RoomType:           req.Reservation.RoomType,
		CheckIn:            req.Reservation.CheckIn,
		CheckOut:           req.Reservation.CheckOut,
		Guests:             req.Reservation.Guests,
		Status:             "Confirmed",
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// Health implements pms.Connector.
func (c *Connector) Health(_ context.Context) error {
	c.record("Health")
	if c.Err != nil {
		return c.Err
	}
	return c.HealthErr
}
