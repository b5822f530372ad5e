// Package apaleo provides an Apaleo-backed PMS connector speaking the Apaleo
// REST API. It implements the pms.Connector interface.
//
// One connector instance serves one Apaleo property; the property identifier
// is fixed at construction and injected into every request. Authentication is
// a bearer token supplied by the caller (token refresh happens outside this
// package so the connector can share a process-wide token source).
//
// Typical usage:
//
//	c := apaleo.New("https://api.apaleo.com", "BER01",
//	    apaleo.WithTokenSource(tokens.Bearer),
//	    apaleo.WithHTTPClient(sharedClient),
//	)
//	offers, err := c.GetAvailability(ctx, q)
package apaleo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/voicehive/voicehive/internal/pms"
)

// Compile-time interface assertion.
var _ pms.Connector = (*Connector)(nil)

const (
	defaultTimeout = 30 * time.Second

	availabilityEndpoint = "/availability/v1/unit-groups"
	reservationsEndpoint = "/booking/v1/reservations"
	guestsEndpoint       = "/booking/v1/guests"
	healthEndpoint       = "/v1/health"
)

// Option is a functional option for configuring a Connector.
type Option func(*Connector)

// WithHTTPClient replaces the HTTP client. Use this to share one pooled
// client across connectors.
func WithHTTPClient(c *http.Client) Option {
	return func(conn *Connector) {
		conn.httpClient = c
	}
}

// WithTimeout sets the per-request timeout. Defaults to 30 s. Ignored when
// WithHTTPClient supplies a client with its own timeout.
func WithTimeout(d time.Duration) Option {
	return func(conn *Connector) {
		conn.httpClient.Timeout = d
	}
}

// WithTokenSource sets the function producing the bearer token for each
// request. Defaults to an empty token (anonymous), which Apaleo rejects.
func WithTokenSource(fn func() string) Option {
	return func(conn *Connector) {
		conn.token = fn
	}
}

// Connector talks to the Apaleo REST API for a single property.
type Connector struct {
	baseURL    string
	propertyID string
	httpClient *http.Client
	token      func() string
}

// New creates an Apaleo connector for the property.
func New(baseURL, propertyID string, opts ...Option) *Connector {
	c := &Connector{
		baseURL:    baseURL,
		propertyID: propertyID,
		httpClient: &http.Client{Timeout: defaultTimeout},
		token:      func() string { return "" },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetAvailability implements pms.Connector.
func (c *Connector) GetAvailability(ctx context.Context, q pms.AvailabilityQuery) ([]pms.RoomOffer, error) {
	params := url.Values{}
	params.Set("propertyId", c.propertyID)
	params.Set("from", q.CheckIn)
	params.Set("to", q.CheckOut)
	params.Set("adults", strconv.Itoa(q.Guests))
	if q.RoomType != "" {
		params.Set("unitGroupTypes", q.RoomType)
	}

	var body struct {
		UnitGroups []struct {
			UnitGroup struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"unitGroup"`
			AvailableCount int `json:"availableCount"`
			Offer          struct {
				RatePlan string  `json:"ratePlanCode"`
				Amount   float64 `json:"grossAmount"`
				Currency string  `json:"currency"`
			} `json:"offer"`
		} `json:"unitGroups"`
	}
	if err := c.do(ctx, http.MethodGet, availabilityEndpoint+"?"+params.Encode(), nil, &body); err != nil {
		return nil, fmt.Errorf("apaleo: availability: %w", err)
	}

	offers := make([]pms.RoomOffer, 0, len(body.UnitGroups))
	for _, ug := range body.UnitGroups {
		offers = append(offers, pms.RoomOffer{
			RoomType:      ug.UnitGroup.Code,
			Description:   ug.UnitGroup.Description,
			RatePlan:      ug.Offer.RatePlan,
			PricePerNight: ug.Offer.Amount,
			Currency:      ug.Offer.Currency,
			Available:     ug.AvailableCount,
		})
	}
	return offers, nil
}

// GetReservation implements pms.Connector.
func (c *Connector) GetReservation(ctx context.Context, confirmationNumber string) (*pms.Reservation, error) {
	var res apaleoReservation
	err := c.do(ctx, http.MethodGet, reservationsEndpoint+"/"+url.PathEscape(confirmationNumber), nil, &res)
	if err != nil {
		return nil, fmt.Errorf("apaleo: get reservation %s: %w", confirmationNumber, err)
	}
	return res.toDomain(c.propertyID), nil
}

// CreateReservation implements pms.Connector.
func (c *Connector) CreateReservation(ctx context.Context, req pms.ReservationRequest) (*pms.Reservation, error) {
	payload := map[string]any{
		"propertyId":    c.propertyID,
		"arrival":       req.CheckIn,
		"departure":     req.CheckOut,
		"adults":        req.Guests,
		"unitGroupCode": req.RoomType,
		"ratePlanCode":  req.RatePlan,
		"comment":       req.SpecialRequests,
		"primaryGuest": map[string]string{
			"firstName": req.Guest.FirstName,
			"lastName":  req.Guest.LastName,
			"email":     req.Guest.Email,
			"phone":     req.Guest.Phone,
		},
	}

	var res apaleoReservation
	if err := c.do(ctx, http.MethodPost, reservationsEndpoint, payload, &res); err != nil {
		return nil, fmt.Errorf("apaleo: create reservation: %w", err)
	}
	return res.toDomain(c.propertyID), nil
}

// ModifyReservation implements pms.Connector.
func (c *Connector) ModifyReservation(ctx context.Context, confirmationNumber string, changes pms.ReservationChanges) (*pms.Reservation, error) {
	// Apaleo patches are JSON merge style: only the supplied fields change.
	patch := map[string]any{}
	if changes.CheckIn != nil {
		patch["arrival"] = *changes.CheckIn
	}
	if changes.CheckOut != nil {
		patch["departure"] = *changes.CheckOut
	}
	if changes.RoomType != nil {
		patch["unitGroupCode"] = *changes.RoomType
	}
	if changes.Guests != nil {
		patch["adults"] = *changes.Guests
	}
	if changes.SpecialRequests != nil {
		patch["comment"] = *changes.SpecialRequests
	}

	path := reservationsEndpoint + "/" + url.PathEscape(confirmationNumber)
	if err := c.do(ctx, http.MethodPatch, path, patch, nil); err != nil {
		return nil, fmt.Errorf("apaleo: modify reservation %s: %w", confirmationNumber, err)
	}
	return c.GetReservation(ctx, confirmationNumber)
}

// CancelReservation implements pms.Connector.
func (c *Connector) CancelReservation(ctx context.Context, confirmationNumber, reason string) (*pms.Cancellation, error) {
	path := reservationsEndpoint + "/" + url.PathEscape(confirmationNumber) + "/cancel"
	payload := map[string]string{"reason": reason}

	var body struct {
		CancellationFee struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"cancellationFee"`
	}
	if err := c.do(ctx, http.MethodPut, path, payload, &body); err != nil {
		return nil, fmt.Errorf("apaleo: cancel reservation %s: %w", confirmationNumber, err)
	}

	return &pms.Cancellation{
		ConfirmationNumber: confirmationNumber,
		CancelledAt:        time.Now().UTC(),
		FeeAmount:          body.CancellationFee.Amount,
		Currency:           body.CancellationFee.Currency,
	}, nil
}

// SearchGuest implements pms.Connector.
func (c *Connector) SearchGuest(ctx context.Context, q pms.GuestQuery) ([]pms.GuestProfile, error) {
	params := url.Values{}
	if q.LastName != "" {
		params.Set("textSearch", q.LastName)
	}
	if q.Email != "" {
		params.Set("email", q.Email)
	}
	if q.Phone != "" {
		params.Set("phone", q.Phone)
	}

	var body struct {
		Guests []struct {
			ID        string `json:"id"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Email     string `json:"email"`
			Phone     string `json:"phone"`
		} `json:"guests"`
	}
	if err := c.do(ctx, http.MethodGet, guestsEndpoint+"?"+params.Encode(), nil, &body); err != nil {
		return nil, fmt.Errorf("apaleo: search guest: %w", err)
	}

	guests := make([]pms.GuestProfile, 0, len(body.Guests))
	for _, g := range body.Guests {
		guests = append(guests, pms.GuestProfile{
			ID: g.ID, FirstName: g.FirstName, LastName: g.LastName,
			Email: g.Email, Phone: g.Phone,
		})
	}
	return guests, nil
}

// CreateBookingWithPayment implements pms.Connector. Apaleo takes payment via
// a folio charge attached to the booking request.
func (c *Connector) CreateBookingWithPayment(ctx context.Context, req pms.PaymentBookingRequest) (*pms.Reservation, error) {
	if req.Payment.Token == "" {
		return nil, pms.ErrPaymentUnsupported
	}

	payload := map[string]any{
		"propertyId":    c.propertyID,
		"arrival":       req.Reservation.CheckIn,
		"departure":     req.Reservation.CheckOut,
		"adults":        req.Reservation.Guests,
		"unitGroupCode": req.Reservation.RoomType,
		"primaryGuest": map[string]string{
			"firstName": req.Reservation.Guest.FirstName,
			"lastName":  req.Reservation.Guest.LastName,
			"email":     req.Reservation.Guest.Email,
		},
		"payment": map[string]any{
			"token":    req.Payment.Token,
			"method":   req.Payment.Method,
			"amount":   req.Payment.Amount,
			"currency": req.Payment.Currency,
		},
	}

	var res apaleoReservation
	if err := c.do(ctx, http.MethodPost, reservationsEndpoint+"?payment=true", payload, &res); err != nil {
		return nil, fmt.Errorf("apaleo: create booking with payment: %w", err)
	}
	return res.toDomain(c.propertyID), nil
}

// Health implements pms.Connector.
func (c *Connector) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, healthEndpoint, nil, nil); err != nil {
		return fmt.Errorf("apaleo: health: %w", err)
	}
	return nil
}

// do issues one API request. A non-nil in is JSON-encoded as the body; a
// non-nil out receives the decoded response. 404 maps to pms.ErrNotFound.
func (c *Connector) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pms.ErrNotFound
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apaleoReservation is the wire shape of a reservation.
type apaleoReservation struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Arrival   string `json:"arrival"`
	Departure string `json:"departure"`
	Adults    int    `json:"adults"`
	Comment   string `json:"comment"`
	UnitGroup struct {
		Code string `json:"code"`
	} `json:"unitGroup"`
	TotalGrossAmount struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"totalGrossAmount"`
	PrimaryGuest struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"primaryGuest"`
	Created time.Time `json:"created"`
}

func (r *apaleoReservation) toDomain(hotelID string) *pms.Reservation {
	return &pms.Reservation{
		ConfirmationNumber: r.ID,
		HotelID:            hotelID,
		Guest: pms.GuestProfile{
			ID:        r.PrimaryGuest.ID,
			FirstName: r.PrimaryGuest.FirstName,
			LastName:  r.PrimaryGuest.LastName,
			Email:     r.PrimaryGuest.Email,
			Phone:     r.PrimaryGuest.Phone,
		},
		RoomType:        r.UnitGroup.Code,
		CheckIn:         r.Arrival,
		CheckOut:        r.Departure,
		Guests:          r.Adults,
		Status:          r.Status,
		TotalPrice:      r.TotalGrossAmount.Amount,
		Currency:        r.TotalGrossAmount.Currency,
		SpecialRequests: r.Comment,
		CreatedAt:       r.Created,
	}
}
