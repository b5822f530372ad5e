package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicehive/voicehive/internal/pms"
	"github.com/voicehive/voicehive/internal/resilience"
)

// DefaultPMSTimeout bounds one PMS call.
const DefaultPMSTimeout = 30 * time.Second

// conciergeOfferings is the static concierge catalogue.
var conciergeOfferings = []string{
	"taxi", "airport transfer", "city tour", "event tickets",
	"restaurant recommendation", "luggage assistance",
}

// upgradePath maps each room category to its next-better one for upsell
// offers.
var upgradePath = map[string]string{
	"single":       "double",
	"twin":         "double",
	"double":       "deluxe",
	"standard":     "deluxe",
	"family":       "junior_suite",
	"deluxe":       "junior_suite",
	"junior_suite": "suite",
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithHotelInfo installs the static hotel descriptors, keyed by hotel id.
func WithHotelInfo(info map[string]HotelInfo) Option {
	return func(d *Dispatcher) {
		d.info = info
	}
}

// WithPMSTimeout overrides the per-call PMS timeout. The default is 30 s.
func WithPMSTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithBreakerConfig overrides the per-hotel circuit breaker tuning.
func WithBreakerConfig(cfg resilience.CircuitBreakerConfig) Option {
	return func(d *Dispatcher) {
		d.breakerCfg = cfg
	}
}

// Dispatcher executes LLM-requested functions. Safe for concurrent use.
type Dispatcher struct {
	factory    *pms.Factory
	logger     *slog.Logger
	info       map[string]HotelInfo
	timeout    time.Duration
	breakerCfg resilience.CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// NewDispatcher creates a dispatcher over the connector factory.
func NewDispatcher(factory *pms.Factory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		factory:  factory,
		logger:   slog.Default(),
		info:     map[string]HotelInfo{},
		timeout:  DefaultPMSTimeout,
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Execute runs the named function with the given arguments in the context of
// call. It never returns an error: every failure mode is a Result with
// Success=false so the LLM Coordinator can surface it in a follow-up message.
func (d *Dispatcher) Execute(ctx context.Context, call CallContext, name string, args map[string]any) Result {
	start := time.Now()
	fail := func(msg string) Result {
		return Result{Success: false, Error: msg, ExecutionTimeMS: time.Since(start).Milliseconds()}
	}

	def, ok := definitions[name]
	if !ok {
		d.logger.Warn("unknown function requested", "function", name, "call_id", call.CallID())
		return fail("Unknown function: " + name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := def.validate(args); err != nil {
		return fail(err.Error())
	}

	result, err := d.dispatch(ctx, call, name, args)
	elapsed := time.Since(start)
	if err != nil {
		d.logger.Warn("function failed",
			"function", name, "call_id", call.CallID(),
			"duration_ms", elapsed.Milliseconds(), "error", err)
		return fail(userFacingError(err))
	}

	d.logger.Debug("function executed",
		"function", name, "call_id", call.CallID(),
		"duration_ms", elapsed.Milliseconds())
	return Result{Result: result, Success: true, ExecutionTimeMS: elapsed.Milliseconds()}
}

func (d *Dispatcher) dispatch(ctx context.Context, call CallContext, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case FnCheckAvailability:
		return d.checkAvailability(ctx, call, args)
	case FnGetReservation:
		return d.getReservation(ctx, call, args)
	case FnCreateReservation:
		return d.createReservation(ctx, call, args)
	case FnModifyReservation:
		return d.modifyReservation(ctx, call, args)
	case FnCancelReservation:
		return d.cancelReservation(ctx, call, args)
	case FnGetUpsellOffers:
		return d.getUpsellOffers(ctx, call, args)
	case FnProcessUpsell:
		return d.processUpsell(ctx, call, args)
	case FnBookRestaurantTable:
		return d.bookRestaurantTable(call, args)
	case FnBookSpaTreatment:
		return d.bookSpaTreatment(call, args)
	case FnOrderRoomService:
		return d.orderRoomService(call, args)
	case FnListConciergeServices:
		return d.listConciergeServices(call)
	case FnArrangeConciergeService:
		return d.arrangeConciergeService(call, args)
	case FnHandleComplaint:
		return d.handleComplaint(call, args)
	case FnTransferToOperator:
		return d.transferToOperator(call, args)
	case FnGetHotelInfo:
		return d.getHotelInfo(call, args)
	case FnGetRatesAndPackages:
		return d.getRatesAndPackages(ctx, call, args)
	}
	return nil, fmt.Errorf("tools: function %q declared but not dispatched", name)
}

// withConnector resolves the hotel's connector and runs fn under the hotel's
// circuit breaker with the PMS timeout applied.
func (d *Dispatcher) withConnector(ctx context.Context, call CallContext, fn func(ctx context.Context, c pms.Connector) error) error {
	conn, err := d.factory.Connector(call.HotelID())
	if err != nil {
		return err
	}

	breaker := d.breakerFor(call.HotelID())
	return breaker.Execute(func() error {
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		return fn(cctx, conn)
	})
}

func (d *Dispatcher) breakerFor(hotelID string) *resilience.CircuitBreaker {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.breakers[hotelID]; ok {
		return b
	}
	cfg := d.breakerCfg
	cfg.Name = "pms:" + hotelID
	b := resilience.NewCircuitBreaker(cfg)
	d.breakers[hotelID] = b
	return b
}

// ---- PMS-backed functions ----

func (d *Dispatcher) checkAvailability(ctx context.Context, call CallContext, args map[string]any) (map[string]any, error) {
	var offers []pms.RoomOffer
	err := d.withConnector(ctx, call, func(ctx context.Context, c pms.Connector) error {
		var err error
		offers, err = c.GetAvailability(ctx, pms.AvailabilityQuery{
			CheckIn:  argString(args, "check_in_date"),
			CheckOut: argString(args, "check_out_date"),
			Guests:   argInt(args, "guest_count"),
			RoomType: argString(args, "room_type"),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"available": len(offers) > 0,
		"offers":    offers,
	}, nil
}

func (d *Dispatcher) getReservation(ctx context.Context, call CallContext, args map[string]any) (map[string]any, error) {
	var res *pms.Reservation
	err := d.withConnector(ctx, call, func(ctx context.Context, c pms.Connector) error {
		var err error
		res, err = c.GetReservation(ctx, argString(args, "confirmation_number"))
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"reservation": res}, nil
}

func (d *Dispatcher) createReservation(ctx context.Context, call CallContext, args map[string]any) (map[string]any, error) {
	req := pms.ReservationRequest{
		HotelID: call.HotelID(),
		Guest: pms.GuestProfile{
			FirstName: argString(args, "guest_first_name"),
			LastName:  argString(args, "guest_last_name"),
			Email:     argString(args, "guest_email"),
			Phone:     argString(args, "guest_phone"),
		},
		RoomType:        argString(args, "room_type"),
		CheckIn:         argString(args, "check_in_date"),
		CheckOut:        argString(args, "check_out_date"),
		Guests:          argInt(args, "guest_count"),
		SpecialRequests: argString(args, "special_requests"),
	}

	token := argString(args, "payment_token")
	var res *pms.Reservation
	err := d.withConnector(ctx, call, func(ctx context.Context, c pms.Connector) error {
		var err error
		if token != "" {
			res, err = c.CreateBookingWithPayment(ctx, pms.PaymentBookingRequest{
				Reservation: req,
				Payment: pms.PaymentDetails{
					Token:    token,
					Method:   "card",
					Amount:   argFloat(args, "payment_amount"),
					Currency: argString(args, "payment_currency"),
				},
			})
			if errors.Is(err, pms.ErrPaymentUnsupported) {
				token = ""
				res, err = c.CreateReservation(ctx, req)
			}
			return err
		}
		res, err = c.CreateReservation(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"reservation":       res,
		"payment_processed": token != "",
	}, nil
}

func (d *Dispatcher) modifyReservation(ctx context.Context, call CallContext, args map[string]any) (map[string]any, error) {
	changes := pms.ReservationChanges{}
	if v := argString(args, "new_check_in"); v != "" {
		changes.CheckIn = &v
	}
	if v := argString(args, "new_check_out"); v != "" {
		changes.CheckOut = &v
	}
	if v := argString(args, "new_room_type"); v != "" {
		changes.RoomType = &v
	}
	if v := argInt(args, "new_guest_count"); v > 0 {
		changes.Guests = &v
	}

	var res *pms.Reservation
	err := d.withConnector(ctx, call, func(ctx context.Context, c pms.Connector) error {
		var err error
		res, err = c.ModifyReservation(ctx, argString(args, "confirmation_number"), changes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"reservation": res}, nil
}

func (d *Dispatcher) cancelReservation(ctx context.Context, call CallContext, args map[string]any) (map[string]any, error) {
	var cancellation *pms.Cancellation
	err := d.withConnector(ctx, call, func(ctx context.Context, c pms.Connector) error {
		var err error
		cancellation, err = c.CancelReservation(ctx,
			argString(args, "confirmation_number"),
			argString(args, "cancellation_reason"))
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"cancellation": cancellation}, nil
}

func (d *Dispatcher) getUpsellOffers(ctx context.Context, call CallContext, args map[string]any) (map[string]any, error) {
	var res *pms.Reservation
	err := d.withConnector(ctx, call, func(ctx context.Context, c pms.Connector) error {
		var err error
		res, err = c.GetReservation(ctx, argString(args, "confirmation_number"))
		return err
	})
	if err != nil {
		return nil, err
	}

	current := strings.ToLower(strings.ReplaceAll(res.RoomType, " ", "_"))
	upgrade, ok := upgradePath[current]
	if !ok {
		return map[string]any{"offers": []any{}}, nil
	}

	call.RecordUpsell(fmt.Sprintf("offered:%s->%s", current, upgrade))
	return map[string]any{
		"offers": []map[string]any{{
			"from_room_type": current,
			"to_room_type":   upgrade,
			"description":    fmt.Sprintf("Upgrade from %s to %s", current, upgrade),
		}},
	}, nil
}

func (d *Dispatcher) processUpsell(ctx context.Context, call CallContext, args map[string]any) (map[string]any, error) {
	upgrade := argString(args, "upgrade_room_type")
	var res *pms.Reservation
	err := d.withConnector(ctx, call, func(ctx context.Context, c pms.Connector) error {
		var err error
		res, err = c.ModifyReservation(ctx, argString(args, "confirmation_number"),
			pms.ReservationChanges{RoomType: &upgrade})
		return err
	})
	if err != nil {
		return nil, err
	}

	call.RecordUpsell("accepted:" + upgrade)
	return map[string]any{
		"reservation": res,
		"upgraded_to": upgrade,
	}, nil
}

func (d *Dispatcher) getRatesAndPackages(ctx context.Context, call CallContext, args map[string]any) (map[string]any, error) {
	var offers []pms.RoomOffer
	err := d.withConnector(ctx, call, func(ctx context.Context, c pms.Connector) error {
		var err error
		offers, err = c.GetAvailability(ctx, pms.AvailabilityQuery{
			CheckIn:  argString(args, "check_in_date"),
			CheckOut: argString(args, "check_out_date"),
			RoomType: argString(args, "room_type"),
			Guests:   2,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"rates": offers,
		"packages": []map[string]any{
			{"name": "bed_and_breakfast", "description": "Room with breakfast included"},
			{"name": "romantic_getaway", "description": "Room, sparkling wine and late checkout"},
			{"name": "spa_retreat", "description": "Room with one spa treatment per guest"},
		},
	}, nil
}

// ---- In-memory helpers ----

func (d *Dispatcher) bookRestaurantTable(call CallContext, args map[string]any) (map[string]any, error) {
	return map[string]any{
		"confirmation_id": reference("RST"),
		"date":            argString(args, "date"),
		"time":            argString(args, "time"),
		"party_size":      argInt(args, "party_size"),
		"status":          "confirmed",
	}, nil
}

func (d *Dispatcher) bookSpaTreatment(call CallContext, args map[string]any) (map[string]any, error) {
	return map[string]any{
		"confirmation_id": reference("SPA"),
		"service_type":    argString(args, "service_type"),
		"date":            argString(args, "date"),
		"time":            argString(args, "time"),
		"status":          "confirmed",
	}, nil
}

func (d *Dispatcher) orderRoomService(call CallContext, args map[string]any) (map[string]any, error) {
	var items []string
	for _, item := range strings.Split(argString(args, "items"), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return map[string]any{
		"order_id":      reference("RS"),
		"room_number":   argString(args, "room_number"),
		"items":         items,
		"delivery_time": argString(args, "delivery_time"),
		"status":        "ordered",
	}, nil
}

func (d *Dispatcher) listConciergeServices(call CallContext) (map[string]any, error) {
	return map[string]any{"services": conciergeOfferings}, nil
}

func (d *Dispatcher) arrangeConciergeService(call CallContext, args map[string]any) (map[string]any, error) {
	return map[string]any{
		"request_id":   reference("CON"),
		"service_type": argString(args, "service_type"),
		"date":         argString(args, "date"),
		"time":         argString(args, "time"),
		"status":       "arranged",
	}, nil
}

func (d *Dispatcher) handleComplaint(call CallContext, args map[string]any) (map[string]any, error) {
	details := argString(args, "complaint_details")
	call.AddEscalationReason("complaint: " + truncate(details, 120))

	severity := argString(args, "severity")
	if severity == "" {
		severity = "medium"
	}
	return map[string]any{
		"ticket_id": reference("TCK"),
		"severity":  severity,
		"status":    "recorded",
	}, nil
}

func (d *Dispatcher) transferToOperator(call CallContext, args map[string]any) (map[string]any, error) {
	reason := argString(args, "reason")
	if reason == "" {
		reason = "caller requested human operator"
	}
	call.AddEscalationReason("transfer requested: " + truncate(reason, 120))

	info := d.info[call.HotelID()]
	return map[string]any{
		"status":          "transfer_initiated",
		"operator_number": info.OperatorNumber,
	}, nil
}

func (d *Dispatcher) getHotelInfo(call CallContext, args map[string]any) (map[string]any, error) {
	info, ok := d.info[call.HotelID()]
	if !ok {
		return nil, fmt.Errorf("tools: no hotel info for %q", call.HotelID())
	}

	switch argString(args, "topic") {
	case "amenities":
		return map[string]any{"name": info.Name, "amenities": info.Amenities}, nil
	case "check_in", "check_out", "hours":
		return map[string]any{
			"name":           info.Name,
			"check_in_time":  info.CheckInTime,
			"check_out_time": info.CheckOutTime,
		}, nil
	}
	return map[string]any{
		"name":           info.Name,
		"address":        info.Address,
		"phone":          info.Phone,
		"check_in_time":  info.CheckInTime,
		"check_out_time": info.CheckOutTime,
		"amenities":      info.Amenities,
	}, nil
}

// ---- helpers ----

// userFacingError rewrites internal errors into messages safe to hand the
// LLM.
func userFacingError(err error) string {
	switch {
	case errors.Is(err, pms.ErrNotFound):
		return "Reservation not found. Please verify the confirmation number."
	case errors.Is(err, pms.ErrUnknownHotel):
		return "This hotel is not connected to the booking system."
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "The booking system is temporarily unavailable. Please try again shortly."
	case errors.Is(err, context.DeadlineExceeded):
		return "The booking system did not respond in time."
	}
	return err.Error()
}

func reference(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func argString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func argInt(args map[string]any, name string) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func argFloat(args map[string]any, name string) float64 {
	switch v := args[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
