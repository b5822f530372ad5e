package tools_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/voicehive/voicehive/internal/pms"
	"github.com/voicehive/voicehive/internal/pms/mock"
	"github.com/voicehive/voicehive/internal/tools"
)

// fakeCall implements tools.CallContext for tests.
type fakeCall struct {
	mu          sync.Mutex
	hotelID     string
	escalations []string
	upsells     []string
}

func (f *fakeCall) CallID() string   { return "call-test-1" }
func (f *fakeCall) HotelID() string  { return f.hotelID }
func (f *fakeCall) Language() string { return "en" }

func (f *fakeCall) AddEscalationReason(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalations = append(f.escalations, reason)
}

func (f *fakeCall) RecordUpsell(offer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsells = append(f.upsells, offer)
}

func newDispatcher(t *testing.T, conn pms.Connector) (*tools.Dispatcher, *fakeCall) {
	t.Helper()
	f := pms.NewFactory()
	f.Register("hotel-1", conn)
	d := tools.NewDispatcher(f, tools.WithHotelInfo(map[string]tools.HotelInfo{
		"hotel-1": {
			Name:           "VoiceHive Hotel",
			CheckInTime:    "15:00",
			CheckOutTime:   "11:00",
			Amenities:      []string{"spa", "pool"},
			OperatorNumber: "+49 30 1234567",
		},
	}))
	return d, &fakeCall{hotelID: "hotel-1"}
}

func TestExecute_UnknownFunction(t *testing.T) {
	t.Parallel()

	d, call := newDispatcher(t, &mock.Connector{})
	res := d.Execute(context.Background(), call, "teleport_guest", nil)

	if res.Success {
		t.Fatal("unknown function must not succeed")
	}
	if res.Error != "Unknown function: teleport_guest" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecute_MissingRequiredArgument(t *testing.T) {
	t.Parallel()

	d, call := newDispatcher(t, &mock.Connector{})
	res := d.Execute(context.Background(), call, tools.FnGetReservation, map[string]any{})

	if res.Success {
		t.Fatal("missing argument must not succeed")
	}
	if !strings.Contains(res.Error, "confirmation_number") {
		t.Errorf("error = %q, want mention of the missing field", res.Error)
	}
}

func TestExecute_CheckAvailability(t *testing.T) {
	t.Parallel()

	conn := &mock.Connector{}
	d, call := newDispatcher(t, conn)
	res := d.Execute(context.Background(), call, tools.FnCheckAvailability, map[string]any{
		"check_in_date":  "2026-12-10",
		"check_out_date": "2026-12-12",
		"guest_count":    float64(2), // JSON numbers decode as float64
	})

	if !res.Success {
		t.Fatalf("Execute: %s", res.Error)
	}
	if avail, _ := res.Result["available"].(bool); !avail {
		t.Error("available = false, want true with canned offers")
	}
	if names := conn.CallNames(); len(names) != 1 || names[0] != "GetAvailability" {
		t.Errorf("connector calls = %v", names)
	}
}

func TestExecute_ComplaintRecordsEscalation(t *testing.T) {
	t.Parallel()

	d, call := newDispatcher(t, &mock.Connector{})
	res := d.Execute(context.Background(), call, tools.FnHandleComplaint, map[string]any{
		"complaint_details": "the air conditioning is broken",
	})

	if !res.Success {
		t.Fatalf("Execute: %s", res.Error)
	}
	if len(call.escalations) != 1 || !strings.Contains(call.escalations[0], "air conditioning") {
		t.Errorf("escalations = %v", call.escalations)
	}
	if res.Result["ticket_id"] == "" {
		t.Error("ticket_id missing from result")
	}
}

func TestExecute_TransferRecordsReason(t *testing.T) {
	t.Parallel()

	d, call := newDispatcher(t, &mock.Connector{})
	res := d.Execute(context.Background(), call, tools.FnTransferToOperator, map[string]any{
		"reason": "guest insists on speaking to a manager",
	})

	if !res.Success {
		t.Fatalf("Execute: %s", res.Error)
	}
	if len(call.escalations) != 1 || !strings.Contains(call.escalations[0], "manager") {
		t.Errorf("escalations = %v", call.escalations)
	}
	if res.Result["operator_number"] != "+49 30 1234567" {
		t.Errorf("operator_number = %v", res.Result["operator_number"])
	}
}

func TestExecute_CreateReservationWithPayment(t *testing.T) {
	t.Parallel()

	conn := &mock.Connector{}
	d, call := newDispatcher(t, conn)
	res := d.Execute(context.Background(), call, tools.FnCreateReservation, map[string]any{
		"check_in_date":   "2026-12-10",
		"check_out_date":  "2026-12-12",
		"guest_count":     float64(2),
		"guest_last_name": "Schmidt",
		"payment_token":   "tok_abc",
		"payment_amount":  float64(378),
	})

	if !res.Success {
		t.Fatalf("Execute: %s", res.Error)
	}
	if paid, _ := res.Result["payment_processed"].(bool); !paid {
		t.Error("payment_processed = false, want true")
	}
	if names := conn.CallNames(); len(names) != 1 || names[0] != "CreateBookingWithPayment" {
		t.Errorf("connector calls = %v", names)
	}
}

func TestExecute_ReservationNotFound(t *testing.T) {
	t.Parallel()

	d, call := newDispatcher(t, &mock.Connector{Err: pms.ErrNotFound})
	res := d.Execute(context.Background(), call, tools.FnGetReservation, map[string]any{
		"confirmation_number": "NOPE99",
	})

	if res.Success {
		t.Fatal("not-found must not succeed")
	}
	if !strings.Contains(res.Error, "not found") {
		t.Errorf("error = %q, want a friendly not-found message", res.Error)
	}
}

func TestExecute_UpsellOffersRecordOpportunity(t *testing.T) {
	t.Parallel()

	conn := &mock.Connector{Reservation: &pms.Reservation{
		ConfirmationNumber: "ABC123", RoomType: "deluxe",
	}}
	d, call := newDispatcher(t, conn)
	res := d.Execute(context.Background(), call, tools.FnGetUpsellOffers, map[string]any{
		"confirmation_number": "ABC123",
	})

	if !res.Success {
		t.Fatalf("Execute: %s", res.Error)
	}
	if len(call.upsells) != 1 || !strings.Contains(call.upsells[0], "junior_suite") {
		t.Errorf("upsells = %v, want offered deluxe upgrade", call.upsells)
	}
}

func TestExecute_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("pms down")
	d, call := newDispatcher(t, &mock.Connector{Err: boom})

	args := map[string]any{"confirmation_number": "ABC123"}
	for i := 0; i < 5; i++ {
		if res := d.Execute(context.Background(), call, tools.FnGetReservation, args); res.Success {
			t.Fatal("failing connector must not succeed")
		}
	}

	res := d.Execute(context.Background(), call, tools.FnGetReservation, args)
	if res.Success {
		t.Fatal("open breaker must not succeed")
	}
	if !strings.Contains(res.Error, "temporarily unavailable") {
		t.Errorf("error = %q, want the breaker-open message", res.Error)
	}
}

func TestDefinitions_Catalogue(t *testing.T) {
	t.Parallel()

	defs := tools.Definitions()
	if len(defs) != 16 {
		t.Fatalf("len(Definitions()) = %d, want 16", len(defs))
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Name >= defs[i].Name {
			t.Errorf("definitions not sorted: %q before %q", defs[i-1].Name, defs[i].Name)
		}
	}
	for _, def := range defs {
		schema := def.ParametersSchema()
		if schema["type"] != "object" {
			t.Errorf("%s: schema type = %v", def.Name, schema["type"])
		}
	}
}
