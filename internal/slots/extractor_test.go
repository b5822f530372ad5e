package slots_test

import (
	"testing"
	"time"

	"github.com/voicehive/voicehive/internal/slots"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestExtract_GermanBookingUtterance(t *testing.T) {
	t.Parallel()

	e := slots.NewExtractor(slots.WithClock(fixedClock()))
	got := e.Extract(
		"Ich möchte ein Zimmer für zwei Personen vom 10.12 bis 12.12 buchen",
		[]string{"check_in_date", "check_out_date", "guest_count"},
		[]string{"room_type"},
	)

	want := map[string]string{
		"check_in_date":  "10/12",
		"check_out_date": "12/12",
		"guest_count":    "2",
	}
	for name, value := range want {
		s, ok := got.Filled[name]
		if !ok {
			t.Fatalf("slot %q not filled (filled: %v, missing: %v)", name, got.Filled, got.MissingRequired)
		}
		if s.Value != value {
			t.Errorf("slot %q = %q, want %q", name, s.Value, value)
		}
		if s.Confidence < 0.6 {
			t.Errorf("slot %q confidence %v below keep threshold", name, s.Confidence)
		}
	}
	if len(got.MissingRequired) != 0 {
		t.Errorf("missing required = %v, want none", got.MissingRequired)
	}
}

func TestExtract_Times(t *testing.T) {
	t.Parallel()

	e := slots.NewExtractor(slots.WithClock(fixedClock()))

	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{name: "clock", utterance: "a table at 19:30 please", want: "19:30"},
		{name: "pm", utterance: "dinner at 7 pm", want: "19:00"},
		{name: "german uhr", utterance: "um 18 Uhr bitte", want: "18:00"},
		{name: "named period", utterance: "sometime in the evening", want: "evening"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Extract(tt.utterance, []string{"time"}, nil)
			s, ok := got.Filled["time"]
			if !ok {
				t.Fatalf("time slot not filled from %q", tt.utterance)
			}
			if s.Value != tt.want {
				t.Errorf("time = %q, want %q", s.Value, tt.want)
			}
		})
	}
}

func TestExtract_ConfirmationNumber(t *testing.T) {
	t.Parallel()

	e := slots.NewExtractor(slots.WithClock(fixedClock()))
	got := e.Extract("I want to cancel my reservation, code ABC123XYZ", []string{"confirmation_number"}, nil)

	s, ok := got.Filled["confirmation_number"]
	if !ok {
		t.Fatal("confirmation_number not filled")
	}
	if s.Value != "ABC123XYZ" {
		t.Errorf("confirmation_number = %q, want ABC123XYZ", s.Value)
	}
}

func TestExtract_ConfirmationNumberIgnoresPlainWords(t *testing.T) {
	t.Parallel()

	e := slots.NewExtractor(slots.WithClock(fixedClock()))
	got := e.Extract("I want to cancel my reservation please", []string{"confirmation_number"}, nil)

	if _, ok := got.Filled["confirmation_number"]; ok {
		t.Fatalf("plain words must not fill confirmation_number, got %v", got.Filled)
	}
	if len(got.Questions) == 0 {
		t.Error("missing required slot must produce a clarification question")
	}
}

func TestExtract_RoomTypeFuzzy(t *testing.T) {
	t.Parallel()

	e := slots.NewExtractor(slots.WithClock(fixedClock()))

	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{name: "exact", utterance: "a deluxe room please", want: "deluxe"},
		{name: "asr typo", utterance: "a delux room please", want: "deluxe"},
		{name: "two words", utterance: "the junior suite if available", want: "junior_suite"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Extract(tt.utterance, nil, []string{"room_type"})
			s, ok := got.Filled["room_type"]
			if !ok {
				t.Fatalf("room_type not filled from %q", tt.utterance)
			}
			if s.Value != tt.want {
				t.Errorf("room_type = %q, want %q", s.Value, tt.want)
			}
		})
	}
}

func TestExtract_SpaServiceBeforeConcierge(t *testing.T) {
	t.Parallel()

	e := slots.NewExtractor(slots.WithClock(fixedClock()))
	got := e.Extract("I'd like a massage tomorrow", []string{"service_type", "date"}, nil)

	if s := got.Filled["service_type"]; s.Value != "massage" {
		t.Errorf("service_type = %q, want massage", s.Value)
	}
	if s := got.Filled["date"]; s.Value != "tomorrow" {
		t.Errorf("date = %q, want tomorrow", s.Value)
	}
}

func TestExtract_ConfidenceAndQuestionCap(t *testing.T) {
	t.Parallel()

	e := slots.NewExtractor(slots.WithClock(fixedClock()))
	got := e.Extract("hello there",
		[]string{"check_in_date", "check_out_date", "guest_count"},
		[]string{"room_type"},
	)

	if got.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 for nothing filled", got.Confidence)
	}
	if len(got.MissingRequired) != 3 {
		t.Errorf("missing = %v, want all three required slots", got.MissingRequired)
	}
	if len(got.Questions) != 2 {
		t.Errorf("questions = %v, want exactly two (capped)", got.Questions)
	}
}

func TestExtract_MonthNameDate(t *testing.T) {
	t.Parallel()

	e := slots.NewExtractor(slots.WithClock(fixedClock()))
	got := e.Extract("arriving on the 10th of December", []string{"check_in_date"}, nil)

	s, ok := got.Filled["check_in_date"]
	if !ok {
		t.Fatal("check_in_date not filled")
	}
	if s.Value != "10/12" {
		t.Errorf("check_in_date = %q, want 10/12", s.Value)
	}
}
