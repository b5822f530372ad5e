package pms_test

import (
	"errors"
	"testing"

	"github.com/voicehive/voicehive/internal/pms"
	"github.com/voicehive/voicehive/internal/pms/mock"
)

func TestFactory_Lookup(t *testing.T) {
	t.Parallel()

	f := pms.NewFactory()
	registered := &mock.Connector{}
	f.Register("hotel-1", registered)

	got, err := f.Connector("hotel-1")
	if err != nil {
		t.Fatalf("Connector(hotel-1): %v", err)
	}
	if got != pms.Connector(registered) {
		t.Error("Connector(hotel-1) did not return the registered connector")
	}

	if _, err := f.Connector("hotel-2"); !errors.Is(err, pms.ErrUnknownHotel) {
		t.Errorf("Connector(hotel-2) error = %v, want ErrUnknownHotel", err)
	}
}

func TestFactory_Fallback(t *testing.T) {
	t.Parallel()

	f := pms.NewFactory()
	fallback := &mock.Connector{}
	f.SetFallback(fallback)

	got, err := f.Connector("anything")
	if err != nil {
		t.Fatalf("Connector with fallback: %v", err)
	}
	if got != pms.Connector(fallback) {
		t.Error("fallback connector not returned")
	}
}
