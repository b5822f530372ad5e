package pms

import (
	"fmt"
	"sync"
)

// Factory resolves the connector for a hotel. Safe for concurrent use:
// registration happens at startup, lookups happen on every tool call.
type Factory struct {
	mu         sync.RWMutex
	connectors map[string]Connector
	fallback   Connector
}

// NewFactory creates an empty connector factory.
func NewFactory() *Factory {
	return &Factory{connectors: make(map[string]Connector)}
}

// Register binds a connector to a hotel identifier, replacing any previous
// binding.
func (f *Factory) Register(hotelID string, c Connector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectors[hotelID] = c
}

// SetFallback installs a connector used for hotels without an explicit
// binding. Useful when one backend tenant serves every property.
func (f *Factory) SetFallback(c Connector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = c
}

// Connector returns the connector for hotelID, or the fallback when none is
// registered. Returns ErrUnknownHotel when neither exists.
func (f *Factory) Connector(hotelID string) (Connector, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if c, ok := f.connectors[hotelID]; ok {
		return c, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return nil, fmt.Errorf("pms: no connector for hotel %q: %w", hotelID, ErrUnknownHotel)
}

// Hotels lists the explicitly registered hotel identifiers.
func (f *Factory) Hotels() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.connectors))
	for id := range f.connectors {
		ids = append(ids, id)
	}
	return ids
}
