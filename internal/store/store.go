// Package store provides the key-value persistence layer for call state.
//
// Sessions are snapshotted as JSON blobs under call:<call_id> with a sliding
// TTL, call-start metadata lives under callmeta:<call_id>, and recording
// consent flags under consent:<hotel_id>:<purpose>. The production backend
// is Redis; an in-memory implementation backs tests and single-node runs.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound means the key does not exist or has expired.
var ErrNotFound = errors.New("store: key not found")

// KV is a minimal expiring key-value store.
//
// SetEx writes value under key with the given TTL, replacing any previous
// value and TTL. Get returns ErrNotFound for missing or expired keys. Del is
// a no-op for missing keys.
type KV interface {
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
}

// CallKey is the snapshot key for a call session.
func CallKey(callID string) string {
	return "call:" + callID
}

// CallMetaKey is the key for call-start metadata written before the media
// session exists.
func CallMetaKey(callID string) string {
	return "callmeta:" + callID
}

// ConsentKey is the key recording a caller's consent decision for a hotel
// and purpose ("recording", "analytics").
func ConsentKey(hotelID, purpose string) string {
	return "consent:" + hotelID + ":" + purpose
}
