package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voicehive/voicehive/internal/store"
)

func TestMemory_RoundTrip(t *testing.T) {
	t.Parallel()

	kv := store.NewMemory()
	ctx := context.Background()

	if err := kv.SetEx(ctx, "call:abc", []byte(`{"state":"active"}`), time.Minute); err != nil {
		t.Fatalf("SetEx: %v", err)
	}

	got, err := kv.Get(ctx, "call:abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"state":"active"}` {
		t.Errorf("value = %q", got)
	}
}

func TestMemory_MissingKey(t *testing.T) {
	t.Parallel()

	kv := store.NewMemory()
	if _, err := kv.Get(context.Background(), "call:nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()

	kv := store.NewMemory()
	ctx := context.Background()

	if err := kv.SetEx(ctx, "call:short", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("SetEx: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := kv.Get(ctx, "call:short"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after expiry", err)
	}
}

func TestMemory_SetExSlidesTTL(t *testing.T) {
	t.Parallel()

	kv := store.NewMemory()
	ctx := context.Background()

	if err := kv.SetEx(ctx, "call:slide", []byte("one"), time.Millisecond); err != nil {
		t.Fatalf("SetEx: %v", err)
	}
	// Rewriting the key resets the TTL.
	if err := kv.SetEx(ctx, "call:slide", []byte("two"), time.Minute); err != nil {
		t.Fatalf("SetEx: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	got, err := kv.Get(ctx, "call:slide")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "two" {
		t.Errorf("value = %q, want %q", got, "two")
	}
}

func TestMemory_Del(t *testing.T) {
	t.Parallel()

	kv := store.NewMemory()
	ctx := context.Background()

	if err := kv.SetEx(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("SetEx: %v", err)
	}
	if err := kv.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
	// Deleting a missing key is fine.
	if err := kv.Del(ctx, "k"); err != nil {
		t.Fatalf("Del missing: %v", err)
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	if got := store.CallKey("abc"); got != "call:abc" {
		t.Errorf("CallKey = %q", got)
	}
	if got := store.CallMetaKey("abc"); got != "callmeta:abc" {
		t.Errorf("CallMetaKey = %q", got)
	}
	if got := store.ConsentKey("hotel-1", "recording"); got != "consent:hotel-1:recording" {
		t.Errorf("ConsentKey = %q", got)
	}
}
