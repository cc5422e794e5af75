package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	provider := NewMemoryProvider()
	provider.now = func() time.Time { return now }

	if err := provider.Set(ctx, "languages", []byte(`["es"]`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := provider.Get(ctx, "languages")
	if err != nil || string(got) != `["es"]` {
		t.Fatalf("unexpected get result %q (%v)", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := provider.Get(ctx, "languages"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss after expiry, got %v", err)
	}
}

func TestMemoryProviderReturnsCopies(t *testing.T) {
	ctx := context.Background()
	provider := NewMemoryProvider()
	value := []byte("abc")
	_ = provider.Set(ctx, "k", value, 0)
	value[0] = 'z'

	got, _ := provider.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
	got[1] = 'z'
	again, _ := provider.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased stored buffer: %q", again)
	}
}

func TestNoopProviderAlwaysMisses(t *testing.T) {
	var provider Provider = NoopProvider{}
	_ = provider.Set(context.Background(), "k", []byte("v"), time.Minute)
	if _, err := provider.Get(context.Background(), "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}
