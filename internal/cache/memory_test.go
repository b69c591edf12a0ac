package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryClient_RoundTrip(t *testing.T) {
	t.Parallel()
	c := NewMemory("test:")
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	v, err := c.Get(ctx, "k")
	if err != nil || v != "v" {
		t.Fatalf("Get = %q, %v", v, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryClient_TTLExpires(t *testing.T) {
	t.Parallel()
	c := NewMemory("")
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemoryClient_PrefixIsolation(t *testing.T) {
	t.Parallel()
	a := NewMemory("a:")
	b := NewMemory("b:")
	ctx := context.Background()

	if err := a.Set(ctx, "k", "va", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("prefixes must not collide, got %v", err)
	}
}
