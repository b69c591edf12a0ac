package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestGet_OverrideWinsWithoutTouchingDisk(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	m := NewManager("configured-secret", dir)

	s, err := m.Get(context.Background())
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if s != "configured-secret" {
		t.Fatalf("got %q", s)
	}
	if _, err := os.Stat(filepath.Join(dir, secretFile)); !os.IsNotExist(err) {
		t.Fatalf("override path must not write the secret file")
	}
}

func TestGet_GeneratesOncePersistsAndReloads(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	m := NewManager("", dir)
	first, err := m.Get(context.Background())
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if len(first) < 32 {
		t.Fatalf("secret too short: %d", len(first))
	}

	// Un Manager nuevo (simula restart) lee el mismo valor del disco.
	again, err := NewManager("", dir).Get(context.Background())
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if again != first {
		t.Fatalf("secret not durable: %q != %q", again, first)
	}
}

func TestGet_ConcurrentFirstCallersShareOneValue(t *testing.T) {
	t.Parallel()
	m := NewManager("", t.TempDir())

	const n = 32
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Get(context.Background())
			if err != nil {
				t.Errorf("Get err: %v", err)
				return
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different secret", i)
		}
	}
}

func TestGet_FailsClosedWhenStorageUnavailable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// data dir es un archivo: MkdirAll/rename van a fallar.
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	m := NewManager("", filepath.Join(blocked, "nested"))

	if _, err := m.Get(context.Background()); !errors.Is(err, ErrSecretUnavailable) {
		t.Fatalf("expected ErrSecretUnavailable, got %v", err)
	}
}
