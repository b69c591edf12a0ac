package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

func discoveryServer(t *testing.T, fetches *atomic.Int64, omitJWKS bool) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		fetches.Add(1)
		md := map[string]string{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
		}
		if !omitJWKS {
			md["jwks_uri"] = srv.URL + "/keys"
		}
		_ = json.NewEncoder(w).Encode(md)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConfig_MemoizesAndFetchesOnce(t *testing.T) {
	t.Parallel()
	var fetches atomic.Int64
	srv := discoveryServer(t, &fetches, false)
	c := NewDiscoveryCache(Options{HTTPClient: srv.Client()})

	// El trailing slash normaliza a la misma entrada.
	first, err := c.Config(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Config err: %v", err)
	}
	second, err := c.Config(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Config err: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same cached object")
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", got)
	}
	if first.TokenEndpoint != srv.URL+"/token" {
		t.Fatalf("token endpoint = %q", first.TokenEndpoint)
	}
}

func TestConfig_ConcurrentCallersShareOneFetch(t *testing.T) {
	t.Parallel()
	var fetches atomic.Int64
	srv := discoveryServer(t, &fetches, false)
	c := NewDiscoveryCache(Options{HTTPClient: srv.Client()})

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Config(context.Background(), srv.URL); err != nil {
				t.Errorf("Config err: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected singleflight to collapse into 1 fetch, got %d", got)
	}
}

func TestConfig_MissingRequiredFieldFailsClosed(t *testing.T) {
	t.Parallel()
	var fetches atomic.Int64
	srv := discoveryServer(t, &fetches, true) // sin jwks_uri
	c := NewDiscoveryCache(Options{HTTPClient: srv.Client()})

	if _, err := c.Config(context.Background(), srv.URL); !errors.Is(err, ErrIssuerMisconfigured) {
		t.Fatalf("expected ErrIssuerMisconfigured, got %v", err)
	}
}

func TestConfig_InvalidateForcesRefetch(t *testing.T) {
	t.Parallel()
	var fetches atomic.Int64
	srv := discoveryServer(t, &fetches, false)
	c := NewDiscoveryCache(Options{HTTPClient: srv.Client()})

	if _, err := c.Config(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	c.Invalidate(srv.URL)
	if _, err := c.Config(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected 2 fetches after invalidate, got %d", got)
	}
}

func TestJWKS_ResolvesKeyByKid(t *testing.T) {
	t.Parallel()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pub, err := jwk.FromRaw(priv.Public())
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Set(jwk.KeyIDKey, "kid-1"); err != nil {
		t.Fatal(err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(set)
	}))
	defer srv.Close()

	c := NewDiscoveryCache(Options{HTTPClient: srv.Client()})
	fetcher := c.JWKS(srv.URL)

	raw, err := fetcher.Key(context.Background(), "kid-1")
	if err != nil {
		t.Fatalf("Key err: %v", err)
	}
	got, ok := raw.(*rsa.PublicKey)
	if !ok {
		t.Fatalf("expected *rsa.PublicKey, got %T", raw)
	}
	if got.N.Cmp(priv.PublicKey.N) != 0 {
		t.Fatalf("wrong key returned")
	}

	if _, err := fetcher.Key(context.Background(), "unknown-kid"); !errors.Is(err, ErrIssuerMisconfigured) {
		t.Fatalf("expected ErrIssuerMisconfigured, got %v", err)
	}

	// Memoización por URI.
	if c.JWKS(srv.URL) != fetcher {
		t.Fatalf("expected the same fetcher instance")
	}
}

func TestNormalizeIssuer(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"https://issuer.example/":  "https://issuer.example",
		"https://issuer.example":   "https://issuer.example",
		"  https://x.example/  ":   "https://x.example",
		"https://x.example/realm/": "https://x.example/realm",
	} {
		if got := NormalizeIssuer(in); got != want {
			t.Fatalf("NormalizeIssuer(%q) = %q, want %q", in, got, want)
		}
	}
}
