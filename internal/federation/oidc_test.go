package federation

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	jwtx "github.com/dropDatabas3/flowgate/internal/jwt"
	"github.com/dropDatabas3/flowgate/internal/oidc"
)

// fakeIssuer levanta un IdP OIDC completo en httptest: discovery,
// token endpoint, JWKS y userinfo.
type fakeIssuer struct {
	srv  *httptest.Server
	key  *rsa.PrivateKey
	kid  string
	mux  *http.ServeMux
	http *http.Client

	idClaims map[string]any // claims del ID token a emitir
	userinfo map[string]any // nil = userinfo devuelve 404
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	fi := &fakeIssuer{key: key, kid: "idp-key-1", mux: http.NewServeMux()}
	fi.srv = httptest.NewServer(fi.mux)
	t.Cleanup(fi.srv.Close)
	fi.http = fi.srv.Client()

	fi.mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 fi.srv.URL,
			"authorization_endpoint": fi.srv.URL + "/authorize",
			"token_endpoint":         fi.srv.URL + "/token",
			"jwks_uri":               fi.srv.URL + "/keys",
			"userinfo_endpoint":      fi.srv.URL + "/userinfo",
		})
	})
	fi.mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		pub, err := jwk.FromRaw(fi.key.Public())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = pub.Set(jwk.KeyIDKey, fi.kid)
		_ = pub.Set(jwk.AlgorithmKey, "RS256")
		set := jwk.NewSet()
		_ = set.AddKey(pub)
		_ = json.NewEncoder(w).Encode(set)
	})
	fi.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostFormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		idToken := fi.mintIDToken(t)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-123",
			"id_token":     idToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	fi.mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if fi.userinfo == nil {
			http.Error(w, "no userinfo", http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer at-123" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(fi.userinfo)
	})
	return fi
}

func (fi *fakeIssuer) mintIDToken(t *testing.T) string {
	t.Helper()
	claims := jwtx.MapClaims{"aud": "client-1"}
	for k, v := range fi.idClaims {
		claims[k] = v
	}
	tok, err := jwtx.Sign(claims, fi.key, jwtx.SignOptions{
		Algorithm: "RS256",
		ExpiresIn: time.Hour,
		Issuer:    fi.srv.URL,
		KeyID:     fi.kid,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (fi *fakeIssuer) provider() (*OIDCProvider, ProviderConfig) {
	disc := oidc.NewDiscoveryCache(oidc.Options{HTTPClient: fi.http})
	cfg := ProviderConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		IssuerURL:    fi.srv.URL,
		RedirectURI:  "https://app.example/redirect",
	}
	return NewOIDC(disc, fi.http), cfg
}

func TestOIDCAuthenticate_EmailFromIDToken(t *testing.T) {
	t.Parallel()
	fi := newFakeIssuer(t)
	fi.idClaims = map[string]any{
		"email":          "ana@example.com",
		"email_verified": true,
		"given_name":     "Ana",
		"family_name":    "García",
		"picture":        "https://cdn.example/ana.png",
	}
	p, cfg := fi.provider()

	claim, err := p.Authenticate(context.Background(), cfg, "good-code")
	if err != nil {
		t.Fatalf("Authenticate err: %v", err)
	}
	if claim.Email != "ana@example.com" || !claim.EmailVerified {
		t.Fatalf("claim = %+v", claim)
	}
	if claim.FirstName != "Ana" || claim.LastName != "García" {
		t.Fatalf("names = %q %q", claim.FirstName, claim.LastName)
	}
	if claim.AvatarURL != "https://cdn.example/ana.png" {
		t.Fatalf("avatar = %q", claim.AvatarURL)
	}
}

func TestOIDCAuthenticate_UserinfoPreferredUsernameFallback(t *testing.T) {
	t.Parallel()
	fi := newFakeIssuer(t)
	// ID token sin claim email: el provider debe ir a userinfo y aceptar
	// preferred_username cuando tiene forma de email.
	fi.idClaims = map[string]any{"sub": "u-1"}
	fi.userinfo = map[string]any{
		"preferred_username": "alice@example.com",
		"given_name":         "Alice",
		"family_name":        "Doe",
	}
	p, cfg := fi.provider()

	claim, err := p.Authenticate(context.Background(), cfg, "good-code")
	if err != nil {
		t.Fatalf("Authenticate err: %v", err)
	}
	if claim.Email != "alice@example.com" {
		t.Fatalf("email = %q", claim.Email)
	}
	if claim.FirstName != "Alice" || claim.LastName != "Doe" {
		t.Fatalf("names = %q %q", claim.FirstName, claim.LastName)
	}
}

func TestOIDCAuthenticate_NoEmailAnywhereFails(t *testing.T) {
	t.Parallel()
	fi := newFakeIssuer(t)
	fi.idClaims = map[string]any{"sub": "u-1"}
	fi.userinfo = map[string]any{"preferred_username": "not-an-email"}
	p, cfg := fi.provider()

	if _, err := p.Authenticate(context.Background(), cfg, "good-code"); !errors.Is(err, ErrEmailUnavailable) {
		t.Fatalf("expected ErrEmailUnavailable, got %v", err)
	}
}

func TestOIDCAuthenticate_WrongAudienceRejected(t *testing.T) {
	t.Parallel()
	fi := newFakeIssuer(t)
	fi.idClaims = map[string]any{"aud": "other-client", "email": "ana@example.com"}
	p, cfg := fi.provider()

	if _, err := p.Authenticate(context.Background(), cfg, "good-code"); !errors.Is(err, ErrTokenVerificationFailed) {
		t.Fatalf("expected ErrTokenVerificationFailed, got %v", err)
	}
}

func TestOIDCAuthenticate_ExchangeFailure(t *testing.T) {
	t.Parallel()
	fi := newFakeIssuer(t)
	p, cfg := fi.provider()

	if _, err := p.Authenticate(context.Background(), cfg, "bad-code"); !errors.Is(err, ErrCodeExchangeFailed) {
		t.Fatalf("expected ErrCodeExchangeFailed, got %v", err)
	}
}

func TestOIDCLoginURL_UsesDiscoveredEndpoint(t *testing.T) {
	t.Parallel()
	fi := newFakeIssuer(t)
	p, cfg := fi.provider()

	u, err := p.LoginURL(context.Background(), cfg, "st-1")
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Path != "/authorize" {
		t.Fatalf("path = %q", parsed.Path)
	}
	if parsed.Query().Get("state") != "st-1" || parsed.Query().Get("client_id") != "client-1" {
		t.Fatalf("query = %q", parsed.RawQuery)
	}
}
