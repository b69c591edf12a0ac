package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"
)

func TestSignVerify_RoundTrip_HS256(t *testing.T) {
	t.Parallel()
	key := []byte("0123456789abcdef0123456789abcdef")

	signed, err := Sign(MapClaims{"sub": "user-1", "platformId": "plat-1"}, key, SignOptions{
		Algorithm: "HS256",
		ExpiresIn: time.Hour,
		Issuer:    "flowgate",
		KeyID:     "1",
	})
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}

	claims, err := Verify(signed, key, VerifyOptions{Algorithms: []string{"HS256"}, Issuer: "flowgate"})
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if claims["sub"] != "user-1" || claims["platformId"] != "plat-1" {
		t.Fatalf("claims mismatch: %v", claims)
	}
	if _, ok := claims["exp"]; !ok {
		t.Fatalf("exp missing")
	}
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	t.Parallel()
	signed, err := Sign(MapClaims{"sub": "u"}, []byte("key-a-key-a-key-a-key-a-key-a-32"), SignOptions{Algorithm: "HS256", ExpiresIn: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(signed, []byte("key-b-key-b-key-b-key-b-key-b-32"), VerifyOptions{Algorithms: []string{"HS256"}}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsExpired(t *testing.T) {
	t.Parallel()
	key := []byte("0123456789abcdef0123456789abcdef")
	signed, err := Sign(MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()}, key, SignOptions{Algorithm: "HS256"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(signed, key, VerifyOptions{Algorithms: []string{"HS256"}}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired, got %v", err)
	}
}

func TestVerify_RejectsAlgorithmOutsideAllowList(t *testing.T) {
	t.Parallel()
	key := []byte("0123456789abcdef0123456789abcdef")
	signed, err := Sign(MapClaims{"sub": "u"}, key, SignOptions{Algorithm: "HS256", ExpiresIn: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	// El token es HS256 válido, pero el caller solo acepta RS256.
	if _, err := Verify(signed, key, VerifyOptions{Algorithms: []string{"RS256"}}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg mismatch, got %v", err)
	}
	// Allow-list vacío tampoco pasa.
	if _, err := Verify(signed, key, VerifyOptions{}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty allow-list, got %v", err)
	}
}

func TestVerify_IssuerAndAudience(t *testing.T) {
	t.Parallel()
	key := []byte("0123456789abcdef0123456789abcdef")
	signed, err := Sign(MapClaims{"sub": "u", "aud": "client-1"}, key, SignOptions{Algorithm: "HS256", ExpiresIn: time.Hour, Issuer: "flowgate"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Verify(signed, key, VerifyOptions{Algorithms: []string{"HS256"}, Issuer: "other"}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch, got %v", err)
	}
	if _, err := Verify(signed, key, VerifyOptions{Algorithms: []string{"HS256"}, Audience: "client-2"}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected audience mismatch, got %v", err)
	}
	if _, err := Verify(signed, key, VerifyOptions{Algorithms: []string{"HS256"}, Issuer: "flowgate", Audience: "client-1"}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestSignVerify_RS256(t *testing.T) {
	t.Parallel()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	signed, err := Sign(MapClaims{"externalUserId": "ext-1"}, priv, SignOptions{Algorithm: "RS256", ExpiresIn: time.Hour, KeyID: "kid-1"})
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}
	claims, err := Verify(signed, &priv.PublicKey, VerifyOptions{Algorithms: []string{"RS256"}})
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if claims["externalUserId"] != "ext-1" {
		t.Fatalf("claims mismatch: %v", claims)
	}
}

func TestDecodeUnsafe_ReadsKidWithoutKey(t *testing.T) {
	t.Parallel()
	signed, err := Sign(MapClaims{"sub": "u"}, []byte("0123456789abcdef0123456789abcdef"), SignOptions{Algorithm: "HS256", KeyID: "kid-42", ExpiresIn: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	header, payload, err := DecodeUnsafe(signed)
	if err != nil {
		t.Fatalf("DecodeUnsafe err: %v", err)
	}
	if KIDFromHeader(header) != "kid-42" {
		t.Fatalf("kid = %q", KIDFromHeader(header))
	}
	if payload["sub"] != "u" {
		t.Fatalf("payload = %v", payload)
	}

	if _, _, err := DecodeUnsafe("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
