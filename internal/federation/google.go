package federation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	jwtx "github.com/dropDatabas3/flowgate/internal/jwt"
	"github.com/dropDatabas3/flowgate/internal/oidc"
)

// Endpoints fijos de Google. No hace falta discovery para la URL de
// login ni el exchange, solo para las keys de verificación.
const (
	googleAuthEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint = "https://oauth2.googleapis.com/token"
	googleJWKSURI       = "https://www.googleapis.com/oauth2/v3/certs"

	googleDefaultScope = "openid email profile"
)

// Google acepta ambas formas históricas del issuer.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// GoogleProvider implementa el flow OIDC de Google.
type GoogleProvider struct {
	http      *http.Client
	discovery *oidc.DiscoveryCache

	// overridables en tests
	authEndpoint  string
	tokenEndpoint string
	jwksURI       string
	issuers       []string
}

// NewGoogle crea el provider de Google. httpClient nil = default 10s.
func NewGoogle(discovery *oidc.DiscoveryCache, httpClient *http.Client) *GoogleProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleProvider{
		http:          httpClient,
		discovery:     discovery,
		authEndpoint:  googleAuthEndpoint,
		tokenEndpoint: googleTokenEndpoint,
		jwksURI:       googleJWKSURI,
		issuers:       googleIssuers,
	}
}

func (p *GoogleProvider) Name() string { return "google" }

// LoginURL construye la URL de autorización de Google.
func (p *GoogleProvider) LoginURL(_ context.Context, cfg ProviderConfig, state string) (string, error) {
	if cfg.ClientID == "" {
		return "", ErrProviderNotConfigured
	}
	u, err := url.Parse(p.authEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", cfg.RedirectURI)
	q.Set("scope", scopeOrDefault(cfg.Scope, googleDefaultScope))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Authenticate intercambia el code, verifica el ID token contra el
// JWKS fijo de Google y normaliza la identidad.
func (p *GoogleProvider) Authenticate(ctx context.Context, cfg ProviderConfig, code string) (*IdentityClaim, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrProviderNotConfigured
	}

	tr, err := exchangeCodeJSON(ctx, p.http, p.tokenEndpoint, cfg, code)
	if err != nil {
		return nil, err
	}
	if tr.IDToken == "" {
		return nil, fmt.Errorf("%w: no id_token in response", ErrCodeExchangeFailed)
	}

	claims, err := p.verifyIDToken(ctx, cfg, tr.IDToken)
	if err != nil {
		return nil, err
	}

	// Google manda email_verified explícito; false es rechazo duro.
	if v, ok := claims["email_verified"].(bool); ok && !v {
		return nil, fmt.Errorf("%w: google account email not verified", ErrEmailUnavailable)
	}

	email := strClaim(claims, "email")
	if !looksLikeEmail(email) {
		return nil, ErrEmailUnavailable
	}

	first, last := resolveNames(strClaim(claims, "given_name"), strClaim(claims, "family_name"), strClaim(claims, "name"))
	return &IdentityClaim{
		Email:         email,
		EmailVerified: true,
		FirstName:     first,
		LastName:      last,
		AvatarURL:     strClaim(claims, "picture"),
	}, nil
}

func (p *GoogleProvider) verifyIDToken(ctx context.Context, cfg ProviderConfig, idToken string) (jwtx.MapClaims, error) {
	header, _, err := jwtx.DecodeUnsafe(idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerificationFailed, err)
	}
	key, err := p.discovery.JWKS(p.jwksURI).Key(ctx, jwtx.KIDFromHeader(header))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerificationFailed, err)
	}

	claims, err := jwtx.Verify(idToken, key, jwtx.VerifyOptions{
		Algorithms: []string{"RS256"},
		Audience:   cfg.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerificationFailed, err)
	}

	iss := strClaim(claims, "iss")
	for _, allowed := range p.issuers {
		if iss == allowed {
			return claims, nil
		}
	}
	return nil, fmt.Errorf("%w: bad iss %q", ErrTokenVerificationFailed, iss)
}
