package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jwtx "github.com/dropDatabas3/flowgate/internal/jwt"
	"github.com/dropDatabas3/flowgate/internal/oidc"
)

const oidcDefaultScope = "openid email profile"

// OIDCProvider implementa el flow contra un issuer OIDC arbitrario:
// discovery completo, verificación contra el JWKS descubierto y
// fallback a userinfo cuando el ID token no trae email.
type OIDCProvider struct {
	http      *http.Client
	discovery *oidc.DiscoveryCache
}

// NewOIDC crea el provider genérico. httpClient nil = default 10s.
func NewOIDC(discovery *oidc.DiscoveryCache, httpClient *http.Client) *OIDCProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OIDCProvider{http: httpClient, discovery: discovery}
}

func (p *OIDCProvider) Name() string { return "oidc" }

// LoginURL construye la URL de autorización desde el discovery document.
func (p *OIDCProvider) LoginURL(ctx context.Context, cfg ProviderConfig, state string) (string, error) {
	if cfg.ClientID == "" || cfg.IssuerURL == "" {
		return "", ErrProviderNotConfigured
	}
	md, err := p.discovery.Config(ctx, cfg.IssuerURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(md.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("%w: bad authorization_endpoint: %v", oidc.ErrIssuerMisconfigured, err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", cfg.RedirectURI)
	q.Set("scope", scopeOrDefault(cfg.Scope, oidcDefaultScope))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Authenticate intercambia el code contra el token endpoint descubierto,
// verifica el ID token (firma, issuer, audience) y extrae la identidad
// con la cascada de fallbacks de email y nombres.
func (p *OIDCProvider) Authenticate(ctx context.Context, cfg ProviderConfig, code string) (*IdentityClaim, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.IssuerURL == "" {
		return nil, ErrProviderNotConfigured
	}

	md, err := p.discovery.Config(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, err
	}

	tr, err := exchangeCodeJSON(ctx, p.http, md.TokenEndpoint, cfg, code)
	if err != nil {
		return nil, err
	}
	if tr.IDToken == "" {
		return nil, fmt.Errorf("%w: no id_token in response", ErrCodeExchangeFailed)
	}

	claims, err := p.verifyIDToken(ctx, md, cfg, tr.IDToken)
	if err != nil {
		return nil, err
	}

	email := strClaim(claims, "email")
	verified := boolClaim(claims, "email_verified")

	// Algunos issuers omiten el claim email por completo: segunda
	// chance contra el userinfo endpoint descubierto.
	if !looksLikeEmail(email) {
		info, err := p.fetchUserinfo(ctx, md, tr.AccessToken)
		if err != nil {
			return nil, err
		}
		email = pickUserinfoEmail(info)
		if !looksLikeEmail(email) {
			return nil, fmt.Errorf("%w: issuer %s returned no email claim", ErrEmailUnavailable, md.Issuer)
		}
		verified = boolClaim(info, "email_verified")
		// El ID token no trajo nombres tampoco: completar desde userinfo.
		for _, k := range []string{"given_name", "family_name", "name"} {
			if strClaim(claims, k) == "" {
				claims[k] = info[k]
			}
		}
	}

	first, last := resolveNames(strClaim(claims, "given_name"), strClaim(claims, "family_name"), strClaim(claims, "name"))
	return &IdentityClaim{
		Email:         email,
		EmailVerified: verified,
		FirstName:     first,
		LastName:      last,
		AvatarURL:     strClaim(claims, "picture"),
	}, nil
}

func (p *OIDCProvider) verifyIDToken(ctx context.Context, md *oidc.ProviderMetadata, cfg ProviderConfig, idToken string) (jwtx.MapClaims, error) {
	header, _, err := jwtx.DecodeUnsafe(idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerificationFailed, err)
	}
	key, err := p.discovery.JWKS(md.JWKSURI).Key(ctx, jwtx.KIDFromHeader(header))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerificationFailed, err)
	}
	claims, err := jwtx.Verify(idToken, key, jwtx.VerifyOptions{
		Algorithms: []string{"RS256"},
		Issuer:     md.Issuer,
		Audience:   cfg.ClientID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenVerificationFailed, err)
	}
	return claims, nil
}

func (p *OIDCProvider) fetchUserinfo(ctx context.Context, md *oidc.ProviderMetadata, accessToken string) (map[string]any, error) {
	if md.UserinfoEndpoint == "" || accessToken == "" {
		return nil, fmt.Errorf("%w: issuer %s has no userinfo endpoint", ErrEmailUnavailable, md.Issuer)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, md.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrEmailUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("%w: userinfo http %d: %s", ErrEmailUnavailable, resp.StatusCode, string(body))
	}
	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", ErrEmailUnavailable, err)
	}
	return info, nil
}

// pickUserinfoEmail prueba email, luego preferred_username/upn si
// tienen pinta de email (algunos IdPs corporativos solo mandan UPN).
func pickUserinfoEmail(info map[string]any) string {
	for _, k := range []string{"email", "preferred_username", "upn"} {
		if v := strClaim(info, k); looksLikeEmail(v) {
			return v
		}
	}
	return ""
}
