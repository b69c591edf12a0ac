package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GitHub es OAuth 2.0 sin ID token: el exchange devuelve un access
// token (respuesta form-encoded) y la identidad sale de la REST API.
const (
	githubAuthEndpoint  = "https://github.com/login/oauth/authorize"
	githubTokenEndpoint = "https://github.com/login/oauth/access_token"
	githubUserEndpoint  = "https://api.github.com/user"
	githubEmailEndpoint = "https://api.github.com/user/emails"

	githubDefaultScope = "read:user user:email"
)

// GitHubProvider implementa el flow OAuth2 de GitHub.
type GitHubProvider struct {
	http *http.Client

	// overridables en tests
	authEndpoint  string
	tokenEndpoint string
	userEndpoint  string
	emailEndpoint string
}

// NewGitHub crea el provider de GitHub. httpClient nil = default 10s.
func NewGitHub(httpClient *http.Client) *GitHubProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GitHubProvider{
		http:          httpClient,
		authEndpoint:  githubAuthEndpoint,
		tokenEndpoint: githubTokenEndpoint,
		userEndpoint:  githubUserEndpoint,
		emailEndpoint: githubEmailEndpoint,
	}
}

func (p *GitHubProvider) Name() string { return "github" }

// LoginURL construye la URL de autorización de GitHub.
func (p *GitHubProvider) LoginURL(_ context.Context, cfg ProviderConfig, state string) (string, error) {
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
	q.Set("scope", scopeOrDefault(cfg.Scope, githubDefaultScope))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Authenticate intercambia el code y arma la identidad desde /user y
// /user/emails. Solo un email primary && verified califica: una cuenta
// de GitHub puede no tener ninguno, y eso es rechazo, no fallback.
func (p *GitHubProvider) Authenticate(ctx context.Context, cfg ProviderConfig, code string) (*IdentityClaim, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrProviderNotConfigured
	}

	accessToken, err := p.exchangeCode(ctx, cfg, code)
	if err != nil {
		return nil, err
	}

	user, err := p.fetchUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	email, err := p.fetchPrimaryVerifiedEmail(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	first, last := resolveNames("", "", user.Name)
	if first == placeholderFirstName && user.Login != "" {
		first = user.Login
	}
	return &IdentityClaim{
		Email:         email,
		EmailVerified: true, // solo aceptamos emails verified
		FirstName:     first,
		LastName:      last,
		AvatarURL:     user.AvatarURL,
	}, nil
}

// exchangeCode: GitHub responde form-encoded, no JSON.
func (p *GitHubProvider) exchangeCode(ctx context.Context, cfg ProviderConfig, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", cfg.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", exchangeError(0, err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode/100 != 2 {
		return "", exchangeError(resp.StatusCode, string(body))
	}

	vals, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return "", exchangeError(resp.StatusCode, "unparseable token response")
	}
	if e := vals.Get("error"); e != "" {
		return "", exchangeError(resp.StatusCode, e+": "+vals.Get("error_description"))
	}
	token := vals.Get("access_token")
	if token == "" {
		return "", exchangeError(resp.StatusCode, "no access_token in response")
	}
	return token, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *GitHubProvider) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	var u githubUser
	if err := p.getJSON(ctx, p.userEndpoint, accessToken, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// fetchPrimaryVerifiedEmail busca el único email que califica como
// identidad de plataforma. Regla de negocio, no edge case: sin email
// primary+verified el login falla con ErrEmailUnavailable.
func (p *GitHubProvider) fetchPrimaryVerifiedEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []githubEmail
	if err := p.getJSON(ctx, p.emailEndpoint, accessToken, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified && looksLikeEmail(e.Email) {
			return e.Email, nil
		}
	}
	return "", fmt.Errorf("%w: github account has no primary verified email", ErrEmailUnavailable)
}

func (p *GitHubProvider) getJSON(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCodeExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return exchangeError(resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrCodeExchangeFailed, endpoint, err)
	}
	return nil
}
