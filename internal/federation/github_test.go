package federation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func githubTestServer(t *testing.T, emails []githubEmail) (*GitHubProvider, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		_ = r.ParseForm()
		if r.PostFormValue("code") != "good-code" {
			w.Write([]byte("error=bad_verification_code&error_description=The+code+is+incorrect"))
			return
		}
		// GitHub responde form-encoded por default.
		w.Write([]byte("access_token=gho_testtoken&scope=read%3Auser&token_type=bearer"))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_testtoken" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(githubUser{ID: 7, Login: "octocat", Name: "Mona Lisa Octocat", AvatarURL: "https://avatars.example/7"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(emails)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGitHub(srv.Client())
	p.tokenEndpoint = srv.URL + "/login/oauth/access_token"
	p.userEndpoint = srv.URL + "/user"
	p.emailEndpoint = srv.URL + "/user/emails"
	return p, srv
}

var githubCfg = ProviderConfig{ClientID: "cid", ClientSecret: "csecret", RedirectURI: "https://app.example/redirect"}

func TestGitHubAuthenticate_PicksPrimaryVerifiedEmail(t *testing.T) {
	t.Parallel()
	p, _ := githubTestServer(t, []githubEmail{
		{Email: "side@example.com", Primary: false, Verified: true},
		{Email: "mona@example.com", Primary: true, Verified: true},
	})

	claim, err := p.Authenticate(context.Background(), githubCfg, "good-code")
	if err != nil {
		t.Fatalf("Authenticate err: %v", err)
	}
	if claim.Email != "mona@example.com" {
		t.Fatalf("email = %q", claim.Email)
	}
	if !claim.EmailVerified {
		t.Fatalf("expected verified email")
	}
	if claim.FirstName != "Mona" || claim.LastName != "Lisa Octocat" {
		t.Fatalf("names = %q %q", claim.FirstName, claim.LastName)
	}
	if claim.AvatarURL != "https://avatars.example/7" {
		t.Fatalf("avatar = %q", claim.AvatarURL)
	}
}

func TestGitHubAuthenticate_NoPrimaryVerifiedEmailFails(t *testing.T) {
	t.Parallel()
	// Ni el primary sin verificar ni el verified no-primary califican.
	p, _ := githubTestServer(t, []githubEmail{
		{Email: "primary@example.com", Primary: true, Verified: false},
		{Email: "verified@example.com", Primary: false, Verified: true},
	})

	if _, err := p.Authenticate(context.Background(), githubCfg, "good-code"); !errors.Is(err, ErrEmailUnavailable) {
		t.Fatalf("expected ErrEmailUnavailable, got %v", err)
	}
}

func TestGitHubAuthenticate_ExchangeErrorCarriesProviderPayload(t *testing.T) {
	t.Parallel()
	p, _ := githubTestServer(t, nil)

	_, err := p.Authenticate(context.Background(), githubCfg, "bad-code")
	if !errors.Is(err, ErrCodeExchangeFailed) {
		t.Fatalf("expected ErrCodeExchangeFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad_verification_code") {
		t.Fatalf("provider payload not attached: %v", err)
	}
}

func TestGitHubAuthenticate_MissingCredentials(t *testing.T) {
	t.Parallel()
	p := NewGitHub(nil)
	if _, err := p.Authenticate(context.Background(), ProviderConfig{}, "code"); !errors.Is(err, ErrProviderNotConfigured) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestGitHubLoginURL(t *testing.T) {
	t.Parallel()
	p := NewGitHub(nil)
	u, err := p.LoginURL(context.Background(), githubCfg, "state-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"client_id=cid", "state=state-1", "response_type=code", "redirect_uri=https%3A%2F%2Fapp.example%2Fredirect"} {
		if !strings.Contains(u, want) {
			t.Fatalf("login url %q missing %q", u, want)
		}
	}
}
