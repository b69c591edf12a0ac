package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps agrupa los controllers del surface.
type RouterDeps struct {
	Auth      *AuthController
	Federated *FederatedController
	Tokens    *TokensController
}

// NewRouter arma el router chi con middlewares y rutas v1.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(withLogger)
	r.Use(recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/sign-up", deps.Auth.SignUp)
		r.Post("/auth/sign-in", deps.Auth.SignIn)
		r.Get("/auth/session", deps.Auth.Session)

		r.Get("/auth/federated/login-url", deps.Federated.LoginURL)
		r.Post("/auth/federated/callback", deps.Federated.Callback)

		r.Post("/tokens/external/verify", deps.Tokens.VerifyExternal)
	})

	return r
}
