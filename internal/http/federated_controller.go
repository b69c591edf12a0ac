package http

import (
	"net/http"

	"github.com/dropDatabas3/flowgate/internal/authn"
	"github.com/dropDatabas3/flowgate/internal/federation"
)

// FederatedController expone el round trip federado: construcción de
// la login URL y el callback que cierra el flow con una Session.
type FederatedController struct {
	federation *federation.Service
	authn      *authn.Service
}

// NewFederatedController crea el controller federado.
func NewFederatedController(fed *federation.Service, auth *authn.Service) *FederatedController {
	return &FederatedController{federation: fed, authn: auth}
}

// LoginURL arma la URL de autorización del provider.
// GET /v1/auth/federated/login-url?platformId=...&provider=...
func (c *FederatedController) LoginURL(w http.ResponseWriter, r *http.Request) {
	platformID := r.URL.Query().Get("platformId")
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "provider es requerido")
		return
	}

	u, err := c.federation.LoginURL(r.Context(), platformID, provider, r.Host)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, loginURLResponse{LoginURL: u})
}

// Callback cierra el flow: consume el state, intercambia el code y
// resuelve la Session vía el orchestrator.
// POST /v1/auth/federated/callback {"state": ..., "code": ...}
func (c *FederatedController) Callback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
		Code  string `json:"code"`
	}
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.State == "" || req.Code == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "state y code son requeridos")
		return
	}

	platformID, claim, err := c.federation.Exchange(r.Context(), req.State, req.Code, r.Host)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sess, err := c.authn.FederatedSignIn(r.Context(), platformID, claim)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}
