package http

import (
	"net/http"

	"github.com/dropDatabas3/flowgate/internal/metrics"
	"github.com/dropDatabas3/flowgate/internal/signingkeys"
)

// TokensController expone la verificación de tokens emitidos por
// partners con su propia clave de firma.
type TokensController struct {
	registry *signingkeys.Registry
}

// NewTokensController crea el controller de tokens externos.
func NewTokensController(reg *signingkeys.Registry) *TokensController {
	return &TokensController{registry: reg}
}

// VerifyExternal resuelve la clave por kid, verifica el token y
// retorna el principal externo.
// POST /v1/tokens/external/verify {"token": ...}
func (c *TokensController) VerifyExternal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "token es requerido")
		return
	}

	principal, err := c.registry.ResolveAndVerify(r.Context(), req.Token)
	if err != nil {
		metrics.ExternalTokensTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		writeDomainError(w, err)
		return
	}
	metrics.ExternalTokensTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	WriteJSON(w, http.StatusOK, externalPrincipalResponse{
		PlatformID:        principal.PlatformID,
		ExternalUserID:    principal.ExternalUserID,
		ExternalProjectID: principal.ExternalProjectID,
		Email:             principal.Email,
		FirstName:         principal.FirstName,
		LastName:          principal.LastName,
		Role:              principal.Role,
		PieceFilterType:   principal.PieceFilter.FilterType,
		PieceTags:         principal.PieceFilter.Tags,
	})
}
