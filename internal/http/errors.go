// Package http implementa el surface HTTP del servicio: sign-up,
// sign-in, flows federados y verificación de tokens externos.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/flowgate/internal/authn"
	"github.com/dropDatabas3/flowgate/internal/federation"
	jwtx "github.com/dropDatabas3/flowgate/internal/jwt"
	"github.com/dropDatabas3/flowgate/internal/oidc"
	"github.com/dropDatabas3/flowgate/internal/secret"
	"github.com/dropDatabas3/flowgate/internal/signingkeys"
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

// WriteError escribe la respuesta de error estándar.
func WriteError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		RequestID:        rid,
	})
}

// WriteJSON: respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica JSON de forma tolerante (no falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido")
		return false
	}
	return true
}

// writeDomainError mapea la taxonomía de errores del core a respuestas
// HTTP. InvalidCredentials siempre produce exactamente la misma
// respuesta, venga de usuario inexistente o de password incorrecto.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authn.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email o password incorrectos")
	case errors.Is(err, authn.ErrUserInactive):
		WriteError(w, http.StatusForbidden, "user_inactive", "la cuenta está desactivada")
	case errors.Is(err, authn.ErrEmailNotVerified):
		WriteError(w, http.StatusForbidden, "email_not_verified", "el email no está verificado")
	case errors.Is(err, authn.ErrUserAlreadyExists):
		WriteError(w, http.StatusConflict, "user_already_exists", "ya existe un usuario con ese email")
	case errors.Is(err, federation.ErrProviderNotConfigured):
		WriteError(w, http.StatusBadRequest, "provider_not_configured", "la plataforma no tiene ese provider configurado")
	case errors.Is(err, federation.ErrCodeExchangeFailed):
		WriteError(w, http.StatusBadGateway, "code_exchange_failed", err.Error())
	case errors.Is(err, federation.ErrEmailUnavailable):
		WriteError(w, http.StatusUnprocessableEntity, "email_unavailable", err.Error())
	case errors.Is(err, federation.ErrTokenVerificationFailed):
		WriteError(w, http.StatusUnauthorized, "token_verification_failed", "el ID token no pasó la verificación")
	case errors.Is(err, federation.ErrInvalidState):
		WriteError(w, http.StatusBadRequest, "invalid_state", "state inválido, expirado o ya usado")
	case errors.Is(err, signingkeys.ErrMissingKeyID):
		WriteError(w, http.StatusUnauthorized, "missing_key_id", "el token no trae header kid")
	case errors.Is(err, signingkeys.ErrUnknownSigningKey):
		WriteError(w, http.StatusUnauthorized, "unknown_signing_key", "ninguna clave registrada con ese kid")
	case errors.Is(err, jwtx.ErrInvalidToken):
		WriteError(w, http.StatusUnauthorized, "invalid_token", "token inválido o expirado")
	case errors.Is(err, oidc.ErrIssuerMisconfigured):
		WriteError(w, http.StatusBadGateway, "issuer_misconfigured", err.Error())
	case errors.Is(err, secret.ErrSecretUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "secret_unavailable", "el secret de firma no está disponible")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "error interno")
	}
}
