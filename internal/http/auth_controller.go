package http

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/flowgate/internal/authn"
	"github.com/dropDatabas3/flowgate/internal/domain/repository"
)

// AuthController expone sign-up, sign-in y el endpoint de sesión.
type AuthController struct {
	authn *authn.Service
}

// NewAuthController crea el controller de autenticación local.
func NewAuthController(svc *authn.Service) *AuthController {
	return &AuthController{authn: svc}
}

func (c *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "email y password son requeridos")
		return
	}

	sess, err := c.authn.SignUp(r.Context(), authn.SignUpParams{
		PlatformID: req.PlatformID,
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (c *AuthController) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !ReadJSON(w, r, &req) {
		return
	}

	sess, err := c.authn.SignIn(r.Context(), authn.SignInParams{
		PlatformID: req.PlatformID,
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}

// Session valida el bearer token manejado y retorna sus claims.
func (c *AuthController) Session(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "missing_token", "falta el header Authorization: Bearer")
		return
	}
	claims, err := c.authn.VerifySession(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, claims)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func toSessionResponse(s *authn.Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt.Unix(),
		User:      toUserResponse(s.User),
	}
}

func toUserResponse(u *repository.User) userResponse {
	return userResponse{
		ID:         u.ID,
		PlatformID: u.PlatformID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		AvatarURL:  u.AvatarURL,
		Verified:   u.Verified,
	}
}
