// Package federation normaliza los providers de login federado
// (Google, GitHub, OIDC genérico) detrás de una sola interfaz que
// produce un IdentityClaim uniforme para el orchestrator.
package federation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errores del path federado.
var (
	// ErrProviderNotConfigured: la plataforma no tiene credenciales
	// para el provider pedido (o el provider no existe).
	ErrProviderNotConfigured = errors.New("federation: provider not configured")

	// ErrCodeExchangeFailed: el provider rechazó el authorization code.
	// El mensaje incluye el payload de error del provider.
	ErrCodeExchangeFailed = errors.New("federation: code exchange failed")

	// ErrEmailUnavailable: ningún email usable tras todos los fallbacks.
	ErrEmailUnavailable = errors.New("federation: no usable email")

	// ErrTokenVerificationFailed: firma/issuer/audience del ID token.
	ErrTokenVerificationFailed = errors.New("federation: token verification failed")
)

// IdentityClaim es el resultado normalizado de cualquier path federado.
// Email siempre llega no vacío y con "@" al orchestrator.
type IdentityClaim struct {
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	AvatarURL     string
}

// Validate chequea el invariante de email antes de entregar el claim.
func (c *IdentityClaim) Validate() error {
	if c == nil || !looksLikeEmail(c.Email) {
		return ErrEmailUnavailable
	}
	if c.FirstName == "" {
		c.FirstName = placeholderFirstName
	}
	if c.LastName == "" {
		c.LastName = placeholderLastName
	}
	return nil
}

// ProviderConfig son las credenciales por plataforma más el redirect
// resuelto para este flow. IssuerURL solo aplica al provider genérico.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string // space-separated; "" = default del provider
	IssuerURL    string
	RedirectURI  string
}

// Provider es la capability de un login federado.
type Provider interface {
	// Name retorna el nombre registrado ("google", "github", "oidc").
	Name() string

	// LoginURL construye la URL de autorización del provider.
	LoginURL(ctx context.Context, cfg ProviderConfig, state string) (string, error)

	// Authenticate intercambia el code y extrae la identidad normalizada.
	Authenticate(ctx context.Context, cfg ProviderConfig, code string) (*IdentityClaim, error)
}

// Placeholder cuando el issuer no publica name claims estructurados.
const (
	placeholderFirstName = "Unknown"
	placeholderLastName  = "Unknown"
)

func looksLikeEmail(s string) bool {
	return s != "" && strings.Contains(s, "@")
}

// splitFullName parte un display name en (first, last).
func splitFullName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// resolveNames aplica la cascada given/family → split(name) → placeholder.
func resolveNames(given, family, full string) (string, string) {
	first, last := given, family
	if first == "" && last == "" {
		first, last = splitFullName(full)
	}
	if first == "" {
		first = placeholderFirstName
	}
	if last == "" {
		last = placeholderLastName
	}
	return first, last
}

func scopeOrDefault(scope, def string) string {
	if strings.TrimSpace(scope) != "" {
		return scope
	}
	return def
}

func strClaim(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return s
}

func boolClaim(m map[string]any, k string) bool {
	b, _ := m[k].(bool)
	return b
}

// exchangeError arma el error de code exchange con el payload del
// provider adjunto para diagnóstico.
func exchangeError(status int, payload string) error {
	payload = strings.TrimSpace(payload)
	if len(payload) > 512 {
		payload = payload[:512]
	}
	return fmt.Errorf("%w: http %d: %s", ErrCodeExchangeFailed, status, payload)
}
