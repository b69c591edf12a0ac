package repository

import (
	"context"
	"time"
)

// Nombres de providers federados soportados.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
	ProviderOIDC   = "oidc"
)

// ProviderCredentials son las credenciales OAuth de una plataforma para
// un provider federado. IssuerURL solo aplica al provider genérico OIDC.
type ProviderCredentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	IssuerURL    string `json:"issuerUrl,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Platform es el boundary de aislamiento: cada signing key, issuer y
// credencial de provider pertenece a exactamente una plataforma.
type Platform struct {
	ID           string
	Name         string
	CustomDomain string // "" = usa el frontend base compartido
	Providers    map[string]ProviderCredentials
	CreatedAt    time.Time
}

// Credentials retorna las credenciales del provider pedido.
// ok=false si la plataforma no lo tiene configurado.
func (p *Platform) Credentials(provider string) (ProviderCredentials, bool) {
	if p == nil || p.Providers == nil {
		return ProviderCredentials{}, false
	}
	c, ok := p.Providers[provider]
	if !ok || c.ClientID == "" {
		return ProviderCredentials{}, false
	}
	return c, true
}

// PlatformRepository define operaciones de lectura sobre plataformas.
type PlatformRepository interface {
	// GetByID busca una plataforma por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, platformID string) (*Platform, error)

	// GetByHost resuelve una plataforma por su custom domain.
	// Retorna ErrNotFound si ningún dominio coincide.
	GetByHost(ctx context.Context, host string) (*Platform, error)
}
