package signingkeys

import (
	"context"
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/flowgate/internal/domain/repository"
	jwtx "github.com/dropDatabas3/flowgate/internal/jwt"
	"github.com/dropDatabas3/flowgate/internal/observability/logger"
)

var (
	// ErrMissingKeyID: el token no trae header kid.
	ErrMissingKeyID = errors.New("signingkeys: token has no kid header")
	// ErrUnknownSigningKey: ninguna clave registrada con ese kid.
	ErrUnknownSigningKey = errors.New("signingkeys: unknown signing key")
)

// Defaults de least privilege para claims opcionales del token externo.
const (
	DefaultRole       = "EDITOR"
	FilterTypeNone    = "NONE"
	FilterTypeAllowed = "ALLOWED"
)

// PieceFilter restringe qué pieces puede usar el principal externo.
type PieceFilter struct {
	FilterType string   `json:"filterType"`
	Tags       []string `json:"tags,omitempty"`
}

// ExternalPrincipal es el resultado de verificar un token emitido por
// un partner con su propia clave de firma. PlatformID viene SIEMPRE de
// la clave resuelta por kid, nunca del payload: el payload no es
// confiable para elegir plataforma.
type ExternalPrincipal struct {
	PlatformID        string
	ExternalUserID    string
	ExternalProjectID string
	Email             string
	FirstName         string
	LastName          string
	Role              string
	PieceFilter       PieceFilter
}

// Registry resuelve claves de firma por kid y verifica tokens externos.
type Registry struct {
	keys repository.SigningKeyRepository
}

// NewRegistry crea el registry sobre el repositorio de claves.
func NewRegistry(keys repository.SigningKeyRepository) *Registry {
	return &Registry{keys: keys}
}

// ResolveAndVerify lee el kid del header sin verificar, resuelve la
// clave pública de la plataforma dueña y verifica el token RS256.
// La separación decode-unsafe / verify existe solo para rutear la
// clave; nada del payload se usa antes de verificar la firma.
func (r *Registry) ResolveAndVerify(ctx context.Context, token string) (*ExternalPrincipal, error) {
	header, _, err := jwtx.DecodeUnsafe(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jwtx.ErrInvalidToken, err)
	}
	kid := jwtx.KIDFromHeader(header)
	if kid == "" {
		return nil, ErrMissingKeyID
	}

	key, err := r.keys.GetByID(ctx, kid)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: kid %q", ErrUnknownSigningKey, kid)
		}
		return nil, err
	}

	pub, err := jwtv5.ParseRSAPublicKeyFromPEM([]byte(key.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: kid %q has unparseable public key", ErrUnknownSigningKey, kid)
	}

	claims, err := jwtx.Verify(token, pub, jwtx.VerifyOptions{Algorithms: []string{"RS256"}})
	if err != nil {
		return nil, err
	}

	principal := principalFromClaims(key, claims)
	logger.From(ctx).Debug("external token verified",
		logger.Layer("service"),
		logger.Component("signingkeys"),
		logger.KID(kid),
		logger.PlatformID(principal.PlatformID),
	)
	return principal, nil
}

func principalFromClaims(key *repository.SigningKey, claims jwtx.MapClaims) *ExternalPrincipal {
	p := &ExternalPrincipal{
		PlatformID:        key.PlatformID,
		ExternalUserID:    strClaim(claims, "externalUserId"),
		ExternalProjectID: strClaim(claims, "externalProjectId"),
		Email:             strClaim(claims, "email"),
		FirstName:         strClaim(claims, "firstName"),
		LastName:          strClaim(claims, "lastName"),
		Role:              strClaim(claims, "role"),
		PieceFilter:       PieceFilter{FilterType: FilterTypeNone},
	}
	if p.Role == "" {
		p.Role = DefaultRole
	}
	if pieces, ok := claims["pieces"].(map[string]any); ok {
		if ft, ok := pieces["filterType"].(string); ok && ft != "" {
			p.PieceFilter.FilterType = ft
		}
		if tags, ok := pieces["tags"].([]any); ok {
			for _, tag := range tags {
				if s, ok := tag.(string); ok {
					p.PieceFilter.Tags = append(p.PieceFilter.Tags, s)
				}
			}
		}
	}
	return p
}

func strClaim(claims jwtx.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
