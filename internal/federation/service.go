package federation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/flowgate/internal/domain/repository"
	"github.com/dropDatabas3/flowgate/internal/metrics"
	"github.com/dropDatabas3/flowgate/internal/observability/logger"
	"github.com/dropDatabas3/flowgate/internal/util"
)

// ServiceDeps contiene las dependencias del service federado.
type ServiceDeps struct {
	Platforms repository.PlatformRepository
	Registry  *Registry
	Redirects RedirectResolver
	States    *StateStore
}

// Service orquesta el round trip federado: resuelve credenciales por
// plataforma, emite el state y garantiza que login-url y exchange usen
// el mismo redirect_uri.
type Service struct {
	deps ServiceDeps
}

// NewService crea el service federado.
func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// LoginURL arma la URL de autorización del provider para la plataforma.
func (s *Service) LoginURL(ctx context.Context, platformID, providerName, requestHost string) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("federation"),
		logger.Op("LoginURL"),
		logger.Provider(providerName),
		logger.PlatformID(platformID),
	)

	provider, cfg, _, err := s.resolve(ctx, platformID, providerName, requestHost)
	if err != nil {
		log.Debug("provider resolution failed", logger.Err(err))
		return "", err
	}

	state, err := s.deps.States.Issue(ctx, State{PlatformID: platformID, Provider: providerName})
	if err != nil {
		return "", fmt.Errorf("issue state: %w", err)
	}

	return provider.LoginURL(ctx, cfg, state)
}

// Exchange consume el state del callback y completa la autenticación
// contra el provider. Retorna el claim normalizado junto con la
// plataforma a la que pertenece el flow.
func (s *Service) Exchange(ctx context.Context, stateID, code, requestHost string) (string, *IdentityClaim, error) {
	st, err := s.deps.States.Consume(ctx, stateID)
	if err != nil {
		return "", nil, err
	}

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("federation"),
		logger.Op("Exchange"),
		logger.Provider(st.Provider),
		logger.PlatformID(st.PlatformID),
	)

	provider, cfg, _, err := s.resolve(ctx, st.PlatformID, st.Provider, requestHost)
	if err != nil {
		log.Debug("provider resolution failed", logger.Err(err))
		return "", nil, err
	}

	claim, err := provider.Authenticate(ctx, cfg, code)
	if err != nil {
		metrics.FederatedTotal.WithLabelValues(st.Provider, metrics.OutcomeRejected).Inc()
		log.Info("federated authentication failed", logger.Err(err))
		return "", nil, err
	}
	if err := claim.Validate(); err != nil {
		metrics.FederatedTotal.WithLabelValues(st.Provider, metrics.OutcomeRejected).Inc()
		return "", nil, err
	}

	metrics.FederatedTotal.WithLabelValues(st.Provider, metrics.OutcomeOK).Inc()
	log.Info("federated authentication ok", logger.Email(util.MaskEmail(claim.Email)))
	return st.PlatformID, claim, nil
}

// resolve busca la plataforma, sus credenciales y el provider, y arma
// el ProviderConfig con el redirect resuelto para este host.
func (s *Service) resolve(ctx context.Context, platformID, providerName, requestHost string) (Provider, ProviderConfig, *repository.Platform, error) {
	provider, err := s.deps.Registry.Get(providerName)
	if err != nil {
		return nil, ProviderConfig{}, nil, err
	}

	platform, err := s.deps.Platforms.GetByID(ctx, platformID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ProviderConfig{}, nil, ErrProviderNotConfigured
		}
		return nil, ProviderConfig{}, nil, err
	}

	creds, ok := platform.Credentials(providerName)
	if !ok {
		return nil, ProviderConfig{}, nil, ErrProviderNotConfigured
	}

	cfg := ProviderConfig{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scope:        creds.Scope,
		IssuerURL:    creds.IssuerURL,
		RedirectURI:  s.deps.Redirects.Resolve(platform, requestHost),
	}
	return provider, cfg, platform, nil
}
