package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/flowgate/internal/domain/repository"
	"github.com/dropDatabas3/flowgate/internal/federation"
	jwtx "github.com/dropDatabas3/flowgate/internal/jwt"
	"github.com/dropDatabas3/flowgate/internal/metrics"
	"github.com/dropDatabas3/flowgate/internal/observability/logger"
	"github.com/dropDatabas3/flowgate/internal/secret"
	"github.com/dropDatabas3/flowgate/internal/security/password"
	tokens "github.com/dropDatabas3/flowgate/internal/security/token"
)

const (
	// managedKeyID es el kid fijo de los tokens del path manejado.
	managedKeyID = "1"
	// defaultTokenTTL aplica cuando Deps.TokenTTL es cero.
	defaultTokenTTL = 7 * 24 * time.Hour
	// synthesizedPasswordBytes: entropía del password nunca divulgado
	// que se genera para usuarios federados nuevos.
	synthesizedPasswordBytes = 32
)

// Deps contiene los colaboradores del orchestrator.
type Deps struct {
	Users      repository.UserRepository
	Hasher     password.Hasher
	Secrets    *secret.Manager
	Telemetry  Telemetry
	Newsletter Newsletter

	// Issuer es el claim iss de los tokens manejados.
	Issuer string
	// TokenTTL sobreescribe la expiración default de una semana.
	TokenTTL time.Duration
	// NewsletterEnabled gatea la suscripción por ambiente.
	NewsletterEnabled bool
}

// Session es el resultado de cualquier flow de autenticación exitoso.
// User viene sin PasswordHash.
type Session struct {
	User       *repository.User
	PlatformID string
	Token      string
	ExpiresAt  time.Time
}

// Service es la máquina de estados de autenticación: sign-up, sign-in
// y sign-in federado terminan en una Session o en un error tipado.
type Service struct {
	deps Deps
}

// NewService crea el orchestrator. Telemetry/Newsletter nil se
// reemplazan por nops.
func NewService(deps Deps) *Service {
	if deps.Telemetry == nil {
		deps.Telemetry = NopTelemetry{}
	}
	if deps.Newsletter == nil {
		deps.Newsletter = NopNewsletter{}
	}
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = defaultTokenTTL
	}
	return &Service{deps: deps}
}

// SignUpParams son los datos del registro local.
type SignUpParams struct {
	PlatformID string
	Email      string
	Password   string
	FirstName  string
	LastName   string
}

// SignUp crea el usuario y emite la primera sesión.
func (s *Service) SignUp(ctx context.Context, p SignUpParams) (*Session, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("authn"),
		logger.Op("SignUp"),
		logger.PlatformID(p.PlatformID),
	)

	hash, err := s.deps.Hasher.Hash(p.Password)
	if err != nil {
		metrics.SignUpsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// La verificación de email vive fuera de este core (no hay envío
	// de mails acá); los usuarios locales nacen verificados y el gate
	// de EmailNotVerified aplica a cuentas marcadas externamente.
	user, err := s.deps.Users.Create(ctx, repository.CreateUserInput{
		PlatformID:   p.PlatformID,
		Email:        p.Email,
		PasswordHash: hash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Verified:     true,
	})
	if err != nil {
		if repository.IsConflict(err) {
			metrics.SignUpsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			return nil, ErrUserAlreadyExists
		}
		metrics.SignUpsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	s.afterSignUp(ctx, user)

	session, err := s.issueSession(ctx, user)
	if err != nil {
		metrics.SignUpsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.SignUpsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	log.Info("user signed up", logger.UserID(user.ID))
	return session, nil
}

// SignInParams son las credenciales del login local.
type SignInParams struct {
	PlatformID string
	Email      string
	Password   string
}

// SignIn valida credenciales y estado de cuenta. Usuario inexistente y
// password incorrecto retornan exactamente el mismo error.
func (s *Service) SignIn(ctx context.Context, p SignInParams) (*Session, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("authn"),
		logger.Op("SignIn"),
		logger.PlatformID(p.PlatformID),
	)

	user, err := s.deps.Users.GetByPlatformAndEmail(ctx, p.PlatformID, p.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.SignInsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			return nil, ErrInvalidCredentials
		}
		metrics.SignInsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	if err := s.assertUsable(user, false); err != nil {
		metrics.SignInsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	if !s.deps.Hasher.Compare(p.Password, user.PasswordHash) {
		metrics.SignInsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		log.Debug("password mismatch", logger.UserID(user.ID))
		return nil, ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.SignInsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	log.Info("user signed in", logger.UserID(user.ID))
	return session, nil
}

// FederatedSignIn resuelve un claim federado ya verificado: usuario
// existente entra sin chequeo de password (los gates de estado siguen
// aplicando); usuario nuevo se registra con un password sintético que
// nunca se divulga.
func (s *Service) FederatedSignIn(ctx context.Context, platformID string, claim *federation.IdentityClaim) (*Session, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("authn"),
		logger.Op("FederatedSignIn"),
		logger.PlatformID(platformID),
	)
	if err := claim.Validate(); err != nil {
		return nil, err
	}

	user, err := s.deps.Users.GetByPlatformAndEmail(ctx, platformID, claim.Email)
	switch {
	case err == nil:
		if err := s.assertUsable(user, claim.EmailVerified); err != nil {
			return nil, err
		}
		log.Info("federated sign-in for existing user", logger.UserID(user.ID))
		return s.issueSession(ctx, user)

	case repository.IsNotFound(err):
		// sigue abajo con el provisioning

	default:
		return nil, err
	}

	plain, err := tokens.GenerateOpaqueToken(synthesizedPasswordBytes)
	if err != nil {
		return nil, fmt.Errorf("synthesize password: %w", err)
	}
	hash, err := s.deps.Hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("hash synthesized password: %w", err)
	}

	user, err = s.deps.Users.Create(ctx, repository.CreateUserInput{
		PlatformID:   platformID,
		Email:        claim.Email,
		PasswordHash: hash,
		FirstName:    claim.FirstName,
		LastName:     claim.LastName,
		AvatarURL:    claim.AvatarURL,
		Verified:     claim.EmailVerified,
	})
	if err != nil {
		if repository.IsConflict(err) {
			// Carrera con otro callback del mismo usuario: releer y
			// seguir por el camino de usuario existente.
			user, err = s.deps.Users.GetByPlatformAndEmail(ctx, platformID, claim.Email)
			if err != nil {
				return nil, err
			}
			if err := s.assertUsable(user, claim.EmailVerified); err != nil {
				return nil, err
			}
			return s.issueSession(ctx, user)
		}
		return nil, err
	}

	s.afterSignUp(ctx, user)
	log.Info("federated sign-in provisioned new user", logger.UserID(user.ID))
	return s.issueSession(ctx, user)
}

// assertUsable aplica los gates de estado de cuenta. federatedVerified
// permite que un claim verificado del provider supla la verificación
// local pendiente.
func (s *Service) assertUsable(user *repository.User, federatedVerified bool) error {
	if user.Status == repository.UserStatusInactive {
		return ErrUserInactive
	}
	if !user.Verified && !federatedVerified {
		return ErrEmailNotVerified
	}
	return nil
}

// issueSession firma el token manejado (HS256, kid "1") y arma la
// Session con el usuario sanitizado.
func (s *Service) issueSession(ctx context.Context, user *repository.User) (*Session, error) {
	sec, err := s.deps.Secrets.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token, err := jwtx.Sign(jwtx.MapClaims{
		"sub":        user.ID,
		"platformId": user.PlatformID,
	}, []byte(sec), jwtx.SignOptions{
		Algorithm: "HS256",
		ExpiresIn: s.deps.TokenTTL,
		Issuer:    s.deps.Issuer,
		KeyID:     managedKeyID,
	})
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &Session{
		User:       sanitize(user),
		PlatformID: user.PlatformID,
		Token:      token,
		ExpiresAt:  now.Add(s.deps.TokenTTL),
	}, nil
}

// VerifySession valida un token manejado y retorna sus claims.
func (s *Service) VerifySession(ctx context.Context, token string) (jwtx.MapClaims, error) {
	sec, err := s.deps.Secrets.Get(ctx)
	if err != nil {
		return nil, err
	}
	return jwtx.Verify(token, []byte(sec), jwtx.VerifyOptions{
		Algorithms: []string{"HS256"},
		Issuer:     s.deps.Issuer,
	})
}

// afterSignUp corre los side effects best-effort de un registro.
func (s *Service) afterSignUp(ctx context.Context, user *repository.User) {
	log := logger.From(ctx)
	if err := s.deps.Telemetry.Identify(ctx, user.ID, user.PlatformID, user.Email); err != nil {
		log.Warn("telemetry identify failed", logger.Err(err), logger.UserID(user.ID))
	}
	if s.deps.NewsletterEnabled {
		if err := s.deps.Newsletter.Subscribe(ctx, user.Email); err != nil {
			log.Warn("newsletter subscribe failed", logger.Err(err), logger.UserID(user.ID))
		}
	}
}

func sanitize(user *repository.User) *repository.User {
	clean := *user
	clean.PasswordHash = ""
	return &clean
}

// IsAuthError reporta si err pertenece a la taxonomía de errores de
// autenticación (vs. fallas de infraestructura).
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrUserInactive) ||
		errors.Is(err, ErrEmailNotVerified) ||
		errors.Is(err, ErrUserAlreadyExists)
}
