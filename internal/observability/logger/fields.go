package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar HTTP.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Campos estándar de negocio.

// PlatformID crea un campo para el ID de la plataforma (tenant).
func PlatformID(v string) zap.Field { return zap.String("platform_id", v) }

// UserID crea un campo para el ID del usuario.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Provider crea un campo para el provider federado (google, github, oidc).
func Provider(v string) zap.Field { return zap.String("provider", v) }

// Issuer crea un campo para el issuer OIDC.
func Issuer(v string) zap.Field { return zap.String("issuer", v) }

// KID crea un campo para el key id de un token.
func KID(v string) zap.Field { return zap.String("kid", v) }

// Email crea un campo para el email (usar enmascarado en prod).
func Email(v string) zap.Field { return zap.String("email", v) }

// Campos estándar de sistema.

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer crea un campo para la capa (handler, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// Genéricos.

func String(key, v string) zap.Field  { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
