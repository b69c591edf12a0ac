// Package cache provee el cache compartido del servicio con soporte
// multi-backend:
//
//   - Memory (in-process, desarrollo/testing)
//   - Redis (distribuido, producción)
//
// El core lo usa para el estado efímero de los flows federados
// (state/nonce entre login-url y callback).
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indica que la key no existe o expiró.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es por key inexistente.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. ttl 0 = no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key. No es error si no existe.
	Delete(ctx context.Context, key string) error

	// Close cierra la conexión.
	Close() error
}

// Config para crear un cliente de cache.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // prefijo para todas las keys
}

// New crea un cliente según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
