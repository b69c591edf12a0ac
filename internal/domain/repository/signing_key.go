package repository

import (
	"context"
	"time"
)

// SigningKey es la clave asimétrica con la que un host externo firma
// bearer tokens para una plataforma. El ID es el "kid" del header JWT y
// es globalmente único. Inmutable una vez emitida: la rotación es una
// fila nueva con otro kid, nunca una mutación de PublicKey.
type SigningKey struct {
	ID         string // kid
	PlatformID string
	PublicKey  string // PEM (PKIX o PKCS#1)
	PrivateKey string // PEM, "" si el host externo guarda la privada
	Algorithm  string // "RS256"
	CreatedAt  time.Time
}

// SigningKeyRepository define operaciones de lectura sobre signing keys.
// La creación es acción administrativa fuera de este core.
type SigningKeyRepository interface {
	// GetByID busca una clave por kid. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, kid string) (*SigningKey, error)
}
