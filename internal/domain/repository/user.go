package repository

import (
	"context"
	"time"
)

// UserStatus indica el estado de la cuenta.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// User representa un usuario de una plataforma.
type User struct {
	ID           string
	PlatformID   string // "" = tier default/compartido
	Email        string
	FirstName    string
	LastName     string
	AvatarURL    string
	PasswordHash string
	Verified     bool
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	PlatformID   string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	AvatarURL    string
	Verified     bool
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByPlatformAndEmail busca un usuario por email dentro de una
	// plataforma. Retorna ErrNotFound si no existe.
	GetByPlatformAndEmail(ctx context.Context, platformID, email string) (*User, error)

	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, userID string) (*User, error)

	// Create crea un usuario. Retorna ErrConflict si el par
	// (platform, email) ya existe.
	Create(ctx context.Context, input CreateUserInput) (*User, error)
}
