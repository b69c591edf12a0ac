package repository

import "errors"

// Errores comunes de los repositorios.
var (
	// ErrNotFound indica que el registro no existe.
	ErrNotFound = errors.New("repository: not found")

	// ErrConflict indica violación de unicidad (ej: email duplicado).
	ErrConflict = errors.New("repository: conflict")
)

// IsNotFound verifica si el error es por registro inexistente.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict verifica si el error es por violación de unicidad.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
