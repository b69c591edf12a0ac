package password

// Hasher es el servicio opaco de hashing que consume el orchestrator.
// El algoritmo concreto queda detrás de la interfaz.
type Hasher interface {
	// Hash deriva un hash verificable del password en claro.
	Hash(plain string) (string, error)

	// Compare verifica el password contra el hash almacenado.
	Compare(plain, hash string) bool
}

// Argon2id retorna el hasher default (argon2id con parámetros Default).
func Argon2id() Hasher { return argon2idHasher{p: Default} }

type argon2idHasher struct{ p Params }

func (h argon2idHasher) Hash(plain string) (string, error) { return Hash(h.p, plain) }
func (h argon2idHasher) Compare(plain, hash string) bool   { return Verify(plain, hash) }
