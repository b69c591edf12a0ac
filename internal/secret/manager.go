// Package secret garantiza que exista un signing secret simétrico
// durable para el path de tokens gestionados. Orden de resolución:
// override de configuración → archivo persistido → generación lazy
// (una sola vez por proceso, bajo mutex).
package secret

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dropDatabas3/flowgate/internal/observability/logger"
	"github.com/dropDatabas3/flowgate/internal/util/atomicwrite"
)

// ErrSecretUnavailable indica que el storage durable no está disponible.
// Nunca degradamos a un secret efímero: tokens firmados con un secret
// no persistido quedarían inverificables tras un restart, y eso tiene
// que ser un fallo visible, no pérdida silenciosa.
var ErrSecretUnavailable = errors.New("secret: signing secret unavailable")

// secretFile es el nombre fijo bajo el data dir.
const secretFile = "signing-secret"

// secretBytes es el tamaño del secret generado.
const secretBytes = 32

// Manager resuelve el secret gestionado. Constructor-injected: los
// tests crean instancias frescas con su propio data dir.
type Manager struct {
	override string
	path     string

	mu     sync.Mutex
	cached string
}

// NewManager crea un Manager. override vacío = sin secret externo.
func NewManager(override, dataDir string) *Manager {
	return &Manager{
		override: strings.TrimSpace(override),
		path:     filepath.Join(dataDir, secretFile),
	}
}

// Get retorna el secret gestionado, generándolo y persistiéndolo la
// primera vez. N callers concurrentes sin secret previo reciben todos
// el mismo valor: el check-then-generate-then-persist corre completo
// bajo el mutex.
func (m *Manager) Get(ctx context.Context) (string, error) {
	if m.override != "" {
		return m.override, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != "" {
		return m.cached, nil
	}

	b, err := os.ReadFile(m.path)
	switch {
	case err == nil:
		s := strings.TrimSpace(string(b))
		if s == "" {
			return "", fmt.Errorf("%w: empty secret file %s", ErrSecretUnavailable, m.path)
		}
		m.cached = s
		return s, nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("%w: read %s: %v", ErrSecretUnavailable, m.path, err)
	}

	s, err := generate()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}
	if err := atomicwrite.WriteFile(m.path, []byte(s), 0o600); err != nil {
		return "", fmt.Errorf("%w: persist: %v", ErrSecretUnavailable, err)
	}

	logger.From(ctx).Info("managed signing secret generated",
		logger.Component("secret"),
		logger.String("path", m.path),
	)
	m.cached = s
	return s, nil
}

func generate() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
