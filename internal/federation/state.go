package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/flowgate/internal/cache"
	tokens "github.com/dropDatabas3/flowgate/internal/security/token"
)

// ErrInvalidState: el state del callback no existe, expiró o ya se usó.
var ErrInvalidState = errors.New("federation: invalid or expired state")

// stateTTL acota la ventana entre login URL y callback.
const stateTTL = 10 * time.Minute

// State es lo que viaja (opaco) entre login-url y callback.
type State struct {
	PlatformID string `json:"platformId"`
	Provider   string `json:"provider"`
}

// StateStore emite y consume states de un solo uso sobre el cache
// compartido (memory en dev, redis en prod).
type StateStore struct {
	cache cache.Client
}

// NewStateStore crea el store sobre el cache dado.
func NewStateStore(c cache.Client) *StateStore {
	return &StateStore{cache: c}
}

// Issue guarda el state y retorna su id opaco. En el cache compartido
// la key es el hash del id, no el id: un dump del cache no alcanza
// para fabricar un callback válido.
func (s *StateStore) Issue(ctx context.Context, st State) (string, error) {
	id, err := tokens.GenerateOpaqueToken(24)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, stateKey(id), string(b), stateTTL); err != nil {
		return "", fmt.Errorf("state store: %w", err)
	}
	return id, nil
}

// Consume recupera y borra el state (un solo uso).
func (s *StateStore) Consume(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrInvalidState
	}
	raw, err := s.cache.Get(ctx, stateKey(id))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrInvalidState
		}
		return nil, err
	}
	_ = s.cache.Delete(ctx, stateKey(id))

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, ErrInvalidState
	}
	return &st, nil
}

func stateKey(id string) string {
	return "fedstate:" + tokens.SHA256Base64URL(id)
}
