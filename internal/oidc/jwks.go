package oidc

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
)

// jwksTTL: las keys publicadas cambian solo en rotación. Un kid que no
// aparece en el set cacheado fuerza un refetch antes de fallar.
const jwksTTL = time.Hour

// KeyFetcher resuelve la clave pública de verificación para un kid.
type KeyFetcher interface {
	Key(ctx context.Context, kid string) (any, error)
}

// JWKS retorna el key fetcher para un jwks_uri, memoizado por URI.
// Hereda el transporte del cache (incluido el escape hatch de TLS
// inseguro si el proceso lo habilitó).
func (c *DiscoveryCache) JWKS(jwksURI string) KeyFetcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.fetchers[jwksURI]; ok {
		return f
	}
	f := &jwksFetcher{uri: jwksURI, http: c.http}
	c.fetchers[jwksURI] = f
	return f
}

// jwksFetcher cachea el jwk.Set de un endpoint con refetch de-duplicado.
type jwksFetcher struct {
	uri  string
	http *http.Client
	sf   singleflight.Group

	mu        sync.RWMutex
	set       jwk.Set
	fetchedAt time.Time
}

// Key busca el kid en el set cacheado; si no está (set viejo o kid
// recién rotado), refetchea una vez y reintenta.
func (f *jwksFetcher) Key(ctx context.Context, kid string) (any, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: empty kid", ErrIssuerMisconfigured)
	}

	f.mu.RLock()
	set := f.set
	fresh := time.Since(f.fetchedAt) < jwksTTL
	f.mu.RUnlock()

	if set != nil && fresh {
		if raw, ok := lookupRaw(set, kid); ok {
			return raw, nil
		}
	}

	set, err := f.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if raw, ok := lookupRaw(set, kid); ok {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: kid %q not in jwks %s", ErrIssuerMisconfigured, kid, f.uri)
}

func (f *jwksFetcher) refresh(ctx context.Context) (jwk.Set, error) {
	v, err, _ := f.sf.Do("fetch", func() (any, error) {
		set, err := jwk.Fetch(ctx, f.uri, jwk.WithHTTPClient(f.http))
		if err != nil {
			return nil, fmt.Errorf("%w: jwks fetch %s: %v", ErrIssuerMisconfigured, f.uri, err)
		}
		f.mu.Lock()
		f.set = set
		f.fetchedAt = time.Now()
		f.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}

func lookupRaw(set jwk.Set, kid string) (any, bool) {
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, false
	}
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, false
	}
	return raw, true
}
