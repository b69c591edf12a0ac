// Package oidc implementa el cache de discovery documents y de JWKS
// por issuer. Los documentos de un issuer son efectivamente estáticos,
// así que se memoizan por vida del proceso; el fetch inicial se
// de-duplica con singleflight porque varios providers rate-limitan el
// endpoint de discovery.
package oidc

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/flowgate/internal/observability/logger"
)

// ErrIssuerMisconfigured indica discovery inaccesible o incompleto.
// Los callers no deben adivinar endpoints como fallback.
var ErrIssuerMisconfigured = errors.New("oidc: issuer misconfigured")

// ProviderMetadata es el subset del discovery document que usamos.
type ProviderMetadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	UserinfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
}

// Options configura el DiscoveryCache.
type Options struct {
	// InsecureSkipVerify deshabilita la verificación TLS de los fetches
	// (issuers locales de desarrollo). Es una decisión de proceso,
	// tomada una vez en el constructor; nunca per-request.
	InsecureSkipVerify bool

	// Timeout de los HTTP calls salientes. Default: 10s.
	Timeout time.Duration

	// HTTPClient permite inyectar un cliente (tests). Si se setea,
	// InsecureSkipVerify y Timeout se ignoran.
	HTTPClient *http.Client
}

// DiscoveryCache memoiza discovery documents por issuer normalizado y
// key fetchers por jwks_uri. Instancia explícita inyectada a los
// callers; los tests construyen la suya.
type DiscoveryCache struct {
	http *http.Client
	sf   singleflight.Group

	docs *gocache.Cache // issuer normalizado → *ProviderMetadata

	mu       sync.Mutex
	fetchers map[string]*jwksFetcher // jwks_uri → fetcher
}

// NewDiscoveryCache crea un cache vacío.
func NewDiscoveryCache(opt Options) *DiscoveryCache {
	cl := opt.HTTPClient
	if cl == nil {
		timeout := opt.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		cl = &http.Client{Timeout: timeout}
		if opt.InsecureSkipVerify {
			cl.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}
	return &DiscoveryCache{
		http:     cl,
		docs:     gocache.New(gocache.NoExpiration, 0),
		fetchers: make(map[string]*jwksFetcher),
	}
}

// NormalizeIssuer canonicaliza la URL de un issuer (sin trailing slash).
// Dos tenants apuntando al mismo issuer comparten una sola entrada.
func NormalizeIssuer(issuerURL string) string {
	return strings.TrimRight(strings.TrimSpace(issuerURL), "/")
}

// Config retorna el discovery document del issuer, fetcheándolo la
// primera vez. Callers concurrentes del mismo issuer no cacheado
// comparten un único fetch en vuelo.
func (c *DiscoveryCache) Config(ctx context.Context, issuerURL string) (*ProviderMetadata, error) {
	iss := NormalizeIssuer(issuerURL)
	if iss == "" {
		return nil, fmt.Errorf("%w: empty issuer url", ErrIssuerMisconfigured)
	}

	if v, ok := c.docs.Get(iss); ok {
		return v.(*ProviderMetadata), nil
	}

	v, err, _ := c.sf.Do("doc:"+iss, func() (any, error) {
		if v, ok := c.docs.Get(iss); ok {
			return v.(*ProviderMetadata), nil
		}
		md, err := c.fetchDocument(ctx, iss)
		if err != nil {
			return nil, err
		}
		c.docs.Set(iss, md, gocache.NoExpiration)
		return md, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProviderMetadata), nil
}

// Invalidate descarta el documento cacheado de un issuer (cache-bust
// manual para operadores; el próximo Config refetchea).
func (c *DiscoveryCache) Invalidate(issuerURL string) {
	c.docs.Delete(NormalizeIssuer(issuerURL))
}

func (c *DiscoveryCache) fetchDocument(ctx context.Context, issuer string) (*ProviderMetadata, error) {
	wellKnown := issuer + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIssuerMisconfigured, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: discovery fetch: %v", ErrIssuerMisconfigured, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: discovery http %d from %s", ErrIssuerMisconfigured, resp.StatusCode, wellKnown)
	}

	var md ProviderMetadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("%w: decode discovery: %v", ErrIssuerMisconfigured, err)
	}
	if md.Issuer == "" || md.AuthorizationEndpoint == "" || md.TokenEndpoint == "" || md.JWKSURI == "" {
		return nil, fmt.Errorf("%w: discovery document at %s missing required fields", ErrIssuerMisconfigured, wellKnown)
	}

	logger.From(ctx).Debug("discovery document fetched",
		logger.Component("oidc"),
		logger.Issuer(md.Issuer),
	)
	return &md, nil
}
