package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio. Se carga desde un
// YAML opcional y se pisa con variables de entorno FLOWGATE_*.
type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// postgres | none (none = sin persistencia, solo para tooling)
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Driver string `yaml:"driver"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		SessionTTL string `yaml:"session_ttl"`
	} `yaml:"jwt"`

	Secret struct {
		// Override externo del secret manejado; si está vacío se
		// genera y persiste uno en DataDir.
		Override string `yaml:"override"`
		DataDir  string `yaml:"data_dir"`
	} `yaml:"secret"`

	Federation struct {
		FrontendBase string `yaml:"frontend_base"`
		// InsecureSkipTLSVerify relaja TLS en los fetch OIDC para
		// issuers locales de desarrollo. Jamás en prod.
		InsecureSkipTLSVerify bool   `yaml:"insecure_skip_tls_verify"`
		HTTPTimeout           string `yaml:"http_timeout"`
	} `yaml:"federation"`

	Newsletter struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"newsletter"`
}

// Load lee el YAML (path vacío = solo defaults + env) y aplica
// overrides de entorno y validación.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Guardia dura: en prod nunca se relaja TLS.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Federation.InsecureSkipTLSVerify = false
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "flowgate"
	}
	if c.JWT.SessionTTL == "" {
		c.JWT.SessionTTL = "168h" // una semana
	}
	if c.Secret.DataDir == "" {
		c.Secret.DataDir = "./data/flowgate"
	}
	if c.Federation.HTTPTimeout == "" {
		c.Federation.HTTPTimeout = "10s"
	}
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("FLOWGATE_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("FLOWGATE_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("FLOWGATE_CORS_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("FLOWGATE_STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("FLOWGATE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("FLOWGATE_CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("FLOWGATE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("FLOWGATE_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("FLOWGATE_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("FLOWGATE_REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("FLOWGATE_JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("FLOWGATE_SESSION_TTL"); ok {
		c.JWT.SessionTTL = v
	}
	if v, ok := getEnvStr("FLOWGATE_SECRET"); ok {
		c.Secret.Override = v
	}
	if v, ok := getEnvStr("FLOWGATE_DATA_DIR"); ok {
		c.Secret.DataDir = v
	}
	if v, ok := getEnvStr("FLOWGATE_FRONTEND_BASE"); ok {
		c.Federation.FrontendBase = v
	}
	if v, ok := getEnvBool("FLOWGATE_OIDC_INSECURE_TLS"); ok {
		c.Federation.InsecureSkipTLSVerify = v
	}
	if v, ok := getEnvBool("FLOWGATE_NEWSLETTER_ENABLED"); ok {
		c.Newsletter.Enabled = v
	}
}

// Validate chequea combinaciones inválidas y durations mal escritas.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "none":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required with the postgres driver")
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr is required with the redis driver")
	}
	if _, err := time.ParseDuration(c.JWT.SessionTTL); err != nil {
		return fmt.Errorf("config: jwt.session_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Federation.HTTPTimeout); err != nil {
		return fmt.Errorf("config: federation.http_timeout: %w", err)
	}
	return nil
}

// SessionTTL retorna la duración parseada. Validate ya garantizó que
// parsea.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.SessionTTL)
	return d
}

// FederationHTTPTimeout retorna el timeout parseado de los calls OIDC.
func (c *Config) FederationHTTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Federation.HTTPTimeout)
	return d
}

// IsProd reporta si el ambiente es productivo.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func getEnvCSV(key string) ([]string, bool) {
	v := os.Getenv(key)
	if v == "" {
		return nil, false
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, len(out) > 0
}
