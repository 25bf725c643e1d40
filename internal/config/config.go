// Package config handles application configuration and environment loading.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DevJWTSecret is the shared secret used when JWT_SECRET is unset outside
// production.
const DevJWTSecret = "dev-secret-change-in-production"

// AuthConfig holds bearer-token validation settings.
type AuthConfig struct {
	IssuerURL      string   `yaml:"issuer_url"`      // OIDC issuer URL
	JWKSURL        string   `yaml:"jwks_url"`        // JWKS URL when the issuer has no discovery document
	Audience       string   `yaml:"audience"`        // required aud claim
	AllowedIssuers []string `yaml:"allowed_issuers"` // defaults to [IssuerURL]
	JWTSecret      string   `yaml:"jwt_secret"`      // HS256 shared secret for local/dev tokens
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.IssuerURL == "" && a.JWKSURL == "" && a.JWTSecret == "" {
		return fmt.Errorf("one of AUTH_ISSUER_URL, AUTH_JWKS_URL or JWT_SECRET must be set")
	}
	if a.IssuerURL != "" && a.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	return nil
}

// SeedPrincipal describes a principal the server ensures exists on startup.
type SeedPrincipal struct {
	Name       string  `yaml:"name"`
	Email      string  `yaml:"email"`
	ExternalID *string `yaml:"external_id"`
}

// Config holds the configuration of the principal registry server.
type Config struct {
	MetaDBPath string `yaml:"meta_db_path"` // path to the SQLite principal store
	ListenAddr string `yaml:"listen_addr"`  // HTTP listen address (default ":8080")
	LogLevel   string `yaml:"log_level"`    // debug, info, warn, error (default "info")
	Env        string `yaml:"env"`          // "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // sustained requests per second (default 100)
	RateLimitBurst int     `yaml:"rate_limit_burst"` // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"` // default: ["*"]

	// Store tuning
	PrincipalListBlockSize int `yaml:"principal_list_block_size"` // rows per listing block (default 100)
	ReadPoolSize           int `yaml:"read_pool_size"`            // read connections (default 4)

	Auth AuthConfig `yaml:"auth"`

	// Principals created at startup when missing. File-only.
	SeedPrincipals []SeedPrincipal `yaml:"seed_principals"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration. When CONFIG_FILE names a YAML file it is
// read first; environment variables then override the values it sets.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	setString(&cfg.MetaDBPath, "META_DB_PATH")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Env, "ENV")
	setString(&cfg.Auth.IssuerURL, "AUTH_ISSUER_URL")
	setString(&cfg.Auth.JWKSURL, "AUTH_JWKS_URL")
	setString(&cfg.Auth.Audience, "AUTH_AUDIENCE")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}
	for key, dst := range map[string]*int{
		"RATE_LIMIT_BURST":          &cfg.RateLimitBurst,
		"PRINCIPAL_LIST_BLOCK_SIZE": &cfg.PrincipalListBlockSize,
		"READ_POOL_SIZE":            &cfg.ReadPoolSize,
	} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = splitList(v)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.MetaDBPath == "" {
		c.MetaDBPath = "principals.sqlite"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 100
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 200
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if c.PrincipalListBlockSize < 0 || c.ReadPoolSize < 0 {
		return fmt.Errorf("PRINCIPAL_LIST_BLOCK_SIZE and READ_POOL_SIZE must not be negative")
	}
	if c.PrincipalListBlockSize == 0 {
		c.PrincipalListBlockSize = 100
	}
	if c.ReadPoolSize == 0 {
		c.ReadPoolSize = 4
	}
	if !c.Auth.OIDCEnabled() {
		c.Warnings = append(c.Warnings, "OIDC is not configured; set AUTH_ISSUER_URL or AUTH_JWKS_URL")
		if c.Auth.JWTSecret == "" && !c.IsProduction() {
			c.Auth.JWTSecret = DevJWTSecret
			c.Warnings = append(c.Warnings, "JWT_SECRET not set; using insecure development secret")
		}
	}

	// Production mode: insecure defaults are fatal errors.
	if c.IsProduction() {
		if !c.Auth.OIDCEnabled() {
			return fmt.Errorf("OIDC must be configured in production (set AUTH_ISSUER_URL or AUTH_JWKS_URL)")
		}
		if c.Auth.JWTSecret == DevJWTSecret {
			return fmt.Errorf("the development JWT_SECRET must not be used in production")
		}
		if len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
			return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}
	return c.Auth.Validate()
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
