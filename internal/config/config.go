// Package config handles gateway configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"graphgate/internal/domain"
)

// MinSecretLength is the minimum length of the credential-verification secret
// accepted in production.
const MinSecretLength = 32

// AuthConfig holds credential verification configuration.
type AuthConfig struct {
	// JWTSecret is the HS256 shared secret used to verify bearer tokens.
	JWTSecret string
	// IssuerURL enables OIDC discovery when set (JWKS-based verification).
	IssuerURL string
	// JWKSURL overrides JWKS discovery when no .well-known endpoint exists.
	JWKSURL string
	// Audience is the required JWT audience claim for OIDC verification.
	Audience string
	// TenantClaim is the JWT claim carrying the tenant identifier (default "tenant_id").
	TenantClaim string
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Config holds the immutable service configuration resolved once at startup.
type Config struct {
	DatabaseURL string // PostgreSQL connection string (required)
	ListenAddr  string // HTTP listen address (default ":8080")
	Env         string // deployment tier: "development" (default) or "production"
	LogLevel    string // log level: debug, info, warn, error (default "info")

	// Connection pool
	PoolMaxConns       int32         // maximum pooled connections (default 10)
	PoolAcquireTimeout time.Duration // wait bound for acquiring a connection (default 5s)
	PoolIdleTimeout    time.Duration // idle connections are recycled after this (default 5m)
	DrainTimeout       time.Duration // graceful shutdown bound for listener and pool (default 10s)

	// Schema-graph engine
	GraphRoute    string // route the engine handler is mounted at (default "/graphql")
	ExplorerRoute string // interactive explorer route, non-production only (default "/graphiql")
	MaxComplexity int    // production query cost cap (default 1000)
	MaxDepth      int    // production query nesting cap (default 10)

	// Schema introspection endpoint
	SchemaTables []string // allow-list of tables exposed by GET /schema

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins (default: ["*"])

	// HealthProbeSchedule is the cron spec for the advisory pool probe
	// (default "@every 30s").
	HealthProbeSchedule string

	// Auth holds credential verification configuration.
	Auth AuthConfig

	// Warnings collects non-fatal findings generated during loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
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

// IsProduction returns true when the gateway runs in the production tier.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// RedactedDatabaseURL returns the connection string with embedded credentials
// masked, safe for logging.
func (c *Config) RedactedDatabaseURL() string {
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.User == nil {
		// Not URL-shaped (e.g. key=value DSN), do not risk leaking it.
		if strings.Contains(c.DatabaseURL, "password=") {
			return "[redacted]"
		}
		return c.DatabaseURL
	}
	if _, hasPwd := u.User.Password(); hasPwd {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// LogSummary emits the redacted configuration summary plus any warnings
// collected during loading. Secrets are never logged in cleartext.
func (c *Config) LogSummary(logger *slog.Logger) {
	logger.Info("configuration resolved",
		"env", c.Env,
		"listen_addr", c.ListenAddr,
		"database_url", c.RedactedDatabaseURL(),
		"jwt_secret_len", len(c.Auth.JWTSecret),
		"oidc_enabled", c.Auth.OIDCEnabled(),
		"pool_max_conns", c.PoolMaxConns,
		"pool_acquire_timeout", c.PoolAcquireTimeout,
		"pool_idle_timeout", c.PoolIdleTimeout,
		"graph_route", c.GraphRoute,
		"schema_tables", len(c.SchemaTables),
	)
	for _, w := range c.Warnings {
		logger.Warn(w)
	}
}

// LoadFromEnv loads and validates configuration from environment variables.
// Validation failures are *domain.ConfigError and fatal to startup.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		Env:         os.Getenv("ENV"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("JWT_SECRET"),
			IssuerURL:   os.Getenv("AUTH_ISSUER_URL"),
			JWKSURL:     os.Getenv("AUTH_JWKS_URL"),
			Audience:    os.Getenv("AUTH_AUDIENCE"),
			TenantClaim: os.Getenv("AUTH_TENANT_CLAIM"),
		},
	}

	// Required inputs. Absence is fatal: no retry, no defaults.
	if cfg.DatabaseURL == "" {
		return nil, domain.ErrMissingVar("DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" && !cfg.Auth.OIDCEnabled() {
		return nil, domain.ErrMissingVar("JWT_SECRET")
	}

	if v := os.Getenv("PORT"); v != "" && cfg.ListenAddr == "" {
		cfg.ListenAddr = ":" + v
	}

	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, domain.ErrInvalidValue("POOL_MAX_CONNS", "must be a positive integer")
		}
		cfg.PoolMaxConns = int32(n)
	}
	var err error
	if cfg.PoolAcquireTimeout, err = durationEnv("POOL_ACQUIRE_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.PoolIdleTimeout, err = durationEnv("POOL_IDLE_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.DrainTimeout, err = durationEnv("SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	}

	cfg.GraphRoute = os.Getenv("GRAPH_ROUTE")
	cfg.ExplorerRoute = os.Getenv("EXPLORER_ROUTE")
	if v := os.Getenv("GRAPH_MAX_COMPLEXITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, domain.ErrInvalidValue("GRAPH_MAX_COMPLEXITY", "must be a positive integer")
		}
		cfg.MaxComplexity = n
	}
	if v := os.Getenv("GRAPH_MAX_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, domain.ErrInvalidValue("GRAPH_MAX_DEPTH", "must be a positive integer")
		}
		cfg.MaxDepth = n
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, domain.ErrInvalidValue("RATE_LIMIT_RPS", "must be a positive number")
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, domain.ErrInvalidValue("RATE_LIMIT_BURST", "must be a positive integer")
		}
		cfg.RateLimitBurst = n
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Schema allow-list: inline list takes precedence, YAML file as fallback.
	if v := os.Getenv("SCHEMA_TABLES"); v != "" {
		cfg.SchemaTables = compactNonEmpty(splitTrim(v))
	} else if path := os.Getenv("SCHEMA_ALLOWLIST_FILE"); path != "" {
		tables, err := loadAllowlistFile(path)
		if err != nil {
			return nil, domain.ErrInvalidValue("SCHEMA_ALLOWLIST_FILE", err.Error())
		}
		cfg.SchemaTables = tables
	}

	cfg.HealthProbeSchedule = os.Getenv("HEALTH_PROBE_SCHEDULE")

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.PoolMaxConns == 0 {
		cfg.PoolMaxConns = 10
	}
	if cfg.PoolAcquireTimeout == 0 {
		cfg.PoolAcquireTimeout = 5 * time.Second
	}
	if cfg.PoolIdleTimeout == 0 {
		cfg.PoolIdleTimeout = 5 * time.Minute
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = 10 * time.Second
	}
	if cfg.GraphRoute == "" {
		cfg.GraphRoute = "/graphql"
	}
	if cfg.ExplorerRoute == "" {
		cfg.ExplorerRoute = "/graphiql"
	}
	if cfg.MaxComplexity == 0 {
		cfg.MaxComplexity = 1000
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 10
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Auth.TenantClaim == "" {
		cfg.Auth.TenantClaim = "tenant_id"
	}
	if cfg.HealthProbeSchedule == "" {
		cfg.HealthProbeSchedule = "@every 30s"
	}

	// Secret strength: fatal in production, a warning elsewhere.
	if cfg.Auth.JWTSecret != "" && len(cfg.Auth.JWTSecret) < MinSecretLength {
		if cfg.IsProduction() {
			return nil, domain.ErrInsecureSecret("JWT_SECRET", MinSecretLength)
		}
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("JWT_SECRET is shorter than %d characters (fatal in production)", MinSecretLength))
	}
	if len(cfg.SchemaTables) == 0 {
		cfg.Warnings = append(cfg.Warnings,
			"no schema allow-list configured; GET /schema will report no tables")
	}

	return cfg, nil
}

func durationEnv(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, domain.ErrInvalidValue(key, "must be a positive duration (e.g. 5s)")
	}
	return d, nil
}

func splitTrim(v string) []string {
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// allowlistFile is the YAML shape of SCHEMA_ALLOWLIST_FILE.
type allowlistFile struct {
	Tables []string `yaml:"tables"`
}

func loadAllowlistFile(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f allowlistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return compactNonEmpty(f.Tables), nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
