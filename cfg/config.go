// Package cfg loads service configuration from the environment.
package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	AppEnv        string        `envconfig:"APP_ENV" default:"development"`
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8080"`
	StorageDriver string        `envconfig:"STORAGE_DRIVER" default:"postgres"`
	SnowflakeNode int64         `envconfig:"SNOWFLAKE_NODE" default:"1"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	MatchCacheTTL time.Duration `envconfig:"MATCH_CACHE_TTL" default:"5m"`

	// Comma separated; members registering with these addresses get the admin role.
	AdminEmails []string `envconfig:"ADMIN_EMAILS"`
	// Skill submissions containing any of these terms are flagged for review.
	FlagTerms []string `envconfig:"FLAG_TERMS"`
	// Accept X-Member-ID from a trusted gateway. Never enable on a public listener.
	TrustIdentityHeader bool `envconfig:"IDENTITY_TRUST_HEADER" default:"false"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	DigestSchedule     string   `envconfig:"DIGEST_SCHEDULE" default:"0 0 * * *"`

	Postgres      PostgresConfig      `envconfig:"POSTGRES"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	OIDC          OIDCConfig          `envconfig:"OIDC"`
	Observability ObservabilityConfig `envconfig:"OTEL"`
}

// Nested keys are derived from field names under the parent prefix,
// e.g. POSTGRES_HOST, POSTGRES_DBNAME, OIDC_CLIENT_ID.
type PostgresConfig struct {
	Host     string `default:"localhost"`
	Port     string `default:"5432"`
	User     string `default:"skillswap"`
	Password string
	DBName   string `default:"skillswap"`
	SSLMode  string `default:"disable"`
}

// DSN returns the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `default:"localhost"`
	Port     string `default:"6379"`
	Password string
	DB       int `default:"0"`
	// Run an in-process server instead of dialing Host. Only honoured with
	// the memory storage driver.
	Embedded bool `default:"false"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// OIDCConfig is optional; login routes are disabled when Issuer is empty.
type OIDCConfig struct {
	Issuer       string
	ClientID     string `split_words:"true"`
	ClientSecret string `split_words:"true"`
	RedirectURL  string `split_words:"true" default:"http://localhost:8080/auth/callback"`
}

func (o OIDCConfig) Enabled() bool {
	return o.Issuer != ""
}

type ObservabilityConfig struct {
	Enabled     bool   `default:"false"`
	Endpoint    string `default:"localhost:4317"`
	ServiceName string `split_words:"true" default:"skillswap"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageMemory, StoragePostgres, c.StorageDriver)
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return fmt.Errorf("SNOWFLAKE_NODE must be within 0..1023")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Redis.Embedded && c.StorageDriver != StorageMemory {
		return fmt.Errorf("REDIS_EMBEDDED requires STORAGE_DRIVER=%s", StorageMemory)
	}
	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.ClientSecret == "") {
		return fmt.Errorf("OIDC_CLIENT_ID and OIDC_CLIENT_SECRET are required with OIDC_ISSUER")
	}
	for i, origin := range c.CORSAllowedOrigins {
		c.CORSAllowedOrigins[i] = strings.TrimSpace(origin)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
