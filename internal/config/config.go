package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

type Config struct {
	Server      ServerConfig      `env:",prefix=SERVER_"`
	Postgres    PostgresConfig    `env:",prefix=POSTGRES_"`
	Redis       RedisConfig       `env:",prefix=REDIS_"`
	Token       TokenConfig       `env:",prefix=TOKEN_"`
	SignedToken SignedTokenConfig `env:",prefix=SIGNED_TOKEN_"`
	Security    SecurityConfig    `env:",prefix="`
	CORS        CORSConfig        `env:",prefix=CORS_"`
	Env         string            `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=session_auth"`
	Password string `env:"PASSWORD,default=session_auth_password"`
	DBName   string `env:"DB,default=session_auth_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// TokenConfig configures the OAuth access/refresh token pair.
type TokenConfig struct {
	Secret         string   `env:"SECRET,required"`
	AccessTokenTTL Duration `env:"ACCESS_TOKEN_TTL,default=24h"`
}

// SignedTokenConfig configures purpose-scoped confirmation and reset tokens.
type SignedTokenConfig struct {
	Secret           string   `env:"SECRET,required"`
	ConfirmEmailTTL  Duration `env:"CONFIRM_EMAIL_TTL,default=1d"`
	ResetPasswordTTL Duration `env:"RESET_PASSWORD_TTL,default=15m"`
}

type SecurityConfig struct {
	BCryptCost               int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests        int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow          Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	RequireEmailConfirmation bool     `env:"REQUIRE_EMAIL_CONFIRMATION,default=true"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=*"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var config Config

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.Token.Secret) < minSecretLength {
		return fmt.Errorf("TOKEN_SECRET must be at least %d characters long", minSecretLength)
	}
	if len(c.SignedToken.Secret) < minSecretLength {
		return fmt.Errorf("SIGNED_TOKEN_SECRET must be at least %d characters long", minSecretLength)
	}
	if c.Token.Secret == c.SignedToken.Secret {
		return fmt.Errorf("TOKEN_SECRET and SIGNED_TOKEN_SECRET must differ")
	}
	if c.Token.AccessTokenTTL.Duration <= 0 {
		return fmt.Errorf("TOKEN_ACCESS_TOKEN_TTL must be positive")
	}
	if c.SignedToken.ConfirmEmailTTL.Duration <= 0 || c.SignedToken.ResetPasswordTTL.Duration <= 0 {
		return fmt.Errorf("signed token TTLs must be positive")
	}
	return nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
