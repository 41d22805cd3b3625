package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pitchside/server/internal/validation"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Email          EmailConfig
	Jobs           JobsConfig
	Tracing        TracingConfig
	Logging        LoggingConfig
	AdminBootstrap AdminBootstrapConfig
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
}

type ServerConfig struct {
	Host              string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL           string        `env:"SERVER_BASE_URL" envDefault:"http://localhost:8080"`
	ClientURL         string        `env:"CLIENT_URL" envDefault:"http://localhost:3000"`
	TrustedProxyCIDRs []string      `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`
	ShutdownTimeout   time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type DatabaseConfig struct {
	URL            string `env:"DATABASE_URL"`
	MaxConnections int    `env:"DATABASE_MAX_CONNECTIONS" envDefault:"25"`
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTExpiryHours int           `env:"JWT_EXPIRY_HOURS" envDefault:"720"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"pitchside"`
	CookieSecure   bool          `env:"COOKIE_SECURE"`
	CSRFKey        string        `env:"CSRF_KEY"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
}

// JWTExpiry is the lifetime of login tokens. The default is 30 days.
func (a AuthConfig) JWTExpiry() time.Duration {
	return time.Duration(a.JWTExpiryHours) * time.Hour
}

type RateLimitConfig struct {
	PublicPerMinute int `env:"RATE_LIMIT_PUBLIC" envDefault:"60"`
	AuthPerHour     int `env:"RATE_LIMIT_AUTH_PER_HOUR" envDefault:"5"`
}

type CORSConfig struct {
	AllowAllOrigins bool     `env:"CORS_ALLOW_ALL"`
	AllowedOrigins  []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type EmailConfig struct {
	Enabled      bool   `env:"EMAIL_ENABLED"`
	Provider     string `env:"EMAIL_PROVIDER" envDefault:"resend"`
	From         string `env:"EMAIL_FROM" envDefault:"noreply@pitchside.local"`
	FromName     string `env:"EMAIL_FROM_NAME" envDefault:"Cricket Tournament Manager"`
	ResendAPIKey string `env:"RESEND_API_KEY"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

type JobsConfig struct {
	Enabled               bool          `env:"JOBS_ENABLED" envDefault:"true"`
	Workers               int           `env:"JOBS_WORKERS" envDefault:"4"`
	EmailMaxAttempts      int           `env:"JOB_RETRY_EMAIL" envDefault:"5"`
	StatusRefreshInterval time.Duration `env:"JOB_TOURNAMENT_STATUS_INTERVAL" envDefault:"15m"`
}

type TracingConfig struct {
	Enabled      bool    `env:"TRACING_ENABLED"`
	Exporter     string  `env:"TRACING_EXPORTER" envDefault:"none"`
	OTLPEndpoint string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName  string  `env:"TRACING_SERVICE_NAME" envDefault:"pitchside-server"`
	SampleRate   float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type AdminBootstrapConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Password string `env:"ADMIN_PASSWORD"`
	Email    string `env:"ADMIN_EMAIL"`
}

// Enabled reports whether all three bootstrap values are set.
func (a AdminBootstrapConfig) Enabled() bool {
	return a.Username != "" && a.Password != "" && a.Email != ""
}

const minProductionSecretLength = 32

// Load reads configuration from, in increasing precedence: an optional YAML
// file of KEY: value pairs, a .env file in the working directory, and the
// process environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	vars := env.ToMap(os.Environ())
	if path != "" {
		fileVars, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for k, v := range fileVars {
			if _, ok := vars[k]; !ok {
				vars[k] = v
			}
		}
	}

	return parse(vars)
}

func parse(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch typed := v.(type) {
		case []any:
			parts := make([]string, 0, len(typed))
			for _, p := range typed {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		case nil:
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(typed)
		}
	}
	return out, nil
}

// Validate checks values that would otherwise fail at first use.
func (c Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < minProductionSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters in production", minProductionSecretLength))
	}
	// Reset links are built from CLIENT_URL.
	if fe := validation.ValidateURL(c.Server.ClientURL, "CLIENT_URL", c.IsProduction()); fe != nil {
		errs = append(errs, fe)
	}
	if c.Auth.JWTExpiryHours <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY_HOURS must be positive"))
	}
	if c.Email.Enabled {
		switch c.Email.Provider {
		case "resend":
			if c.Email.ResendAPIKey == "" {
				errs = append(errs, errors.New("RESEND_API_KEY is required when EMAIL_PROVIDER=resend"))
			}
		case "smtp":
			if c.Email.SMTPHost == "" {
				errs = append(errs, errors.New("SMTP_HOST is required when EMAIL_PROVIDER=smtp"))
			}
		default:
			errs = append(errs, fmt.Errorf("EMAIL_PROVIDER must be resend or smtp, got %q", c.Email.Provider))
		}
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
