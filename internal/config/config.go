// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage backends, the feature gate, event
// publishing, rate limiting, and observability.
//
// Variables are bound with cleanenv struct tags. Booleans accept the
// strconv.ParseBool spellings (1/0, t/f, true/false); durations use
// time.ParseDuration syntax; lists are comma separated. A malformed value is
// an error, never a silent fallback to the default.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS"  env-default:"false"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" env-default:"4320h"`
}

// DBConfig selects and locates the relational store.
type DBConfig struct {
	Driver string `env:"DB_DRIVER"    env-default:"sqlite" env-description:"sqlite or postgres"`
	Path   string `env:"DB_PATH"      env-default:"app.db"`
	URL    string `env:"DATABASE_URL" env-description:"postgres DSN, required when DB_DRIVER=postgres"`
}

// FlagsConfig configures the feature gate and its backing store.
type FlagsConfig struct {
	Store         string        `env:"FLAG_STORE"     env-default:"sql" env-description:"sql or redis"`
	RedisAddr     string        `env:"REDIS_ADDR"     env-default:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"       env-default:"0"`
	CacheTTL      time.Duration `env:"FLAG_CACHE_TTL" env-default:"60s"`
	// StoreTimeout bounds every flag store read made by the gate.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" env-default:"2s"`
	// DelayFlag names the engine's kill switch.
	DelayFlag string `env:"DELAY_FLAG" env-default:"delay_guarantee_enabled"`
}

// KafkaConfig configures lifecycle event publishing. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC" env-default:"compensation.events"`
}

// AdvisoryConfig configures the optional advisory note generator.
type AdvisoryConfig struct {
	GeminiAPIKey string        `env:"GEMINI_API_KEY" env-description:"empty disables advisory notes"`
	GeminiModel  string        `env:"GEMINI_MODEL"     env-default:"gemini-1.5-flash"`
	Timeout      time.Duration `env:"ADVISORY_TIMEOUT" env-default:"3s"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED"                env-default:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME"           env-default:"delay-guarantee"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG"     env-default:"1.0" env-description:"in [0,1]"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT"                env-default:"8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT"        env-default:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" env-default:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       env-default:"20s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"        env-default:"60s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES"    env-default:"1048576"`
	GinMode           string        `env:"GIN_MODE"            env-default:"release"`

	// Logging / Docs
	LogLevel       string `env:"LOG_LEVEL"       env-default:"info"`
	LogPretty      bool   `env:"LOG_PRETTY"      env-default:"false"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED" env-default:"false"`
	GzipEnabled    bool   `env:"GZIP_ENABLED"    env-default:"true"`
	APIBasePath    string `env:"API_BASE_PATH"   env-default:"/api/v1"`

	DB DBConfig

	// Engine
	Flags      FlagsConfig
	PolicyPath string `env:"POLICY_PATH" env-description:"optional YAML policy file"`
	Kafka      KafkaConfig
	Advisory   AdvisoryConfig

	RateRPS   float64 `env:"RATE_RPS"   env-default:"5"`
	RateBurst int     `env:"RATE_BURST" env-default:"10"`

	CORS     CORSConfig
	Security SecurityConfig

	// IdempotencyTTL is how long an Idempotency-Key stays replayable.
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" env-default:"24h"`

	OTEL OTELConfig
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	cfg.normalize()
	return cfg, cfg.Validate()
}

// Usage describes every variable Load reads, with its default.
func Usage() string {
	var cfg Config
	s, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return s
}

func (c *Config) normalize() {
	c.GinMode = strings.ToLower(strings.TrimSpace(c.GinMode))
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	c.Flags.Store = strings.ToLower(strings.TrimSpace(c.Flags.Store))
	c.APIBasePath = normalizeBasePath(c.APIBasePath)
	c.CORS.AllowedOrigins = compact(c.CORS.AllowedOrigins)
	c.Kafka.Brokers = compact(c.Kafka.Brokers)
}

// Validate reports the first setting that cannot be served.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if c.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}

	switch c.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(c.DB.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(c.DB.URL) == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}

	switch c.Flags.Store {
	case "sql":
	case "redis":
		if strings.TrimSpace(c.Flags.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required when FLAG_STORE=redis")
		}
	default:
		return errors.New("FLAG_STORE must be one of: sql, redis")
	}
	switch {
	case c.Flags.CacheTTL <= 0:
		return errors.New("FLAG_CACHE_TTL must be > 0")
	case c.Flags.StoreTimeout <= 0:
		return errors.New("STORE_TIMEOUT must be > 0")
	case strings.TrimSpace(c.Flags.DelayFlag) == "":
		return errors.New("DELAY_FLAG must not be empty")
	case len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "":
		return errors.New("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	case c.Advisory.Timeout <= 0:
		return errors.New("ADVISORY_TIMEOUT must be > 0")
	case c.RateRPS < 0:
		return errors.New("RATE_RPS must be >= 0")
	case c.RateBurst < 1:
		return errors.New("RATE_BURST must be >= 1")
	case c.Security.HSTSMaxAge < 0:
		return errors.New("HSTS_MAX_AGE must be >= 0")
	case c.IdempotencyTTL <= 0:
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	case c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1:
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// compact trims list entries and drops empty ones.
func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and no trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
