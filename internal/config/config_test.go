package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.LogLevel != "info" || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("server defaults: %+v", cfg)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "app.db" {
		t.Fatalf("db defaults: %+v", cfg.DB)
	}
	want := FlagsConfig{
		Store:        "sql",
		RedisAddr:    "localhost:6379",
		CacheTTL:     time.Minute,
		StoreTimeout: 2 * time.Second,
		DelayFlag:    "delay_guarantee_enabled",
	}
	if cfg.Flags != want {
		t.Fatalf("flags = %+v; want %+v", cfg.Flags, want)
	}
	if len(cfg.Kafka.Brokers) != 0 || cfg.Kafka.Topic != "compensation.events" {
		t.Fatalf("kafka defaults: %+v", cfg.Kafka)
	}
	if cfg.Advisory.GeminiAPIKey != "" || cfg.Advisory.Timeout != 3*time.Second {
		t.Fatalf("advisory defaults: %+v", cfg.Advisory)
	}
	if cfg.RateRPS != 5 || cfg.RateBurst != 10 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("rate/idempotency defaults: %+v", cfg)
	}
	if cfg.Security.HSTSMaxAge != 180*24*time.Hour || !cfg.GzipEnabled || cfg.OTEL.Enabled {
		t.Fatalf("security/otel defaults: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	env := map[string]string{
		"PORT":                        "9090",
		"GIN_MODE":                    "weird",
		"LOG_LEVEL":                   "WARNING",
		"LOG_PRETTY":                  "true",
		"API_BASE_PATH":               "svc/v2/",
		"GZIP_ENABLED":                "0",
		"DB_DRIVER":                   "Postgres",
		"DATABASE_URL":                "postgres://u:p@db:5432/delay?sslmode=disable",
		"FLAG_STORE":                  "REDIS",
		"REDIS_ADDR":                  "redis:6379",
		"REDIS_DB":                    "2",
		"FLAG_CACHE_TTL":              "30s",
		"STORE_TIMEOUT":               "500ms",
		"DELAY_FLAG":                  "dg_on",
		"POLICY_PATH":                 "policy.yaml",
		"KAFKA_BROKERS":               "k1:9092, ,k2:9092",
		"CORS_ALLOWED_ORIGINS":        " https://ops.example.com ,",
		"ENABLE_HSTS":                 "TRUE",
		"HSTS_MAX_AGE":                "24h",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_INSECURE": "f",
		"OTEL_TRACES_SAMPLER_ARG":     "0.25",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.GinMode != "release" || cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.GzipEnabled {
		t.Fatalf("server/logging: %+v", cfg)
	}
	if cfg.APIBasePath != "/svc/v2" {
		t.Fatalf("base path = %q", cfg.APIBasePath)
	}
	if cfg.DB.Driver != "postgres" || !strings.HasPrefix(cfg.DB.URL, "postgres://") {
		t.Fatalf("db: %+v", cfg.DB)
	}
	if f := cfg.Flags; f.Store != "redis" || f.RedisDB != 2 || f.CacheTTL != 30*time.Second ||
		f.StoreTimeout != 500*time.Millisecond || f.DelayFlag != "dg_on" {
		t.Fatalf("flags: %+v", f)
	}
	if cfg.PolicyPath != "policy.yaml" {
		t.Fatalf("policy path = %q", cfg.PolicyPath)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("brokers = %#v", cfg.Kafka.Brokers)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://ops.example.com"}) {
		t.Fatalf("origins = %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security: %+v", cfg.Security)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 0.25 {
		t.Fatalf("otel: %+v", cfg.OTEL)
	}
}

func TestLoad_MalformedValueIsAnError(t *testing.T) {
	for k, v := range map[string]string{
		"RATE_BURST":     "nope",
		"FLAG_CACHE_TTL": "a minute",
		"ENABLE_HSTS":    "maybe",
	} {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), "read env") {
				t.Fatalf("%s=%q: err = %v", k, v, err)
			}
		})
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{map[string]string{"DB_PATH": " "}, "DB_PATH"},
		{map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{map[string]string{"DB_DRIVER": "postgres", "DATABASE_URL": ""}, "DATABASE_URL"},
		{map[string]string{"FLAG_STORE": "etcd"}, "FLAG_STORE"},
		{map[string]string{"FLAG_STORE": "redis", "REDIS_ADDR": ""}, "REDIS_ADDR"},
		{map[string]string{"FLAG_CACHE_TTL": "0s"}, "FLAG_CACHE_TTL"},
		{map[string]string{"STORE_TIMEOUT": "-1s"}, "STORE_TIMEOUT"},
		{map[string]string{"DELAY_FLAG": " "}, "DELAY_FLAG"},
		{map[string]string{"KAFKA_BROKERS": "k:9092", "KAFKA_TOPIC": " "}, "KAFKA_TOPIC"},
		{map[string]string{"ADVISORY_TIMEOUT": "0s"}, "ADVISORY_TIMEOUT"},
		{map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v; want mention of %s", err, tc.want)
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	for in, want := range map[string]string{
		"":         "/",
		"/":        "/",
		" api/v1 ": "/api/v1",
		"/api/v1/": "/api/v1",
		"//x//":    "/x",
	} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestUsage(t *testing.T) {
	u := Usage()
	for _, v := range []string{"DELAY_FLAG", "FLAG_CACHE_TTL", "STORE_TIMEOUT", "KAFKA_BROKERS"} {
		if !strings.Contains(u, v) {
			t.Fatalf("usage misses %s", v)
		}
	}
}
