// Package config provides configuration parsing and management for the verifier.
//
// It handles both command-line flags and environment variables, with flags taking
// precedence over environment variables. The Config struct contains all runtime
// configuration for the verifier including:
//   - Job identification (job name, verified variable units)
//   - Verification parameters (framework, metric, comparison, ensemble dataset)
//   - Bootstrap parameters (replicates, confidence level, seed, workers)
//   - Reference adapter settings (kind plus ADAPTER_* config)
//   - Storage backend settings (memory or redis)
//   - Timing configuration (interval, reference window)
//   - Logging configuration (level, format)
//   - TLS configuration (cert, key, CA files)
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/driftcast/driftcast/pkg/tls"
)

// Framework names accepted by the -framework flag.
const (
	FrameworkHindcast     = "hindcast"
	FrameworkPerfectModel = "perfect-model"
)

// Config holds all verifier configuration.
type Config struct {
	Listen        string
	LogFormat     string
	LogLevel      string
	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	TLS           tls.Config

	Job           string
	Framework     string
	Metric        string
	Comparison    string
	Dataset       string
	Adapter       string
	AdapterConfig map[string]string

	BootstrapN   int
	BootstrapSig float64
	Seed         int64
	Workers      int

	Interval    time.Duration
	WindowYears int
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Environment variables are used as fallbacks when flags are not provided.
// Each verifier instance manages a single verification job for simplicity.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8081"), "HTTP listen address")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 30*time.Minute), "Redis snapshot TTL")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable TLS for HTTP server")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for client verification")

	flag.StringVar(&cfg.Job, "job", getEnv("JOB", ""), "Verification job name (required)")
	flag.StringVar(&cfg.Framework, "framework", getEnv("FRAMEWORK", FrameworkHindcast), "Verification framework: hindcast or perfect-model")
	flag.StringVar(&cfg.Metric, "metric", getEnv("METRIC", "rmse"), "Skill metric name")
	flag.StringVar(&cfg.Comparison, "comparison", getEnv("COMPARISON", ""), "Comparison name (defaults per framework)")
	flag.StringVar(&cfg.Dataset, "dataset", getEnv("DATASET", ""), "Ensemble dataset name (defaults per framework)")
	flag.StringVar(&cfg.Adapter, "adapter", getEnv("ADAPTER", ""), "Reference adapter kind: http or static (empty uses a bundled dataset)")

	flag.IntVar(&cfg.BootstrapN, "bootstrap-n", getEnvInt("BOOTSTRAP_N", 0), "Bootstrap replicates (0 disables the bootstrap)")
	flag.Float64Var(&cfg.BootstrapSig, "bootstrap-sig", getEnvFloat("BOOTSTRAP_SIG", 95), "Bootstrap confidence level in percent")
	flag.Int64Var(&cfg.Seed, "seed", getEnvInt64("SEED", 0), "Bootstrap master seed (0 draws from the clock)")
	flag.IntVar(&cfg.Workers, "workers", getEnvInt("WORKERS", 0), "Bootstrap worker pool size (0 means one per CPU)")

	flag.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", 1*time.Hour), "Verification loop interval")
	flag.IntVar(&cfg.WindowYears, "window-years", getEnvInt("WINDOW_YEARS", 100), "Reference collection window in years")

	flag.Parse()

	cfg.AdapterConfig = parseAdapterConfig()

	if cfg.Job == "" {
		fmt.Fprintln(os.Stderr, "Error: --job is required")
		os.Exit(1)
	}
	if err := Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	return cfg
}

var jobNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// Validate checks a configuration for consistency, applying defaults for
// fields that have framework-dependent fallbacks.
func Validate(cfg *Config) error {
	if cfg.Job == "" {
		return fmt.Errorf("job name cannot be empty")
	}
	if !jobNameRegex.MatchString(cfg.Job) {
		return fmt.Errorf("invalid job name %q (must be alphanumeric with dash/underscore, 1-253 chars)", cfg.Job)
	}

	switch cfg.Framework {
	case FrameworkHindcast:
		if cfg.Comparison == "" {
			cfg.Comparison = "e2r"
		}
	case FrameworkPerfectModel:
		if cfg.Comparison == "" {
			cfg.Comparison = "m2e"
		}
	default:
		return fmt.Errorf("invalid framework %q (must be %s or %s)", cfg.Framework, FrameworkHindcast, FrameworkPerfectModel)
	}

	if cfg.Metric == "" {
		return fmt.Errorf("metric cannot be empty")
	}

	if cfg.BootstrapN < 0 {
		return fmt.Errorf("bootstrap-n cannot be negative")
	}
	if cfg.BootstrapN > 0 && (cfg.BootstrapSig <= 0 || cfg.BootstrapSig >= 100) {
		return fmt.Errorf("bootstrap-sig must be between 0 and 100 exclusive, got %v", cfg.BootstrapSig)
	}
	if cfg.BootstrapN > 0 && cfg.Framework != FrameworkPerfectModel {
		return fmt.Errorf("the bootstrap requires the %s framework", FrameworkPerfectModel)
	}

	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.WindowYears <= 0 {
		return fmt.Errorf("window-years must be > 0")
	}

	if cfg.Storage != "memory" && cfg.Storage != "redis" {
		return fmt.Errorf("invalid storage backend %q (must be memory or redis)", cfg.Storage)
	}

	return cfg.TLS.Validate()
}

// parseAdapterConfig parses ADAPTER_* environment variables into a generic
// configuration map. Adapter-specific configuration is provided via
// environment variables with the ADAPTER_ prefix, e.g. ADAPTER_URL,
// ADAPTER_VALUE_PATH. Environment variable names are converted to
// camelCase for the map keys (ADAPTER_VALUE_PATH → valuePath).
func parseAdapterConfig() map[string]string {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		if len(env) > 8 && env[:8] == "ADAPTER_" {
			parts := splitEnv(env)
			if len(parts) == 2 {
				key := toLowerCamelCase(parts[0][8:])
				config[key] = parts[1]
			}
		}
	}

	return config
}

func splitEnv(env string) []string {
	for i := 0; i < len(env); i++ {
		if env[i] == '=' {
			return []string{env[:i], env[i+1:]}
		}
	}
	return []string{env}
}

func toLowerCamelCase(s string) string {
	if s == "" {
		return s
	}
	parts := []rune(s)
	result := make([]rune, 0, len(parts))
	nextUpper := false
	for i, r := range parts {
		if r == '_' {
			nextUpper = true
			continue
		}
		if i == 0 {
			result = append(result, toLower(r))
		} else if nextUpper {
			result = append(result, r)
			nextUpper = false
		} else {
			result = append(result, toLower(r))
		}
	}
	return string(result)
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + 32
	}
	return r
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		var i int64
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
