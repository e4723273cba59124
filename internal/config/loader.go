package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "claims.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "RCM_PORT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "RCM_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "RCM_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "RCM_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "RCM_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "RCM_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "RCM_LOG_LEVEL")
	setString(&cfg.Logging.Service, "RCM_LOG_SERVICE")
	setInt64(&cfg.Cache.MaxSizeMB, "RCM_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "RCM_CACHE_TTL")
	setString(&cfg.Telemetry.OTLPEndpoint, "RCM_OTLP_ENDPOINT")
	setFloat64(&cfg.Orchestrator.ConfidenceThreshold, "RCM_CONFIDENCE_THRESHOLD")
	setBool(&cfg.Orchestrator.AutoExecute, "RCM_AUTO_EXECUTE")
	setFloat64(&cfg.Orchestrator.ConfidenceFloor, "RCM_CONFIDENCE_FLOOR")
	setFloat64(&cfg.Orchestrator.HighValueAmount, "RCM_HIGH_VALUE_AMOUNT")
	setFloat64(&cfg.Orchestrator.HistoryWeight, "RCM_HISTORY_WEIGHT")
	setInt(&cfg.Outcomes.WindowDays, "RCM_OUTCOME_WINDOW_DAYS")
}

// validate checks cross-field constraints after all sources are applied.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Orchestrator.ConfidenceThreshold < 0 || cfg.Orchestrator.ConfidenceThreshold > 1 {
		return fmt.Errorf("orchestrator.confidence_threshold %.2f out of range [0,1]", cfg.Orchestrator.ConfidenceThreshold)
	}
	if cfg.Orchestrator.ConfidenceFloor < 0 || cfg.Orchestrator.ConfidenceFloor > 1 {
		return fmt.Errorf("orchestrator.confidence_floor %.2f out of range [0,1]", cfg.Orchestrator.ConfidenceFloor)
	}
	if cfg.Orchestrator.ConfidenceFloor > cfg.Orchestrator.ConfidenceThreshold {
		return errors.New("orchestrator.confidence_floor must not exceed confidence_threshold")
	}
	if cfg.Outcomes.WindowDays <= 0 {
		return errors.New("outcomes.window_days must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
