package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "guardian.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
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
	data, err := os.ReadFile(path)
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
	setString(&cfg.Server.Addr, "GUARDIAN_ADDR")
	setInt(&cfg.Server.MCPPort, "GUARDIAN_MCP_PORT")

	setString(&cfg.Store.Backend, "GUARDIAN_STORE_BACKEND")
	setString(&cfg.Store.File.Path, "GUARDIAN_STORE_PATH")
	setString(&cfg.Store.Redis.Addr, "GUARDIAN_REDIS_ADDR")
	setString(&cfg.Store.Redis.Password, "GUARDIAN_REDIS_PASSWORD")
	setInt(&cfg.Store.Redis.DB, "GUARDIAN_REDIS_DB")
	setDuration(&cfg.Store.Redis.TTL, "GUARDIAN_REDIS_TTL")

	setString(&cfg.Planner.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Planner.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Planner.Model, "GUARDIAN_MODEL")

	setInt(&cfg.Engine.MaxSteps, "GUARDIAN_MAX_STEPS")
	setInt(&cfg.Engine.LogTail, "GUARDIAN_LOG_TAIL")

	setString(&cfg.Logging.Level, "GUARDIAN_LOG_LEVEL")

	// Per-database DSNs, keyed by database name (e.g. GUARDIAN_HR_DSN).
	for i := range cfg.Databases {
		key := fmt.Sprintf("GUARDIAN_%s_DSN", strings.ToUpper(cfg.Databases[i].Name))
		setString(&cfg.Databases[i].DSN, key)
	}
}

// validate checks that the configuration is internally consistent.
func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("store.backend must be memory, file or redis, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "redis" && cfg.Store.Redis.Addr == "" {
		return errors.New("store.redis.addr is required for the redis backend")
	}
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.Engine.MaxSteps < 1 {
		return errors.New("engine.max_steps must be >= 1")
	}
	for _, db := range cfg.Databases {
		if db.Name == "" {
			return errors.New("databases entries require a name")
		}
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

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
