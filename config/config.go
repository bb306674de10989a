// Package config loads service settings from config.yaml, .env and the environment.
// Precedence, lowest first: defaults, yaml file, environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"obesityweb/logging"
)

type Config struct {
	Http struct {
		Port         int           `yaml:"port"`
		Timeout      time.Duration `yaml:"timeout"`
		MaxBodyBytes int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Artifacts struct {
		Dir            string        `yaml:"dir"`
		Watch          bool          `yaml:"watch"`
		ReloadDebounce time.Duration `yaml:"reload_debounce"`
		CacheSize      int           `yaml:"cache_size"`
	} `yaml:"artifacts"`
	Database struct {
		// Path of the audit database; empty disables auditing.
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log logging.Config `yaml:"log"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Http.Port = 8080
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.MaxBodyBytes = 1 << 20
	cfg.Artifacts.Dir = "."
	cfg.Artifacts.Watch = true
	cfg.Artifacts.ReloadDebounce = 500 * time.Millisecond
	cfg.Artifacts.CacheSize = 1024
	cfg.Log = logging.DefaultConfig()
	return cfg
}

// Load reads the yaml file at path on top of the defaults and applies environment overrides.
// A missing file is not an error unless required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadEnvFile exports the variables in a .env file without overriding ones already set.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Http.Port = p
	}
	cfg.Artifacts.Dir = getEnv("ARTIFACT_DIR", cfg.Artifacts.Dir)
	cfg.Database.Path = getEnv("AUDIT_DB", cfg.Database.Path)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http timeout must be positive")
	}
	if c.Artifacts.Dir == "" {
		return errors.New("artifact dir is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
