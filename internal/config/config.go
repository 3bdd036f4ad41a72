// Package config loads layered application configuration:
// struct defaults, then an optional YAML file, then KOMIKNESIA_* env vars.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "KOMIKNESIA_"

var defaultConfigPaths = []string{"config.yaml", "/etc/komiknesia/config.yaml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	WestManga WestMangaConfig `koanf:"westmanga"`
	Sync      SyncConfig      `koanf:"sync"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type WestMangaConfig struct {
	BaseURL           string  `koanf:"base_url"`
	TimeoutSeconds    int     `koanf:"timeout_seconds"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

func (c WestMangaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SyncConfig struct {
	// Mode is what POST /api/westmanga/sync runs: "manga", "chapters" or "full".
	Mode    string `koanf:"mode"`
	Workers int    `koanf:"workers"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// defaultDBPath is ~/.komiknesia/data.db, falling back to the working
// directory when the home dir cannot be resolved.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".komiknesia", "data.db")
}

func defaults() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: defaultDBPath()},
		WestManga: WestMangaConfig{
			BaseURL:           "https://api.westmanga.me",
			TimeoutSeconds:    15,
			RequestsPerSecond: 4,
			Burst:             2,
		},
		Sync:    SyncConfig{Mode: "chapters", Workers: 4},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the effective configuration. Precedence: env > file > defaults.
// KOMIKNESIA_WESTMANGA_BASE_URL=... maps to westmanga.base_url, and so on,
// with the first underscore separating the section from the key.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.WestManga.BaseURL == "" {
		return fmt.Errorf("westmanga.base_url must be set")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must be set")
	}
	switch c.Sync.Mode {
	case "manga", "chapters", "full":
	default:
		return fmt.Errorf("sync.mode must be one of manga, chapters, full (got %q)", c.Sync.Mode)
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be >= 1 (got %d)", c.Sync.Workers)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps KOMIKNESIA_SERVER_ADDR to server.addr: strip the prefix,
// lowercase, turn the first underscore into the section separator.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}
