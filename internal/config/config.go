// Package config loads service configuration from an optional YAML
// file layered under TRIP_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Cache      CacheConfig      `koanf:"cache"`
	Providers  []ProviderConfig `koanf:"providers"`
	Map        MapConfig        `koanf:"map"`
	Generation GenerationConfig `koanf:"generation"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or text
}

type CacheConfig struct {
	Backend    string        `koanf:"backend"` // redis, sqlite, memory
	RedisURL   string        `koanf:"redis_url"`
	SQLitePath string        `koanf:"sqlite_path"`
	MemorySize int           `koanf:"memory_size"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
}

type ProviderConfig struct {
	Name    string        `koanf:"name"`
	Type    string        `koanf:"type"` // ollama or chat
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

type MapConfig struct {
	AK      string        `koanf:"ak"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type GenerationConfig struct {
	DefaultProvider   string        `koanf:"default_provider"`
	MaxDays           int           `koanf:"max_days"`
	MaxConcurrentDays int           `koanf:"max_concurrent_days"`
	Timeout           time.Duration `koanf:"timeout"`
	ResponseTTL       time.Duration `koanf:"response_ttl"`
	TemplatesPath     string        `koanf:"templates_path"`
}

// Load reads configuration. path may be empty; a missing file is only
// an error when the path was given explicitly.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Environment variables override the file:
	// TRIP_SERVER_PORT -> server.port
	if err := k.Load(env.Provider("TRIP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TRIP_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Providers) == 0 {
		cfg.Providers = defaultProviders()
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":                    8000,
		"server.request_timeout":         "10m",
		"log.level":                      "info",
		"log.format":                     "json",
		"cache.backend":                  "memory",
		"cache.redis_url":                "redis://localhost:6379/0",
		"cache.sqlite_path":              "cache.db",
		"cache.memory_size":              4096,
		"cache.default_ttl":              "1h",
		"map.base_url":                   "https://api.map.baidu.com",
		"map.timeout":                    "30s",
		"generation.default_provider":    "ollama",
		"generation.max_days":            30,
		"generation.max_concurrent_days": 3,
		"generation.timeout":             "10m",
		"generation.response_ttl":        "24h",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

// defaultProviders mirrors the stock backend set: a keyless local
// Ollama plus two hosted chat backends enabled by their env keys.
func defaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:    "ollama",
			Type:    "ollama",
			BaseURL: envOr("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:   envOr("OLLAMA_MODEL", "qwen2.5:14b"),
			Timeout: 300 * time.Second,
		},
		{
			Name:    "deepseek",
			Type:    "chat",
			BaseURL: envOr("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			Model:   envOr("DEEPSEEK_MODEL", "deepseek-chat"),
			APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			Timeout: 60 * time.Second,
		},
		{
			Name:    "bailian",
			Type:    "chat",
			BaseURL: envOr("BAILIAN_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
			Model:   envOr("BAILIAN_MODEL", "qwen-max"),
			APIKey:  os.Getenv("BAILIAN_API_KEY"),
			Timeout: 60 * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
