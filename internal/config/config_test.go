package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 10*time.Minute {
		t.Errorf("Server.RequestTimeout = %v, want 10m", cfg.Server.RequestTimeout)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Generation.DefaultProvider != "ollama" {
		t.Errorf("Generation.DefaultProvider = %q, want ollama", cfg.Generation.DefaultProvider)
	}
	if cfg.Generation.MaxDays != 30 || cfg.Generation.MaxConcurrentDays != 3 {
		t.Errorf("Generation limits = %d days, %d concurrent", cfg.Generation.MaxDays, cfg.Generation.MaxConcurrentDays)
	}
	if cfg.Generation.ResponseTTL != 24*time.Hour {
		t.Errorf("Generation.ResponseTTL = %v, want 24h", cfg.Generation.ResponseTTL)
	}
}

func TestLoadDefaultProviders(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Providers) != 3 {
		t.Fatalf("Providers = %d entries, want 3", len(cfg.Providers))
	}
	byName := make(map[string]ProviderConfig)
	for _, p := range cfg.Providers {
		byName[p.Name] = p
	}

	ollama, ok := byName["ollama"]
	if !ok {
		t.Fatal("Providers missing ollama")
	}
	if ollama.Type != "ollama" || ollama.Timeout != 300*time.Second {
		t.Errorf("ollama = %+v", ollama)
	}
	if _, ok := byName["deepseek"]; !ok {
		t.Error("Providers missing deepseek")
	}
	if _, ok := byName["bailian"]; !ok {
		t.Error("Providers missing bailian")
	}
}

func TestLoadProviderEnvKeys(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-env")
	t.Setenv("OLLAMA_MODEL", "llama3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, p := range cfg.Providers {
		switch p.Name {
		case "deepseek":
			if p.APIKey != "sk-env" {
				t.Errorf("deepseek APIKey = %q, want sk-env", p.APIKey)
			}
		case "ollama":
			if p.Model != "llama3" {
				t.Errorf("ollama Model = %q, want llama3", p.Model)
			}
		}
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRIP_SERVER_PORT", "9000")
	t.Setenv("TRIP_LOG_LEVEL", "debug")
	t.Setenv("TRIP_CACHE_BACKEND", "sqlite")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("Cache.Backend = %q, want sqlite", cfg.Cache.Backend)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 8080
map:
  ak: test-ak
providers:
  - name: local
    type: ollama
    base_url: http://localhost:11434
    model: qwen2.5:7b
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Map.AK != "test-ak" {
		t.Errorf("Map.AK = %q, want test-ak", cfg.Map.AK)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Name != "local" {
		t.Errorf("Providers = %+v, want the file's provider list", cfg.Providers)
	}
	// Unset keys still get defaults.
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() error = nil, want missing file error")
	}
}
