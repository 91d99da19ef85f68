// Package config loads gateway configuration from config.yaml and GATEWAY_*
// environment variables, env taking precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig    `koanf:"server"`
	Backend BackendConfig   `koanf:"backend"`
	Gateway GatewayConfig   `koanf:"gateway"`
	Storage StorageConfig   `koanf:"storage"`
	Models  []ModelListItem `koanf:"models"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// RequestTimeout bounds a whole request including the backend call and
	// the paced stream.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type BackendConfig struct {
	// BaseURL of the Ollama server.
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type GatewayConfig struct {
	// DefaultModel is used when a request names no model. There is no
	// process-wide default; this value is passed into the orchestrator at
	// construction.
	DefaultModel string `koanf:"default_model"`
	// ChunkWords is the number of words grouped into one streaming fragment.
	ChunkWords int `koanf:"chunk_words"`
	// ChunkDelay paces consecutive stream events to emulate generation.
	ChunkDelay time.Duration `koanf:"chunk_delay"`
}

type StorageConfig struct {
	// Type selects the transcript store: "sqlite" or "none".
	Type   string       `koanf:"type"`
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ModelListItem is a statically configured entry for /v1/models. When the
// list is empty the gateway asks the backend instead.
type ModelListItem struct {
	ID      string `koanf:"id"`
	Object  string `koanf:"object"`
	OwnedBy string `koanf:"owned_by"`
	Created int64  `koanf:"created"`
}

// Load reads config.yaml if present, then environment variables with the
// GATEWAY_ prefix (double underscore separates nesting levels, e.g.
// GATEWAY_SERVER__PORT), then fills defaults.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":            8080,
		"server.request_timeout": "5m",
		"backend.base_url":       "http://localhost:11434",
		"backend.timeout":        "2m",
		"gateway.default_model":  "phi4:latest",
		"gateway.chunk_words":    10,
		"gateway.chunk_delay":    "50ms",
		"storage.type":           "none",
		"storage.sqlite.path":    "./data/gateway.db",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}
