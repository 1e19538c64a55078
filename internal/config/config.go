// Package config loads bridge configuration from an optional YAML file
// layered under BRIDGE_-prefixed environment variables.
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
	Server  ServerConfig  `koanf:"server"`
	Ollama  OllamaConfig  `koanf:"ollama"`
	Context ContextConfig `koanf:"context"`
	Loop    LoopConfig    `koanf:"loop"`
	Tools   ToolsConfig   `koanf:"tools"`
	Storage StorageConfig `koanf:"storage"`
}

type ServerConfig struct {
	Port           int      `koanf:"port"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type OllamaConfig struct {
	Host  string `koanf:"host"`
	Model string `koanf:"model"`
}

// ContextConfig bounds the derived context window. Multiplier is the
// headroom applied to the token estimate when dynamic sizing is requested.
type ContextConfig struct {
	DefaultNumCtx int     `koanf:"default_num_ctx"`
	MaxCtx        int     `koanf:"max_ctx"`
	Multiplier    float64 `koanf:"multiplier"`
}

// LoopConfig bounds the orchestration loop. MaxToolRounds of 0 means
// unbounded, matching the historical behavior.
type LoopConfig struct {
	MaxToolRounds int `koanf:"max_tool_rounds"`
}

type ToolsConfig struct {
	ExecTimeout time.Duration `koanf:"exec_timeout"`
	HTTPTimeout time.Duration `koanf:"http_timeout"`
	Workspace   string        `koanf:"workspace"`
	CacheSize   int           `koanf:"cache_size"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// Load reads the YAML file at path (skipped if it does not exist), then
// overlays environment variables: BRIDGE_SERVER_PORT=9090 sets server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		k.Set(key, val)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider("BRIDGE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "BRIDGE_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":             8080,
		"server.allowed_origins":  []string{"*"},
		"ollama.host":             "http://localhost:11434",
		"ollama.model":            "qwen3:4b",
		"context.default_num_ctx": 8192,
		"context.max_ctx":         8192,
		"context.multiplier":      1.1,
		"loop.max_tool_rounds":    0,
		"tools.exec_timeout":      "30s",
		"tools.http_timeout":      "25s",
		"tools.workspace":         "./workspace",
		"tools.cache_size":        128,
		"storage.sqlite.path":     "./data/bridge.db",
	}
}
