package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration for tronbridge.
type Config struct {
	// Listen is the proxy's listen address.
	Listen string

	// Target is the fixed upstream JSON-RPC URL.
	Target string

	// AdminAddr serves health, metrics and the exchange API. Empty disables it.
	AdminAddr string

	// LogDir holds the JSONL exchange log.
	LogDir string

	// UpstreamTimeout bounds the outbound call. Zero keeps the transport
	// default.
	UpstreamTimeout time.Duration
}

type fileConfig struct {
	Listen          string `yaml:"listen"`
	Target          string `yaml:"target"`
	AdminAddr       string `yaml:"admin_addr"`
	LogDir          string `yaml:"log_dir"`
	UpstreamTimeout string `yaml:"upstream_timeout"`
}

// Load reads a YAML config file and produces a runtime Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses YAML data and produces a runtime Config.
func LoadBytes(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg := DefaultConfig()
	if fc.Listen != "" {
		cfg.Listen = fc.Listen
	}
	cfg.Target = fc.Target
	cfg.AdminAddr = fc.AdminAddr
	if fc.LogDir != "" {
		cfg.LogDir = expandHome(fc.LogDir)
	}
	if fc.UpstreamTimeout != "" {
		d, err := time.ParseDuration(fc.UpstreamTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream_timeout %q: %w", fc.UpstreamTimeout, err)
		}
		cfg.UpstreamTimeout = d
	}

	return cfg, nil
}

// DefaultConfig returns a config with defaults for when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Listen: DefaultListen,
		LogDir: expandHome(DefaultLogDir()),
	}
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
