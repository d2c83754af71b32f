package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration file. Files ending in .toml are read
// as TOML, everything else as YAML. After parsing, defaults are applied to
// checks that don't specify their own values.
func Load(path string) (*Config, error) {
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config TOML: %w", err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// SearchPaths lists the locations LoadDefault tries, in order.
func SearchPaths() []string {
	candidates := []string{"warnfactory.yaml", "warnfactory.yml", "warnfactory.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".warnfactory", "config.yaml"),
			filepath.Join(home, ".warnfactory", "config.toml"),
		)
	}
	return candidates
}

// LoadDefault loads the first configuration file found in SearchPaths.
func LoadDefault() (*Config, error) {
	candidates := SearchPaths()
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, fmt.Errorf("no config found (searched: %v)", candidates)
}

// applyDefaults merges defaults into checks and fills in logging settings.
func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	for name, c := range cfg.Checks {
		if c.Timeout == "" && cfg.Defaults.Timeout != "" {
			c.Timeout = cfg.Defaults.Timeout
		}
		if c.FailOn == "" && cfg.Defaults.FailOn != "" {
			c.FailOn = cfg.Defaults.FailOn
		}
		cfg.Checks[name] = c
	}
}
