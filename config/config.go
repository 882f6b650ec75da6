package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the ledger daemon.
type Config struct {
	ListenAddress string `yaml:"listen"`
	Environment   string `yaml:"env"`
	DataDir       string `yaml:"data_dir"`
	JournalPath   string `yaml:"journal"`
	MarketsPath   string `yaml:"markets"`
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress: ":8451",
		DataDir:       "ledger-data",
	}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8451"
	}
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = "ledger-data"
	}
	cfg.JournalPath = strings.TrimSpace(cfg.JournalPath)
	cfg.MarketsPath = strings.TrimSpace(cfg.MarketsPath)
	cfg.Environment = strings.TrimSpace(cfg.Environment)
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if cfg.MarketsPath == "" {
		return fmt.Errorf("markets file required")
	}
	return nil
}
