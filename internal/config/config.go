// Package config loads dios settings from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Ingest   IngestConfig   `toml:"ingest"`
	Rules    RulesConfig    `toml:"rules"`
	Output   OutputConfig   `toml:"output"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type IngestConfig struct {
	BatchMaxItems int    `toml:"batch_max_items"`
	DefaultSource string `toml:"default_source"`
}

// RulesConfig points at an optional YAML or CUE rule file that is upserted
// into the store on startup.
type RulesConfig struct {
	File string `toml:"file"`
}

type OutputConfig struct {
	Format string `toml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "dios.db",
		},
		Ingest: IngestConfig{
			BatchMaxItems: 100,
			DefaultSource: "cli",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config: unknown key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if c.Ingest.BatchMaxItems < 1 {
		return fmt.Errorf("config: ingest.batch_max_items must be positive, got %d", c.Ingest.BatchMaxItems)
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: output.format must be text or json, got %q", c.Output.Format)
	}
	return nil
}
