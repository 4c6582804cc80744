// Package config loads the gate's tunable knobs from a YAML file. The
// four policies' numeric fields are the only behavioral tuning the core
// accepts; everything else here is server wiring.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vbops/accessgate/pkg/guard"
	"github.com/vbops/accessgate/pkg/limiter"
)

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	NoticePath string `yaml:"notice_path"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// PolicyConfig mirrors limiter.Policy with file-friendly units. Zero
// fields fall back to the named default of the slot they configure.
type PolicyConfig struct {
	Points    int64  `yaml:"points"`
	DurationS int    `yaml:"duration_s"`
	BlockS    int    `yaml:"block_s"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Policy converts to a limiter.Policy, taking unset fields from def.
func (p PolicyConfig) Policy(def limiter.Policy) limiter.Policy {
	out := def
	if p.Points > 0 {
		out.Points = p.Points
	}
	if p.DurationS > 0 {
		out.Duration = time.Duration(p.DurationS) * time.Second
	}
	if p.BlockS > 0 {
		out.BlockDuration = time.Duration(p.BlockS) * time.Second
	}
	if p.KeyPrefix != "" {
		out.KeyPrefix = p.KeyPrefix
	}
	return out
}

type Config struct {
	Server   ServerConfig `yaml:"server"`
	Backend  string       `yaml:"backend"` // "memory" or "redis"
	Redis    RedisConfig  `yaml:"redis"`
	LogLevel string       `yaml:"log_level"`

	Pages           PolicyConfig `yaml:"pages"`
	Actions         PolicyConfig `yaml:"actions"`
	PublicActions   PolicyConfig `yaml:"public_actions"`
	ReadOnlyActions PolicyConfig `yaml:"read_only_actions"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML config file, filling defaults for anything
// the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.NoticePath == "" {
		c.Server.NoticePath = guard.DefaultNoticePath
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "gate:"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Gate assembles the guard configuration, layering file overrides on the
// shared policy defaults.
func (c *Config) Gate() guard.Config {
	return guard.Config{
		NoticePath:      c.Server.NoticePath,
		Pages:           c.Pages.Policy(limiter.Pages),
		Actions:         c.Actions.Policy(limiter.Actions),
		PublicActions:   c.PublicActions.Policy(limiter.PublicActions),
		ReadOnlyActions: c.ReadOnlyActions.Policy(limiter.ReadOnlyActions),
	}
}
