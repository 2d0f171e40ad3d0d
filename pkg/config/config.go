// Package config provides YAML-based configuration loading for ucx.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	// AppName optional logical name of the process
	AppName string `mapstructure:"app_name"`

	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Lanes lists the transport lanes configured on the local endpoint,
	// in selection (index) order.
	Lanes []LaneConfig `mapstructure:"lanes"`

	// Selection holds protocol lane-selection knobs.
	Selection SelectionConfig `mapstructure:"selection"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LaneConfig describes one transport lane slot.
type LaneConfig struct {
	// Kind: mem, tcp, udp, quic, pipe
	Kind string `mapstructure:"kind"`
	// Address in the transport's own format (host:port, pipe path, mem name)
	Address string `mapstructure:"address"`
	// Caps overrides the kind-default capability set when non-empty.
	// Names: am, put, get, atomics, tag, key-exchange, err-handling
	Caps []string `mapstructure:"caps"`
	// Category: data, control, key-exchange
	Category string `mapstructure:"category"`
	// Domain is the memory-domain index backing this lane
	Domain int `mapstructure:"domain"`
}

// SelectionConfig tunes protocol lane selection.
type SelectionConfig struct {
	// MaxCandidates bounds the candidate buffer per selection call (<= 16)
	MaxCandidates int `mapstructure:"max_candidates"`
	// ProbeRounds is the number of ping rounds per lane when probing RTT (0 = no probing)
	ProbeRounds int `mapstructure:"probe_rounds"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		AppName: "ucx-node",
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/ucx.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Lanes: []LaneConfig{
			{Kind: "mem", Address: "local", Category: "data"},
			{Kind: "tcp", Address: "127.0.0.1:7777", Category: "data"},
		},
		Selection: SelectionConfig{MaxCandidates: 16, ProbeRounds: 0},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix UCX and `.`/`-` are replaced with `_`.
// Example: UCX_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("UCX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("lanes", cfg.Lanes)
	v.SetDefault("selection.max_candidates", cfg.Selection.MaxCandidates)
	v.SetDefault("selection.probe_rounds", cfg.Selection.ProbeRounds)

	// Choose config file
	if path == "" {
		if envPath := os.Getenv("UCX_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search common locations with base name `ucx`
		v.SetConfigName("ucx")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".ucx"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}

	if len(c.Lanes) == 0 {
		return errors.New("at least one lane must be configured")
	}
	for i := range c.Lanes {
		c.Lanes[i].Kind = strings.ToLower(strings.TrimSpace(c.Lanes[i].Kind))
		if c.Lanes[i].Kind == "" {
			return fmt.Errorf("lane %d: missing kind", i)
		}
		if c.Lanes[i].Domain < 0 || c.Lanes[i].Domain > 63 {
			return fmt.Errorf("lane %d: domain out of range: %d", i, c.Lanes[i].Domain)
		}
	}

	if c.Selection.MaxCandidates <= 0 {
		c.Selection.MaxCandidates = 16
	}
	if c.Selection.MaxCandidates > 16 {
		return fmt.Errorf("selection.max_candidates too large: %d (max 16)", c.Selection.MaxCandidates)
	}
	if c.Selection.ProbeRounds < 0 {
		c.Selection.ProbeRounds = 0
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
