// Package config provides configuration management for the circuit mixer.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Mixing   MixingConfig   `mapstructure:"mixing"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

// MixingConfig holds the mixing-run parameters.
type MixingConfig struct {
	// Wires is the circuit width n.
	Wires int `mapstructure:"wires"`
	// Strategy selects the scheduling policy: 1 (mixed sizes) or 2
	// (inflationary then kneading stages).
	Strategy int `mapstructure:"strategy"`
	// TotalSteps is the step budget for strategy 1.
	TotalSteps int `mapstructure:"total_steps"`
	// InflationarySteps and KneadingSteps are the stage budgets for
	// strategy 2.
	InflationarySteps int `mapstructure:"inflationary_steps"`
	KneadingSteps     int `mapstructure:"kneading_steps"`
	// MaxConvexIterations bounds each convex-set search.
	MaxConvexIterations int `mapstructure:"max_convex_iterations"`
	// MaxReplacementIterations bounds each replacement search.
	MaxReplacementIterations int `mapstructure:"max_replacement_iterations"`
	// CheckpointSteps is the number of successful steps between checkpoints.
	CheckpointSteps int `mapstructure:"checkpoint_steps"`
	// EquivalenceSamples is the input sample count for probabilistic
	// equivalence checks on wide circuits.
	EquivalenceSamples int `mapstructure:"equivalence_samples"`
	// Workers caps the parallelism of the level oracle and both searches.
	// Zero means the library default.
	Workers int `mapstructure:"workers"`
	// SeedGates is the gate count of a freshly sampled original circuit.
	SeedGates int `mapstructure:"seed_gates"`
	// SeedRounds is the round count of a cipher-like seed circuit.
	SeedRounds int `mapstructure:"seed_rounds"`
}

// DatabaseConfig holds run-history database configuration. An empty Type
// disables the history repository.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, mysql or postgres
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Path     string `mapstructure:"path"` // for sqlite
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds checkpoint archival configuration. An empty Type
// disables archival.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
}

// Load reads configuration from the specified file path, falling back to
// defaults plus environment overrides when no file is present.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/circuit-mixer")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			// No config file; defaults plus environment apply.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values. The mixing defaults mirror
// the standard 64-wire experiment setup.
func setDefaults(v *viper.Viper) {
	v.SetDefault("mixing.wires", 64)
	v.SetDefault("mixing.strategy", 1)
	v.SetDefault("mixing.total_steps", 100000)
	v.SetDefault("mixing.inflationary_steps", 100000)
	v.SetDefault("mixing.kneading_steps", 100000)
	v.SetDefault("mixing.max_convex_iterations", 100000)
	v.SetDefault("mixing.max_replacement_iterations", 10000000)
	v.SetDefault("mixing.checkpoint_steps", 1000)
	v.SetDefault("mixing.equivalence_samples", 1000)
	v.SetDefault("mixing.workers", 0)
	v.SetDefault("mixing.seed_gates", 300)
	v.SetDefault("mixing.seed_rounds", 4)

	v.SetDefault("database.type", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.path", "./mixer-runs.db")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("storage.type", "")
	v.SetDefault("storage.local_path", "./checkpoints")

	v.SetDefault("log.level", "trace")
	v.SetDefault("log.output_path", "./logs/mixer.log")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	m := &c.Mixing
	if m.Wires < 4 || m.Wires > 128 {
		return fmt.Errorf("mixing.wires must be in [4, 128], got %d", m.Wires)
	}
	if m.Strategy != 1 && m.Strategy != 2 {
		return fmt.Errorf("mixing.strategy must be 1 or 2, got %d", m.Strategy)
	}
	if m.MaxConvexIterations < 1 || m.MaxReplacementIterations < 1 {
		return fmt.Errorf("search iteration budgets must be positive")
	}
	if m.CheckpointSteps < 1 {
		return fmt.Errorf("mixing.checkpoint_steps must be positive")
	}

	switch c.Database.Type {
	case "", "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.Type == "mysql" || c.Database.Type == "postgres" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for %s", c.Database.Type)
		}
	}

	switch c.Storage.Type {
	case "", "local", "cos":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	return nil
}

// Debug reports whether per-step equivalence checking is enabled. Only
// DEBUG=true or DEBUG=false are recognised; anything else leaves the
// default, which is on.
func Debug() bool {
	switch os.Getenv("DEBUG") {
	case "false":
		return false
	case "true":
		return true
	default:
		return true
	}
}
