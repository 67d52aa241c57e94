// Package config provides the configuration of the zeekagent binaries.
// Settings are resolved from multiple sources with the following precedence
// (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables with ZEEKAGENT_ prefix (a .env file is loaded
//     into the environment first)
//  3. YAML configuration file
//  4. Default values
//
// The defaults describe the agent layout of the Zeek mock data set: Alice
// switches devices at a fixed point in time, Bob has a single device, and
// every other address belongs to Carol.
package config

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/io/compress"
)

const (
	// EnvPrefix prefixes all environment variables read by zeekagent.
	EnvPrefix = "ZEEKAGENT"
	// DefaultEnvFile is loaded when present and no other env file is given.
	DefaultEnvFile = ".env"
	// DefaultLogLevel specifies the default log level.
	DefaultLogLevel = "info"
	// DefaultLogFormat specifies the default log format.
	DefaultLogFormat = "console"
	// UnmatchedSkip leaves files without a transform out of the output.
	UnmatchedSkip = "skip"
	// UnmatchedCopy writes files without a transform unchanged.
	UnmatchedCopy = "copy"
)

// Agent identifies the device a record is attributed to.
type Agent struct {
	Hostname string `mapstructure:"hostname"`
	UUID     string `mapstructure:"uuid"`
}

// AgentRule attributes records to an agent. IPs holds addresses or CIDR
// prefixes. Before and After bound the record timestamp in unix seconds;
// zero disables a bound.
type AgentRule struct {
	Agent  `mapstructure:",squash"`
	IPs    []string `mapstructure:"ips"`
	Before float64  `mapstructure:"before"`
	After  float64  `mapstructure:"after"`
}

// Config holds all zeekagent settings.
type Config struct {
	Workers      int         `mapstructure:"workers"`
	LogLevel     string      `mapstructure:"log_level"`
	LogFormat    string      `mapstructure:"log_format"`
	Unmatched    string      `mapstructure:"unmatched"`
	Compression  string      `mapstructure:"compression"`
	MetricsAddr  string      `mapstructure:"metrics_addr"`
	Progress     bool        `mapstructure:"progress"`
	Paths        []string    `mapstructure:"paths"`
	Agents       []AgentRule `mapstructure:"agents"`
	DefaultAgent Agent       `mapstructure:"default_agent"`
}

// Default returns the built-in configuration.
func Default() *Config {
	const aliceIP = "10.55.200.10"
	const aliceLateTime = 1517356800

	return &Config{
		Workers:     constants.DefaultWorkers,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		Unmatched:   UnmatchedSkip,
		Compression: compress.None.String(),
		Progress:    true,
		Paths:       []string{"conn", "dns", "http", "ssl"},
		Agents: []AgentRule{
			{
				Agent:  Agent{Hostname: "Alice Early", UUID: "779a5281-949d-4ae3-9de4-309c955f48c0"},
				IPs:    []string{aliceIP},
				Before: aliceLateTime,
			},
			{
				Agent: Agent{Hostname: "Alice Late", UUID: "439264be-a146-4759-80f7-f4fb23b9b346"},
				IPs:   []string{aliceIP},
				After: aliceLateTime,
			},
			{
				Agent: Agent{Hostname: "Bob", UUID: "e59a5fc8-ebf5-4f82-b98e-ab2c7fad6099"},
				IPs:   []string{"10.55.100.111"},
			},
		},
		DefaultAgent: Agent{Hostname: "Carol", UUID: "5934e4c5-9acb-498f-a706-b4b7200a47aa"},
	}
}

type loaderConfig struct {
	configFile string
	envFile    string
	flags      *pflag.FlagSet
}

// Option customizes Load.
type Option func(*loaderConfig)

// WithConfigFile sets the YAML configuration file. It must exist.
func WithConfigFile(path string) Option {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile sets the .env file. It must exist.
func WithEnvFile(path string) Option {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// WithFlags binds command-line flags. Flag names use dashes where keys use
// underscores, e.g. --log-level sets log_level.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(lc *loaderConfig) { lc.flags = fs }
}

// Load resolves the configuration from all sources and validates it.
func Load(opts ...Option) (*Config, error) {
	var lc loaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	if err := loadEnvFile(lc.envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	defaults := Default()
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("unmatched", defaults.Unmatched)
	v.SetDefault("compression", defaults.Compression)
	v.SetDefault("metrics_addr", defaults.MetricsAddr)
	v.SetDefault("progress", defaults.Progress)
	v.SetDefault("paths", defaults.Paths)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lc.configFile != "" {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Mark(errors.ErrInvalidConfig, err)
		}
	}

	if lc.flags != nil {
		var bindErr error
		lc.flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !v.IsSet(key) && !isKnownKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, errors.Mark(errors.ErrInvalidConfig, bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Mark(errors.ErrInvalidConfig, err)
	}
	// Structured values have no flag or env form and must not be merged
	// element-wise with the defaults.
	if !v.IsSet("agents") {
		cfg.Agents = defaults.Agents
	}
	if !v.IsSet("default_agent") {
		cfg.DefaultAgent = defaults.DefaultAgent
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isKnownKey(key string) bool {
	switch key {
	case "workers", "log_level", "log_format", "unmatched", "compression",
		"metrics_addr", "progress", "paths":
		return true
	}
	return false
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Mark(errors.ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "workers must be at least 1, got %d", c.Workers)
	}
	switch c.Unmatched {
	case UnmatchedSkip, UnmatchedCopy:
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unmatched must be %q or %q, got %q",
			UnmatchedSkip, UnmatchedCopy, c.Unmatched)
	}
	if _, err := compress.ParseKind(c.Compression); err != nil {
		return errors.Mark(errors.ErrInvalidConfig, err)
	}
	for i, rule := range c.Agents {
		if len(rule.IPs) == 0 {
			return errors.Wrapf(errors.ErrInvalidConfig, "agent rule %d (%s) has no ips", i, rule.Hostname)
		}
		if rule.Before != 0 && rule.After != 0 && rule.After >= rule.Before {
			return errors.Wrapf(errors.ErrInvalidConfig,
				"agent rule %d (%s) has an empty time range", i, rule.Hostname)
		}
		if err := validateAgent(rule.Agent); err != nil {
			return errors.Wrapf(err, "agent rule %d", i)
		}
	}
	if err := validateAgent(c.DefaultAgent); err != nil {
		return errors.Wrap(err, "default agent")
	}
	return nil
}

func validateAgent(a Agent) error {
	if a.Hostname == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "hostname is required")
	}
	if _, err := uuid.Parse(a.UUID); err != nil {
		return errors.Wrapf(errors.ErrInvalidConfig, "invalid uuid %q for %s", a.UUID, a.Hostname)
	}
	return nil
}

// CompressionKind returns the parsed output compression.
func (c *Config) CompressionKind() compress.Kind {
	kind, _ := compress.ParseKind(c.Compression)
	return kind
}
