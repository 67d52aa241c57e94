package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/io/compress"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 1, cfg.Workers)
	require.Equal(t, UnmatchedSkip, cfg.Unmatched)
	require.Equal(t, compress.None, cfg.CompressionKind())
	require.Len(t, cfg.Agents, 3)
	require.Equal(t, "Carol", cfg.DefaultAgent.Hostname)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "zeekagent.yaml")
	yaml := `workers: 4
compression: zstd
paths: [conn]
agents:
  - hostname: Dave
    uuid: 0b7e6b8c-3f59-4e43-9a53-2d0f6c1a1e11
    ips: [192.168.0.0/16]
    after: 1500000000
default_agent:
  hostname: Eve
  uuid: 2d8b7a0c-5d7f-4c55-8b4b-7f9d0c9e4a22
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(WithConfigFile(path))
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, compress.Zstd, cfg.CompressionKind())
	require.Equal(t, []string{"conn"}, cfg.Paths)
	require.Equal(t, []AgentRule{{
		Agent: Agent{Hostname: "Dave", UUID: "0b7e6b8c-3f59-4e43-9a53-2d0f6c1a1e11"},
		IPs:   []string{"192.168.0.0/16"},
		After: 1500000000,
	}}, cfg.Agents)
	require.Equal(t, "Eve", cfg.DefaultAgent.Hostname)
	// Unset keys keep their defaults.
	require.Equal(t, UnmatchedSkip, cfg.Unmatched)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
	require.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestLoadPrecedence(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "zeekagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\nunmatched: copy\n"), 0o644))

	t.Setenv("ZEEKAGENT_WORKERS", "3")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("workers", 1, "")
	fs.String("log-level", DefaultLogLevel, "")
	require.NoError(t, fs.Parse([]string{"--log-level", "debug"}))

	cfg, err := Load(WithConfigFile(path), WithFlags(fs))
	require.NoError(t, err)
	// The env beats the file, an unchanged flag does not override either.
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, UnmatchedCopy, cfg.Unmatched)
	require.Equal(t, "debug", cfg.LogLevel)

	require.NoError(t, fs.Parse([]string{"--workers", "8"}))
	cfg, err = Load(WithConfigFile(path), WithFlags(fs))
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Workers)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// godotenv never overrides variables that are already set. Setenv
	// registers the restore, the variable itself must start unset.
	t.Setenv("ZEEKAGENT_COMPRESSION", "")
	os.Unsetenv("ZEEKAGENT_COMPRESSION")

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultEnvFile),
		[]byte("ZEEKAGENT_COMPRESSION=gzip\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, compress.Gzip, cfg.CompressionKind())
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(WithEnvFile("does-not-exist.env"))
	require.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"unknown unmatched mode", func(c *Config) { c.Unmatched = "drop" }},
		{"unknown compression", func(c *Config) { c.Compression = "lz4" }},
		{"rule without ips", func(c *Config) { c.Agents[2].IPs = nil }},
		{"rule with bad uuid", func(c *Config) { c.Agents[0].UUID = "not-a-uuid" }},
		{"rule without hostname", func(c *Config) { c.Agents[1].Hostname = "" }},
		{"empty time range", func(c *Config) { c.Agents[0].After = c.Agents[0].Before }},
		{"default agent with bad uuid", func(c *Config) { c.DefaultAgent.UUID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), errors.ErrInvalidConfig)
		})
	}
}
