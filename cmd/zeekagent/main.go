// Package main provides the zeekagent command-line tool. zeekagent reads a
// directory of (optionally compressed) Zeek TSV logs and writes copies which
// carry two additional fields, agent_hostname and agent_uuid, attributing
// every record to the device that produced it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mimecast/zeekagent/internal/config"
	"github.com/mimecast/zeekagent/internal/convert"
	"github.com/mimecast/zeekagent/internal/io/dlog"
	"github.com/mimecast/zeekagent/internal/io/signal"
	"github.com/mimecast/zeekagent/internal/metrics"
	"github.com/mimecast/zeekagent/internal/version"
)

var (
	configFile string
	envFile    string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "zeekagent INPUT_DIR OUTPUT_DIR",
	Short: "Add agent identity fields to Zeek logs",
	Long: `zeekagent adds agent_hostname and agent_uuid fields to Zeek TSV logs.

All files in INPUT_DIR whose name contains ".log" are read, gzip, zstd and
snappy compressed ones included. Logs of a configured type (conn, dns, http
and ssl by default) are written to OUTPUT_DIR with the two new fields, named
like the input without its compression suffix.`,
	Version:       version.String(),
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, c *convert.Converter) error {
			_, err := c.ConvertDir(ctx, args[0], args[1])
			return err
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch INPUT_DIR OUTPUT_DIR",
	Short: "Convert all logs, then every new log until interrupted",
	Long: `Convert all logs of INPUT_DIR like zeekagent does, then keep watching
INPUT_DIR and convert every log created in or moved into it. Stops on SIGINT
or SIGTERM.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, c *convert.Converter) error {
			return c.Watch(ctx, args[0], args[1], 0)
		})
	},
}

func run(cmd *cobra.Command, do func(context.Context, *convert.Converter) error) error {
	cfg, err := config.Load(
		config.WithConfigFile(configFile),
		config.WithEnvFile(envFile),
		config.WithFlags(cmd.Flags()),
	)
	if err != nil {
		return err
	}
	if err := dlog.Start(dlog.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		NoColor: noColor,
	}); err != nil {
		return err
	}

	converter, err := convert.FromConfig(cfg, convert.ProgressWriter(os.Stderr))
	if err != nil {
		return err
	}

	ctx, cancel := signal.InterruptContext(context.Background())
	defer cancel()

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics.RegisterMonitoring(reg)
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
				dlog.Common.Error("Metrics server failed", err)
			}
		}()
	}

	return do(ctx, converter)
}

func init() {
	defaults := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML config file")
	flags.StringVar(&envFile, "env-file", "", "Env file to load (default: .env if present)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored log output")
	flags.IntP("workers", "w", defaults.Workers, "Number of files converted concurrently")
	flags.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.LogFormat, "Log format (console, json)")
	flags.String("unmatched", defaults.Unmatched, "What to do with logs of other types (skip, copy)")
	flags.String("compression", defaults.Compression, "Output compression (none, gzip, zstd, snappy)")
	flags.String("metrics-addr", defaults.MetricsAddr, "Serve Prometheus metrics on this address")
	flags.Bool("progress", defaults.Progress, "Print a dot per 10000 records on a terminal")
	flags.StringSlice("paths", defaults.Paths, "Log types receiving agent fields")

	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
