// Package dlog is the logging facade used throughout zeekagent. It keeps the
// variadic call shape used by the file processors (the first argument names
// the file, the rest describe what happened) and emits structured events via
// zerolog.
package dlog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// FormatConsole renders human readable, colored lines.
	FormatConsole = "console"
	// FormatJSON renders one JSON object per line.
	FormatJSON = "json"
)

// Config controls how Start builds the loggers.
type Config struct {
	Level   string
	Format  string
	Output  io.Writer
	NoColor bool
}

// DLog writes log messages for one component.
type DLog struct {
	logger zerolog.Logger
}

// Common is the logger shared by all packages. It logs warnings and above
// to stderr until Start is called.
var Common = New(Config{Level: "warn", Format: FormatConsole})

// Start (re)initializes the Common logger. It replaces Common without
// synchronization and must run before any goroutine logs.
func Start(cfg Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return fmt.Errorf("unknown log level %q: %w", cfg.Level, err)
	}
	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	cfg.Level = level.String()
	Common = New(cfg)
	return nil
}

// New creates a logger. Unknown levels fall back to info.
func New(cfg Config) *DLog {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == FormatJSON {
		zl = zerolog.New(out)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}
	return &DLog{logger: zl.Level(level).With().Timestamp().Logger()}
}

// Debug logs at debug level and returns the message.
func (d *DLog) Debug(args ...interface{}) string {
	return d.log(d.logger.Debug(), args)
}

// Info logs at info level and returns the message.
func (d *DLog) Info(args ...interface{}) string {
	return d.log(d.logger.Info(), args)
}

// Warn logs at warn level and returns the message.
func (d *DLog) Warn(args ...interface{}) string {
	return d.log(d.logger.Warn(), args)
}

// Error logs at error level and returns the message.
func (d *DLog) Error(args ...interface{}) string {
	return d.log(d.logger.Error(), args)
}

// Fatal logs and exits the process.
func (d *DLog) Fatal(args ...interface{}) {
	d.log(d.logger.Fatal(), args)
}

// log emits args as one event. Errors among the args go into the "error"
// field, everything else is joined with "|" into the message. Empty strings
// are dropped.
func (d *DLog) log(event *zerolog.Event, args []interface{}) string {
	parts := make([]string, 0, len(args))
	var errs []error
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			errs = append(errs, err)
			continue
		}
		part := fmt.Sprint(arg)
		if part == "" {
			continue
		}
		parts = append(parts, part)
	}
	message := strings.Join(parts, "|")
	if event == nil {
		return message
	}
	switch len(errs) {
	case 0:
	case 1:
		event = event.Err(errs[0])
	default:
		event = event.Errs(zerolog.ErrorFieldName, errs)
	}
	event.Msg(message)
	return message
}
