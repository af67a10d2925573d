// Package logging provides centralized zerolog-based logging for vaultwatch.
//
// It offers:
//
//   - JSON output for production, console output for interactive use
//   - Context-aware logging with correlation ID propagation
//   - Global logger configuration via Init()
//
// # Quick Start
//
//	import "github.com/vaultwatch/vaultwatch/internal/logging"
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Msg("agent starting")
//	logging.Error().Err(err).Msg("backup failed")
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // correct
//	logging.Info().Str("key", "value")                 // wrong: never emitted
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error, fatal, panic.
	Level string

	// Format is the output format: json or console.
	Format string

	// Caller includes caller file and line number in logs.
	Caller bool

	// Timestamp enables timestamps in log output. Default true.
	Timestamp bool

	// Output is the writer for log output. Default os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Caller:    false,
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

//nolint:gochecknoinits // ensures logging works before an explicit Init() call
func init() {
	initLogger(DefaultConfig())
}

// Init initializes the global logger. Safe to call multiple times; later
// calls reconfigure the logger.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = "error"
	zerolog.CallerFieldName = "caller"

	output := cfg.Output
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(output)
	if cfg.Timestamp {
		ctx = ctx.With().Timestamp().Logger()
	}
	if cfg.Caller {
		ctx = ctx.With().Caller().Logger()
	}

	log = ctx
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger instance.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With creates a child logger context for component-specific loggers.
//
//	monitorLog := logging.With().Str("component", "monitor").Logger()
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

// WithOperation attaches a fresh operation ID to ctx and returns both the
// new context and the ID, for tracing one pipeline run (a backup, a
// restore, a cleanup sweep) through its log lines. The tagged logger is
// stored with ContextWithLogger, so Ctx(ctx) logs with the op_id field.
func WithOperation(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	l := With().Str("op_id", id).Logger()
	return ContextWithLogger(ctx, l), id
}

// Trace starts a new message with trace level.
func Trace() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Trace() }

// Debug starts a new message with debug level.
func Debug() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Debug() }

// Info starts a new message with info level.
func Info() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Info() }

// Warn starts a new message with warning level.
func Warn() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Warn() }

// Error starts a new message with error level.
func Error() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Error() }

// Fatal starts a new message with fatal level; os.Exit(1) follows the message.
func Fatal() *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Fatal() }

// Err starts a new message at error level with the error attached.
func Err(err error) *zerolog.Event { mu.RLock(); defer mu.RUnlock(); return log.Err(err) }

// Print sends a log event at info level, formatting arguments like fmt.Print.
//
// Deprecated: use structured logging instead.
func Print(v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msg(fmt.Sprint(v...))
}

// SetLevelString updates the global log level from a string.
func SetLevelString(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// SetLevel sets the global log level.
func SetLevel(level zerolog.Level) { zerolog.SetGlobalLevel(level) }

// GetLevel returns the global log level.
func GetLevel() zerolog.Level { return zerolog.GlobalLevel() }

// IsLevelEnabled reports whether messages at level pass the global level.
func IsLevelEnabled(level zerolog.Level) bool { return level >= zerolog.GlobalLevel() }

// SetLogger replaces the global logger, e.g. with one writing to a test buffer.
func SetLogger(l zerolog.Logger) { mu.Lock(); defer mu.Unlock(); log = l }

// Printf sends a log event at info level, formatting arguments like fmt.Printf.
//
// Deprecated: use structured logging instead.
func Printf(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msgf(format, v...)
}

// NewTestLogger creates a logger that writes to the provided writer, for
// capturing log output in tests.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
