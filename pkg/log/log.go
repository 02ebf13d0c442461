// Package log provides structured logging for the group manager using
// zerolog: one global logger, configured once at startup, and component-
// scoped children for each package (InfoStore, Manager, Storage, Fleet...).
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Level represents a log level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// Sensible default so packages can log before Init runs, e.g. in tests.
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// WithComponent creates a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithChain creates a child logger tagged with a chainID.
func WithChain(chainID string) zerolog.Logger {
	return Logger.With().Str("chain_id", chainID).Logger()
}

// WithGroup creates a child logger tagged with chainID and groupID.
func WithGroup(chainID, groupID string) zerolog.Logger {
	return Logger.With().Str("chain_id", chainID).Str("group_id", groupID).Logger()
}

// WithNode creates a child logger tagged with chainID, groupID, and nodeName.
func WithNode(chainID, groupID, nodeName string) zerolog.Logger {
	return Logger.With().
		Str("chain_id", chainID).
		Str("group_id", groupID).
		Str("node_name", nodeName).
		Logger()
}

func Info(msg string)  { Logger.Info().Msg(msg) }
func Debug(msg string) { Logger.Debug().Msg(msg) }
func Warn(msg string)  { Logger.Warn().Msg(msg) }
func Error(msg string) { Logger.Error().Msg(msg) }

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msgf(format, err)
}
