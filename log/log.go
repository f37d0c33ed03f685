// Package log provides package-level structured logging for the
// election tooling, backed by zerolog.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	// Silent until Init is called; the library itself never logs.
	logger = zerolog.New(io.Discard)
}

// Init configures the package logger. Level is one of debug, info,
// warn or error. Output "stdout" and "stderr" are recognized; anything
// else is treated as a file path.
func Init(level, output string) error {
	var w io.Writer
	switch output {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("log: cannot open output: %w", err)
		}
		w = f
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log: unknown level %q: %w", level, err)
	}

	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	logger = zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
	return nil
}

// Logger exposes the underlying zerolog logger for contextual fields.
func Logger() *zerolog.Logger { return &logger }

func Debugf(format string, args ...any) { logger.Debug().Msgf(format, args...) }
func Infof(format string, args ...any)  { logger.Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { logger.Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { logger.Error().Msgf(format, args...) }

func Debug(msg string) { logger.Debug().Msg(msg) }
func Info(msg string)  { logger.Info().Msg(msg) }
func Warn(msg string)  { logger.Warn().Msg(msg) }
func Error(msg string) { logger.Error().Msg(msg) }
