// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/treelights/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points log.Logger at stderr, plus a rotating file when cfg.File is
// set. The returned closer releases the file.
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	w, closer, err := NewWriter(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	return closer, nil
}

// NewWriter builds the log sink for cfg on top of out.
func NewWriter(cfg config.LoggingConfig, out io.Writer) (io.Writer, io.Closer, error) {
	var console io.Writer
	switch cfg.Format {
	case "", "console":
		console = zerolog.ConsoleWriter{Out: out}
	case "json":
		console = out
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File == "" {
		return console, nopCloser{}, nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return zerolog.MultiLevelWriter(console, file), file, nil
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
