package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// ParseLogLevel parses debug, info, warn, error or off.
func ParseLogLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "disabled":
		return zerolog.Disabled, nil
	case "error", "":
		return zerolog.ErrorLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	default:
		return zerolog.ErrorLevel, etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrConfigInvalid, map[string]string{"key": "logging.level", "value": s}),
			"logging.level must be one of: debug, info, warn, error, off")
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger from cfg. Output goes to the log file
// when one is configured, else to fallback. The returned closer releases the
// file.
func NewLogger(cfg LoggingConfig, fallback io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLogLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	if level == zerolog.Disabled {
		return zerolog.Nop(), nopCloser{}, nil
	}

	var (
		out    = fallback
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		path := ExpandHome(cfg.File)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		// #nosec G304 -- log file path is from validated config
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		out, closer = f, f
	}
	if out == nil {
		out = io.Discard
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05.000",
			NoColor:    cfg.File != "",
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}
