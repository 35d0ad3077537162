package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"off", zerolog.Disabled, false},
		{"NONE", zerolog.Disabled, false},
		{"", zerolog.ErrorLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"Warn", zerolog.WarnLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"  debug  ", zerolog.DebugLevel, false},
		{"trace", zerolog.ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			level, err := config.ParseLogLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestNewLogger_Fallback(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	logger, closer, err := config.NewLogger(config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	logger.Debug().Msg("hidden")
	logger.Info().Str("op", "postTender").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"op":"postTender"`)
	assert.Contains(t, out, `"message":"visible"`)
}

func TestNewLogger_Off(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	logger, _, err := config.NewLogger(config.LoggingConfig{Level: "off"}, &buf)
	require.NoError(t, err)
	logger.Error().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestNewLogger_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "etenda.log")

	logger, closer, err := config.NewLogger(config.LoggingConfig{Level: "debug", File: path, Pretty: true}, nil)
	require.NoError(t, err)
	logger.Debug().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()
	_, _, err := config.NewLogger(config.LoggingConfig{Level: "loud"}, nil)
	require.Error(t, err)
}
