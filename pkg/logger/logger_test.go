package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAJJJB/subscription-tracker/pkg/logger"
)

func TestNewLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subtracker.log")

	l := logger.NewLogger(path, "subtracker_test", zerolog.InfoLevel)
	l.Info().Str("subscription", "music").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"subtracker_test"`)
	assert.Contains(t, string(data), `"subscription":"music"`)
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subtracker.log")

	l := logger.NewLogger(path, "subtracker_test", zerolog.WarnLevel)
	l.Debug().Msg("hidden")

	data, err := os.ReadFile(path)
	if err == nil {
		assert.NotContains(t, string(data), "hidden")
	}
}

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "webhooks.log")

	l, err := logger.NewFileLogger(path)
	require.NoError(t, err)
	l.Info("delivered")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"delivered"`)
}
