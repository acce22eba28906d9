package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ehealthMP/Omh-Schimmer/internal/logger"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "warn", false, "shimmer")

	l.Info().Msg("dropped")
	l.Warn().Str("shim", "withings").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "kept", line["message"])
	require.Equal(t, "withings", line["shim"])
	require.Equal(t, "shimmer", line["app"])
	require.Equal(t, "warn", line["level"])
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "chatty", false, "shimmer")

	l.Debug().Msg("hidden")
	require.Zero(t, buf.Len())
	l.Info().Msg("shown")
	require.NotZero(t, buf.Len())
}

func TestNew_ConsoleInDev(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "info", true, "shimmer")
	l.Info().Msg("hello")

	require.Contains(t, buf.String(), "hello")
	require.False(t, json.Valid(buf.Bytes()))
}
