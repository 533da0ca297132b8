package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "upper case", level: "WARN", want: zerolog.WarnLevel},
		{name: "error", level: "error", want: zerolog.ErrorLevel},
		{name: "unknown falls back to info", level: "loud", want: zerolog.InfoLevel},
		{name: "empty falls back to info", level: "", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLoggerTo(&bytes.Buffer{}, LoggerConfig{Level: tt.level, Format: "json"})
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewLoggerTo_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggerConfig{Level: "info", Format: "json"})

	logger.Debug().Msg("hidden")
	logger.Info().Str("order_id", "o-1").Msg("order created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "order created", line["message"])
	assert.Equal(t, AppName, line["app"])
	assert.Equal(t, "o-1", line["order_id"])
	assert.Contains(t, line, "time")
}

func TestNewLoggerTo_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggerConfig{Level: "info", Format: "console"})

	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "app=")
}
