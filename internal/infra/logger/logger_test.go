package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sifan077/linkqr/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_JSONCarriesServiceField(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Encoding: EncodingJSON, Service: "linkqr", Output: &buf})
	require.NoError(t, err)

	l.Info("short link created")
	require.NoError(t, l.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "linkqr", entry["service"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "short link created", entry["msg"])
	assert.Contains(t, entry, "time")
}

func TestNew_AppliesLevel(t *testing.T) {
	l, err := New(Config{Level: "WARN", Output: &bytes.Buffer{}})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_DevelopmentDefaults(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Development: true, Output: &buf})
	require.NoError(t, err)

	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l.Debug("cache miss")
	assert.Contains(t, buf.String(), " | DEBUG | ")
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Encoding: "xml"})
	assert.Error(t, err)
}

func TestFromApp(t *testing.T) {
	cfg := FromApp(config.AppConfig{Env: "production", LogLevel: "error", LogEncoding: "json"}, "linkqr")

	assert.False(t, cfg.Development)
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, "linkqr", cfg.Service)
}

func TestInitAndSync(t *testing.T) {
	l, err := Init(Config{Service: "linkqr", Output: &bytes.Buffer{}})
	require.NoError(t, err)
	require.NotNil(t, l)

	assert.NoError(t, Sync())
}
