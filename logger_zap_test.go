package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	auth "github.com/goliatone/go-agent-auth"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auth.NewZapLogger(zap.New(core)).Named("auth")

	logger.Debug("debug message", "user_id", 1)
	logger.Info("info message")
	logger.Warn("warn message", "email", "a@x.com")
	logger.Error("error message", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "auth", entries[0].LoggerName)
	assert.EqualValues(t, 1, entries[0].ContextMap()["user_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "a@x.com", entries[2].ContextMap()["email"])

	assert.Equal(t, "error message", entries[3].Message)
}

func TestNewZapLoggerNil(t *testing.T) {
	logger := auth.NewZapLogger(nil)
	assert.NotPanics(t, func() {
		logger.Info("dropped")
	})
}
