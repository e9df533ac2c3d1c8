package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewFromSettingsFallsBack(t *testing.T) {
	logger := NewFromSettings("loud", false)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewFromSettingsLevel(t *testing.T) {
	logger := NewFromSettings("warn", false)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestDevelopmentIsVerbose(t *testing.T) {
	logger := NewFromSettings("", true)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNamed(t *testing.T) {
	logger := NewNop().Named("preview")
	assert.NotNil(t, logger.Logger)
}

func TestIsProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())

	t.Setenv("ENV", "dev")
	assert.False(t, IsProduction())
}

func TestNewFromSettingsDevelopmentFallsBack(t *testing.T) {
	logger := NewFromSettings("loud", true)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
