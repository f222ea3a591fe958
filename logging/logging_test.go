package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		for _, development := range []bool{false, true} {
			logger, err := New(tt.level, development)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.expected), tt.level)
			if tt.expected > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.expected-1), tt.level)
			}
		}
	}
}

func TestNewUnknownLevel(t *testing.T) {
	_, err := New("verbose", false)
	assert.Error(t, err)
}
