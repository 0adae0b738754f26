package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		mode, level string
		debug, info bool
	}{
		{"dev", "", true, true},
		{"prod", "", false, true},
		{"production", "debug", true, true},
		{"dev", "warn", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.mode+"_"+tt.level, func(t *testing.T) {
			l, err := New(tt.mode, tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.debug, l.Enabled(zapcore.DebugLevel))
			assert.Equal(t, tt.info, l.Enabled(zapcore.InfoLevel))
			assert.True(t, l.Enabled(zapcore.ErrorLevel))
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("dev", "loud")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop().With("component", "test")
	assert.False(t, l.Enabled(zapcore.ErrorLevel))
	l.Info("discarded", "key", "value")
}
