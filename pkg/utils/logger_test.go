package utils

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("console debug", func(t *testing.T) {
		logger, err := NewLogger("debug", "console")
		if err != nil {
			t.Fatalf("NewLogger error: %v", err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("debug level should be enabled")
		}
		_ = logger.Sync()
	})

	t.Run("json defaults to info", func(t *testing.T) {
		logger, err := NewLogger("", "json")
		if err != nil {
			t.Fatalf("NewLogger error: %v", err)
		}
		if logger.Core().Enabled(zapcore.DebugLevel) || !logger.Core().Enabled(zapcore.InfoLevel) {
			t.Error("info level expected")
		}
		_ = logger.Sync()
	})

	t.Run("invalid level", func(t *testing.T) {
		if _, err := NewLogger("loud", "json"); err == nil {
			t.Error("expected error for invalid level")
		}
	})
}
