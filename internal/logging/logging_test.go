package logging_test

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/config"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/logging"
)

func TestNew(t *testing.T) {
	t.Run("json logger honours level", func(t *testing.T) {
		logger, err := logging.New(config.LogConfig{Level: "warn", Format: "json"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if logger.Core().Enabled(zapcore.InfoLevel) {
			t.Error("info should be disabled at warn level")
		}
		if !logger.Core().Enabled(zapcore.WarnLevel) {
			t.Error("warn should be enabled at warn level")
		}
	})

	t.Run("console logger builds", func(t *testing.T) {
		logger, err := logging.New(config.LogConfig{Level: "debug", Format: "console"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("debug should be enabled")
		}
	})

	t.Run("invalid level is rejected", func(t *testing.T) {
		if _, err := logging.New(config.LogConfig{Level: "loud", Format: "json"}); err == nil {
			t.Error("expected error for unknown level")
		}
	})

	t.Run("invalid format is rejected", func(t *testing.T) {
		if _, err := logging.New(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}
