package cli

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"intranet/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		debug bool
		quiet bool
		want  zapcore.Level
	}{
		{"configured", "warn", false, false, zapcore.WarnLevel},
		{"empty is info", "", false, false, zapcore.InfoLevel},
		{"debug flag wins", "error", true, true, zapcore.DebugLevel},
		{"quiet raises", "info", false, true, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Log.Level = tt.level
			cfg.Debug = tt.debug
			cfg.Quiet = tt.quiet

			logger, err := NewLogger(cfg, &bytes.Buffer{})
			if err != nil {
				t.Fatal(err)
			}
			if got := logger.Level(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	logger, err := NewLogger(cfg, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Warn("feed degraded")
	if !strings.Contains(buf.String(), "feed degraded") || !strings.Contains(buf.String(), "intranet") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	if _, err := NewLogger(cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid level")
	}
}
