package cli

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"intranet/internal/config"
)

// NewLogger builds the console logger writing to w. --debug forces debug
// level and --quiet raises it to errors only; otherwise log.level applies.
func NewLogger(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	switch {
	case cfg.Debug:
		level = zapcore.DebugLevel
	case cfg.Quiet && level < zapcore.ErrorLevel:
		level = zapcore.ErrorLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)

	logger := zap.New(core)
	if cfg.Debug {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger.Named(config.AppName), nil
}
