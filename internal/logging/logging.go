package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prepme-backend/internal/config"
)

// New builds the process logger. Release mode gets JSON output at info level,
// everything else the human-readable development encoder. LOG_LEVEL, when set,
// overrides the level in both modes.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg != nil && cfg.IsRelease() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg != nil && cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zcfg.Build()
}
