// Package logging builds the structured loggers shared by prep commands.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Settings selects log level and encoding.
type Settings struct {
	Level string `env:"PREP_LOG_LEVEL" envDefault:"info"`
	JSON  bool   `env:"PREP_LOG_JSON" envDefault:"false"`
}

// New returns a logger tagged with the service name.
func New(service string, settings Settings) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(settings.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var cfg zap.Config
	if settings.JSON {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = level > zapcore.DebugLevel

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	service = strings.TrimSpace(service)
	if service != "" {
		logger = logger.With(zap.String("service", service))
	}
	return logger, nil
}

// OrNop returns logger, or a no-op logger when nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
