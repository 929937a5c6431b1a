package bootstrap

import (
	"clickmap/internal/config"

	"go.uber.org/zap"
)

func newLogger(config *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if config.AppConfig.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.DisableStacktrace = true

	level, err := zap.ParseAtomicLevel(config.AppConfig.LogLevel)
	if err == nil {
		zapConfig.Level = level
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}
