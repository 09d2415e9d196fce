// Package logger builds the process zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// New returns a human-readable debug logger for local runs and a JSON logger
// otherwise. Dev keeps debug output, prod logs from info up.
func New(env string) (*zap.Logger, error) {
	switch env {
	case EnvLocal, "":
		return zap.NewDevelopment()
	case EnvDev:
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	default:
		return zap.NewProduction()
	}
}
