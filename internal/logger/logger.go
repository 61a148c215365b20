package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Warn and above selects the JSON production
// logger; anything more verbose gets the colored development console.
func New(level zapcore.Level) (*zap.Logger, error) {
	// production mode
	if level >= zapcore.WarnLevel {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		return config.Build()
	}

	// development mode, more detailed logging
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return config.Build()
}
