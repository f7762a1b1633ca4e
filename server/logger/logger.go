package logger

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a sugared dev-friendly logger, shared by all
// rolodex packages.
func NewLogger() *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.DisableStacktrace = true

	zapLogger, err := config.Build()
	if err != nil {
		log.Panic(err)
	}
	defer zapLogger.Sync()

	return zapLogger.Sugar()
}
