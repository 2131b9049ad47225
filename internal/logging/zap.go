// Package logging adapts zap to the domain logging surface.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pedigreecore/pkg/domain"
)

// ZapLogger wraps a sugared zap logger behind domain.Logger. The domain
// surface passes alternating key/value pairs, which is exactly the sugared
// API contract.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a zap-backed logger.
//
//	level: debug|info|warn|error (default info)
//	format: json|console (default json)
func New(level, format string) (*ZapLogger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	base, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: base.Sugar()}, nil
}

// FromEnv builds a logger configured by environment variables.
//
//	PEDIGREECORE_LOG_LEVEL: debug|info|warn|error (default info)
//	PEDIGREECORE_LOG_FORMAT: json|console (default json)
func FromEnv() (*ZapLogger, error) {
	return New(os.Getenv("PEDIGREECORE_LOG_LEVEL"), os.Getenv("PEDIGREECORE_LOG_FORMAT"))
}

// Wrap adapts an existing zap logger, mostly for tests.
func Wrap(base *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: base.Sugar()}
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

var _ domain.Logger = (*ZapLogger)(nil)
