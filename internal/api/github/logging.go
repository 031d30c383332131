package github

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/roguelike-launcher/internal/logger"
)

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	// sugar receives the client's messages.
	sugar *zap.SugaredLogger
}

// newLeveledLogger keeps per-request debug chatter out of the console.
func newLeveledLogger() *leveledLogger {
	return &leveledLogger{
		sugar: logger.Logger().Desugar().WithOptions(logger.WithLevel(zapcore.InfoLevel)).Named("http").Sugar(),
	}
}

func (l *leveledLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}
