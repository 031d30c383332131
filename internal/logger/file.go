package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultMaxSizeMB is the size at which the log file is rotated.
	DefaultMaxSizeMB = 1
	// DefaultMaxBackups is how many rotated files are kept.
	DefaultMaxBackups = 2

	logDirPermissions = 0o750
)

// FileOptions describes the rotating log file written next to the console output.
type FileOptions struct {
	// Path is the log file location. Empty disables file logging.
	Path string
	// Level is the minimum level written to the file.
	Level zapcore.Level
	// MaxSizeMB overrides DefaultMaxSizeMB when positive.
	MaxSizeMB int
	// MaxBackups overrides DefaultMaxBackups when positive.
	MaxBackups int
}

// Setup replaces the global logger with one that writes to the console at the
// given level and, when opts.Path is set, to a rotating JSON file as well.
// The returned function flushes and closes the file.
func Setup(level zapcore.Level, opts FileOptions) (func(), error) {
	defaultLevel.SetLevel(level)

	if opts.Path == "" {
		SetLogger(New(defaultLevel))

		return Sync, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), logDirPermissions); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeMB
	}

	maxBackups := opts.MaxBackups
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}

	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	fileCore := &coreWithLevel{
		Core:  zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), zapcore.DebugLevel),
		level: opts.Level,
	}

	SetLogger(zap.New(zapcore.NewTee(newConsoleCore(defaultLevel), fileCore), zap.AddCaller()).Sugar())

	return func() {
		Sync()

		_ = rotator.Close()
	}, nil
}
