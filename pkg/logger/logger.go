// Package logger builds the process-wide zap logger: coloured console output
// plus a rotated JSON file.
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Log  *zap.Logger
	once sync.Once
	mu   sync.Mutex
)

// Options controls file rotation and verbosity.
type Options struct {
	Dir        string
	Debug      bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init sets up the global logger once. Later calls return the existing logger.
func Init(opts Options) (*zap.Logger, error) {
	var initErr error
	once.Do(func() {
		l, err := build(opts)
		if err != nil {
			initErr = err
			return
		}
		mu.Lock()
		Log = l
		mu.Unlock()
		zap.ReplaceGlobals(l)
		zap.RedirectStdLog(l)
	})
	if initErr != nil {
		return nil, initErr
	}
	return current(), nil
}

func build(opts Options) (*zap.Logger, error) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 30
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = 30
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	consoleEncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderConfig),
		zapcore.AddSync(os.Stdout),
		level(opts.Debug),
	)

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileEncoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "trendsignal.json"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}),
		zapcore.InfoLevel,
	)

	return zap.New(zapcore.NewTee(consoleCore, fileCore),
		zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func level(debug bool) zapcore.LevelEnabler {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func current() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

// NewModuleLogger returns the global logger tagged with a module field.
// Before Init it returns a no-op logger.
func NewModuleLogger(module string) *zap.Logger {
	return current().With(zap.String("module", module))
}

// Sync flushes buffered entries.
func Sync() {
	_ = current().Sync()
}
