package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where log output goes
type Options struct {
	// File receives every entry at debug level; empty disables the file sink.
	File string
	// Console receives warnings and errors, or everything when Debug is set.
	Console io.Writer
	Debug   bool
}

// New builds a logger that tees to the log file and the console.
// The returned close func flushes and closes the file sink.
func New(opts Options) (*zap.Logger, func(), error) {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoder := zapcore.NewConsoleEncoder(encCfg)

	consoleLevel := zapcore.WarnLevel
	if opts.Debug {
		consoleLevel = zapcore.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(console)), consoleLevel),
	}

	closeFn := func() {}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, closeFn, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closeFn, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(f), zapcore.DebugLevel))
		closeFn = func() { _ = f.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...)).Named("cc-launcher")
	return logger, func() {
		_ = logger.Sync()
		closeFn()
	}, nil
}

// NewOrConsole is New with a console-only fallback when the log file cannot be opened.
func NewOrConsole(opts Options) (*zap.Logger, func()) {
	logger, closeFn, err := New(opts)
	if err == nil {
		return logger, closeFn
	}
	opts.File = ""
	logger, closeFn, _ = New(opts)
	logger.Warn("File logging disabled", zap.Error(err))
	return logger, closeFn
}
