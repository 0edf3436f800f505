package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating file sink.
type FileOptions struct {
	// Path is the log file location; an empty path disables the sink.
	Path string
	// MaxSizeMB is the size in megabytes at which the file rotates.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// MaxAgeDays is the retention period of rotated files.
	MaxAgeDays int
	// Compress gzips rotated files.
	Compress bool
}

// Default rotation limits.
const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

// WithFile is an option that tees every entry into a lumberjack-rotated file
// using a JSON encoder, next to the console output.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithFile(opts FileOptions) zap.Option {
	if opts.Path == "" {
		return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return core
		})
	}

	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = defaultMaxSizeMB
	}

	if opts.MaxBackups <= 0 {
		opts.MaxBackups = defaultMaxBackups
	}

	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = defaultMaxAgeDays
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	})

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, zapcore.NewCore(encoder, sink, defaultLevel))
	})
}
