package logger

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const megabyte = 1024 * 1024

// neverRotateMegabytes is a size no log file reaches. lumberjack treats 0 as its 100MB default.
const neverRotateMegabytes = 1 << 30

// Config holds configuration for the logger.
type Config struct {
	// Level is the minimum level logged, "debug" or "info".
	Level string
	// Format is the encoding, "json" or "console".
	Format string
	// File is the rotated log file. Empty disables file logging.
	File string
	// MaxBytes is the size a log file is rotated at.
	MaxBytes int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

// New creates a new zap logger based on the configuration.
func New(cfg *Config) (*zap.Logger, error) {
	var config zap.Config

	if cfg.Level == "debug" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	// Set format based on configuration
	if cfg.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.DisableStacktrace = true
	} else {
		config.Encoding = "json"
	}

	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.File == "" {
		return config.Build()
	}

	var encoder zapcore.Encoder
	if config.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(config.EncoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(config.EncoderConfig)
	}
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSizeMegabytes(cfg.MaxBytes),
		MaxBackups: cfg.MaxBackups,
	})
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), config.Level),
		zapcore.NewCore(encoder, file, config.Level),
	)
	options := []zap.Option{zap.AddCaller()}
	if !config.DisableStacktrace {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, options...), nil
}

// maxSizeMegabytes converts a size in bytes to lumberjack's megabytes, rounding up.
// Zero or less means the file is never rotated.
func maxSizeMegabytes(bytes int) int {
	if bytes <= 0 {
		return neverRotateMegabytes
	}
	return (bytes + megabyte - 1) / megabyte
}

// WithRayID returns a logger with the ray_id field set from the Fiber context.
func WithRayID(l *zap.Logger, c *fiber.Ctx) *zap.Logger {
	rid := c.Locals("ray_id")
	if str, ok := rid.(string); ok && str != "" {
		return l.With(zap.String("ray_id", str))
	}
	return l
}
