// Package logger provides a structured logging facility based on Zap.
//
// Log entries are written to stdout and, when a file is configured, to a size rotated
// log file managed by lumberjack.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug or info
//   - Format: json (production) or console (development)
//   - File, MaxBytes, MaxBackups: the rotated log file
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "json"})
//	log.Info("Server started")
//
//	// In a request handler:
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
