// Package logging builds the zap logger behind the checkout service's observability.Logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Trace fields for process-level logs (startup, outbox bus, realtime hub) that no request
// span parents. Request logs carry the real W3C trace and span ids instead.
const (
	SystemTraceID = "system"
	SystemSpanID  = "system"
)

// NewLogger returns a JSON logger on stdout with service and env on every entry. ENV=dev or
// test enables debug level. LOG_FILE, when set, gets a copy of every entry.
func NewLogger(service, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	if env == "dev" || env == "test" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	if path := os.Getenv("LOG_FILE"); path != "" {
		if err := touch(path); err != nil {
			return nil, fmt.Errorf("prepare log file: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, path)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, path)
	}

	cfg.EncoderConfig = encoderConfig(cfg.EncoderConfig)
	cfg.InitialFields = map[string]any{
		"service": service,
		"env":     env,
	}
	return cfg.Build()
}

// MustNewLogger is NewLogger for main, where there is nothing to log a failure to yet.
func MustNewLogger(service, env string) *zap.Logger {
	logger, err := NewLogger(service, env)
	if err != nil {
		panic(err)
	}
	return logger
}

// WithTrace pins trace_id and span_id on logger; empty ids become "unknown" so log queries
// on those keys never miss an entry.
func WithTrace(logger *zap.Logger, traceID, spanID string) *zap.Logger {
	if logger == nil {
		logger = zap.L()
	}
	return logger.With(
		zap.String("trace_id", orUnknown(traceID)),
		zap.String("span_id", orUnknown(spanID)),
	)
}

func encoderConfig(ec zapcore.EncoderConfig) zapcore.EncoderConfig {
	ec.TimeKey = "ts"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	return ec
}

func orUnknown(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
