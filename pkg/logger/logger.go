package logger

import (
	"context"
	"log/slog"
	"os"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
	// ExtractionIDKey carries the document import request id
	ExtractionIDKey ContextKey = "extraction_id"
	// LoanIDKey carries the id of the loan being worked on
	LoanIDKey ContextKey = "loan_id"
)

// WithRequestID returns ctx tagged with an HTTP request id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithExtractionID returns ctx tagged with an import request id
func WithExtractionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ExtractionIDKey, id)
}

// WithLoanID returns ctx tagged with a loan id
func WithLoanID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, LoanIDKey, id)
}

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Init initializes the global slog logger with the given configuration
func Init(cfg *Config) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithContext returns a logger with context values extracted
func WithContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	if extractionID, ok := ctx.Value(ExtractionIDKey).(string); ok && extractionID != "" {
		logger = logger.With("extraction_id", extractionID)
	}
	if loanID, ok := ctx.Value(LoanIDKey).(string); ok && loanID != "" {
		logger = logger.With("loan_id", loanID)
	}

	return logger
}

// Info logs at info level with context
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

// Debug logs at debug level with context
func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

// Warn logs at warn level with context
func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

// Error logs at error level with context
func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
