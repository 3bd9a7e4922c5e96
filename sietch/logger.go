package sietch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// QueryLogger defines the interface for logging store operations
type QueryLogger interface {
	// LogQuery logs a query execution with timing and error information
	LogQuery(ctx context.Context, operation string, query string, args []any, duration time.Duration, err error)

	// LogOperation logs a high-level operation on an entity type
	LogOperation(ctx context.Context, operation string, entityType string, duration time.Duration, err error)
}

// LogLevel defines the minimum severity a ZapLogger emits
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch LogLevel(strings.ToLower(string(l))) {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ZapLogger writes structured entries through zap.
// Successful queries are logged at debug, operations at info, failures at error.
type ZapLogger struct {
	base *zap.Logger
}

// NewZapLogger builds a production (JSON) or development (console) zap logger
func NewZapLogger(minLevel LogLevel, pretty bool) (*ZapLogger, error) {
	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(minLevel.zapLevel())

	base, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{base: base}, nil
}

// WrapZap adapts an existing zap logger
func WrapZap(base *zap.Logger) *ZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{base: base}
}

// LogQuery implements QueryLogger
func (l *ZapLogger) LogQuery(_ context.Context, operation string, query string, args []any, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("query", query),
		zap.Int("args", len(args)),
		zap.Duration("duration", duration),
	}
	if err != nil {
		l.base.Error("query failed", append(fields, zap.Error(err))...)
		return
	}
	l.base.Debug("query", fields...)
}

// LogOperation implements QueryLogger
func (l *ZapLogger) LogOperation(_ context.Context, operation string, entityType string, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("entity", entityType),
		zap.Duration("duration", duration),
	}
	if err != nil {
		l.base.Error("operation failed", append(fields, zap.Error(err))...)
		return
	}
	l.base.Info("operation", fields...)
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	return l.base.Sync()
}

// NoOpLogger is a logger that does nothing (useful for disabling logging)
type NoOpLogger struct{}

// NewNoOpLogger creates a no-op logger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogQuery implements QueryLogger
func (l *NoOpLogger) LogQuery(context.Context, string, string, []any, time.Duration, error) {}

// LogOperation implements QueryLogger
func (l *NoOpLogger) LogOperation(context.Context, string, string, time.Duration, error) {}

// logOperation is a helper to log an operation with timing
func logOperation(logger QueryLogger, ctx context.Context, operation string, entityType string, start time.Time, err error) {
	if logger != nil {
		logger.LogOperation(ctx, operation, entityType, time.Since(start), err)
	}
}

// logQuery is a helper to log a query with timing
func logQuery(logger QueryLogger, ctx context.Context, operation string, query string, args []any, start time.Time, err error) {
	if logger != nil {
		logger.LogQuery(ctx, operation, query, args, time.Since(start), err)
	}
}
