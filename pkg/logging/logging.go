package logging

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with context support.
type Logger struct {
	logger *zap.Logger
}

// LogLevel defines the logging level.
type LogLevel zapcore.Level

const (
	DEBUG LogLevel = LogLevel(zapcore.DebugLevel)
	INFO  LogLevel = LogLevel(zapcore.InfoLevel)
	WARN  LogLevel = LogLevel(zapcore.WarnLevel)
	ERROR LogLevel = LogLevel(zapcore.ErrorLevel)
	FATAL LogLevel = LogLevel(zapcore.FatalLevel)
)

// contextKey defines a type for context keys.
type contextKey string

const (
	bookIDKey contextKey = "book_id"
	loggerKey contextKey = "logger"
)

// NewLogger creates a new Logger instance at the given level.
func NewLogger(level LogLevel) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := cfg.Build()
	return &Logger{logger: logger}
}

// WithBookID tags a context with the identifier of the book an operation
// concerns, for correlating a submission with the trades and trigger
// firings it causes.
func WithBookID(ctx context.Context, bookID string) context.Context {
	return context.WithValue(ctx, bookIDKey, bookID)
}

func getBookID(ctx context.Context) string {
	if id, ok := ctx.Value(bookIDKey).(string); ok {
		return id
	}
	return "unbound"
}

// GetLogger retrieves or creates a logger tagged with the context's book
// ID and a fresh correlation ID for this call chain.
func GetLogger(ctx context.Context) (*Logger, context.Context) {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger, ctx
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapLogger, _ := cfg.Build()

	logger := &Logger{
		logger: zapLogger.With(
			zap.String("book_id", getBookID(ctx)),
			zap.String("correlation_id", uuid.New().String()),
		),
	}

	ctx = context.WithValue(ctx, loggerKey, logger)
	return logger, ctx
}

func (l *Logger) logMessage(level LogLevel, msg string, fields ...zap.Field) {
	switch level {
	case DEBUG:
		l.logger.Debug(msg, fields...)
	case INFO:
		l.logger.Info(msg, fields...)
	case WARN:
		l.logger.Warn(msg, fields...)
	case ERROR:
		l.logger.Error(msg, fields...)
	case FATAL:
		l.logger.Fatal(msg, fields...)
	}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.logMessage(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.logMessage(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.logMessage(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.logMessage(ERROR, msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.logMessage(FATAL, msg, fields...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.logger.Sync()
}

// TradeFields builds the structured fields for a single trade event.
func TradeFields(price, quantity float64, restingSide string) []zap.Field {
	return []zap.Field{
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
		zap.String("resting_side", restingSide),
		zap.String("call_site", callSite()),
	}
}

// TriggerFields builds the structured fields for a trigger firing.
func TriggerFields(price float64, side string) []zap.Field {
	return []zap.Field{
		zap.Float64("price", price),
		zap.String("side", side),
		zap.String("call_site", callSite()),
	}
}

func callSite() string {
	pc := make([]uintptr, 15)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])
	frame, _ := frames.Next()
	return fmt.Sprintf("%s:%d", frame.File, frame.Line)
}
