package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// FromContext returns the request-scoped logger placed by the trace
// middleware, or a logger over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// StructuredLogger emits the recurring log records of the lookup flow with
// a consistent field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a finished request: Info below 400, Warn for 4xx,
// Error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogFetchFailed logs a failed store query for the given selection.
func (sl *StructuredLogger) LogFetchFailed(ctx context.Context, component, operation, alley, residentID string, err error) {
	fields := NewFields().
		WithSelection(alley, residentID).
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, "Store query failed", fields.ToSlice()...)
}

// LogFetchDiscarded logs a result dropped because a newer fetch superseded it.
func (sl *StructuredLogger) LogFetchDiscarded(ctx context.Context, component, operation string, generation uint64) {
	fields := NewFields().
		WithOperation(operation).
		WithComponent(component)
	fields[FieldGeneration] = generation

	sl.logger.Logger.DebugContext(ctx, "Stale fetch result discarded", fields.ToSlice()...)
}
