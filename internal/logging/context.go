package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// BarContext creates a logger context for bar ingestion operations
func BarContext(symbol, timeframe string, timestamp time.Time) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
		"bar_time":  timestamp.Format(time.RFC3339),
	}).WithComponent("bar")
}

// PivotContext creates a logger context for pivot detection
func PivotContext(symbol string, pivotType string, price float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":     symbol,
		"pivot_type": pivotType,
		"price":      price,
	}).WithComponent("pivot")
}

// PatternContext creates a logger context for pattern detection
func PatternContext(symbol, timeframe, patternType string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":       symbol,
		"timeframe":    timeframe,
		"pattern_type": patternType,
	}).WithComponent("pattern")
}

// SignalContext creates a logger context for trading signals
func SignalContext(symbol, signalType string, entry float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":      symbol,
		"signal_type": signalType,
		"entry":       entry,
	}).WithComponent("signal")
}

// WorkerContext creates a logger context for a per-symbol pipeline worker
func WorkerContext(symbol string) *Logger {
	return Default().WithField("symbol", symbol).WithComponent("worker")
}

// BacktestContext creates a logger context for backtesting
func BacktestContext(symbol string, startDate, endDate time.Time) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol":     symbol,
		"start_date": startDate.Format("2006-01-02"),
		"end_date":   endDate.Format("2006-01-02"),
	}).WithComponent("backtest")
}

// APIContext creates a logger context for API operations
func APIContext(method, path string, statusCode int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
	}).WithComponent("api")
}

// WebSocketContext creates a logger context for WebSocket operations
func WebSocketContext(symbol, stream string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"symbol": symbol,
		"stream": stream,
	}).WithComponent("websocket")
}

// HTTPMiddleware is a middleware that adds logging to HTTP requests
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		// Create logger with request context
		l := Default().WithTraceID(traceID).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}).WithComponent("http")

		// Add logger to context
		ctx := NewContext(r.Context(), l)
		r = r.WithContext(ctx)

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call next handler
		next.ServeHTTP(wrapped, r)

		// Log request completion
		duration := time.Since(start)
		l.WithDuration(duration).WithField("status_code", wrapped.statusCode).Info("Request completed")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// DatabaseContext creates a logger context for store operations
func DatabaseContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("store")
}

// FeedContext creates a logger context for market data feed operations
func FeedContext(source, symbol string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"source": source,
		"symbol": symbol,
	}).WithComponent("feed")
}
