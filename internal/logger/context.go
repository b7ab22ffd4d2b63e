package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds stream-scoped logging context for a single
// encap/decap call chain.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Stream    string    // logical stream/connection identifier
	PktType   string    // GSE packet type being processed (Complete, First, ...)
	FragID    uint8     // fragment id in flight, if any
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the given stream.
func NewLogContext(stream string) *LogContext {
	return &LogContext{
		Stream:    stream,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Stream:    lc.Stream,
		PktType:   lc.PktType,
		FragID:    lc.FragID,
		StartTime: lc.StartTime,
	}
}

// WithPktType returns a copy with the packet type set
func (lc *LogContext) WithPktType(pktType string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.PktType = pktType
	}
	return clone
}

// WithFragID returns a copy with the fragment id set
func (lc *LogContext) WithFragID(fragID uint8) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.FragID = fragID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
