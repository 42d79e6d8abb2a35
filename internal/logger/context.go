package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single control-record
// dispatch on the NS or SS.
type LogContext struct {
	Op        string    // operation name (CREATE, WRITE, LOCK_SENTENCE, ...)
	Username  string    // requesting user, or "NM" for internal probes
	Filename  string    // target filename, if any
	ClientIP  string    // client IP address (without port)
	Replica   bool      // true when handling a replicated (do-not-refan) request
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

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		Op:        lc.Op,
		Username:  lc.Username,
		Filename:  lc.Filename,
		ClientIP:  lc.ClientIP,
		Replica:   lc.Replica,
		StartTime: lc.StartTime,
	}
}

// WithOp returns a copy with the operation name set
func (lc *LogContext) WithOp(op string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Op = op
	}
	return clone
}

// WithFile returns a copy with the username and filename set
func (lc *LogContext) WithFile(username, filename string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Username = username
		clone.Filename = filename
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
