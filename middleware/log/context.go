package logger

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// TraceIDKey is the context key holding the request's trace ID.
const TraceIDKey contextKey = "trace_id"

// WithTraceID stores traceID in ctx, generating one when empty.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace ID in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

func NewTraceID() string {
	return uuid.NewString()
}
