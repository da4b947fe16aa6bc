package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextVerticalKey ctxKey = "vertical"
	ContextAdminKey    ctxKey = "adminSubject"
)

// VerticalFromContext returns the vertical name resolved for the request, if any.
func VerticalFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ContextVerticalKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithVertical(ctx context.Context, vertical string) context.Context {
	return context.WithValue(ctx, ContextVerticalKey, vertical)
}

func AdminFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subject, ok := ctx.Value(ContextAdminKey).(string); ok {
		return subject
	}
	return ""
}

func ContextWithAdmin(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextAdminKey, subject)
}

// WithTimeout returns a context with timeout, defaulting to 10 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 10 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
