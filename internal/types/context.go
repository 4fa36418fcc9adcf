package types

import (
	"context"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	locationKey  contextKey = "location_id"
)

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithLocationID tags the context with the surf location being processed.
// Workers set it once per record so nested log lines can carry it.
func WithLocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, locationKey, id)
}

// GetLocationID retrieves the location ID from the context.
func GetLocationID(ctx context.Context) string {
	id, _ := ctx.Value(locationKey).(string)
	return id
}
