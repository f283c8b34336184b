package middleware

import "context"

// RequestIDFrom returns the request ID placed on ctx by RequestLogging.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
