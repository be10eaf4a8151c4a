package api

import "context"

type contextKey string

const operationKey contextKey = "api_operation"

// WithOperation labels the calls made with ctx for event logging.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey, op)
}

// OperationFrom extracts the operation label from the context.
func OperationFrom(ctx context.Context) string {
	if v, ok := ctx.Value(operationKey).(string); ok {
		return v
	}
	return "unknown"
}

type attemptKey struct{}

// attemptCounter is shared between the retry and logging transports of
// one request.
type attemptCounter struct{ n int }

func withAttempt(ctx context.Context, a *attemptCounter) context.Context {
	return context.WithValue(ctx, attemptKey{}, a)
}

func attemptFrom(ctx context.Context) int {
	if a, ok := ctx.Value(attemptKey{}).(*attemptCounter); ok {
		return a.n
	}
	return 1
}
