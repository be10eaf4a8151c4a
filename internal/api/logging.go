package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/abhisek/examtaker/internal/store"
)

// LoggingTransport is a decorator that records every round trip as an
// api_call event and a debug log line.
type LoggingTransport struct {
	inner     http.RoundTripper
	eventRepo store.EventRepo
	logger    *slog.Logger
}

// WithLogging wraps a RoundTripper with event logging. repo may be nil to
// only log.
func WithLogging(rt http.RoundTripper, repo store.EventRepo, logger *slog.Logger) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingTransport{inner: rt, eventRepo: repo, logger: logger}
}

func (l *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	ctx := req.Context()

	resp, err := l.inner.RoundTrip(req)

	data := store.APICallEventData{
		Operation: OperationFrom(ctx),
		Method:    req.Method,
		Path:      req.URL.Path,
		LatencyMs: time.Since(start).Milliseconds(),
		Attempt:   attemptFrom(ctx),
	}
	if resp != nil {
		data.StatusCode = resp.StatusCode
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	l.logger.Debug("api call",
		"operation", data.Operation,
		"method", data.Method,
		"path", data.Path,
		"status", data.StatusCode,
		"latency_ms", data.LatencyMs,
		"attempt", data.Attempt,
		"error", data.ErrorMessage,
	)

	// Log the event but don't fail the request if logging fails.
	if l.eventRepo != nil {
		if logErr := l.eventRepo.AppendAPICall(ctx, data); logErr != nil {
			l.logger.Warn("failed to record api call event", "error", logErr)
		}
	}

	return resp, err
}
