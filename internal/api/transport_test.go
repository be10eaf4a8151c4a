package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/session"
	"github.com/abhisek/examtaker/internal/store"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

type memEvents struct {
	mu    sync.Mutex
	calls []store.APICallEventData
}

func (m *memEvents) AppendAPICall(_ context.Context, d store.APICallEventData) error {
	m.mu.Lock()
	m.calls = append(m.calls, d)
	m.mu.Unlock()
	return nil
}

func (m *memEvents) RecordSessionEvent(context.Context, session.LifecycleEvent) error { return nil }

func (m *memEvents) QueryAPICalls(context.Context, store.QueryOpts) ([]store.APICallEvent, error) {
	return nil, nil
}

func (m *memEvents) QuerySessionEvents(context.Context, store.QueryOpts) ([]store.SessionEvent, error) {
	return nil, nil
}

// flaky fails the first n requests with status.
func flaky(n int32, status int, hits *atomic.Int32, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= n {
			w.WriteHeader(status)
			return
		}
		io.WriteString(w, body)
	}
}

func clientWith(t *testing.T, h http.Handler, rt http.RoundTripper) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(&http.Client{Transport: rt}), WithLogger(quietLogger()))
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	var hits atomic.Int32
	c := clientWith(t, flaky(2, http.StatusServiceUnavailable, &hits, `{"id":1,"title":"ok"}`), WithRetry(nil, retryConfig()))

	e, err := c.GetExam(credCtx(t), 1)
	require.NoError(t, err)
	assert.Equal(t, "ok", e.Title)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	var hits atomic.Int32
	c := clientWith(t, flaky(10, http.StatusBadGateway, &hits, ""), WithRetry(nil, retryConfig()))

	_, err := c.GetExam(credCtx(t), 1)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetry_ClientErrorsNotRetried(t *testing.T) {
	var hits atomic.Int32
	c := clientWith(t, flaky(10, http.StatusNotFound, &hits, ""), WithRetry(nil, retryConfig()))

	_, err := c.GetExam(credCtx(t), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetry_SubmitNeverRetried(t *testing.T) {
	var hits atomic.Int32
	c := clientWith(t, flaky(10, http.StatusServiceUnavailable, &hits, ""), WithRetry(nil, retryConfig()))

	_, err := c.SubmitExam(credCtx(t), exam.Submission{ExamID: 1})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetry_ContextCancelled(t *testing.T) {
	var hits atomic.Int32
	cfg := retryConfig()
	cfg.InitialWait = time.Second
	cfg.MaxWait = time.Second
	c := clientWith(t, flaky(10, http.StatusServiceUnavailable, &hits, ""), WithRetry(nil, cfg))

	ctx, cancel := context.WithTimeout(credCtx(t), 20*time.Millisecond)
	defer cancel()
	_, err := c.GetExam(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), hits.Load())
}

func TestBackoffBounds(t *testing.T) {
	r := &RetryTransport{config: RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: time.Second, Multiplier: 2}}
	for attempt := range 6 {
		wait := r.backoff(attempt, nil)
		assert.LessOrEqual(t, wait, 1200*time.Millisecond)
		assert.GreaterOrEqual(t, wait, 80*time.Millisecond)
	}

	resp := &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
	assert.Equal(t, time.Second, r.backoff(0, resp), "Retry-After capped at MaxWait")
}

func TestLoggingRecordsEachAttempt(t *testing.T) {
	var hits atomic.Int32
	events := &memEvents{}
	rt := WithRetry(WithLogging(nil, events, quietLogger()), retryConfig())
	c := clientWith(t, flaky(1, http.StatusServiceUnavailable, &hits, `[]`), rt)

	_, err := c.ListExams(credCtx(t))
	require.NoError(t, err)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.calls, 2)
	assert.Equal(t, "list_exams", events.calls[0].Operation)
	assert.Equal(t, http.MethodGet, events.calls[0].Method)
	assert.Equal(t, "/exams/", events.calls[0].Path)
	assert.Equal(t, http.StatusServiceUnavailable, events.calls[0].StatusCode)
	assert.Equal(t, 1, events.calls[0].Attempt)
	assert.Equal(t, http.StatusOK, events.calls[1].StatusCode)
	assert.Equal(t, 2, events.calls[1].Attempt)
}

func TestLoggingWithRealStore(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	var hits atomic.Int32
	c := clientWith(t, flaky(0, 0, &hits, `{"id":1}`), WithLogging(nil, s.EventRepo(), quietLogger()))
	_, err = c.GetExam(credCtx(t), 1)
	require.NoError(t, err)

	calls, err := s.EventRepo().QueryAPICalls(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_exam", calls[0].Operation)
}

func TestOperationFrom(t *testing.T) {
	assert.Equal(t, "unknown", OperationFrom(context.Background()))
	assert.Equal(t, "x", OperationFrom(WithOperation(context.Background(), "x")))
}
