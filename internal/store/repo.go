package store

import (
	"context"
	"time"

	"github.com/abhisek/examtaker/internal/session"
)

// QueryOpts configures event queries.
type QueryOpts struct {
	Limit     int    // max results (0 = unlimited)
	After     int64  // sequence > After
	SessionID string // session events only; "" matches all
}

// APICallEventData captures one HTTP round trip to a collaborator.
type APICallEventData struct {
	Operation    string
	Method       string
	Path         string
	StatusCode   int
	LatencyMs    int64
	Attempt      int
	ErrorMessage string
}

// APICallEvent is a stored APICallEventData.
type APICallEvent struct {
	Sequence  int64
	Timestamp time.Time
	APICallEventData
}

// SessionEvent is a stored session lifecycle event.
type SessionEvent struct {
	Sequence  int64
	Timestamp time.Time
	session.LifecycleEvent
}

// EventRepo provides append and query access to the audit log.
type EventRepo interface {
	// AppendAPICall records one collaborator HTTP call.
	AppendAPICall(ctx context.Context, data APICallEventData) error

	// RecordSessionEvent records a session lifecycle event. It satisfies
	// session.Recorder.
	RecordSessionEvent(ctx context.Context, ev session.LifecycleEvent) error

	// QueryAPICalls returns API call events, newest first.
	QueryAPICalls(ctx context.Context, opts QueryOpts) ([]APICallEvent, error)

	// QuerySessionEvents returns lifecycle events in sequence order.
	QuerySessionEvents(ctx context.Context, opts QueryOpts) ([]SessionEvent, error)
}

// StoredReport is a result as last fetched from the grading service.
type StoredReport struct {
	ResultID  int
	ExamID    int
	Detailed  bool
	Payload   []byte
	FetchedAt time.Time
}

// ReportRepo keeps the last fetched copy of each result.
type ReportRepo interface {
	// Save stores or replaces the copy of a result.
	Save(ctx context.Context, r StoredReport) error

	// Get returns the stored copy, or ErrNotFound.
	Get(ctx context.Context, resultID int) (*StoredReport, error)

	// List returns stored reports, most recently fetched first.
	List(ctx context.Context, limit int) ([]StoredReport, error)
}

var _ session.Recorder = EventRepo(nil)
