package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/examtaker/internal/session"
)

type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var (
	apiCallColumns = []string{
		"sequence", "timestamp", "operation", "method", "path",
		"status_code", "latency_ms", "attempt", "error_message",
	}
	sessionEventColumns = []string{
		"sequence", "timestamp", "session_id", "exam_id", "generation",
		"kind", "trigger_name", "detail",
	}
)

func (r *eventRepo) AppendAPICall(ctx context.Context, data APICallEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if data.Attempt == 0 {
		data.Attempt = 1
	}
	query, args := builder().Insert(tableAPICalls).
		Columns(apiCallColumns...).
		Values(seqNum, formatTime(time.Now()), data.Operation, data.Method, data.Path,
			data.StatusCode, data.LatencyMs, data.Attempt, data.ErrorMessage).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save api call event: %w", err)
	}
	return nil
}

func (r *eventRepo) RecordSessionEvent(ctx context.Context, ev session.LifecycleEvent) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	query, args := builder().Insert(tableSessionEvents).
		Columns(sessionEventColumns...).
		Values(seqNum, formatTime(at), ev.SessionID, ev.ExamID, int64(ev.Generation),
			ev.Kind, ev.Trigger, ev.Detail).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

// QueryAPICalls returns the newest calls first.
func (r *eventRepo) QueryAPICalls(ctx context.Context, opts QueryOpts) ([]APICallEvent, error) {
	sel := builder().Select(apiCallColumns...).
		From(entsql.Table(tableAPICalls)).
		Where(entsql.GT("sequence", opts.After)).
		OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query api calls: %w", err)
	}
	defer rows.Close()

	var out []APICallEvent
	for rows.Next() {
		var (
			e  APICallEvent
			ts string
		)
		if err := rows.Scan(&e.Sequence, &ts, &e.Operation, &e.Method, &e.Path,
			&e.StatusCode, &e.LatencyMs, &e.Attempt, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan api call: %w", err)
		}
		e.Timestamp = parseTime(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// QuerySessionEvents returns events in the order they happened.
func (r *eventRepo) QuerySessionEvents(ctx context.Context, opts QueryOpts) ([]SessionEvent, error) {
	sel := builder().Select(sessionEventColumns...).
		From(entsql.Table(tableSessionEvents)).
		Where(entsql.GT("sequence", opts.After))
	if opts.SessionID != "" {
		sel.Where(entsql.EQ("session_id", opts.SessionID))
	}
	sel.OrderBy(entsql.Asc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var out []SessionEvent
	for rows.Next() {
		var (
			e   SessionEvent
			ts  string
			gen int64
		)
		if err := rows.Scan(&e.Sequence, &ts, &e.SessionID, &e.ExamID, &gen, &e.Kind, &e.Trigger, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		e.Timestamp = parseTime(ts)
		e.At = e.Timestamp
		e.Generation = uint64(gen)
		out = append(out, e)
	}
	return out, rows.Err()
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
