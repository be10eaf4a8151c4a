package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type reportRepo struct {
	db *sql.DB
}

var reportColumns = []string{"result_id", "exam_id", "detailed", "payload", "fetched_at"}

func (r *reportRepo) Save(ctx context.Context, rep StoredReport) error {
	if rep.FetchedAt.IsZero() {
		rep.FetchedAt = time.Now()
	}
	query, args := builder().Insert(tableReports).
		Columns(reportColumns...).
		Values(rep.ResultID, rep.ExamID, rep.Detailed, string(rep.Payload), formatTime(rep.FetchedAt)).
		OnConflict(entsql.ConflictColumns("result_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save report %d: %w", rep.ResultID, err)
	}
	return nil
}

func (r *reportRepo) Get(ctx context.Context, resultID int) (*StoredReport, error) {
	query, args := builder().Select(reportColumns...).
		From(entsql.Table(tableReports)).
		Where(entsql.EQ("result_id", resultID)).
		Query()
	rep, err := scanReport(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", resultID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", resultID, err)
	}
	return rep, nil
}

func (r *reportRepo) List(ctx context.Context, limit int) ([]StoredReport, error) {
	sel := builder().Select(reportColumns...).
		From(entsql.Table(tableReports)).
		OrderBy(entsql.Desc("fetched_at"), entsql.Desc("result_id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []StoredReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, *rep)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*StoredReport, error) {
	var (
		rep     StoredReport
		payload string
		fetched string
	)
	if err := s.Scan(&rep.ResultID, &rep.ExamID, &rep.Detailed, &payload, &fetched); err != nil {
		return nil, err
	}
	rep.Payload = []byte(payload)
	rep.FetchedAt = parseTime(fetched)
	return &rep, nil
}
