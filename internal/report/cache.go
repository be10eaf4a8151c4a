package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/store"
)

// Fetcher fetches a graded result.
type Fetcher interface {
	FetchResult(ctx context.Context, resultID int) (*exam.Result, error)
}

// CachingFetcher keeps the last fetched copy of every result in the local
// store. Store failures are logged and never fail the fetch.
type CachingFetcher struct {
	Fetcher Fetcher
	Reports store.ReportRepo
	Logger  *slog.Logger
}

// FetchResult fetches and stores the result.
func (f *CachingFetcher) FetchResult(ctx context.Context, resultID int) (*exam.Result, error) {
	res, err := f.Fetcher.FetchResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if f.Reports == nil {
		return res, nil
	}

	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	payload, err := json.Marshal(res)
	if err != nil {
		logger.Warn("encode result for cache", "result_id", resultID, "error", err)
		return res, nil
	}
	if err := f.Reports.Save(ctx, store.StoredReport{
		ResultID: res.ID,
		ExamID:   res.ExamID,
		Detailed: res.Detailed,
		Payload:  payload,
	}); err != nil {
		logger.Warn("cache result", "result_id", resultID, "error", err)
	}
	return res, nil
}

// Cached loads the stored copy of a result and when it was fetched.
func Cached(ctx context.Context, reports store.ReportRepo, resultID int) (*exam.Result, time.Time, error) {
	rep, err := reports.Get(ctx, resultID)
	if err != nil {
		return nil, time.Time{}, err
	}
	var res exam.Result
	if err := json.Unmarshal(rep.Payload, &res); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode cached result %d: %w", resultID, err)
	}
	res.Detailed = rep.Detailed
	return &res, rep.FetchedAt, nil
}
