package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/store"
)

type fetchFunc func(ctx context.Context, id int) (*exam.Result, error)

func (f fetchFunc) FetchResult(ctx context.Context, id int) (*exam.Result, error) { return f(ctx, id) }

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCachingFetcherStoresCopy(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	f := &CachingFetcher{
		Fetcher: fetchFunc(func(_ context.Context, id int) (*exam.Result, error) {
			return &exam.Result{ID: id, ExamID: 3, TotalPoints: 4, Detailed: true,
				Submissions: []exam.GradedSubmission{{QuestionID: 1, PointsEarned: 4, MaxPoints: 5}}}, nil
		}),
		Reports: st.ReportRepo(),
	}

	res, err := f.FetchResult(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, res.ID)

	cached, fetchedAt, err := Cached(ctx, st.ReportRepo(), 12)
	require.NoError(t, err)
	assert.False(t, fetchedAt.IsZero())
	assert.True(t, cached.Detailed, "detailed flag survives the round trip")
	assert.Equal(t, res.Submissions, cached.Submissions)
}

func TestCachingFetcherPassesErrors(t *testing.T) {
	st := openStore(t)
	boom := errors.New("boom")
	f := &CachingFetcher{
		Fetcher: fetchFunc(func(context.Context, int) (*exam.Result, error) { return nil, boom }),
		Reports: st.ReportRepo(),
	}
	_, err := f.FetchResult(context.Background(), 1)
	assert.ErrorIs(t, err, boom)

	_, _, err = Cached(context.Background(), st.ReportRepo(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
