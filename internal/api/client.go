// Package api is the HTTP client for the exam backend: the content store,
// the grading service and the identity endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abhisek/examtaker/internal/auth"
	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/session"
	"github.com/abhisek/examtaker/internal/store"
)

// maxBody bounds the response bodies read into memory.
const maxBody = 8 << 20

// Client calls the exam backend. Every call needs a bearer credential on
// its context (auth.WithCredential).
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

var (
	_ session.ContentStore   = (*Client)(nil)
	_ session.GradingService = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, typically to install
// the retry and logging transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides time.Now for credential expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8000/api/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// NewHTTPClient builds the transport stack: each attempt is logged, GETs
// are retried, and timeout bounds a whole call including retries.
func NewHTTPClient(timeout time.Duration, retry RetryConfig, repo store.EventRepo, logger *slog.Logger) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: WithRetry(WithLogging(http.DefaultTransport, repo, logger), retry),
	}
}

// GetExam fetches one exam definition.
func (c *Client) GetExam(ctx context.Context, examID int) (*exam.Exam, error) {
	var e exam.Exam
	if _, err := c.do(WithOperation(ctx, "get_exam"), http.MethodGet, fmt.Sprintf("/exams/%d", examID), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExams lists the exams visible to the caller.
func (c *Client) ListExams(ctx context.Context) ([]exam.Exam, error) {
	var out []exam.Exam
	if _, err := c.do(WithOperation(ctx, "list_exams"), http.MethodGet, "/exams/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListQuestions fetches the question set of an exam.
func (c *Client) ListQuestions(ctx context.Context, examID int) ([]exam.Question, error) {
	var out []exam.Question
	if _, err := c.do(WithOperation(ctx, "list_questions"), http.MethodGet, fmt.Sprintf("/exams/%d/questions", examID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitExam posts the submission. It is never retried.
func (c *Client) SubmitExam(ctx context.Context, sub exam.Submission) (*exam.Result, error) {
	const path = "/submissions/exam"
	var res exam.Result
	raw, err := c.do(WithOperation(ctx, "submit_exam"), http.MethodPost, path, sub, &res)
	if err != nil {
		return nil, err
	}
	if res.ID == 0 {
		return nil, &ErrInvalidPayload{Path: path, Content: raw, Err: errors.New("result has no id")}
	}
	return &res, nil
}

// GetReport fetches the detailed report of a result and validates its
// shape.
func (c *Client) GetReport(ctx context.Context, resultID int) (*exam.Result, error) {
	path := fmt.Sprintf("/submissions/report/exam/%d", resultID)
	raw, err := c.do(WithOperation(ctx, "get_report"), http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := validateReport(path, raw); err != nil {
		return nil, err
	}
	var rep exam.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, &ErrInvalidPayload{Path: path, Content: raw, Err: err}
	}
	return rep.Result(), nil
}

// GetResult fetches the summary of a result, without per-question records.
func (c *Client) GetResult(ctx context.Context, resultID int) (*exam.Result, error) {
	var res exam.Result
	if _, err := c.do(WithOperation(ctx, "get_result"), http.MethodGet, fmt.Sprintf("/submissions/results/%d", resultID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchResult returns the detailed report, falling back to the summary
// when the report endpoint is unavailable. Authorization failures are not
// masked by the fallback.
func (c *Client) FetchResult(ctx context.Context, resultID int) (*exam.Result, error) {
	res, err := c.GetReport(ctx, resultID)
	if err == nil {
		return res, nil
	}

	var se *StatusError
	var inv *ErrInvalidPayload
	switch {
	case errors.As(err, &se) && se.Unavailable():
	case errors.As(err, &inv):
	default:
		return nil, err
	}

	c.logger.Warn("report unavailable, using result summary", "result_id", resultID, "error", err)
	summary, ferr := c.GetResult(ctx, resultID)
	if ferr != nil {
		return nil, fmt.Errorf("fetch result %d: %w (report: %v)", resultID, ferr, err)
	}
	return summary, nil
}

// ListMyResults lists the caller's results, newest first.
func (c *Client) ListMyResults(ctx context.Context) ([]exam.Result, error) {
	var out []exam.Result
	if _, err := c.do(WithOperation(ctx, "list_results"), http.MethodGet, "/submissions/results/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the identity behind the credential.
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var u auth.User
	if _, err := c.do(WithOperation(ctx, "me"), http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// do performs one request and decodes a 2xx body into out (when non-nil).
// It returns the raw body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	cred, _ := auth.CredentialFrom(ctx)
	if err := cred.Check(c.now()); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+string(cred))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Detail:     detailFrom(resp.StatusCode, raw),
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, &ErrInvalidPayload{Path: path, Content: raw, Err: err}
		}
	}
	return raw, nil
}
