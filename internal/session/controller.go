package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/examtaker/internal/auth"
	"github.com/abhisek/examtaker/internal/exam"
)

const eventBuffer = 32

// Option configures a Controller.
type Option func(*Controller)

// WithTimerFactory replaces the ticker-backed timer.
func WithTimerFactory(f TimerFactory) Option {
	return func(c *Controller) { c.newTimer = f }
}

// WithTickInterval sets the countdown cadence of the default timer.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) { c.tick = d }
}

// WithOrderStore enables presented-order pinning.
func WithOrderStore(s OrderStore) Option {
	return func(c *Controller) { c.orders = s }
}

// WithRecorder records lifecycle events.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRand sets the randomness source used for randomized exams.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller runs one exam session at a time and owns its submission gate.
//
// Every state transition happens under mu in a single read-then-write step,
// so the timer goroutine and the UI can race on RequestSubmit and exactly
// one of them dispatches. Network calls happen with mu released; their
// responses are applied only if the generation they started under is still
// live.
type Controller struct {
	content  ContentStore
	grader   GradingService
	orders   OrderStore
	recorder Recorder
	logger   *slog.Logger
	newTimer TimerFactory
	tick     time.Duration
	now      func() time.Time
	rng      *rand.Rand

	mu        sync.Mutex
	gen       uint64
	status    Status
	sessionID string
	exam      exam.Exam
	questions map[int]exam.Question
	order     []int
	answers   *Answers
	cursor    int
	timed     bool
	deadline  time.Time
	remaining int
	timer     DeadlineTimer
	result    *exam.Result
	err       error
	bgCtx     context.Context
	closed    bool

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	// pending holds events not yet handed to the events channel. Emitting
	// never blocks; a reader that falls behind sees every status event in
	// order and only the latest of consecutive ticks.
	qmu     sync.Mutex
	pending []Event
	wake    chan struct{}
}

// sessionRef identifies the session an audit entry belongs to.
type sessionRef struct {
	gen       uint64
	sessionID string
	examID    int
}

// NewController returns an idle controller in INITIALIZING.
func NewController(content ContentStore, grader GradingService, opts ...Option) *Controller {
	c := &Controller{
		content: content,
		grader:  grader,
		tick:    DefaultTickInterval,
		now:     time.Now,
		status:  StatusInitializing,
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		bgCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.newTimer == nil {
		tick, now := c.tick, c.now
		c.newTimer = func() DeadlineTimer { return NewTimer(tick, now) }
	}
	go c.pump()
	return c
}

// Events delivers ticks and status transitions in order. Nothing waits on
// the reader: while it falls behind, consecutive ticks collapse into the
// latest one and status events queue up.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Done is closed by Close.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Close ends the live session without submitting and stops event delivery.
// Responses still in flight are discarded.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.gen++
		c.closed = true
		c.stopTimerLocked()
		c.mu.Unlock()
		close(c.done)
	})
}

// Start opens a new session of the exam, replacing any previous one. The
// previous generation's timer is cancelled and its in-flight responses
// will be discarded.
func (c *Controller) Start(ctx context.Context, examID int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	c.gen++
	gen := c.gen
	prev := c.status
	c.stopTimerLocked()
	c.status = StatusInitializing
	c.sessionID = uuid.NewString()
	c.exam = exam.Exam{ID: examID}
	c.questions = nil
	c.order = nil
	c.answers = nil
	c.cursor = 0
	c.timed = false
	c.deadline = time.Time{}
	c.remaining = 0
	c.result = nil
	c.err = nil
	c.bgCtx = context.WithoutCancel(ctx)
	ref := sessionRef{gen: gen, sessionID: c.sessionID, examID: examID}
	c.mu.Unlock()

	if prev != StatusInitializing {
		c.emit(EventStatus{Generation: gen, From: prev, To: StatusInitializing})
	}

	ex, err := c.content.GetExam(ctx, examID)
	if err != nil {
		return c.failLoad(gen, examID, fmt.Errorf("fetch exam: %w", err))
	}
	qs, err := c.content.ListQuestions(ctx, examID)
	if err != nil {
		return c.failLoad(gen, examID, fmt.Errorf("fetch questions: %w", err))
	}
	if len(qs) == 0 {
		return c.failLoad(gen, examID, ErrNoQuestions)
	}

	order := c.presentedOrder(ctx, *ex, qs)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale exam load", "exam_id", examID, "generation", gen)
		return ErrStaleGeneration
	}
	c.exam = *ex
	c.questions = make(map[int]exam.Question, len(qs))
	for _, q := range qs {
		c.questions[q.ID] = q
	}
	c.order = order
	c.answers = NewAnswers(order)
	c.status = StatusActive
	if secs := ex.DurationSeconds(); secs > 0 {
		c.timed = true
		c.deadline = c.now().Add(time.Duration(secs) * time.Second)
		c.remaining = secs
		c.startTimerLocked(gen)
	}
	c.mu.Unlock()

	c.logger.Info("session started",
		"exam_id", examID,
		"session_id", ref.sessionID,
		"generation", gen,
		"questions", len(order),
		"randomized", ex.IsRandomized,
	)
	c.emit(EventStatus{Generation: gen, From: StatusInitializing, To: StatusActive})
	c.record(ctx, ref, EventKindStart, "", fmt.Sprintf("%d questions", len(order)))
	return nil
}

// presentedOrder sequences the questions, reusing a pinned order when one
// exists for this exam and user and still covers the same question set.
func (c *Controller) presentedOrder(ctx context.Context, ex exam.Exam, qs []exam.Question) []int {
	key, pin := c.orderKey(ctx, ex.ID)
	if pin {
		pinned, found, err := c.orders.Load(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("load pinned order", "exam_id", ex.ID, "error", err)
		case found && sameIDSet(pinned, qs):
			return pinned
		case found:
			c.logger.Info("pinned order no longer matches question set", "exam_id", ex.ID)
		}
	}

	c.mu.Lock()
	order := Sequence(qs, ex.IsRandomized, c.rng)
	c.mu.Unlock()

	if pin {
		if err := c.orders.Save(ctx, key, order, ex.Duration()); err != nil {
			c.logger.Warn("pin presented order", "exam_id", ex.ID, "error", err)
		}
	}
	return order
}

func (c *Controller) orderKey(ctx context.Context, examID int) (string, bool) {
	if c.orders == nil {
		return "", false
	}
	cred, ok := auth.CredentialFrom(ctx)
	if !ok {
		return "", false
	}
	sub := cred.Subject()
	if sub == "" {
		return "", false
	}
	return fmt.Sprintf("%d:%s", examID, sub), true
}

func (c *Controller) failLoad(gen uint64, examID int, err error) error {
	lerr := &LoadError{ExamID: examID, Err: err}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrStaleGeneration
	}
	c.status = StatusError
	c.err = lerr
	c.mu.Unlock()

	if lerr.Empty() {
		c.logger.Info("exam has no questions", "exam_id", examID)
	} else {
		c.logger.Error("exam load failed", "exam_id", examID, "error", err)
	}
	c.emit(EventStatus{Generation: gen, From: StatusInitializing, To: StatusError, Err: lerr})
	return lerr
}

// RecordAnswer stores an answer. It fails with ErrSessionClosed unless the
// session is ACTIVE.
func (c *Controller) RecordAnswer(questionID int, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.status != StatusActive {
		return ErrSessionClosed
	}
	return c.answers.Set(questionID, value)
}

// Navigate moves the cursor. It never changes the status.
func (c *Controller) Navigate(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.order) {
		return ErrIndexOutOfRange
	}
	c.cursor = index
	return nil
}

// Next advances the cursor, stopping at the last question.
func (c *Controller) Next() {
	c.mu.Lock()
	if c.cursor < len(c.order)-1 {
		c.cursor++
	}
	c.mu.Unlock()
}

// Prev moves the cursor back, stopping at the first question.
func (c *Controller) Prev() {
	c.mu.Lock()
	if c.cursor > 0 {
		c.cursor--
	}
	c.mu.Unlock()
}

// RequestSubmit asks to submit the live session.
//
// The first call to find the gate open wins; every other call returns
// ErrGateClosed. A MANUAL submit of an incomplete answer set calls confirm
// with the number of blank answers and proceeds only if it returns true;
// a nil confirm declines. TIMEOUT never asks.
func (c *Controller) RequestSubmit(ctx context.Context, trigger Trigger, confirm func(unanswered int) bool) (*exam.Result, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return c.submit(ctx, gen, trigger, confirm)
}

func (c *Controller) gateOpenLocked(trigger Trigger) bool {
	if c.closed {
		return false
	}
	switch c.status {
	case StatusActive:
		return true
	case StatusExpired:
		return trigger == TriggerTimeout
	default:
		return false
	}
}

func (c *Controller) submit(ctx context.Context, gen uint64, trigger Trigger, confirm func(int) bool) (*exam.Result, error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil, ErrStaleGeneration
	}
	if !c.gateOpenLocked(trigger) {
		c.mu.Unlock()
		return nil, ErrGateClosed
	}

	if trigger == TriggerManual && !c.answers.IsComplete() {
		unanswered := len(c.answers.Unanswered())
		c.mu.Unlock()

		if confirm == nil || !confirm(unanswered) {
			c.logger.Debug("manual submit declined", "generation", gen, "unanswered", unanswered)
			return nil, ErrSubmitDeclined
		}

		// The timer may have won while the user was deciding.
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return nil, ErrStaleGeneration
		}
		if !c.gateOpenLocked(trigger) {
			c.mu.Unlock()
			return nil, ErrGateClosed
		}
	}

	from := c.status
	c.status = StatusSubmitting
	c.stopTimerLocked()
	sub := exam.Submission{ExamID: c.exam.ID, Answers: c.answers.Snapshot()}
	ref := sessionRef{gen: gen, sessionID: c.sessionID, examID: c.exam.ID}
	c.mu.Unlock()

	c.logger.Info("submitting exam",
		"exam_id", sub.ExamID,
		"session_id", ref.sessionID,
		"generation", gen,
		"trigger", trigger.String(),
	)
	c.emit(EventStatus{Generation: gen, From: from, To: StatusSubmitting, Trigger: trigger})
	c.record(ctx, ref, EventKindSubmit, trigger.String(), fmt.Sprintf("%d answers", len(sub.Answers)))

	res, err := c.grader.SubmitExam(ctx, sub)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale submission response", "exam_id", sub.ExamID, "generation", gen)
		return nil, ErrStaleGeneration
	}
	if err != nil {
		serr := &SubmissionError{ExamID: sub.ExamID, Err: err}
		c.status = StatusError
		c.err = serr
		c.mu.Unlock()

		c.logger.Error("submission failed", "exam_id", sub.ExamID, "session_id", ref.sessionID, "error", err)
		c.emit(EventStatus{Generation: gen, From: StatusSubmitting, To: StatusError, Trigger: trigger, Err: serr})
		c.record(ctx, ref, EventKindError, trigger.String(), err.Error())
		return nil, serr
	}
	c.status = StatusSubmitted
	c.result = res
	c.mu.Unlock()

	c.logger.Info("exam submitted", "exam_id", sub.ExamID, "session_id", ref.sessionID, "result_id", res.ID)
	c.emit(EventStatus{Generation: gen, From: StatusSubmitting, To: StatusSubmitted, Trigger: trigger, Result: res})
	c.record(ctx, ref, EventKindSubmitted, trigger.String(), fmt.Sprintf("result %d", res.ID))
	return res, nil
}

// ResetForRetry reopens a session whose submission failed. It returns
// ACTIVE when time remains (the timer is restarted) or EXPIRED when the
// deadline passed meanwhile, in which case the caller submits with
// TriggerTimeout. Answers are untouched.
func (c *Controller) ResetForRetry() (Status, error) {
	c.mu.Lock()
	var serr *SubmissionError
	if c.status != StatusError || !errors.As(c.err, &serr) {
		st := c.status
		c.mu.Unlock()
		return st, ErrNotRetryable
	}
	gen := c.gen
	c.err = nil
	c.status = StatusActive
	if c.timed {
		c.remaining = secondsUntil(c.deadline, c.now())
		if c.remaining == 0 {
			c.status = StatusExpired
		} else {
			c.startTimerLocked(gen)
		}
	}
	st := c.status
	ctx := c.bgCtx
	ref := sessionRef{gen: gen, sessionID: c.sessionID, examID: c.exam.ID}
	c.mu.Unlock()

	c.logger.Info("session reset for retry", "exam_id", serr.ExamID, "generation", gen, "status", st.String())
	c.emit(EventStatus{Generation: gen, From: StatusError, To: st})
	c.record(ctx, ref, EventKindReset, "", st.String())
	return st, nil
}

// State returns a copy of the live session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Generation:       c.gen,
		SessionID:        c.sessionID,
		Status:           c.status,
		Exam:             c.exam,
		Cursor:           c.cursor,
		Timed:            c.timed,
		Deadline:         c.deadline,
		SecondsRemaining: c.remaining,
		Result:           c.result,
		Err:              c.err,
	}
	st.Questions = make([]exam.Question, 0, len(c.order))
	for _, id := range c.order {
		st.Questions = append(st.Questions, c.questions[id])
	}
	if c.answers != nil {
		st.Answers = c.answers.Values()
	}
	return st
}

// Status returns the live status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// startTimerLocked creates and starts a timer bound to gen.
func (c *Controller) startTimerLocked(gen uint64) {
	t := c.newTimer()
	t.OnTick(func(secs int) { c.handleTick(gen, secs) })
	t.OnExpire(func() { c.handleExpire(gen) })
	c.timer = t
	t.Start(c.deadline)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Cancel()
		c.timer = nil
	}
}

func (c *Controller) handleTick(gen uint64, secs int) {
	c.mu.Lock()
	if gen != c.gen || c.status != StatusActive {
		c.mu.Unlock()
		return
	}
	c.remaining = secs
	c.mu.Unlock()

	c.enqueue(EventTick{Generation: gen, SecondsRemaining: secs})
}

// handleExpire moves ACTIVE to EXPIRED and submits. It is a no-op when a
// manual submit already engaged the gate.
func (c *Controller) handleExpire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.status != StatusActive {
		c.mu.Unlock()
		return
	}
	c.status = StatusExpired
	c.remaining = 0
	ctx := c.bgCtx
	ref := sessionRef{gen: gen, sessionID: c.sessionID, examID: c.exam.ID}
	c.mu.Unlock()

	c.logger.Info("session expired", "exam_id", ref.examID, "generation", gen)
	c.emit(EventStatus{Generation: gen, From: StatusActive, To: StatusExpired, Trigger: TriggerTimeout})
	c.record(ctx, ref, EventKindExpire, TriggerTimeout.String(), "")

	if _, err := c.submit(ctx, gen, TriggerTimeout, nil); err != nil && !errors.Is(err, ErrGateClosed) && !errors.Is(err, ErrStaleGeneration) {
		c.logger.Debug("timeout submit ended in error", "generation", gen, "error", err)
	}
}

// emit queues a status event. It never blocks.
func (c *Controller) emit(ev EventStatus) {
	c.enqueue(ev)
}

func (c *Controller) enqueue(ev Event) {
	c.qmu.Lock()
	if _, tick := ev.(EventTick); tick && len(c.pending) > 0 {
		if _, last := c.pending[len(c.pending)-1].(EventTick); last {
			c.pending[len(c.pending)-1] = ev
			c.qmu.Unlock()
			return
		}
	}
	c.pending = append(c.pending, ev)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) dequeue() (Event, bool) {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	if len(c.pending) == 0 {
		return nil, false
	}
	ev := c.pending[0]
	c.pending[0] = nil
	c.pending = c.pending[1:]
	return ev, true
}

// pump moves queued events onto the events channel until Close.
func (c *Controller) pump() {
	for {
		select {
		case <-c.wake:
		case <-c.done:
			return
		}
		for {
			ev, ok := c.dequeue()
			if !ok {
				break
			}
			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Controller) record(ctx context.Context, ref sessionRef, kind, trigger, detail string) {
	if c.recorder == nil {
		return
	}
	ev := LifecycleEvent{
		SessionID:  ref.sessionID,
		ExamID:     ref.examID,
		Generation: ref.gen,
		Kind:       kind,
		Trigger:    trigger,
		Detail:     detail,
		At:         c.now(),
	}

	if err := c.recorder.RecordSessionEvent(context.WithoutCancel(ctx), ev); err != nil {
		c.logger.Warn("record session event", "kind", kind, "error", err)
	}
}
