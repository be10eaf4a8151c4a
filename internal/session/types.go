package session

import (
	"context"
	"time"

	"github.com/abhisek/examtaker/internal/exam"
)

// Status is the lifecycle state of a session.
type Status int

const (
	StatusInitializing Status = iota
	StatusActive
	StatusSubmitting
	StatusSubmitted
	StatusExpired
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "INITIALIZING"
	case StatusActive:
		return "ACTIVE"
	case StatusSubmitting:
		return "SUBMITTING"
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusExpired:
		return "EXPIRED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Trigger says what initiated a submission.
type Trigger int

const (
	TriggerManual Trigger = iota
	TriggerTimeout
)

func (t Trigger) String() string {
	if t == TriggerTimeout {
		return "timeout"
	}
	return "manual"
}

// ContentStore is the read-only source of exam definitions.
type ContentStore interface {
	GetExam(ctx context.Context, examID int) (*exam.Exam, error)
	ListQuestions(ctx context.Context, examID int) ([]exam.Question, error)
}

// GradingService accepts the single submission of a session.
type GradingService interface {
	SubmitExam(ctx context.Context, sub exam.Submission) (*exam.Result, error)
}

// OrderStore pins a presented order so a restarted session of the same
// exam by the same user sees the same sequence. Answers are never pinned.
type OrderStore interface {
	Load(ctx context.Context, key string) ([]int, bool, error)
	Save(ctx context.Context, key string, order []int, ttl time.Duration) error
}

// Lifecycle event kinds.
const (
	EventKindStart     = "start"
	EventKindExpire    = "expire"
	EventKindSubmit    = "submit"
	EventKindSubmitted = "submitted"
	EventKindError     = "error"
	EventKindReset     = "reset"
)

// LifecycleEvent is one audit entry of a session.
type LifecycleEvent struct {
	SessionID  string
	ExamID     int
	Generation uint64
	Kind       string
	Trigger    string
	Detail     string
	At         time.Time
}

// Recorder persists lifecycle events. Failures are logged, never fatal.
type Recorder interface {
	RecordSessionEvent(ctx context.Context, ev LifecycleEvent) error
}

// Event is published on Controller.Events.
type Event interface {
	isEvent()
}

// EventTick carries the countdown of the live session.
type EventTick struct {
	Generation       uint64
	SecondsRemaining int
}

// EventStatus reports a status transition.
type EventStatus struct {
	Generation uint64
	From       Status
	To         Status
	Trigger    Trigger
	Result     *exam.Result
	Err        error
}

func (EventTick) isEvent()   {}
func (EventStatus) isEvent() {}

// State is a copy of the session for rendering.
type State struct {
	Generation       uint64
	SessionID        string
	Status           Status
	Exam             exam.Exam
	Questions        []exam.Question // presented order
	Answers          map[int]string
	Cursor           int
	Timed            bool
	Deadline         time.Time
	SecondsRemaining int
	Result           *exam.Result
	Err              error
}

// Current returns the question under the cursor.
func (s State) Current() (exam.Question, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Questions) {
		return exam.Question{}, false
	}
	return s.Questions[s.Cursor], true
}

// Answer returns the recorded answer for a question.
func (s State) Answer(questionID int) string {
	return s.Answers[questionID]
}

// Answered reports whether a question has a non-empty answer.
func (s State) Answered(questionID int) bool {
	return s.Answers[questionID] != ""
}

// Unanswered counts the questions still blank.
func (s State) Unanswered() int {
	n := 0
	for _, q := range s.Questions {
		if s.Answers[q.ID] == "" {
			n++
		}
	}
	return n
}
