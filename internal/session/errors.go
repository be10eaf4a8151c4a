package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned when a mutation is attempted on a session
	// that is not ACTIVE.
	ErrSessionClosed = errors.New("session is not active")

	// ErrGateClosed is returned by RequestSubmit when the submission gate has
	// already been engaged (or the session never became ACTIVE).
	ErrGateClosed = errors.New("submission gate closed")

	// ErrSubmitDeclined is returned when a manual submit of an incomplete
	// answer set was not confirmed.
	ErrSubmitDeclined = errors.New("submission not confirmed")

	// ErrStaleGeneration is returned when a response arrived for a session
	// generation that has since been replaced. The response is discarded.
	ErrStaleGeneration = errors.New("stale session generation")

	// ErrNotRetryable is returned by ResetForRetry outside a failed submission.
	ErrNotRetryable = errors.New("session is not in a retryable state")

	// ErrNoQuestions is wrapped by LoadError when the exam has no questions.
	ErrNoQuestions = errors.New("exam has no questions")

	// ErrUnknownQuestion is returned when an answer targets a question that
	// is not part of the presented order.
	ErrUnknownQuestion = errors.New("unknown question")

	// ErrIndexOutOfRange is returned by Navigate for a cursor outside the
	// presented order.
	ErrIndexOutOfRange = errors.New("question index out of range")

	// ErrControllerClosed is returned once Close has been called.
	ErrControllerClosed = errors.New("controller closed")
)

// LoadError means the exam or its questions could not be fetched, or the
// question set is empty. It is terminal for the session.
type LoadError struct {
	ExamID int
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load exam %d: %v", e.ExamID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Empty reports whether the load failed only because the exam has no
// questions. Callers display this as a normal state.
func (e *LoadError) Empty() bool {
	return errors.Is(e.Err, ErrNoQuestions)
}

// SubmissionError means the Grading Service rejected or failed the
// submission. The session keeps its answers and may be retried.
type SubmissionError struct {
	ExamID int
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit exam %d: %v", e.ExamID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
