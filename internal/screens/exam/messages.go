package exam

import (
	ex "github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/session"
)

// startedMsg is sent when Controller.Start returns.
type startedMsg struct {
	Err error
}

// controllerEventMsg wraps one event from the controller's channel.
type controllerEventMsg struct {
	Event session.Event
}

// submitDoneMsg is sent when a RequestSubmit call returns.
type submitDoneMsg struct {
	Result *ex.Result
	Err    error
}

// resetDoneMsg is sent when ResetForRetry returns.
type resetDoneMsg struct {
	Status session.Status
	Err    error
}
