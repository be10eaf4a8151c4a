package session

import "github.com/abhisek/examtaker/internal/exam"

// Answers holds the current answer for every question of one session.
// Every question starts with the empty string. Answers has no notion of
// session state; the Controller gates writes and serializes access.
type Answers struct {
	order  []int
	values map[int]string
}

// NewAnswers returns an answer set with an empty answer for each id.
func NewAnswers(order []int) *Answers {
	a := &Answers{
		order:  append([]int(nil), order...),
		values: make(map[int]string, len(order)),
	}
	for _, id := range order {
		a.values[id] = ""
	}
	return a
}

// Get returns the current value for a question.
func (a *Answers) Get(questionID int) (string, bool) {
	v, ok := a.values[questionID]
	return v, ok
}

// Set replaces the value for a question of the presented order.
func (a *Answers) Set(questionID int, value string) error {
	if _, ok := a.values[questionID]; !ok {
		return ErrUnknownQuestion
	}
	a.values[questionID] = value
	return nil
}

// IsComplete reports whether every question has a non-empty answer.
func (a *Answers) IsComplete() bool {
	for _, id := range a.order {
		if a.values[id] == "" {
			return false
		}
	}
	return true
}

// Unanswered returns the ids still holding the empty sentinel, in
// presented order.
func (a *Answers) Unanswered() []int {
	var ids []int
	for _, id := range a.order {
		if a.values[id] == "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Snapshot copies the answers in presented order.
func (a *Answers) Snapshot() []exam.AnswerEntry {
	entries := make([]exam.AnswerEntry, len(a.order))
	for i, id := range a.order {
		entries[i] = exam.AnswerEntry{QuestionID: id, Answer: a.values[id]}
	}
	return entries
}

// Values copies the answer map.
func (a *Answers) Values() map[int]string {
	m := make(map[int]string, len(a.values))
	for k, v := range a.values {
		m[k] = v
	}
	return m
}

// Len is the number of questions.
func (a *Answers) Len() int {
	return len(a.order)
}
