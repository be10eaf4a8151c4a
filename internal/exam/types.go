package exam

import "time"

// Status is the publication state of an exam, owned by the Content Store.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// QuestionType identifies how a question is answered and graded.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeDescriptive    QuestionType = "descriptive"

	// TypeUnknown groups graded submissions that arrive without a type.
	TypeUnknown QuestionType = "unknown"
)

// QuestionTypes lists the known question types in display order.
var QuestionTypes = []QuestionType{
	TypeMultipleChoice,
	TypeTrueFalse,
	TypeShortAnswer,
	TypeDescriptive,
}

// Label returns a human-readable name for the question type.
func (t QuestionType) Label() string {
	switch t {
	case TypeMultipleChoice:
		return "Multiple choice"
	case TypeTrueFalse:
		return "True / False"
	case TypeShortAnswer:
		return "Short answer"
	case TypeDescriptive:
		return "Descriptive"
	case "", TypeUnknown:
		return "Unknown"
	default:
		return string(t)
	}
}

// Exam is an exam definition as served by GET /exams/{id}.
type Exam struct {
	ID              int     `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	PassingScore    float64 `json:"passing_score"`
	IsRandomized    bool    `json:"is_randomized"`
	Status          Status  `json:"status"`
	CreatorID       int     `json:"creator_id,omitempty"`

	// Timestamps are kept as the server sends them; the backend emits
	// naive ISO-8601 values that time.Time cannot decode.
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// DurationSeconds is the time allowed for one attempt.
func (e Exam) DurationSeconds() int {
	return e.DurationMinutes * 60
}

// Duration is DurationSeconds as a time.Duration.
func (e Exam) Duration() time.Duration {
	return time.Duration(e.DurationSeconds()) * time.Second
}

// Open reports whether the exam accepts attempts.
func (e Exam) Open() bool {
	return e.Status == StatusActive
}

// Option is one choice of a multiple-choice question. The is_correct flag
// sent to authors is not decoded.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a question definition as served by GET /exams/{id}/questions.
type Question struct {
	ID            int          `json:"id"`
	ExamID        int          `json:"exam_id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"question_type"`
	Points        float64      `json:"points"`
	Order         *int         `json:"order"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
}

// SortKey is the order value used for non-randomized presentation. A
// missing order sorts as zero.
func (q Question) SortKey() int {
	if q.Order == nil {
		return 0
	}
	return *q.Order
}
