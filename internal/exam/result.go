package exam

// AnswerEntry is one answered (or blank) question in a submission.
type AnswerEntry struct {
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer"`
}

// Submission is the body of POST /submissions/exam. It is built once from
// the answer store at submit time and never modified afterwards.
type Submission struct {
	ExamID  int           `json:"exam_id"`
	Answers []AnswerEntry `json:"submissions"`
}

// Result is the server-computed outcome of one attempt.
//
// POST /submissions/exam and GET /submissions/results/{id} return only the
// summary fields; GET /submissions/report/exam/{id} adds the per-question
// graded submissions (see Report).
type Result struct {
	ID              int     `json:"id"`
	ExamID          int     `json:"exam_id"`
	StudentID       int     `json:"student_id"`
	TotalPoints     float64 `json:"total_points"`
	PercentageScore float64 `json:"percentage_score"`
	Passed          bool    `json:"passed"`
	StartedAt       string  `json:"started_at,omitempty"`
	CompletedAt     string  `json:"completed_at,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`

	Submissions []GradedSubmission             `json:"submissions,omitempty"`
	TypeSummary map[QuestionType]ReportedTotal `json:"question_type_summary,omitempty"`

	// Detailed is false when the result came from the summary endpoint and
	// carries no per-question records.
	Detailed bool `json:"-"`
}

// ReportedTotal is the server's own per-type summary inside a report.
type ReportedTotal struct {
	Count        int     `json:"count"`
	PointsEarned float64 `json:"points_earned"`
	MaxPoints    float64 `json:"max_points"`
}

// Report is the wire shape of GET /submissions/report/exam/{id}.
type Report struct {
	ResultID        int                            `json:"result_id"`
	ExamID          int                            `json:"exam_id"`
	StudentID       int                            `json:"student_id"`
	TotalPoints     float64                        `json:"total_points"`
	PercentageScore float64                        `json:"percentage_score"`
	Passed          bool                           `json:"passed"`
	StartedAt       string                         `json:"started_at"`
	CompletedAt     string                         `json:"completed_at"`
	Submissions     []GradedSubmission             `json:"submissions"`
	TypeSummary     map[QuestionType]ReportedTotal `json:"question_type_summary"`
}

// Result converts the report into the common Result shape.
func (r Report) Result() *Result {
	return &Result{
		ID:              r.ResultID,
		ExamID:          r.ExamID,
		StudentID:       r.StudentID,
		TotalPoints:     r.TotalPoints,
		PercentageScore: r.PercentageScore,
		Passed:          r.Passed,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		Submissions:     r.Submissions,
		TypeSummary:     r.TypeSummary,
		Detailed:        true,
	}
}

// GradedSubmission is the per-question grading record of a report.
type GradedSubmission struct {
	SubmissionID    int           `json:"submission_id,omitempty"`
	QuestionID      int           `json:"question_id"`
	QuestionText    string        `json:"question_text,omitempty"`
	QuestionType    QuestionType  `json:"question_type"`
	StudentAnswer   string        `json:"student_answer"`
	CorrectAnswer   *string       `json:"correct_answer,omitempty"`
	PointsEarned    float64       `json:"points_earned"`
	MaxPoints       float64       `json:"max_points"`
	Percentage      float64       `json:"percentage"`
	IsCorrect       *bool         `json:"is_correct"`
	GradedAt        string        `json:"graded_at,omitempty"`
	GradingFeedback *string       `json:"grading_feedback,omitempty"`
	Detail          GradingDetail `json:"grading_details"`
}

// VisibleCorrectAnswer returns the correct answer for display. Descriptive
// questions never reveal one.
func (g GradedSubmission) VisibleCorrectAnswer() (string, bool) {
	if g.QuestionType == TypeDescriptive || g.CorrectAnswer == nil {
		return "", false
	}
	return *g.CorrectAnswer, true
}

// Feedback returns the grading feedback text, or "" when absent.
func (g GradedSubmission) Feedback() string {
	if g.GradingFeedback == nil {
		return ""
	}
	return *g.GradingFeedback
}

// Correct reports whether the question was graded correct.
func (g GradedSubmission) Correct() bool {
	return g.IsCorrect != nil && *g.IsCorrect
}

// SelectedChoice returns the option a choice question was answered with.
// Multiple-choice details name it selected_option, true/false details
// student_answer; the submission's own answer is the last resort.
func (g GradedSubmission) SelectedChoice() string {
	switch d := g.Detail; {
	case d.SelectedOption != nil:
		return *d.SelectedOption
	case d.StudentAnswer != nil:
		return *d.StudentAnswer
	}
	return g.StudentAnswer
}

// CorrectChoices returns the accepted options of a choice question, or nil
// when the report does not reveal them.
func (g GradedSubmission) CorrectChoices() []string {
	switch d := g.Detail; {
	case len(d.CorrectOptions) > 0:
		return d.CorrectOptions
	case d.CorrectAnswer != nil && *d.CorrectAnswer != "":
		return []string{*d.CorrectAnswer}
	case g.CorrectAnswer != nil && *g.CorrectAnswer != "":
		return []string{*g.CorrectAnswer}
	}
	return nil
}

// GradingDetail is the method-specific breakdown. Every field is optional:
// text questions carry the score components, multiple-choice questions the
// selected and correct options, true/false questions both answers.
type GradingDetail struct {
	Method            string     `json:"method,omitempty"`
	CombinedScore     *float64   `json:"combined_score,omitempty"`
	BasicKeywordScore *float64   `json:"basic_keyword_score,omitempty"`
	StringSimilarity  *float64   `json:"string_similarity,omitempty"`
	NLPKeywordScore   *float64   `json:"nlp_keyword_score,omitempty"`
	SemanticScore     *float64   `json:"semantic_score,omitempty"`
	ThresholdApplied  *Threshold `json:"threshold_applied,omitempty"`
	FeaturesAvailable *Features  `json:"features_available,omitempty"`

	CorrectOptions []string `json:"correct_options,omitempty"`
	SelectedOption *string  `json:"selected_option,omitempty"`
	CorrectAnswer  *string  `json:"correct_answer,omitempty"`
	StudentAnswer  *string  `json:"student_answer,omitempty"`
	IsCorrect      *bool    `json:"is_correct,omitempty"`

	Error string `json:"error,omitempty"`
}

// Empty reports whether the grading service sent no breakdown at all.
func (d GradingDetail) Empty() bool {
	return d.Method == "" && d.CombinedScore == nil && d.BasicKeywordScore == nil &&
		d.StringSimilarity == nil && d.NLPKeywordScore == nil && d.SemanticScore == nil &&
		d.ThresholdApplied == nil && d.FeaturesAvailable == nil &&
		len(d.CorrectOptions) == 0 && d.SelectedOption == nil &&
		d.CorrectAnswer == nil && d.StudentAnswer == nil && d.IsCorrect == nil &&
		d.Error == ""
}

// Threshold is the credit band the grading service applied.
type Threshold struct {
	Threshold   float64 `json:"threshold"`
	Percentage  float64 `json:"percentage,omitempty"`
	Description string  `json:"description"`
}

// Features records which optional grading components were available.
type Features struct {
	NLPProcessing      bool `json:"nlp_processing"`
	SemanticSimilarity bool `json:"semantic_similarity"`
}
