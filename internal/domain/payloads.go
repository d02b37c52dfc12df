package domain

import (
	"encoding/json"
	"time"
)

// Date is a calendar day encoded as "2006-01-02".
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// PollInput is the authoring payload for create and update. On update the scalar
// fields are optional; questions are always reconciled.
type PollInput struct {
	Name        *string         `json:"poll_name"`
	FinishDate  *Date           `json:"date_finish"`
	Description *string         `json:"description"`
	Questions   []QuestionInput `json:"questions"`
}

// QuestionInput is an authored question. ID is accepted but never used for matching.
type QuestionInput struct {
	ID      *int64        `json:"question_id,omitempty"`
	Name    string        `json:"question_name"`
	Type    QuestionType  `json:"question_type"`
	Answers []AnswerInput `json:"answers"`
}

// AnswerInput is an authored answer. IsTrue is nil when the client omitted it.
type AnswerInput struct {
	ID     *int64 `json:"answer_id,omitempty"`
	Name   string `json:"answer_name"`
	IsTrue *bool  `json:"is_true,omitempty"`
}

// ProcessInput is a user submission for one poll.
type ProcessInput struct {
	PollID    *int64                 `json:"poll_id"`
	Questions []ProcessQuestionInput `json:"questions"`
}

// ProcessQuestionInput is one answered question. Type and Name are filled from storage
// during intake; whatever the client sent is discarded.
type ProcessQuestionInput struct {
	QuestionID *int64               `json:"question_id"`
	Type       QuestionType         `json:"question_type,omitempty"`
	Name       string               `json:"question_name,omitempty"`
	Answers    []ProcessAnswerInput `json:"answers"`
}

// ProcessAnswerInput references a stored answer by id, or carries free text for
// ONLY_TEXT questions.
type ProcessAnswerInput struct {
	AnswerID *int64 `json:"answer_id"`
	Name     string `json:"answer_name,omitempty"`
}

// ProcessResult is returned after a scored submission.
type ProcessResult struct {
	UserID   int64     `json:"user_id"`
	PollID   int64     `json:"poll_id"`
	Verdicts []Verdict `json:"results"`
}
