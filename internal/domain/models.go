package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// QuestionType is the stored short code of a question kind.
type QuestionType string

const (
	QuestionOnlyText    QuestionType = "OT"
	QuestionOneAnswer   QuestionType = "OA"
	QuestionManyAnswers QuestionType = "MA"
)

var questionTypeNames = map[QuestionType]string{
	QuestionOnlyText:    "only_text",
	QuestionOneAnswer:   "one_answer",
	QuestionManyAnswers: "many_answers",
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	_, ok := questionTypeNames[t]
	return ok
}

// Label renders the type the way clients display it, e.g. "[OT] - only_text".
func (t QuestionType) Label() string {
	return fmt.Sprintf("[%s] - %s", t, questionTypeNames[t])
}

// Poll is the root of an authored tree.
type Poll struct {
	ID          int64
	Name        string
	StartDate   time.Time
	FinishDate  time.Time
	Description string
}

// Question belongs to a poll; Name is unique within the poll.
type Question struct {
	ID     int64
	PollID int64
	Name   string
	Type   QuestionType
}

// Answer belongs to a question; Name is unique within the question.
type Answer struct {
	ID         int64
	QuestionID int64
	Name       string
	IsTrue     bool
}

// Normalize applies the write-time invariant: text answers are always true.
func (a *Answer) Normalize(owner QuestionType) {
	if owner == QuestionOnlyText {
		a.IsTrue = true
	}
}

// UserAnswers accumulates verdicts per poll for one (possibly anonymous) user.
type UserAnswers struct {
	ID      int64
	Results map[string][]Verdict
}

// Record replaces the poll's entry with verdicts, leaving other polls untouched.
func (u *UserAnswers) Record(pollID int64, verdicts []Verdict) {
	if u.Results == nil {
		u.Results = make(map[string][]Verdict)
	}
	u.Results[PollKey(pollID)] = verdicts
}

// PollKey is the results map key for a poll.
func PollKey(pollID int64) string {
	return strconv.FormatInt(pollID, 10)
}

// Verdict is a single question outcome, encoded as {"<question_id>": bool}.
type Verdict struct {
	QuestionID int64
	Correct    bool
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]bool{strconv.FormatInt(v.QuestionID, 10): v.Correct})
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("verdict: expected one entry, got %d", len(raw))
	}
	for k, correct := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return fmt.Errorf("verdict: question id %q: %w", k, err)
		}
		v.QuestionID = id
		v.Correct = correct
	}
	return nil
}

// AnswerKey is the ground truth for every question of a poll.
type AnswerKey struct {
	PollID    int64
	Questions map[int64]KeyEntry
}

// KeyEntry holds what scoring needs for one question. TrueAnswerIDs is ascending.
type KeyEntry struct {
	Type          QuestionType `json:"type"`
	TrueAnswerIDs []int64      `json:"trueAnswerIds"`
	Text          string       `json:"text,omitempty"`
}

// Actor is the caller as seen by the permission gate.
type Actor struct {
	Subject string
	Staff   bool
}

// PollTree is a poll with its questions and answers, in creation order.
type PollTree struct {
	Poll      Poll
	Questions []QuestionTree
}

// QuestionTree is a question with its answers.
type QuestionTree struct {
	Question Question
	Answers  []Answer
}
