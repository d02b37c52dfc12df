// Package view shapes domain trees for clients. Staff viewers see the ground truth;
// public viewers see neither is_true flags nor the text of ONLY_TEXT answers.
package view

import (
	"rest-polls/internal/domain"
)

// Viewer selects the projection applied to answers.
type Viewer int

const (
	Public Viewer = iota
	Staff
)

// ViewerFor maps an actor onto a viewer.
func ViewerFor(actor domain.Actor) Viewer {
	if actor.Staff {
		return Staff
	}
	return Public
}

// PollSummary is the list representation of a poll.
type PollSummary struct {
	ID          int64       `json:"poll_id"`
	Name        string      `json:"poll_name"`
	StartDate   domain.Date `json:"date_start"`
	FinishDate  domain.Date `json:"date_finish"`
	Description string      `json:"description"`
}

// PollDetail is a poll with its questions.
type PollDetail struct {
	PollSummary
	Questions []QuestionView `json:"questions"`
}

// QuestionView carries a human-readable type label and one answer projection.
type QuestionView struct {
	ID      int64        `json:"question_id"`
	Name    string       `json:"question_name"`
	Type    string       `json:"question_type"`
	Answers []AnswerView `json:"answers"`
}

// AnswerView is implemented by AdminAnswerView and PublicAnswerView.
type AnswerView interface {
	answerView()
}

// AdminAnswerView exposes the stored truth flag.
type AdminAnswerView struct {
	ID     int64  `json:"answer_id"`
	Name   string `json:"answer_name"`
	IsTrue bool   `json:"is_true"`
}

// PublicAnswerView omits the truth flag.
type PublicAnswerView struct {
	ID   int64  `json:"answer_id"`
	Name string `json:"answer_name"`
}

func (AdminAnswerView) answerView()  {}
func (PublicAnswerView) answerView() {}

func Summary(p domain.Poll) PollSummary {
	return PollSummary{
		ID:          p.ID,
		Name:        p.Name,
		StartDate:   domain.DateOf(p.StartDate),
		FinishDate:  domain.DateOf(p.FinishDate),
		Description: p.Description,
	}
}

func Summaries(polls []domain.Poll) []PollSummary {
	out := make([]PollSummary, 0, len(polls))
	for _, p := range polls {
		out = append(out, Summary(p))
	}
	return out
}

// Detail projects a full tree for the given viewer.
func Detail(tree domain.PollTree, viewer Viewer) PollDetail {
	detail := PollDetail{
		PollSummary: Summary(tree.Poll),
		Questions:   make([]QuestionView, 0, len(tree.Questions)),
	}
	for _, qt := range tree.Questions {
		detail.Questions = append(detail.Questions, Question(qt, viewer))
	}
	return detail
}

func Question(qt domain.QuestionTree, viewer Viewer) QuestionView {
	qv := QuestionView{
		ID:      qt.Question.ID,
		Name:    qt.Question.Name,
		Type:    qt.Question.Type.Label(),
		Answers: make([]AnswerView, 0, len(qt.Answers)),
	}
	for _, a := range qt.Answers {
		qv.Answers = append(qv.Answers, answer(a, qt.Question.Type, viewer))
	}
	return qv
}

func answer(a domain.Answer, owner domain.QuestionType, viewer Viewer) AnswerView {
	if viewer == Staff {
		return AdminAnswerView{ID: a.ID, Name: a.Name, IsTrue: a.IsTrue}
	}
	name := a.Name
	if owner == domain.QuestionOnlyText {
		name = ""
	}
	return PublicAnswerView{ID: a.ID, Name: name}
}

// ProcessResponse is the body returned after a scored submission.
type ProcessResponse struct {
	UserID int64       `json:"user_id"`
	Data   ProcessData `json:"data"`
}

// ProcessData echoes the scored poll and its verdicts.
type ProcessData struct {
	PollID  int64            `json:"poll_id"`
	Results []domain.Verdict `json:"results"`
}

func Process(r domain.ProcessResult) ProcessResponse {
	return ProcessResponse{UserID: r.UserID, Data: ProcessData{PollID: r.PollID, Results: r.Verdicts}}
}

// UserResults renders a user's accumulated results keyed by poll id.
func UserResults(u domain.UserAnswers) map[string][]domain.Verdict {
	if u.Results == nil {
		return map[string][]domain.Verdict{}
	}
	return u.Results
}
