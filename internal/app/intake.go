package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rest-polls/internal/domain"
)

// textAnswerRef replaces the answer reference of ONLY_TEXT submissions; text answers
// are compared by content, never by stored identity.
const textAnswerRef int64 = 0

// intake resolves a raw submission against storage before the submission rules run.
// It returns the enriched copy of the input; the caller's value is not modified.
func intake(ctx context.Context, store Store, now time.Time, in domain.ProcessInput) (domain.ProcessInput, error) {
	if in.PollID == nil {
		return in, domain.Invalid("poll_id", "Poll_id is not present")
	}
	pollID := *in.PollID

	poll, err := store.GetPoll(ctx, pollID)
	if errors.Is(err, domain.ErrNotFound) {
		return in, domain.Invalid("poll_id", fmt.Sprintf("Poll with id = %d does not exist", pollID)).Wrap(err)
	}
	if err != nil {
		return in, err
	}

	finish := domain.DateOf(poll.FinishDate)
	if domain.DateOf(now).After(finish.Time) {
		return in, domain.Expired(finish)
	}

	if len(in.Questions) == 0 {
		return in, domain.Invalid("questions", "Questions are not presents")
	}

	stored, err := store.ListQuestions(ctx, pollID)
	if err != nil {
		return in, fmt.Errorf("list questions: %w", err)
	}
	byID := make(map[int64]domain.Question, len(stored))
	for _, q := range stored {
		byID[q.ID] = q
	}

	out := domain.ProcessInput{PollID: in.PollID, Questions: make([]domain.ProcessQuestionInput, len(in.Questions))}
	for i, q := range in.Questions {
		if q.QuestionID == nil {
			return in, domain.Invalid(poll.Name, "This poll does not have a question with id = None")
		}
		sq, ok := byID[*q.QuestionID]
		if !ok {
			return in, domain.Invalid(poll.Name, fmt.Sprintf("This poll does not have a question with id = %d", *q.QuestionID))
		}

		enriched := domain.ProcessQuestionInput{
			QuestionID: q.QuestionID,
			Type:       sq.Type,
			Name:       sq.Name,
			Answers:    append([]domain.ProcessAnswerInput(nil), q.Answers...),
		}
		if enriched.Type == domain.QuestionOnlyText && len(enriched.Answers) > 0 {
			ref := textAnswerRef
			enriched.Answers[0].AnswerID = &ref
		}
		out.Questions[i] = enriched
	}
	return out, nil
}
