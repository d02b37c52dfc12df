package app

import (
	"context"
	"fmt"
	"slices"

	"rest-polls/internal/domain"
)

// scoreSubmission produces one verdict per submitted question, in submission order.
// The submission must already have passed intake and ValidateSubmission.
func scoreSubmission(key domain.AnswerKey, in domain.ProcessInput) []domain.Verdict {
	verdicts := make([]domain.Verdict, 0, len(in.Questions))
	for _, q := range in.Questions {
		entry, ok := key.Questions[*q.QuestionID]
		verdicts = append(verdicts, domain.Verdict{
			QuestionID: *q.QuestionID,
			Correct:    ok && isCorrect(entry, q),
		})
	}
	return verdicts
}

func isCorrect(entry domain.KeyEntry, q domain.ProcessQuestionInput) bool {
	if q.Type == domain.QuestionOnlyText {
		if len(q.Answers) == 0 || len(entry.TrueAnswerIDs) == 0 {
			return false
		}
		return q.Answers[0].Name == entry.Text
	}

	given := make([]int64, 0, len(q.Answers))
	for _, a := range q.Answers {
		given = append(given, *a.AnswerID)
	}
	// Order matters: the client must list the correct answers ascending by id.
	return slices.Equal(given, entry.TrueAnswerIDs)
}

// buildAnswerKey assembles a key from questions and their true answers.
func buildAnswerKey(pollID int64, questions []domain.Question, trueAnswers map[int64][]domain.Answer) domain.AnswerKey {
	key := domain.AnswerKey{PollID: pollID, Questions: make(map[int64]domain.KeyEntry, len(questions))}
	for _, q := range questions {
		answers := trueAnswers[q.ID]
		entry := domain.KeyEntry{Type: q.Type, TrueAnswerIDs: make([]int64, 0, len(answers))}
		for _, a := range answers {
			entry.TrueAnswerIDs = append(entry.TrueAnswerIDs, a.ID)
		}
		slices.Sort(entry.TrueAnswerIDs)
		if q.Type == domain.QuestionOnlyText && len(answers) > 0 {
			entry.Text = answers[0].Name
		}
		key.Questions[q.ID] = entry
	}
	return key
}

// StoreKeyLoader builds answer keys straight from a Store. It backs the caches when
// no dedicated loader (e.g. Postgres) is configured.
type StoreKeyLoader struct {
	store Store
}

func NewStoreKeyLoader(store Store) *StoreKeyLoader {
	return &StoreKeyLoader{store: store}
}

func (l *StoreKeyLoader) LoadAnswerKey(ctx context.Context, pollID int64) (domain.AnswerKey, error) {
	if _, err := l.store.GetPoll(ctx, pollID); err != nil {
		return domain.AnswerKey{}, err
	}
	questions, err := l.store.ListQuestions(ctx, pollID)
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("list questions: %w", err)
	}
	trueAnswers := make(map[int64][]domain.Answer, len(questions))
	for _, q := range questions {
		answers, err := l.store.TrueAnswers(ctx, q.ID)
		if err != nil {
			return domain.AnswerKey{}, fmt.Errorf("true answers for question %d: %w", q.ID, err)
		}
		trueAnswers[q.ID] = answers
	}
	return buildAnswerKey(pollID, questions, trueAnswers), nil
}
