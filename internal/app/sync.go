package app

import (
	"context"
	"fmt"

	"rest-polls/internal/domain"
)

// childSync describes how to reconcile one level of the tree. S is the stored child,
// P the incoming payload.
type childSync[S, P any] struct {
	storedKey   func(S) string
	incomingKey func(P) string
	update      func(ctx context.Context, stored S, incoming P) error
	create      func(ctx context.Context, incoming P) error
	remove      func(ctx context.Context, stored S) error
}

// reconcile matches incoming payloads to stored children by name only. Matches are
// updated in place, unmatched payloads are created, unmatched children are deleted.
func (c childSync[S, P]) reconcile(ctx context.Context, stored []S, incoming []P) error {
	byName := make(map[string]S, len(stored))
	for _, s := range stored {
		byName[c.storedKey(s)] = s
	}

	seen := make(map[string]struct{}, len(incoming))
	for _, p := range incoming {
		name := c.incomingKey(p)
		seen[name] = struct{}{}
		if s, ok := byName[name]; ok {
			if err := c.update(ctx, s, p); err != nil {
				return err
			}
			continue
		}
		if err := c.create(ctx, p); err != nil {
			return err
		}
	}

	for name, s := range byName {
		if _, ok := seen[name]; ok {
			continue
		}
		if err := c.remove(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// treeSyncer applies authoring payloads to a store.
type treeSyncer struct {
	store Store
}

// createQuestion writes a whole question with its answers; no diffing.
func (t treeSyncer) createQuestion(ctx context.Context, pollID int64, in domain.QuestionInput) error {
	question := domain.Question{PollID: pollID, Name: in.Name, Type: in.Type}
	if err := t.store.CreateQuestion(ctx, &question); err != nil {
		return fmt.Errorf("create question %q: %w", in.Name, err)
	}
	for _, a := range in.Answers {
		if err := t.createAnswer(ctx, question, a); err != nil {
			return err
		}
	}
	return nil
}

func (t treeSyncer) createAnswer(ctx context.Context, question domain.Question, in domain.AnswerInput) error {
	answer := domain.Answer{QuestionID: question.ID, Name: in.Name}
	if in.IsTrue != nil {
		answer.IsTrue = *in.IsTrue
	}
	answer.Normalize(question.Type)
	if err := t.store.CreateAnswer(ctx, &answer); err != nil {
		return fmt.Errorf("create answer %q: %w", in.Name, err)
	}
	return nil
}

// syncQuestions reconciles a poll's stored questions against the incoming list and,
// for every kept question, its answers.
func (t treeSyncer) syncQuestions(ctx context.Context, pollID int64, incoming []domain.QuestionInput) error {
	stored, err := t.store.ListQuestions(ctx, pollID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	return childSync[domain.Question, domain.QuestionInput]{
		storedKey:   func(q domain.Question) string { return q.Name },
		incomingKey: func(in domain.QuestionInput) string { return in.Name },
		update: func(ctx context.Context, q domain.Question, in domain.QuestionInput) error {
			q.Type = in.Type
			if err := t.store.UpdateQuestion(ctx, &q); err != nil {
				return fmt.Errorf("update question %q: %w", q.Name, err)
			}
			return t.syncAnswers(ctx, q, in.Answers)
		},
		create: func(ctx context.Context, in domain.QuestionInput) error {
			return t.createQuestion(ctx, pollID, in)
		},
		remove: func(ctx context.Context, q domain.Question) error {
			if err := t.store.DeleteQuestion(ctx, q.ID); err != nil {
				return fmt.Errorf("delete question %q: %w", q.Name, err)
			}
			return nil
		},
	}.reconcile(ctx, stored, incoming)
}

func (t treeSyncer) syncAnswers(ctx context.Context, question domain.Question, incoming []domain.AnswerInput) error {
	stored, err := t.store.ListAnswers(ctx, question.ID)
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}
	return childSync[domain.Answer, domain.AnswerInput]{
		storedKey:   func(a domain.Answer) string { return a.Name },
		incomingKey: func(in domain.AnswerInput) string { return in.Name },
		update: func(ctx context.Context, a domain.Answer, in domain.AnswerInput) error {
			if in.IsTrue != nil {
				a.IsTrue = *in.IsTrue
			}
			a.Normalize(question.Type)
			if err := t.store.UpdateAnswer(ctx, &a); err != nil {
				return fmt.Errorf("update answer %q: %w", a.Name, err)
			}
			return nil
		},
		create: func(ctx context.Context, in domain.AnswerInput) error {
			return t.createAnswer(ctx, question, in)
		},
		remove: func(ctx context.Context, a domain.Answer) error {
			if err := t.store.DeleteAnswer(ctx, a.ID); err != nil {
				return fmt.Errorf("delete answer %q: %w", a.Name, err)
			}
			return nil
		},
	}.reconcile(ctx, stored, incoming)
}
