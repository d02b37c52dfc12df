package app

import (
	"context"

	"rest-polls/internal/domain"
)

// Store abstracts the entity store (in-memory, Postgres). Lookups of missing rows
// return errors wrapping domain.ErrNotFound.
type Store interface {
	ListPolls(ctx context.Context) ([]domain.Poll, error)
	GetPoll(ctx context.Context, id int64) (domain.Poll, error)
	CreatePoll(ctx context.Context, poll *domain.Poll) error
	UpdatePoll(ctx context.Context, poll *domain.Poll) error
	DeletePoll(ctx context.Context, id int64) error

	// ListQuestions returns a poll's questions in creation order.
	ListQuestions(ctx context.Context, pollID int64) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	CreateQuestion(ctx context.Context, question *domain.Question) error
	UpdateQuestion(ctx context.Context, question *domain.Question) error
	DeleteQuestion(ctx context.Context, id int64) error

	// ListAnswers returns a question's answers in creation order.
	ListAnswers(ctx context.Context, questionID int64) ([]domain.Answer, error)
	CreateAnswer(ctx context.Context, answer *domain.Answer) error
	UpdateAnswer(ctx context.Context, answer *domain.Answer) error
	DeleteAnswer(ctx context.Context, id int64) error
	// TrueAnswers returns the answers marked true, ascending by id.
	TrueAnswers(ctx context.Context, questionID int64) ([]domain.Answer, error)

	GetUser(ctx context.Context, id int64) (domain.UserAnswers, error)
	CreateUser(ctx context.Context, user *domain.UserAnswers) error
	SaveUser(ctx context.Context, user *domain.UserAnswers) error

	// WithinTx runs fn against a store bound to a single transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// AnswerKeyRepository serves the ground truth used for scoring (cache/backing store).
type AnswerKeyRepository interface {
	GetAnswerKey(ctx context.Context, pollID int64) (domain.AnswerKey, error)
	Invalidate(ctx context.Context, pollID int64) error
}

// AnswerKeyLoader builds an answer key from the backing store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, pollID int64) (domain.AnswerKey, error)
}

// SubmissionLocker serializes submissions that touch the same user record.
type SubmissionLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// PermissionGate decides whether an actor may perform authoring writes.
type PermissionGate interface {
	CanWrite(actor domain.Actor) bool
}
