package app

import (
	"context"
	"fmt"
	"time"

	"rest-polls/internal/domain"

	"github.com/sirupsen/logrus"
)

// PollService contains the authoring and submission use cases.
type PollService struct {
	store  Store
	keys   AnswerKeyRepository
	locker SubmissionLocker
	gate   PermissionGate
	now    func() time.Time
}

func NewPollService(store Store, keys AnswerKeyRepository, locker SubmissionLocker, gate PermissionGate) *PollService {
	return NewPollServiceWithClock(store, keys, locker, gate, time.Now)
}

// NewPollServiceWithClock allows deterministic dates in tests.
func NewPollServiceWithClock(store Store, keys AnswerKeyRepository, locker SubmissionLocker, gate PermissionGate, now func() time.Time) *PollService {
	return &PollService{store: store, keys: keys, locker: locker, gate: gate, now: now}
}

// ListPolls returns every poll without its tree.
func (s *PollService) ListPolls(ctx context.Context) ([]domain.Poll, error) {
	return s.store.ListPolls(ctx)
}

// GetPoll loads a poll with its questions and answers.
func (s *PollService) GetPoll(ctx context.Context, id int64) (domain.PollTree, error) {
	return loadTree(ctx, s.store, id)
}

// CreatePoll validates and writes a full tree. Nothing is written when validation fails.
func (s *PollService) CreatePoll(ctx context.Context, actor domain.Actor, in domain.PollInput) (domain.PollTree, error) {
	if !s.gate.CanWrite(actor) {
		return domain.PollTree{}, domain.ErrPermissionDenied
	}
	if err := ValidatePollInput(in, true); err != nil {
		return domain.PollTree{}, err
	}

	var tree domain.PollTree
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		poll := domain.Poll{
			Name:        *in.Name,
			StartDate:   domain.DateOf(s.now()).Time,
			FinishDate:  in.FinishDate.Time,
			Description: *in.Description,
		}
		if err := tx.CreatePoll(ctx, &poll); err != nil {
			return fmt.Errorf("create poll: %w", err)
		}
		syncer := treeSyncer{store: tx}
		for _, q := range in.Questions {
			if err := syncer.createQuestion(ctx, poll.ID, q); err != nil {
				return err
			}
		}
		var err error
		tree, err = loadTree(ctx, tx, poll.ID)
		return err
	})
	if err != nil {
		return domain.PollTree{}, err
	}

	logrus.WithFields(logrus.Fields{
		"poll_id":   tree.Poll.ID,
		"questions": len(tree.Questions),
		"actor":     actor.Subject,
	}).Info("poll created")
	return tree, nil
}

// UpdatePoll applies the optional scalar fields and reconciles the question tree.
func (s *PollService) UpdatePoll(ctx context.Context, actor domain.Actor, id int64, in domain.PollInput) (domain.PollTree, error) {
	if !s.gate.CanWrite(actor) {
		return domain.PollTree{}, domain.ErrPermissionDenied
	}
	if _, err := s.store.GetPoll(ctx, id); err != nil {
		return domain.PollTree{}, err
	}
	if err := ValidatePollInput(in, false); err != nil {
		return domain.PollTree{}, err
	}

	var tree domain.PollTree
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		poll, err := tx.GetPoll(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			poll.Name = *in.Name
		}
		if in.FinishDate != nil {
			poll.FinishDate = in.FinishDate.Time
		}
		if in.Description != nil {
			poll.Description = *in.Description
		}
		if err := tx.UpdatePoll(ctx, &poll); err != nil {
			return fmt.Errorf("update poll: %w", err)
		}
		if err := (treeSyncer{store: tx}).syncQuestions(ctx, id, in.Questions); err != nil {
			return err
		}
		tree, err = loadTree(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.PollTree{}, err
	}
	s.invalidateKey(ctx, id)

	logrus.WithFields(logrus.Fields{
		"poll_id":   id,
		"questions": len(tree.Questions),
		"actor":     actor.Subject,
	}).Info("poll updated")
	return tree, nil
}

// DeletePoll removes a poll and, by cascade, its questions and answers.
func (s *PollService) DeletePoll(ctx context.Context, actor domain.Actor, id int64) error {
	if !s.gate.CanWrite(actor) {
		return domain.ErrPermissionDenied
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.GetPoll(ctx, id); err != nil {
			return err
		}
		return tx.DeletePoll(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidateKey(ctx, id)
	logrus.WithFields(logrus.Fields{"poll_id": id, "actor": actor.Subject}).Info("poll deleted")
	return nil
}

// Process validates a submission, scores it and records the verdicts on the user.
// A nil userID creates a new anonymous user record.
func (s *PollService) Process(ctx context.Context, userID *int64, in domain.ProcessInput) (domain.ProcessResult, error) {
	var user domain.UserAnswers
	if userID != nil {
		release, err := s.locker.Acquire(ctx, userLockKey(*userID))
		if err != nil {
			return domain.ProcessResult{}, fmt.Errorf("lock user %d: %w", *userID, err)
		}
		defer release()

		if user, err = s.store.GetUser(ctx, *userID); err != nil {
			return domain.ProcessResult{}, err
		}
	}

	enriched, err := intake(ctx, s.store, s.now(), in)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	if err := ValidateSubmission(enriched); err != nil {
		return domain.ProcessResult{}, err
	}

	pollID := *enriched.PollID
	key, err := s.keys.GetAnswerKey(ctx, pollID)
	if err != nil {
		return domain.ProcessResult{}, fmt.Errorf("answer key for poll %d: %w", pollID, err)
	}
	verdicts := scoreSubmission(key, enriched)

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		if userID == nil {
			user = domain.UserAnswers{Results: map[string][]domain.Verdict{}}
			user.Record(pollID, verdicts)
			return tx.CreateUser(ctx, &user)
		}
		// Re-read inside the transaction so entries for other polls are not lost.
		current, err := tx.GetUser(ctx, user.ID)
		if err != nil {
			return err
		}
		current.Record(pollID, verdicts)
		user = current
		return tx.SaveUser(ctx, &user)
	})
	if err != nil {
		return domain.ProcessResult{}, fmt.Errorf("save user answers: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"poll_id":   pollID,
		"user_id":   user.ID,
		"questions": len(verdicts),
	}).Info("submission scored")
	return domain.ProcessResult{UserID: user.ID, PollID: pollID, Verdicts: verdicts}, nil
}

// UserResults returns the accumulated results of a user.
func (s *PollService) UserResults(ctx context.Context, userID int64) (domain.UserAnswers, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *PollService) invalidateKey(ctx context.Context, pollID int64) {
	if err := s.keys.Invalidate(ctx, pollID); err != nil {
		logrus.WithError(err).WithField("poll_id", pollID).Warn("answer key invalidation failed")
	}
}

func userLockKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func loadTree(ctx context.Context, store Store, id int64) (domain.PollTree, error) {
	poll, err := store.GetPoll(ctx, id)
	if err != nil {
		return domain.PollTree{}, err
	}
	questions, err := store.ListQuestions(ctx, id)
	if err != nil {
		return domain.PollTree{}, fmt.Errorf("list questions: %w", err)
	}
	tree := domain.PollTree{Poll: poll, Questions: make([]domain.QuestionTree, 0, len(questions))}
	for _, q := range questions {
		answers, err := store.ListAnswers(ctx, q.ID)
		if err != nil {
			return domain.PollTree{}, fmt.Errorf("list answers: %w", err)
		}
		tree.Questions = append(tree.Questions, domain.QuestionTree{Question: q, Answers: answers})
	}
	return tree, nil
}
