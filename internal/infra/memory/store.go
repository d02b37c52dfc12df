package memory

import (
	"context"
	"sort"
	"sync"

	"rest-polls/internal/app"
	"rest-polls/internal/domain"
)

// Store is an in-memory implementation of app.Store. Deleting a poll or question
// cascades to its children. WithinTx serializes transactions but does not roll back.
type Store struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	nextID    int64
	polls     map[int64]domain.Poll
	questions map[int64]domain.Question
	answers   map[int64]domain.Answer
	users     map[int64]domain.UserAnswers
}

func NewStore() *Store {
	return &Store{
		polls:     make(map[int64]domain.Poll),
		questions: make(map[int64]domain.Question),
		answers:   make(map[int64]domain.Answer),
		users:     make(map[int64]domain.UserAnswers),
	}
}

var _ app.Store = (*Store)(nil)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) ListPolls(_ context.Context) ([]domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Poll, 0, len(s.polls))
	for _, p := range s.polls {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetPoll(_ context.Context, id int64) (domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polls[id]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	return p, nil
}

func (s *Store) CreatePoll(_ context.Context, poll *domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll.ID = s.id()
	s.polls[poll.ID] = *poll
	return nil
}

func (s *Store) UpdatePoll(_ context.Context, poll *domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[poll.ID]; !ok {
		return domain.ErrPollNotFound
	}
	s.polls[poll.ID] = *poll
	return nil
}

func (s *Store) DeletePoll(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[id]; !ok {
		return domain.ErrPollNotFound
	}
	delete(s.polls, id)
	for qid, q := range s.questions {
		if q.PollID == id {
			s.deleteQuestionLocked(qid)
		}
	}
	return nil
}

func (s *Store) ListQuestions(_ context.Context, pollID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.PollID == pollID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) CreateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[question.PollID]; !ok {
		return domain.ErrPollNotFound
	}
	question.ID = s.id()
	s.questions[question.ID] = *question
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.questions[question.ID] = *question
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.deleteQuestionLocked(id)
	return nil
}

func (s *Store) deleteQuestionLocked(id int64) {
	delete(s.questions, id)
	for aid, a := range s.answers {
		if a.QuestionID == id {
			delete(s.answers, aid)
		}
	}
}

func (s *Store) ListAnswers(_ context.Context, questionID int64) ([]domain.Answer, error) {
	return s.filterAnswers(func(a domain.Answer) bool { return a.QuestionID == questionID }), nil
}

func (s *Store) TrueAnswers(_ context.Context, questionID int64) ([]domain.Answer, error) {
	return s.filterAnswers(func(a domain.Answer) bool { return a.QuestionID == questionID && a.IsTrue }), nil
}

func (s *Store) filterAnswers(keep func(domain.Answer) bool) []domain.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Answer, 0)
	for _, a := range s.answers {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CreateAnswer(_ context.Context, answer *domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[answer.QuestionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	answer.Normalize(q.Type)
	answer.ID = s.id()
	s.answers[answer.ID] = *answer
	return nil
}

func (s *Store) UpdateAnswer(_ context.Context, answer *domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.answers[answer.ID]; !ok {
		return domain.ErrAnswerNotFound
	}
	if q, ok := s.questions[answer.QuestionID]; ok {
		answer.Normalize(q.Type)
	}
	s.answers[answer.ID] = *answer
	return nil
}

func (s *Store) DeleteAnswer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.answers[id]; !ok {
		return domain.ErrAnswerNotFound
	}
	delete(s.answers, id)
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.UserAnswers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.UserAnswers{}, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *Store) CreateUser(_ context.Context, user *domain.UserAnswers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.id()
	s.users[user.ID] = copyUser(*user)
	return nil
}

func (s *Store) SaveUser(_ context.Context, user *domain.UserAnswers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	s.users[user.ID] = copyUser(*user)
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx, s)
}

// copyUser detaches the results map so callers cannot mutate stored state.
func copyUser(u domain.UserAnswers) domain.UserAnswers {
	out := domain.UserAnswers{ID: u.ID, Results: make(map[string][]domain.Verdict, len(u.Results))}
	for k, v := range u.Results {
		out.Results[k] = append([]domain.Verdict(nil), v...)
	}
	return out
}
