package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rest-polls/internal/app"
	"rest-polls/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type pollRow struct {
	bun.BaseModel `bun:"table:polls"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"poll_name,notnull"`
	StartDate   time.Time `bun:"date_start,type:date,notnull"`
	FinishDate  time.Time `bun:"date_finish,type:date,notnull"`
	Description string    `bun:"description,notnull"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID     int64  `bun:"id,pk,autoincrement"`
	PollID int64  `bun:"poll_id,notnull"`
	Name   string `bun:"question_name,notnull"`
	Type   string `bun:"question_type,notnull"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Name       string `bun:"answer_name,notnull"`
	IsTrue     bool   `bun:"is_true,notnull"`
}

type userRow struct {
	bun.BaseModel `bun:"table:user_answers"`

	ID      int64                       `bun:"id,pk,autoincrement"`
	Results map[string][]domain.Verdict `bun:"user_data,type:jsonb,notnull"`
}

// Store is the bun-backed app.Store. Cascading deletes are enforced by the schema.
type Store struct {
	db  *bun.DB
	idb bun.IDB
}

var _ app.Store = (*Store)(nil)

// Open connects to Postgres through pgdriver.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, idb: db}
}

func (s *Store) ListPolls(ctx context.Context) ([]domain.Poll, error) {
	var rows []pollRow
	if err := s.idb.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	out := make([]domain.Poll, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetPoll(ctx context.Context, id int64) (domain.Poll, error) {
	var row pollRow
	err := s.idb.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.Poll{}, notFound(err, domain.ErrPollNotFound, "get poll")
	}
	return row.toDomain(), nil
}

func (s *Store) CreatePoll(ctx context.Context, poll *domain.Poll) error {
	row := pollFromDomain(*poll)
	if _, err := s.idb.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}
	poll.ID = row.ID
	return nil
}

func (s *Store) UpdatePoll(ctx context.Context, poll *domain.Poll) error {
	row := pollFromDomain(*poll)
	res, err := s.idb.NewUpdate().Model(&row).
		Column("poll_name", "date_finish", "description").
		WherePK().
		Exec(ctx)
	return affected(res, err, domain.ErrPollNotFound, "update poll")
}

func (s *Store) DeletePoll(ctx context.Context, id int64) error {
	res, err := s.idb.NewDelete().Model((*pollRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrPollNotFound, "delete poll")
}

func (s *Store) ListQuestions(ctx context.Context, pollID int64) ([]domain.Question, error) {
	var rows []questionRow
	err := s.idb.NewSelect().Model(&rows).Where("poll_id = ?", pollID).Order("id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var row questionRow
	if err := s.idb.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound, "get question")
	}
	return row.toDomain(), nil
}

func (s *Store) CreateQuestion(ctx context.Context, question *domain.Question) error {
	row := questionRow{PollID: question.PollID, Name: question.Name, Type: string(question.Type)}
	if _, err := s.idb.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	question.ID = row.ID
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question *domain.Question) error {
	row := questionRow{ID: question.ID, PollID: question.PollID, Name: question.Name, Type: string(question.Type)}
	res, err := s.idb.NewUpdate().Model(&row).Column("question_name", "question_type").WherePK().Exec(ctx)
	return affected(res, err, domain.ErrQuestionNotFound, "update question")
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.idb.NewDelete().Model((*questionRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrQuestionNotFound, "delete question")
}

func (s *Store) ListAnswers(ctx context.Context, questionID int64) ([]domain.Answer, error) {
	return s.selectAnswers(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("question_id = ?", questionID)
	})
}

func (s *Store) TrueAnswers(ctx context.Context, questionID int64) ([]domain.Answer, error) {
	return s.selectAnswers(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("question_id = ?", questionID).Where("is_true")
	})
}

func (s *Store) selectAnswers(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.Answer, error) {
	var rows []answerRow
	if err := filter(s.idb.NewSelect().Model(&rows)).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]domain.Answer, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Answer{ID: r.ID, QuestionID: r.QuestionID, Name: r.Name, IsTrue: r.IsTrue})
	}
	return out, nil
}

func (s *Store) CreateAnswer(ctx context.Context, answer *domain.Answer) error {
	if err := s.normalize(ctx, answer); err != nil {
		return err
	}
	row := answerRow{QuestionID: answer.QuestionID, Name: answer.Name, IsTrue: answer.IsTrue}
	if _, err := s.idb.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	answer.ID = row.ID
	return nil
}

func (s *Store) UpdateAnswer(ctx context.Context, answer *domain.Answer) error {
	if err := s.normalize(ctx, answer); err != nil {
		return err
	}
	row := answerRow{ID: answer.ID, QuestionID: answer.QuestionID, Name: answer.Name, IsTrue: answer.IsTrue}
	res, err := s.idb.NewUpdate().Model(&row).Column("answer_name", "is_true").WherePK().Exec(ctx)
	return affected(res, err, domain.ErrAnswerNotFound, "update answer")
}

// normalize enforces the text-answer invariant against the stored question type.
func (s *Store) normalize(ctx context.Context, answer *domain.Answer) error {
	question, err := s.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		return err
	}
	answer.Normalize(question.Type)
	return nil
}

func (s *Store) DeleteAnswer(ctx context.Context, id int64) error {
	res, err := s.idb.NewDelete().Model((*answerRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrAnswerNotFound, "delete answer")
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.UserAnswers, error) {
	var row userRow
	if err := s.idb.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.UserAnswers{}, notFound(err, domain.ErrUserNotFound, "get user")
	}
	return domain.UserAnswers{ID: row.ID, Results: row.Results}, nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.UserAnswers) error {
	row := userRow{Results: user.Results}
	if row.Results == nil {
		row.Results = map[string][]domain.Verdict{}
	}
	if _, err := s.idb.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = row.ID
	return nil
}

func (s *Store) SaveUser(ctx context.Context, user *domain.UserAnswers) error {
	row := userRow{ID: user.ID, Results: user.Results}
	if row.Results == nil {
		row.Results = map[string][]domain.Verdict{}
	}
	res, err := s.idb.NewUpdate().Model(&row).Column("user_data").WherePK().Exec(ctx)
	return affected(res, err, domain.ErrUserNotFound, "update user")
}

// WithinTx runs fn in a transaction. Nested calls reuse the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	if s.db == nil {
		return fn(ctx, s)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{idb: tx})
	})
}

func notFound(err error, sentinel error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(res sql.Result, err error, sentinel error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

func (r pollRow) toDomain() domain.Poll {
	return domain.Poll{
		ID:          r.ID,
		Name:        r.Name,
		StartDate:   r.StartDate,
		FinishDate:  r.FinishDate,
		Description: r.Description,
	}
}

func pollFromDomain(p domain.Poll) pollRow {
	return pollRow{
		ID:          p.ID,
		Name:        p.Name,
		StartDate:   p.StartDate,
		FinishDate:  p.FinishDate,
		Description: p.Description,
	}
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{ID: r.ID, PollID: r.PollID, Name: r.Name, Type: domain.QuestionType(r.Type)}
}
