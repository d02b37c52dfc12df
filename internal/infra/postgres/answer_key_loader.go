package postgres

import (
	"context"
	"fmt"

	"rest-polls/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// AnswerKeyLoader reads a poll's ground truth from Postgres in a single query.
type AnswerKeyLoader struct {
	pool *pgxpool.Pool
}

func NewAnswerKeyLoader(pool *pgxpool.Pool) *AnswerKeyLoader {
	return &AnswerKeyLoader{pool: pool}
}

const answerKeyQuery = `
SELECT q.id, q.question_type, a.id, a.answer_name
FROM polls p
LEFT JOIN questions q ON q.poll_id = p.id
LEFT JOIN answers a ON a.question_id = q.id AND a.is_true
WHERE p.id = $1
ORDER BY q.id, a.id`

func (l *AnswerKeyLoader) LoadAnswerKey(ctx context.Context, pollID int64) (domain.AnswerKey, error) {
	rows, err := l.pool.Query(ctx, answerKeyQuery, pollID)
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load answer key: %w", err)
	}
	defer rows.Close()

	key := domain.AnswerKey{PollID: pollID, Questions: make(map[int64]domain.KeyEntry)}
	found := false
	for rows.Next() {
		found = true
		var (
			questionID *int64
			qType      *string
			answerID   *int64
			answerName *string
		)
		if err := rows.Scan(&questionID, &qType, &answerID, &answerName); err != nil {
			return domain.AnswerKey{}, fmt.Errorf("scan answer key: %w", err)
		}
		if questionID == nil {
			continue
		}
		entry, ok := key.Questions[*questionID]
		if !ok {
			entry = domain.KeyEntry{Type: domain.QuestionType(*qType), TrueAnswerIDs: []int64{}}
		}
		if answerID != nil {
			entry.TrueAnswerIDs = append(entry.TrueAnswerIDs, *answerID)
			if entry.Type == domain.QuestionOnlyText && entry.Text == "" {
				entry.Text = *answerName
			}
		}
		key.Questions[*questionID] = entry
	}
	if err := rows.Err(); err != nil {
		return domain.AnswerKey{}, fmt.Errorf("read answer key: %w", err)
	}
	if !found {
		return domain.AnswerKey{}, domain.ErrPollNotFound
	}
	return key, nil
}
