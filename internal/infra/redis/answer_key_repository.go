package redis

import (
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"rest-polls/internal/app"
	"rest-polls/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// emptyField marks a cached key for a poll without questions, so the hash exists.
const emptyField = "_"

// errStaleFill aborts a cache fill whose poll was invalidated while it was loading.
var errStaleFill = errors.New("answer key invalidated during load")

// AnswerKeyRepository caches answer keys in Redis (hash per poll) and falls back to a
// loader on cache miss. Entries are stored as:
//
//	HSET poll:{pollID}:key {questionID} {json KeyEntry}
//	INCR poll:{pollID}:gen   (on invalidation)
//
// A fill only lands if the generation it read before loading is still current.
type AnswerKeyRepository struct {
	client *redis.Client
	loader app.AnswerKeyLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

var _ app.AnswerKeyRepository = (*AnswerKeyRepository)(nil)

func NewAnswerKeyRepository(client *redis.Client, loader app.AnswerKeyLoader, ttl time.Duration) *AnswerKeyRepository {
	return &AnswerKeyRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *AnswerKeyRepository) GetAnswerKey(ctx context.Context, pollID int64) (domain.AnswerKey, error) {
	hashKey := r.key(pollID)

	if fields, err := r.client.HGetAll(ctx, hashKey).Result(); err == nil && len(fields) > 0 {
		if key, err := buildKeyFromCache(pollID, fields); err == nil {
			return key, nil
		}
	}

	gen, err := r.generation(ctx, r.client, pollID)
	if err != nil {
		return domain.AnswerKey{}, err
	}

	result, err, _ := r.sf.Do(hashKey+":"+gen, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if fields, err := r.client.HGetAll(ctx, hashKey).Result(); err == nil && len(fields) > 0 {
			if key, err := buildKeyFromCache(pollID, fields); err == nil {
				return key, nil
			}
		}

		key, err := r.loader.LoadAnswerKey(ctx, pollID)
		if err != nil {
			return domain.AnswerKey{}, err
		}
		if err := r.fill(ctx, pollID, gen, key); err != nil {
			log := logrus.WithField("poll_id", pollID)
			if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
				log.Debug("answer key invalidated during load, not cached")
			} else {
				// The loaded key is still valid; only the cache fill failed.
				log.WithError(err).Warn("answer key cache fill failed")
			}
		}
		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

// fill writes key under WATCH on the generation counter.
func (r *AnswerKeyRepository) fill(ctx context.Context, pollID int64, gen string, key domain.AnswerKey) error {
	fields := make(map[string]interface{}, len(key.Questions)+1)
	fields[emptyField] = ""
	for questionID, entry := range key.Questions {
		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode key entry: %w", err)
		}
		fields[strconv.FormatInt(questionID, 10)] = raw
	}

	hashKey, genKey := r.key(pollID), r.genKey(pollID)
	ttl := r.ttlWithJitter()
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.generation(ctx, tx, pollID)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, hashKey)
			pipe.HSet(ctx, hashKey, fields)
			if ttl > 0 {
				pipe.Expire(ctx, hashKey, ttl)
			}
			return nil
		})
		return err
	}, genKey)
}

// Invalidate removes the cached hash for a poll and bumps its generation so that
// fills already in flight are discarded.
func (r *AnswerKeyRepository) Invalidate(ctx context.Context, pollID int64) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, r.genKey(pollID))
	pipe.Del(ctx, r.key(pollID))
	_, err := pipe.Exec(ctx)
	return err
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *AnswerKeyRepository) generation(ctx context.Context, c getter, pollID int64) (string, error) {
	gen, err := c.Get(ctx, r.genKey(pollID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("answer key generation: %w", err)
	}
	return gen, nil
}

func (r *AnswerKeyRepository) genKey(pollID int64) string {
	return "poll:" + domain.PollKey(pollID) + ":gen"
}

func (r *AnswerKeyRepository) key(pollID int64) string {
	return "poll:" + domain.PollKey(pollID) + ":key"
}

func buildKeyFromCache(pollID int64, fields map[string]string) (domain.AnswerKey, error) {
	key := domain.AnswerKey{PollID: pollID, Questions: make(map[int64]domain.KeyEntry, len(fields))}
	for field, raw := range fields {
		if field == emptyField {
			continue
		}
		questionID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return domain.AnswerKey{}, fmt.Errorf("question id %q: %w", field, err)
		}
		var entry domain.KeyEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return domain.AnswerKey{}, fmt.Errorf("decode key entry %q: %w", field, err)
		}
		key.Questions[questionID] = entry
	}
	return key, nil
}

func (r *AnswerKeyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
