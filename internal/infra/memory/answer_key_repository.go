package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"rest-polls/internal/app"
	"rest-polls/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyRepository caches answer keys with TTL to avoid rebuilding them per submission.
type AnswerKeyRepository struct {
	loader app.AnswerKeyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[int64]cachedKey
	// gen is bumped by Invalidate; a fill started under an older generation is discarded.
	gen map[int64]uint64
}

type cachedKey struct {
	key       domain.AnswerKey
	expiresAt time.Time
}

var _ app.AnswerKeyRepository = (*AnswerKeyRepository)(nil)

func NewAnswerKeyRepository(loader app.AnswerKeyLoader, ttl time.Duration) *AnswerKeyRepository {
	return &AnswerKeyRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedKey),
		gen:    make(map[int64]uint64),
	}
}

func (r *AnswerKeyRepository) GetAnswerKey(ctx context.Context, pollID int64) (domain.AnswerKey, error) {
	key, gen, ok := r.lookup(pollID)
	if ok {
		return key, nil
	}

	flight := fmt.Sprintf("%d:%d", pollID, gen)
	result, err, _ := r.sf.Do(flight, func() (interface{}, error) {
		if key, _, ok := r.lookup(pollID); ok {
			return key, nil
		}

		key, err := r.loader.LoadAnswerKey(ctx, pollID)
		if err != nil {
			return domain.AnswerKey{}, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.gen[pollID] != gen {
			logrus.WithField("poll_id", pollID).Debug("answer key invalidated during load, not cached")
			return key, nil
		}
		r.cache[pollID] = cachedKey{
			key:       key,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		logrus.WithField("poll_id", pollID).Debug("answer key cached")
		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

// Invalidate drops the cached key so the next submission reloads it.
func (r *AnswerKeyRepository) Invalidate(_ context.Context, pollID int64) error {
	r.mu.Lock()
	delete(r.cache, pollID)
	r.gen[pollID]++
	r.mu.Unlock()
	return nil
}

// lookup returns the live cached key, if any, and the poll's current generation.
func (r *AnswerKeyRepository) lookup(pollID int64) (domain.AnswerKey, uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen := r.gen[pollID]
	entry, ok := r.cache[pollID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.AnswerKey{}, gen, false
	}
	return entry.key, gen, true
}

func (r *AnswerKeyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
