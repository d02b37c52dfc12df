package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"rest-polls/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAnswerKeyRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{key: sampleKey()}
	repo := NewAnswerKeyRepository(client, loader, time.Minute)

	if _, err := repo.GetAnswerKey(context.Background(), 1); err != nil {
		t.Fatalf("get key: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("poll:1:key") {
		t.Fatalf("expected redis hash to be set")
	}

	// Second call should hit cache, loader not incremented.
	key, err := repo.GetAnswerKey(context.Background(), 1)
	if err != nil {
		t.Fatalf("get key 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	entry := key.Questions[10]
	if entry.Type != domain.QuestionManyAnswers || len(entry.TrueAnswerIDs) != 2 || entry.TrueAnswerIDs[1] != 5 {
		t.Fatalf("unexpected cached entry %+v", entry)
	}
	if key.Questions[11].Text != "Paris" {
		t.Fatalf("expected text entry to round-trip, got %+v", key.Questions[11])
	}
}

func TestAnswerKeyRepositoryInvalidateDropsHash(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{key: sampleKey()}
	repo := NewAnswerKeyRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetAnswerKey(context.Background(), 1)
	if err := repo.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("poll:1:key") {
		t.Fatalf("expected redis hash removed")
	}
	_, _ = repo.GetAnswerKey(context.Background(), 1)
	if loader.calls != 2 {
		t.Fatalf("expected reload, loader calls=%d", loader.calls)
	}
}

func TestAnswerKeyRepositoryCachesEmptyPoll(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{key: domain.AnswerKey{PollID: 1, Questions: map[int64]domain.KeyEntry{}}}
	repo := NewAnswerKeyRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetAnswerKey(context.Background(), 1)
	key, err := repo.GetAnswerKey(context.Background(), 1)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if loader.calls != 1 || len(key.Questions) != 0 {
		t.Fatalf("expected cached empty key, calls=%d key=%+v", loader.calls, key)
	}
}

func TestAnswerKeyRepositoryDiscardsFillAfterInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	stale := sampleKey()
	fresh := sampleKey()
	fresh.Questions = map[int64]domain.KeyEntry{
		11: {Type: domain.QuestionOnlyText, TrueAnswerIDs: []int64{8}, Text: "Rome"},
	}
	loader := &gatedLoader{keys: []domain.AnswerKey{stale, fresh}, entered: make(chan struct{}), release: make(chan struct{})}
	repo := NewAnswerKeyRepository(newClient(mr), loader, time.Minute)

	done := make(chan domain.AnswerKey)
	go func() {
		key, _ := repo.GetAnswerKey(context.Background(), 1)
		done <- key
	}()

	<-loader.entered
	if err := repo.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.release)
	<-done
	if mr.Exists("poll:1:key") {
		t.Fatalf("stale fill must not be written after invalidation")
	}

	key, err := repo.GetAnswerKey(context.Background(), 1)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if key.Questions[11].Text != "Rome" {
		t.Fatalf("expected reloaded key, got %+v", key.Questions[11])
	}
	cached, err := repo.GetAnswerKey(context.Background(), 1)
	if err != nil || cached.Questions[11].Text != "Rome" {
		t.Fatalf("expected fresh key cached, got %+v err=%v", cached.Questions[11], err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected two loads, got %d", loader.calls)
	}
}

// gatedLoader returns keys in order; the first load blocks until release is closed.
type gatedLoader struct {
	mu      sync.Mutex
	keys    []domain.AnswerKey
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (l *gatedLoader) LoadAnswerKey(_ context.Context, _ int64) (domain.AnswerKey, error) {
	l.mu.Lock()
	n := l.calls
	l.calls++
	l.mu.Unlock()
	if n == 0 {
		close(l.entered)
		<-l.release
	}
	return l.keys[n], nil
}

type countingLoader struct {
	key   domain.AnswerKey
	calls int
}

func (l *countingLoader) LoadAnswerKey(_ context.Context, pollID int64) (domain.AnswerKey, error) {
	l.calls++
	if pollID != l.key.PollID {
		return domain.AnswerKey{}, domain.ErrPollNotFound
	}
	return l.key, nil
}

func sampleKey() domain.AnswerKey {
	return domain.AnswerKey{
		PollID: 1,
		Questions: map[int64]domain.KeyEntry{
			10: {Type: domain.QuestionManyAnswers, TrueAnswerIDs: []int64{3, 5}},
			11: {Type: domain.QuestionOnlyText, TrueAnswerIDs: []int64{7}, Text: "Paris"},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
