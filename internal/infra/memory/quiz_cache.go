package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizforge-service/internal/app"
	"quizforge-service/internal/domain"
)

// CachedQuizStore caches GetByID results with TTL to avoid repeated DB hits.
// Writes go straight to the backing store and invalidate the cached entry before and
// after the write. A load only fills the cache if no write touched the id meanwhile.
type CachedQuizStore struct {
	app.QuizStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
	gens  map[string]uint64
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewCachedQuizStore(backing app.QuizStore, ttl time.Duration) *CachedQuizStore {
	return &CachedQuizStore{
		QuizStore: backing,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:     make(map[string]cachedQuiz),
		gens:      make(map[string]uint64),
	}
}

func (r *CachedQuizStore) GetByID(ctx context.Context, id string) (domain.Quiz, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz.Clone(), nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		gen := r.gens[id]
		r.mu.RUnlock()

		quiz, err := r.QuizStore.GetByID(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}

		expiresAt := now.Add(r.ttlWithJitter())
		r.mu.Lock()
		if r.gens[id] == gen {
			r.cache[id] = cachedQuiz{
				quiz:      quiz,
				expiresAt: expiresAt,
			}
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

func (r *CachedQuizStore) Update(ctx context.Context, id string, patch domain.QuizPatch) error {
	r.invalidate(id)
	defer r.invalidate(id)
	return r.QuizStore.Update(ctx, id, patch)
}

func (r *CachedQuizStore) Delete(ctx context.Context, id string) error {
	r.invalidate(id)
	defer r.invalidate(id)
	return r.QuizStore.Delete(ctx, id)
}

func (r *CachedQuizStore) invalidate(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.gens[id]++
	r.mu.Unlock()
	r.sf.Forget(id)
}

func (r *CachedQuizStore) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
