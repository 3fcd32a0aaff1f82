package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"quizforge-service/internal/app"
	"quizforge-service/internal/domain"
)

// CachedQuizStore caches quizzes in Redis (one JSON value per quiz) and falls back to the
// backing store on a miss. Writes go to the backing store and drop the cached value before
// and after the write; a load started before a write does not refill the cache.
//
//	SET quiz:{quizID} {json} EX {ttl}
type CachedQuizStore struct {
	app.QuizStore
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	// gens counts invalidations per id; fills hold genMu so a write cannot slip in
	// between the check and the SET.
	genMu sync.Mutex
	gens  map[string]uint64

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCachedQuizStore(client *redis.Client, backing app.QuizStore, ttl time.Duration) *CachedQuizStore {
	return &CachedQuizStore{
		QuizStore: backing,
		client:    client,
		ttl:       ttl,
		gens:      make(map[string]uint64),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CachedQuizStore) GetByID(ctx context.Context, id string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, id); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, id); ok {
			return quiz, nil
		}

		gen := r.generation(id)
		quiz, err := r.QuizStore.GetByID(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.fill(ctx, id, quiz, gen)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

func (r *CachedQuizStore) Update(ctx context.Context, id string, patch domain.QuizPatch) error {
	r.invalidate(ctx, id)
	defer r.invalidate(ctx, id)
	return r.QuizStore.Update(ctx, id, patch)
}

func (r *CachedQuizStore) Delete(ctx context.Context, id string) error {
	r.invalidate(ctx, id)
	defer r.invalidate(ctx, id)
	return r.QuizStore.Delete(ctx, id)
}

// cached reads a quiz from Redis. Misses, transport errors and undecodable values all
// fall through to the backing store.
func (r *CachedQuizStore) cached(ctx context.Context, id string) (domain.Quiz, bool) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("quiz", id).Debug("quiz cache read failed")
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *CachedQuizStore) generation(id string) uint64 {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	return r.gens[id]
}

// fill caches quiz unless the id was invalidated since gen was read.
func (r *CachedQuizStore) fill(ctx context.Context, id string, quiz domain.Quiz, gen uint64) {
	payload, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	r.genMu.Lock()
	defer r.genMu.Unlock()
	if r.gens[id] != gen {
		return
	}
	if err := r.client.Set(ctx, r.key(id), payload, r.ttlWithJitter()).Err(); err != nil {
		log.WithError(err).WithField("quiz", id).Warn("quiz cache fill failed")
	}
}

func (r *CachedQuizStore) invalidate(ctx context.Context, id string) {
	r.genMu.Lock()
	r.gens[id]++
	r.genMu.Unlock()
	if err := r.client.Del(context.WithoutCancel(ctx), r.key(id)).Err(); err != nil {
		log.WithError(err).WithField("quiz", id).Warn("quiz cache invalidation failed")
	}
	r.sf.Forget(id)
}

func (r *CachedQuizStore) key(id string) string {
	return "quiz:" + id
}

func (r *CachedQuizStore) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
