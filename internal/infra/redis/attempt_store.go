package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"quizforge-service/internal/app"
)

// DefaultFinishedGrace is how long a finished attempt stays readable when the store has no ttl.
const DefaultFinishedGrace = 5 * time.Minute

// AttemptStore is a Redis-aware implementation of app.AttemptRegistry.
// Notes:
//   - Attempts stay in a local map; their countdown goroutines live in this process.
//   - Redis holds a liveness key per attempt whose TTL slides on every lookup. An
//     attempt whose key expired is abandoned and forgotten.
//   - Finished attempts are dropped after a grace period by Add and Sweep.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	grace    time.Duration
	clock    func() time.Time
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return NewAttemptStoreWithClock(client, ttl, time.Now)
}

// NewAttemptStoreWithClock allows deterministic grace periods in tests.
func NewAttemptStoreWithClock(client *redis.Client, ttl time.Duration, clock func() time.Time) *AttemptStore {
	grace := ttl
	if grace <= 0 {
		grace = DefaultFinishedGrace
	}
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		grace:    grace,
		clock:    clock,
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Add(attempt *app.Attempt) {
	ctx := context.Background()
	s.dropFinished(ctx)

	s.mu.Lock()
	s.attempts[attempt.ID()] = attempt
	s.mu.Unlock()
	// best-effort liveness marker
	value := attempt.QuizID()
	if err := s.client.Set(ctx, s.key(attempt.ID()), value, s.ttl).Err(); err != nil {
		log.WithError(err).WithField("attempt", attempt.ID()).Warn("attempt liveness marker not set")
	}
}

func (s *AttemptStore) Get(id string) (*app.Attempt, bool) {
	s.mu.RLock()
	attempt, ok := s.attempts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.ttl <= 0 {
		return attempt, true
	}

	ctx := context.Background()
	alive, err := s.client.Expire(ctx, s.key(id), s.ttl).Result()
	if err != nil {
		// Redis unreachable: keep serving the local attempt.
		log.WithError(err).WithField("attempt", id).Warn("attempt liveness check failed")
		return attempt, true
	}
	if !alive {
		s.forget(id)
		attempt.Abandon()
		return nil, false
	}
	return attempt, true
}

func (s *AttemptStore) Remove(id string) {
	s.forget(id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

// Sweep drops finished attempts past their grace period and abandons attempts whose
// liveness key has expired.
func (s *AttemptStore) Sweep(ctx context.Context) {
	s.dropFinished(ctx)
	if s.ttl <= 0 {
		return
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.attempts))
	for id := range s.attempts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	if len(ids) == 0 {
		return
	}

	pipe := s.client.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.WithError(err).Warn("attempt sweep skipped")
		return
	}
	for i, id := range ids {
		if checks[i].Val() > 0 {
			continue
		}
		if attempt := s.forget(id); attempt != nil {
			attempt.Abandon()
		}
	}
}

// Run sweeps the store every interval until ctx is done.
func (s *AttemptStore) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Len reports how many attempts are held locally.
func (s *AttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}

func (s *AttemptStore) dropFinished(ctx context.Context) {
	now := s.clock()
	var stale []string
	s.mu.Lock()
	for id, attempt := range s.attempts {
		if finishedAt, done := attempt.FinishedAt(); done && !finishedAt.Add(s.grace).After(now) {
			delete(s.attempts, id)
			stale = append(stale, s.key(id))
		}
	}
	s.mu.Unlock()
	if len(stale) == 0 {
		return
	}
	if err := s.client.Del(ctx, stale...).Err(); err != nil {
		log.WithError(err).WithField("count", len(stale)).Warn("finished attempt keys not removed")
	}
}

func (s *AttemptStore) forget(id string) *app.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt := s.attempts[id]
	delete(s.attempts, id)
	return attempt
}

func (s *AttemptStore) key(id string) string {
	return "quiz:attempt:" + id
}
