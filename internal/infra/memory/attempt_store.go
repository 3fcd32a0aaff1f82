package memory

import (
	"context"
	"sync"
	"time"

	"quizforge-service/internal/app"
)

// DefaultFinishedGrace is how long a finished attempt stays readable when the store has no ttl.
const DefaultFinishedGrace = 5 * time.Minute

// AttemptStore is an in-memory implementation of app.AttemptRegistry. Entries expire
// ttl after their last lookup; expired unfinished attempts are abandoned. Finished attempts
// are dropped once their grace period has passed, on the next Add or Sweep.
type AttemptStore struct {
	ttl   time.Duration
	grace time.Duration
	clock func() time.Time

	mu       sync.Mutex
	attempts map[string]attemptEntry
}

type attemptEntry struct {
	attempt   *app.Attempt
	expiresAt time.Time
}

func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return NewAttemptStoreWithClock(ttl, time.Now)
}

// NewAttemptStoreWithClock allows deterministic expiry in tests.
func NewAttemptStoreWithClock(ttl time.Duration, clock func() time.Time) *AttemptStore {
	grace := ttl
	if grace <= 0 {
		grace = DefaultFinishedGrace
	}
	return &AttemptStore{
		ttl:      ttl,
		grace:    grace,
		clock:    clock,
		attempts: make(map[string]attemptEntry),
	}
}

func (s *AttemptStore) Add(attempt *app.Attempt) {
	s.mu.Lock()
	expired := s.pruneLocked(s.clock())
	s.attempts[attempt.ID()] = attemptEntry{attempt: attempt, expiresAt: s.deadline()}
	s.mu.Unlock()
	abandonAll(expired)
}

func (s *AttemptStore) Get(id string) (*app.Attempt, bool) {
	s.mu.Lock()
	entry, ok := s.attempts[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if s.ttl > 0 && !entry.expiresAt.After(s.clock()) {
		delete(s.attempts, id)
		s.mu.Unlock()
		entry.attempt.Abandon()
		return nil, false
	}
	entry.expiresAt = s.deadline()
	s.attempts[id] = entry
	s.mu.Unlock()
	return entry.attempt, true
}

func (s *AttemptStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, id)
}

// Sweep drops expired attempts and finished ones past their grace period.
func (s *AttemptStore) Sweep() {
	s.mu.Lock()
	expired := s.pruneLocked(s.clock())
	s.mu.Unlock()
	abandonAll(expired)
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
			s.Sweep()
		}
	}
}

// Len reports how many attempts are tracked, expired ones included.
func (s *AttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

// pruneLocked removes stale entries and returns the unfinished ones that expired; the
// caller abandons them after releasing the lock.
func (s *AttemptStore) pruneLocked(now time.Time) []*app.Attempt {
	var expired []*app.Attempt
	for id, entry := range s.attempts {
		if finishedAt, done := entry.attempt.FinishedAt(); done {
			if !finishedAt.Add(s.grace).After(now) {
				delete(s.attempts, id)
			}
			continue
		}
		if s.ttl > 0 && !entry.expiresAt.After(now) {
			delete(s.attempts, id)
			expired = append(expired, entry.attempt)
		}
	}
	return expired
}

func (s *AttemptStore) deadline() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.clock().Add(s.ttl)
}

func abandonAll(attempts []*app.Attempt) {
	for _, attempt := range attempts {
		attempt.Abandon()
	}
}
