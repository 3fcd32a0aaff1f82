package memory

import (
	"context"
	"sync"
	"time"

	"quizforge-service/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizStore.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	clock   func() time.Time
}

func NewQuizStore() *QuizStore {
	return NewQuizStoreWithClock(time.Now)
}

// NewQuizStoreWithClock allows deterministic timestamps in tests.
func NewQuizStoreWithClock(clock func() time.Time) *QuizStore {
	return &QuizStore{
		quizzes: make(map[string]domain.Quiz),
		clock:   clock,
	}
}

func (s *QuizStore) Create(_ context.Context, quiz domain.Quiz, ownerID string) (string, error) {
	stored := quiz.Clone()
	stored.ID = domain.NewID()
	stored.OwnerID = ownerID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock()
	}
	if stored.LastModified.IsZero() {
		stored.LastModified = stored.CreatedAt
	}

	s.mu.Lock()
	s.quizzes[stored.ID] = stored
	s.mu.Unlock()
	return stored.ID, nil
}

func (s *QuizStore) GetByID(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz.Clone(), nil
}

func (s *QuizStore) ListByOwner(_ context.Context, ownerID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, quiz := range s.quizzes {
		if quiz.OwnerID == ownerID {
			out = append(out, quiz.Clone())
		}
	}
	return out, nil
}

func (s *QuizStore) Update(_ context.Context, id string, patch domain.QuizPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.ErrQuizNotFound
	}
	if patch.LastModified.IsZero() {
		patch.LastModified = s.clock()
	}
	patch.Apply(&quiz)
	s.quizzes[id] = quiz
	return nil
}

func (s *QuizStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	return nil
}
