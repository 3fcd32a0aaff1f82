package memory

import (
	"context"
	"testing"
	"time"

	"quizforge-service/internal/domain"
)

func TestCachedQuizStoreCaches(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{QuizStore: NewQuizStore()}
	id, _ := backing.Create(ctx, sampleQuiz(), "u1")
	repo := NewCachedQuizStore(backing, time.Minute)

	if _, err := repo.GetByID(ctx, id); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if backing.gets != 1 {
		t.Fatalf("expected backing store once, got %d", backing.gets)
	}

	if _, err := repo.GetByID(ctx, id); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if backing.gets != 1 {
		t.Fatalf("expected cache hit, backing calls %d", backing.gets)
	}
}

func TestCachedQuizStoreInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{QuizStore: NewQuizStore()}
	id, _ := backing.Create(ctx, sampleQuiz(), "u1")
	repo := NewCachedQuizStore(backing, time.Minute)

	_, _ = repo.GetByID(ctx, id)
	featured := true
	if err := repo.Update(ctx, id, domain.QuizPatch{Featured: &featured}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if !got.Featured || backing.gets != 2 {
		t.Fatalf("expected fresh read after update, featured=%v gets=%d", got.Featured, backing.gets)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, id); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

type countingStore struct {
	*QuizStore
	gets int
}

func (s *countingStore) GetByID(ctx context.Context, id string) (domain.Quiz, error) {
	s.gets++
	return s.QuizStore.GetByID(ctx, id)
}

func TestCachedQuizStoreSkipsStaleFill(t *testing.T) {
	ctx := context.Background()
	backing := &pausingStore{QuizStore: NewQuizStore(), entered: make(chan struct{}), release: make(chan struct{})}
	id, _ := backing.Create(ctx, sampleQuiz(), "u1")
	repo := NewCachedQuizStore(backing, time.Hour)

	backing.pause = true
	loaded := make(chan domain.Quiz, 1)
	go func() {
		quiz, _ := repo.GetByID(ctx, id)
		loaded <- quiz
	}()
	<-backing.entered
	backing.pause = false

	title := "Renamed"
	if err := repo.Update(ctx, id, domain.QuizPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	close(backing.release)
	if stale := <-loaded; stale.Title != "Arithmetic" {
		t.Fatalf("expected the in-flight load to see the old title, got %q", stale.Title)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("expected updated title after write, got %q", got.Title)
	}
}

// pausingStore holds a GetByID after reading until release is closed.
type pausingStore struct {
	*QuizStore
	pause   bool
	entered chan struct{}
	release chan struct{}
}

func (s *pausingStore) GetByID(ctx context.Context, id string) (domain.Quiz, error) {
	quiz, err := s.QuizStore.GetByID(ctx, id)
	if s.pause {
		s.entered <- struct{}{}
		<-s.release
	}
	return quiz, err
}
