package redis

import (
	"context"
	"testing"
	"time"

	"quizforge-service/internal/app"
)

func TestAttemptStoreSetsAndClearsKeys(t *testing.T) {
	mr := startRedis(t)
	store := NewAttemptStore(newClient(mr), time.Minute)

	attempt := app.NewAttempt(sampleQuiz())
	store.Add(attempt)
	key := "quiz:attempt:" + attempt.ID()
	if !mr.Exists(key) {
		t.Fatalf("expected redis key to be set")
	}

	if got, ok := store.Get(attempt.ID()); !ok || got != attempt {
		t.Fatalf("expected attempt lookup to succeed")
	}

	store.Remove(attempt.ID())
	if mr.Exists(key) {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get(attempt.ID()); ok {
		t.Fatalf("expected removed attempt to be gone")
	}
}

func TestAttemptStoreAbandonsExpired(t *testing.T) {
	mr := startRedis(t)
	store := NewAttemptStore(newClient(mr), time.Minute)

	attempt := app.NewAttempt(sampleQuiz())
	if err := attempt.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	store.Add(attempt)

	// A lookup slides the expiry forward.
	mr.FastForward(45 * time.Second)
	if _, ok := store.Get(attempt.ID()); !ok {
		t.Fatalf("expected attempt alive")
	}
	mr.FastForward(45 * time.Second)
	if _, ok := store.Get(attempt.ID()); !ok {
		t.Fatalf("expected attempt alive after sliding ttl")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := store.Get(attempt.ID()); ok {
		t.Fatalf("expected expired attempt to be gone")
	}
	if attempt.State() != app.AttemptAbandoned {
		t.Fatalf("expected abandoned, got %s", attempt.State())
	}
}

func TestAttemptStoreDropsFinishedAttempts(t *testing.T) {
	mr := startRedis(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := NewAttemptStoreWithClock(newClient(mr), time.Hour, clock)

	finished := app.NewAttempt(sampleQuiz(), app.WithAttemptClock(clock))
	_ = finished.Start(context.Background())
	_ = finished.SelectAnswer("q1", "4")
	_ = finished.Next()
	if finished.State() != app.AttemptCompleted {
		t.Fatalf("expected completed, got %s", finished.State())
	}
	store.Add(finished)

	now = now.Add(24 * time.Hour)
	store.Add(app.NewAttempt(sampleQuiz()))
	if store.Len() != 1 {
		t.Fatalf("expected finished attempt dropped, got %d", store.Len())
	}
	if mr.Exists("quiz:attempt:" + finished.ID()) {
		t.Fatalf("expected liveness key of finished attempt removed")
	}
}

func TestAttemptStoreSweepAbandonsExpired(t *testing.T) {
	mr := startRedis(t)
	store := NewAttemptStore(newClient(mr), time.Minute)

	attempt := app.NewAttempt(sampleQuiz())
	_ = attempt.Start(context.Background())
	store.Add(attempt)

	store.Sweep(context.Background())
	if store.Len() != 1 {
		t.Fatalf("expected live attempt kept, got %d", store.Len())
	}

	mr.FastForward(2 * time.Minute)
	store.Sweep(context.Background())
	if store.Len() != 0 {
		t.Fatalf("expected expired attempt swept, got %d", store.Len())
	}
	if attempt.State() != app.AttemptAbandoned {
		t.Fatalf("expected abandoned, got %s", attempt.State())
	}
}
