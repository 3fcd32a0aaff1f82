package app

import (
	"context"

	"quizforge-service/internal/domain"
)

// QuizStore abstracts the quiz document database (in-memory, Postgres, MongoDB, cached).
// Unknown ids yield domain.ErrQuizNotFound; transport failures wrap domain.ErrStoreUnavailable.
type QuizStore interface {
	Create(ctx context.Context, quiz domain.Quiz, ownerID string) (string, error)
	GetByID(ctx context.Context, id string) (domain.Quiz, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error)
	Update(ctx context.Context, id string, patch domain.QuizPatch) error
	Delete(ctx context.Context, id string) error
}

// AttemptRegistry keeps live attempts addressable by id (in-memory, Redis-marked, etc).
type AttemptRegistry interface {
	Add(attempt *Attempt)
	Get(id string) (*Attempt, bool)
	Remove(id string)
}

// TemplateSource turns a catalog template into a draft quiz.
type TemplateSource interface {
	Instantiate(id int) (domain.Quiz, error)
}
