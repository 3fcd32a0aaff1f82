package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizforge-service/internal/domain"
)

// QuizStore keeps each quiz as a JSONB document in the quizzes table. Owner and
// timestamps are mirrored into columns for listing.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) Create(ctx context.Context, quiz domain.Quiz, ownerID string) (string, error) {
	stored := quiz.Clone()
	stored.ID = domain.NewID()
	stored.OwnerID = ownerID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.LastModified.IsZero() {
		stored.LastModified = stored.CreatedAt
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, owner_id, data, created_at, last_modified) VALUES ($1, $2, $3, $4, $5)`,
		stored.ID, ownerID, raw, stored.CreatedAt, stored.LastModified)
	if err != nil {
		return "", unavailable("insert quiz", err)
	}
	return stored.ID, nil
}

func (s *QuizStore) GetByID(ctx context.Context, id string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, unavailable("load quiz", err)
	}
	return decode(id, raw)
}

func (s *QuizStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM quizzes WHERE owner_id=$1 ORDER BY last_modified DESC`, ownerID)
	if err != nil {
		return nil, unavailable("list quizzes", err)
	}
	defer rows.Close()

	out := make([]domain.Quiz, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, unavailable("scan quiz", err)
		}
		quiz, err := decode(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list quizzes", err)
	}
	return out, nil
}

// Update merges patch into the stored document inside a transaction holding the row lock.
func (s *QuizStore) Update(ctx context.Context, id string, patch domain.QuizPatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1 FOR UPDATE`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		return unavailable("lock quiz", err)
	}
	quiz, err := decode(id, raw)
	if err != nil {
		return err
	}
	if patch.LastModified.IsZero() {
		patch.LastModified = time.Now().UTC()
	}
	patch.Apply(&quiz)

	updated, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE quizzes SET data=$2, last_modified=$3 WHERE id=$1`,
		id, updated, quiz.LastModified); err != nil {
		return unavailable("update quiz", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit quiz", err)
	}
	return nil
}

func (s *QuizStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return unavailable("delete quiz", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func decode(id string, raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz %s: %w", id, err)
	}
	quiz.ID = id
	return quiz, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}
