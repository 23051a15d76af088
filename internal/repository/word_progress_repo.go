package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"zenstudy-backend/internal/models"
)

type WordProgressRepo struct {
	pool *pgxpool.Pool
}

func NewWordProgressRepo(pool *pgxpool.Pool) *WordProgressRepo {
	return &WordProgressRepo{pool: pool}
}

// RecordWordOutcome marks the word learned or learning and, inside a study
// session, appends a review item.
func (r *WordProgressRepo) RecordWordOutcome(ctx context.Context, wordID int64, correct bool, sessionID *int64) error {
	status := "learning"
	if correct {
		status = "learned"
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO word_progress (word_id, status, last_studied_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (word_id) DO UPDATE SET status = EXCLUDED.status, last_studied_at = NOW()
	`, wordID, status)
	if err != nil {
		return fmt.Errorf("upsert progress for word %d: %w", wordID, err)
	}

	if sessionID != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO word_review_items (study_session_id, word_id, correct)
			VALUES ($1, $2, $3)
		`, *sessionID, wordID, correct)
		if err != nil {
			return fmt.Errorf("insert review item for word %d: %w", wordID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *WordProgressRepo) Get(ctx context.Context, wordID int64) (*models.WordProgress, error) {
	p := &models.WordProgress{}
	err := r.pool.QueryRow(ctx, `
		SELECT word_id, status, last_studied_at FROM word_progress WHERE word_id = $1
	`, wordID).Scan(&p.WordID, &p.Status, &p.LastStudiedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}
