package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"zenstudy-backend/internal/models"
)

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	query := `
		INSERT INTO study_sessions (group_id, study_activity_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query, s.GroupID, s.StudyActivityID).Scan(&s.ID, &s.CreatedAt)
}

func (r *StudySessionRepo) GetByID(ctx context.Context, id int64) (*models.StudySession, error) {
	s := &models.StudySession{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, group_id, study_activity_id, created_at
		FROM study_sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.GroupID, &s.StudyActivityID, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// ReviewStats counts the graded words recorded against a session.
func (r *StudySessionRepo) ReviewStats(ctx context.Context, id int64) (total, correct int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE correct)
		FROM word_review_items
		WHERE study_session_id = $1
	`, id).Scan(&total, &correct)
	return total, correct, err
}
