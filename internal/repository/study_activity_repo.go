package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"zenstudy-backend/internal/models"
)

type StudyActivityRepo struct {
	pool *pgxpool.Pool
}

func NewStudyActivityRepo(pool *pgxpool.Pool) *StudyActivityRepo {
	return &StudyActivityRepo{pool: pool}
}

func (r *StudyActivityRepo) List(ctx context.Context) ([]models.StudyActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, slug, url, preview_url, description, average_duration
		FROM study_activities
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []models.StudyActivity{}
	for rows.Next() {
		var a models.StudyActivity
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug, &a.URL, &a.PreviewURL, &a.Description, &a.AverageDuration); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (r *StudyActivityRepo) GetByID(ctx context.Context, id int64) (*models.StudyActivity, error) {
	a := &models.StudyActivity{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, url, preview_url, description, average_duration
		FROM study_activities
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Slug, &a.URL, &a.PreviewURL, &a.Description, &a.AverageDuration)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// Upsert inserts the activity or refreshes it by slug.
func (r *StudyActivityRepo) Upsert(ctx context.Context, a *models.StudyActivity) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO study_activities (slug, name, url, preview_url, description, average_duration)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			preview_url = EXCLUDED.preview_url,
			description = EXCLUDED.description,
			average_duration = EXCLUDED.average_duration
		RETURNING id
	`, a.Slug, a.Name, a.URL, a.PreviewURL, a.Description, a.AverageDuration).Scan(&a.ID)
}
