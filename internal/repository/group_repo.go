package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"zenstudy-backend/internal/models"
)

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

func (r *GroupRepo) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	g := &models.Group{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, words_count FROM groups WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &g.Description, &g.WordsCount)
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}
