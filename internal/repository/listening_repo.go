package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zenstudy-backend/internal/models"
)

type ListeningRepo struct {
	pool *pgxpool.Pool
}

func NewListeningRepo(pool *pgxpool.Pool) *ListeningRepo {
	return &ListeningRepo{pool: pool}
}

// Save replaces any stored analysis of the video.
func (r *ListeningRepo) Save(ctx context.Context, v *models.VideoData) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM listening_videos WHERE video_id = $1", v.VideoID); err != nil {
		return fmt.Errorf("clear video %s: %w", v.VideoID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO listening_videos (video_id, title, url, duration, level, total_questions, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, v.VideoID, v.Title, v.URL, v.Duration, v.Level, v.TotalQuestions, v.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("insert video %s: %w", v.VideoID, err)
	}

	for _, m := range v.Mondais {
		_, err := tx.Exec(ctx, `
			INSERT INTO listening_mondais (video_id, mondai_id, title, description, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, v.VideoID, m.ID, m.Title, m.Description, m.StartTime, m.EndTime)
		if err != nil {
			return fmt.Errorf("insert mondai %d: %w", m.ID, err)
		}
		for _, q := range m.Questions {
			if err := upsertQuestion(ctx, tx, v.VideoID, m.ID, q); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *ListeningRepo) GetByVideoID(ctx context.Context, videoID string) (*models.VideoData, error) {
	v := &models.VideoData{}
	err := r.pool.QueryRow(ctx, `
		SELECT video_id, title, url, duration, level, total_questions, analyzed_at
		FROM listening_videos WHERE video_id = $1
	`, videoID).Scan(&v.VideoID, &v.Title, &v.URL, &v.Duration, &v.Level, &v.TotalQuestions, &v.AnalyzedAt)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT mondai_id, title, description, start_time, end_time
		FROM listening_mondais WHERE video_id = $1 ORDER BY mondai_id
	`, videoID)
	if err != nil {
		return nil, err
	}
	v.Mondais = []models.Mondai{}
	index := map[int]int{}
	for rows.Next() {
		m := models.Mondai{Questions: []models.Question{}}
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.StartTime, &m.EndTime); err != nil {
			rows.Close()
			return nil, err
		}
		index[m.ID] = len(v.Mondais)
		v.Mondais = append(v.Mondais, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qrows, err := r.pool.Query(ctx, `
		SELECT mondai_id, question_id, introduction, conversation, question, options, correct_answer
		FROM listening_questions WHERE video_id = $1 ORDER BY mondai_id, question_id
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer qrows.Close()

	for qrows.Next() {
		var (
			mondaiID int
			q        models.Question
			options  []byte
		)
		if err := qrows.Scan(&mondaiID, &q.ID, &q.Introduction, &q.Conversation, &q.Question, &options, &q.CorrectAnswer); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %d: %w", q.ID, err)
		}
		if i, ok := index[mondaiID]; ok {
			v.Mondais[i].Questions = append(v.Mondais[i].Questions, q)
		}
	}
	return v, qrows.Err()
}

// ReplaceQuestion overwrites one stored question, keeping its id.
func (r *ListeningRepo) ReplaceQuestion(ctx context.Context, videoID string, mondaiID int, q models.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM listening_questions WHERE video_id = $1 AND mondai_id = $2 AND question_id = $3)
	`, videoID, mondaiID, q.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if err := upsertQuestion(ctx, tx, videoID, mondaiID, q); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func upsertQuestion(ctx context.Context, tx pgx.Tx, videoID string, mondaiID int, q models.Question) error {
	options := q.Options
	if options == nil {
		options = []string{}
	}
	optionBytes, err := json.Marshal(options)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO listening_questions (video_id, mondai_id, question_id, introduction, conversation, question, options, correct_answer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (video_id, mondai_id, question_id) DO UPDATE SET
			introduction = EXCLUDED.introduction,
			conversation = EXCLUDED.conversation,
			question = EXCLUDED.question,
			options = EXCLUDED.options,
			correct_answer = EXCLUDED.correct_answer
	`, videoID, mondaiID, q.ID, q.Introduction, q.Conversation, q.Question, optionBytes, q.CorrectAnswer)
	if err != nil {
		return fmt.Errorf("upsert question %d of mondai %d: %w", q.ID, mondaiID, err)
	}
	return nil
}
