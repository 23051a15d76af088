package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zenstudy-backend/internal/models"
)

type WordRepo struct {
	pool *pgxpool.Pool
}

func NewWordRepo(pool *pgxpool.Pool) *WordRepo {
	return &WordRepo{pool: pool}
}

const wordColumns = `w.id, w.kanji, w.romaji, w.vietnamese, w.parts, COALESCE(j.level, ''), w.difficulty`

func scanWord(row pgx.Row) (models.Word, error) {
	var w models.Word
	err := row.Scan(&w.ID, &w.Kanji, &w.Romaji, &w.Vietnamese, &w.Parts, &w.JLPTLevel, &w.Difficulty)
	return w, err
}

// ListByGroup returns up to limit words of a group with their JLPT level.
func (r *WordRepo) ListByGroup(ctx context.Context, groupID int64, limit int) ([]models.Word, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+wordColumns+`
		FROM words w
		JOIN word_groups wg ON wg.word_id = w.id
		LEFT JOIN jlpt_levels j ON j.word_id = w.id
		WHERE wg.group_id = $1
		ORDER BY w.id
		LIMIT $2
	`, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("list words of group %d: %w", groupID, err)
	}
	defer rows.Close()

	words := []models.Word{}
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

func (r *WordRepo) GetByID(ctx context.Context, id int64) (*models.Word, error) {
	w, err := scanWord(r.pool.QueryRow(ctx, `
		SELECT `+wordColumns+`
		FROM words w
		LEFT JOIN jlpt_levels j ON j.word_id = w.id
		WHERE w.id = $1
	`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// ImportGroup creates or reuses the named group and links every word to it in
// one transaction. An existing word with the same kanji and JLPT level is
// reused instead of duplicated.
func (r *WordRepo) ImportGroup(ctx context.Context, name string, description *string, words []models.ImportWord) (*models.ImportResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	res := &models.ImportResult{GroupName: name}
	err = tx.QueryRow(ctx, `
		INSERT INTO groups (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = COALESCE(EXCLUDED.description, groups.description)
		RETURNING id
	`, name, description).Scan(&res.GroupID)
	if err != nil {
		return nil, fmt.Errorf("upsert group %q: %w", name, err)
	}

	for _, iw := range words {
		wordID, created, err := findOrCreateWord(ctx, tx, iw)
		if err != nil {
			return nil, err
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO word_groups (word_id, group_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, wordID, res.GroupID)
		if err != nil {
			return nil, fmt.Errorf("link word %d: %w", wordID, err)
		}

		switch {
		case created:
			res.CreatedWords++
		case tag.RowsAffected() == 0:
			res.Skipped++
		default:
			res.ReusedWords++
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE groups
		SET words_count = (SELECT COUNT(*) FROM word_groups WHERE group_id = $1)
		WHERE id = $1
	`, res.GroupID)
	if err != nil {
		return nil, fmt.Errorf("update words_count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return res, nil
}

func findOrCreateWord(ctx context.Context, tx pgx.Tx, iw models.ImportWord) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		SELECT w.id
		FROM words w
		JOIN jlpt_levels j ON j.word_id = w.id
		WHERE w.kanji = $1 AND j.level = $2
		ORDER BY w.id
		LIMIT 1
	`, iw.Kanji, iw.JLPTLevel).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("find word %q: %w", iw.Kanji, err)
	}

	parts := iw.Parts
	if len(parts) == 0 {
		parts = json.RawMessage("[]")
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO words (kanji, romaji, vietnamese, parts, difficulty)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, iw.Kanji, iw.Romaji, iw.Vietnamese, parts, difficultyForLevel(iw.JLPTLevel)).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("insert word %q: %w", iw.Kanji, err)
	}

	if _, err := tx.Exec(ctx, "INSERT INTO jlpt_levels (word_id, level) VALUES ($1, $2)", id, iw.JLPTLevel); err != nil {
		return 0, false, fmt.Errorf("insert level for %q: %w", iw.Kanji, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO word_progress (word_id, status) VALUES ($1, 'new') ON CONFLICT DO NOTHING", id); err != nil {
		return 0, false, fmt.Errorf("insert progress for %q: %w", iw.Kanji, err)
	}
	return id, true, nil
}

func difficultyForLevel(level string) string {
	switch level {
	case "N5", "N4":
		return "easy"
	case "N3":
		return "medium"
	default:
		return "hard"
	}
}
