package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zenstudy-backend/internal/models"
)

type recordingUpserter struct {
	seen []string
	fail string
}

func (r *recordingUpserter) Upsert(_ context.Context, a *models.StudyActivity) error {
	if a.Slug == r.fail {
		return errors.New("insert failed")
	}
	a.ID = int64(len(r.seen) + 1)
	r.seen = append(r.seen, a.Slug)
	return nil
}

func writeCatalogue(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadStudyActivities(t *testing.T) {
	path := writeCatalogue(t, `
activities:
  - slug: flashcard
    name: Flashcards
    url: /study_activities/flashcard/launch
    average_duration: 10
  - slug: scramble
    name: Word Scramble
    url: /study_activities/scramble/launch
    description: Unscramble it.
`)

	got, err := LoadStudyActivities(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "flashcard", got[0].Slug)
	require.NotNil(t, got[0].AverageDuration)
	require.Equal(t, 10, *got[0].AverageDuration)
	require.Nil(t, got[0].Description)
	require.Equal(t, "Unscramble it.", *got[1].Description)
}

func TestLoadStudyActivities_Invalid(t *testing.T) {
	_, err := LoadStudyActivities(writeCatalogue(t, "activities:\n  - name: Missing slug\n    url: /x\n"))
	require.Error(t, err)

	_, err = LoadStudyActivities(writeCatalogue(t, "activities: [unterminated"))
	require.Error(t, err)

	_, err = LoadStudyActivities(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSeedStudyActivities(t *testing.T) {
	path := writeCatalogue(t, `
activities:
  - {slug: flashcard, name: Flashcards, url: /a}
  - {slug: scramble, name: Scramble, url: /b}
  - {slug: listening, name: Listening, url: /c}
`)

	repo := &recordingUpserter{}
	n, err := SeedStudyActivities(context.Background(), repo, path)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []string{"flashcard", "scramble", "listening"}, repo.seen)

	repo = &recordingUpserter{fail: "scramble"}
	n, err = SeedStudyActivities(context.Background(), repo, path)
	require.Error(t, err)
	require.Equal(t, 1, n)
}

func TestSeedCatalogueShipsWithRepo(t *testing.T) {
	got, err := LoadStudyActivities(filepath.Join("..", "..", "seeds", "study_activities.yaml"))
	require.NoError(t, err)

	slugs := make([]string, 0, len(got))
	for _, a := range got {
		slugs = append(slugs, a.Slug)
	}
	require.ElementsMatch(t, []string{"flashcard", "scramble", "listening"}, slugs)
}
