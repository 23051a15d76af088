package database

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"zenstudy-backend/internal/models"
)

type activityCatalogue struct {
	Activities []models.StudyActivity `yaml:"activities"`
}

type activityUpserter interface {
	Upsert(ctx context.Context, a *models.StudyActivity) error
}

// LoadStudyActivities reads the activity catalogue from a YAML file.
func LoadStudyActivities(path string) ([]models.StudyActivity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity catalogue: %w", err)
	}
	defer f.Close()

	var cat activityCatalogue
	if err := yaml.NewDecoder(f).Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to decode activity catalogue: %w", err)
	}

	for i, a := range cat.Activities {
		if a.Slug == "" || a.Name == "" || a.URL == "" {
			return nil, fmt.Errorf("activity %d: slug, name and url are required", i)
		}
	}
	return cat.Activities, nil
}

// SeedStudyActivities upserts every catalogue entry by slug.
func SeedStudyActivities(ctx context.Context, repo activityUpserter, path string) (int, error) {
	activities, err := LoadStudyActivities(path)
	if err != nil {
		return 0, err
	}

	for i := range activities {
		if err := repo.Upsert(ctx, &activities[i]); err != nil {
			return i, fmt.Errorf("failed to seed activity %q: %w", activities[i].Slug, err)
		}
	}
	return len(activities), nil
}
