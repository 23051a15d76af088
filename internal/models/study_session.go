package models

import "time"

type StudyActivity struct {
	ID              int64   `json:"id" yaml:"-"`
	Name            string  `json:"name" yaml:"name"`
	Slug            string  `json:"slug" yaml:"slug"`
	URL             string  `json:"url" yaml:"url"`
	PreviewURL      *string `json:"preview_url" yaml:"preview_url"`
	Description     *string `json:"description" yaml:"description"`
	AverageDuration *int    `json:"average_duration" yaml:"average_duration"`
}

type StudySession struct {
	ID              int64     `json:"id"`
	GroupID         int64     `json:"group_id"`
	StudyActivityID int64     `json:"study_activity_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateStudySessionRequest struct {
	GroupID         int64 `json:"group_id"`
	StudyActivityID int64 `json:"study_activity_id"`
}
