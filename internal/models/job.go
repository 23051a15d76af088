package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobListeningAnalysis = "listening-analysis"
	JobVocabularyImport  = "vocabulary-import"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	ClientID     string          `json:"client_id"`
	Type         string          `json:"type"` // "listening-analysis" | "vocabulary-import"
	ReferenceID  string          `json:"reference_id"`
	ConfigJSON   json.RawMessage `json:"config"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ErrorMessage *string         `json:"error_message"`
	ResultJSON   json.RawMessage `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID                     uuid.UUID `json:"job_id"`
	Step                      int       `json:"step"`
	StepName                  string    `json:"step_name"`
	EstimatedSecondsRemaining int       `json:"estimated_seconds_remaining"`
}

type CompletedEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	ResultID   string    `json:"result_id"`
	ResultType string    `json:"result_type"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

type GameCompletedEvent struct {
	Key            string `json:"key"`
	Activity       string `json:"activity"`
	GroupID        int64  `json:"group_id"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalWords     int    `json:"total_words"`
	Percentage     int    `json:"percentage"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
