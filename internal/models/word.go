package models

import (
	"encoding/json"
	"time"
)

type Word struct {
	ID         int64           `json:"id"`
	Kanji      string          `json:"kanji"`
	Romaji     string          `json:"romaji"`
	Vietnamese string          `json:"vietnamese"`
	Parts      json.RawMessage `json:"parts"`
	JLPTLevel  string          `json:"jlpt_level"`
	Difficulty string          `json:"difficulty,omitempty"`
}

type Group struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	WordsCount  int     `json:"words_count"`
}

// ImportWord is one entry of a generated or uploaded vocabulary list.
type ImportWord struct {
	Kanji      string          `json:"kanji"`
	Romaji     string          `json:"romaji"`
	Vietnamese string          `json:"vietnamese"`
	JLPTLevel  string          `json:"jlpt_level"`
	Parts      json.RawMessage `json:"parts,omitempty"`
}

type ImportResult struct {
	GroupID      int64  `json:"group_id"`
	GroupName    string `json:"group_name"`
	CreatedWords int    `json:"created_words"`
	ReusedWords  int    `json:"reused_words"`
	Skipped      int    `json:"skipped"`
}

type WordProgress struct {
	WordID        int64      `json:"word_id"`
	Status        string     `json:"status"` // "new" | "learning" | "learned"
	LastStudiedAt *time.Time `json:"last_studied_at"`
}

// GenerateVocabularyRequest configures a vocabulary-import job.
type GenerateVocabularyRequest struct {
	Theme      string `json:"theme"`
	JLPTLevel  string `json:"jlpt_level"`
	Count      int    `json:"count"`
	SourcePath string `json:"source_path,omitempty"`
}
