package models

import "time"

// Question is one listening-comprehension item parsed from generated text.
type Question struct {
	ID            int      `json:"id"`
	Introduction  string   `json:"introduction"`
	Conversation  string   `json:"conversation"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *string  `json:"correctAnswer,omitempty"`
}

// Mondai groups the questions of one transcript section.
type Mondai struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	StartTime   string     `json:"startTime"`
	EndTime     string     `json:"endTime"`
}

type VideoData struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	VideoID        string    `json:"videoId"`
	Duration       string    `json:"duration"`
	Level          string    `json:"level"`
	Mondais        []Mondai  `json:"mondais"`
	TotalQuestions int       `json:"totalQuestions"`
	AnalyzedAt     time.Time `json:"analyzedAt"`
}

type AnalyzeRequest struct {
	YouTubeURL  string `json:"youtube_url"`
	SectionNums []int  `json:"section_nums,omitempty"`
}
