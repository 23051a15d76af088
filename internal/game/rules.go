package game

import (
	"fmt"
	"strings"
	"time"
)

type Activity string

const (
	Flashcard Activity = "flashcard"
	Scramble  Activity = "scramble"
)

func ParseActivity(s string) (Activity, error) {
	switch Activity(strings.ToLower(strings.TrimSpace(s))) {
	case Flashcard:
		return Flashcard, nil
	case Scramble:
		return Scramble, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownActivity, s)
	}
}

// Word is the game's view of a vocabulary entry.
type Word struct {
	ID         int64  `json:"id"`
	Japanese   string `json:"japanese"`
	Romaji     string `json:"romaji"`
	Meaning    string `json:"meaning"`
	JLPTLevel  string `json:"jlpt_level,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Rules holds the per-activity scoring and pool filtering.
type Rules struct {
	Points       func(Word) int
	Accept       func(Word) bool
	Normalize    func(Word) Word
	AdvanceDelay time.Duration
}

func DefaultRules(a Activity) Rules {
	switch a {
	case Scramble:
		return Rules{
			Points:       ScramblePoints,
			Accept:       hasRomajiAndMeaning,
			Normalize:    normalizeScrambleWord,
			AdvanceDelay: 1500 * time.Millisecond,
		}
	default:
		return Rules{
			Points:       FlashcardPoints,
			AdvanceDelay: 500 * time.Millisecond,
		}
	}
}

var jlptPoints = map[string]int{
	"N5": 10,
	"N4": 15,
	"N3": 20,
	"N2": 25,
	"N1": 30,
}

// FlashcardPoints scores by JLPT level; unknown levels score as N5.
func FlashcardPoints(w Word) int {
	if p, ok := jlptPoints[strings.ToUpper(strings.TrimSpace(w.JLPTLevel))]; ok {
		return p
	}
	return 10
}

func ScramblePoints(w Word) int {
	switch w.Difficulty {
	case "easy":
		return 10
	case "medium":
		return 20
	default:
		return 30
	}
}

func hasRomajiAndMeaning(w Word) bool {
	return strings.TrimSpace(w.Romaji) != "" && strings.TrimSpace(w.Meaning) != ""
}

func normalizeScrambleWord(w Word) Word {
	w.Romaji = strings.TrimSpace(w.Romaji)
	w.Difficulty = strings.ToLower(strings.TrimSpace(w.Difficulty))
	if w.Difficulty == "" {
		w.Difficulty = "easy"
	}
	return w
}
