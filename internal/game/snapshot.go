package game

import (
	"encoding/json"
	"fmt"
	"math"
)

// Snapshot is the full persisted state of one play-through.
type Snapshot struct {
	CurrentIndex    int    `json:"currentIndex"`
	Words           []Word `json:"words"`
	Score           int    `json:"score"`
	CorrectAnswers  int    `json:"correctAnswers"`
	TotalAnswered   int    `json:"totalAnswered"`
	GameCompleted   bool   `json:"gameCompleted"`
	GroupID         int64  `json:"groupId"`
	StudyActivityID *int64 `json:"studyActivityId,omitempty"`
	IsFlipped       *bool  `json:"isFlipped,omitempty"`
	ScrambledWord   string `json:"scrambledWord,omitempty"`
}

type Summary struct {
	Score          int `json:"score"`
	CorrectAnswers int `json:"correctAnswers"`
	TotalWords     int `json:"totalWords"`
	Percentage     int `json:"percentage"`
}

// Params identifies one play-through.
type Params struct {
	Activity        Activity
	GroupID         int64
	SessionID       *int64
	StudyActivityID *int64
}

func (p Params) Validate() error {
	if p.Activity != Flashcard && p.Activity != Scramble {
		return fmt.Errorf("%w: activity %q", ErrInvalidParams, p.Activity)
	}
	if p.GroupID <= 0 {
		return fmt.Errorf("%w: group id must be positive", ErrInvalidParams)
	}
	if p.SessionID != nil && *p.SessionID <= 0 {
		return fmt.Errorf("%w: session id must be positive", ErrInvalidParams)
	}
	return nil
}

func (p Params) Key() string {
	return Key(p.Activity, p.GroupID, p.SessionID)
}

// Key returns "{activity}-progress-{scope}-{id}". A session id takes
// precedence over the group id.
func Key(a Activity, groupID int64, sessionID *int64) string {
	if sessionID != nil {
		return fmt.Sprintf("%s-progress-session-%d", a, *sessionID)
	}
	return fmt.Sprintf("%s-progress-group-%d", a, groupID)
}

func (s Snapshot) Summary() Summary {
	total := len(s.Words)
	pct := 0
	if total > 0 {
		pct = int(math.Round(100 * float64(s.CorrectAnswers) / float64(total)))
	}
	return Summary{
		Score:          s.Score,
		CorrectAnswers: s.CorrectAnswers,
		TotalWords:     total,
		Percentage:     pct,
	}
}

// Validate checks the invariants a restorable snapshot must hold.
func (s Snapshot) Validate() error {
	n := len(s.Words)
	switch {
	case n == 0:
		return fmt.Errorf("%w: no words", ErrCorruptSnapshot)
	case s.CurrentIndex < 0 || s.CurrentIndex > n:
		return fmt.Errorf("%w: index %d out of range", ErrCorruptSnapshot, s.CurrentIndex)
	case s.Score < 0 || s.CorrectAnswers < 0 || s.TotalAnswered < 0:
		return fmt.Errorf("%w: negative counter", ErrCorruptSnapshot)
	case s.CorrectAnswers > s.TotalAnswered || s.TotalAnswered > n:
		return fmt.Errorf("%w: counters exceed words", ErrCorruptSnapshot)
	case s.GameCompleted != (s.TotalAnswered == n):
		return fmt.Errorf("%w: completion flag disagrees with counters", ErrCorruptSnapshot)
	}

	if s.GameCompleted {
		if s.CurrentIndex < n-1 {
			return fmt.Errorf("%w: completed before last word", ErrCorruptSnapshot)
		}
		return nil
	}

	if s.CurrentIndex == n {
		return fmt.Errorf("%w: index past last word", ErrCorruptSnapshot)
	}
	if s.TotalAnswered != s.CurrentIndex && s.TotalAnswered != s.CurrentIndex+1 {
		return fmt.Errorf("%w: answered %d at index %d", ErrCorruptSnapshot, s.TotalAnswered, s.CurrentIndex)
	}
	return nil
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Words = append([]Word(nil), s.Words...)
	if s.StudyActivityID != nil {
		id := *s.StudyActivityID
		c.StudyActivityID = &id
	}
	if s.IsFlipped != nil {
		f := *s.IsFlipped
		c.IsFlipped = &f
	}
	return c
}
