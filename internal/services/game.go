package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"zenstudy-backend/internal/game"
	"zenstudy-backend/internal/models"
	"zenstudy-backend/internal/repository"
)

type GroupWords interface {
	ListByGroup(ctx context.Context, groupID int64, limit int) ([]models.Word, error)
}

type SessionLookup interface {
	GetByID(ctx context.Context, id int64) (*models.StudySession, error)
}

// WordSupply feeds a group's vocabulary to the games.
type WordSupply struct {
	words GroupWords
	limit int
}

func NewWordSupply(words GroupWords, limit int) *WordSupply {
	return &WordSupply{words: words, limit: limit}
}

func (s *WordSupply) FetchGroupWords(ctx context.Context, groupID int64) ([]game.Word, error) {
	rows, err := s.words.ListByGroup(ctx, groupID, s.limit)
	if err != nil {
		return nil, err
	}

	out := make([]game.Word, 0, len(rows))
	for _, w := range rows {
		out = append(out, game.Word{
			ID:         w.ID,
			Japanese:   w.Kanji,
			Romaji:     w.Romaji,
			Meaning:    w.Vietnamese,
			JLPTLevel:  w.JLPTLevel,
			Difficulty: w.Difficulty,
		})
	}
	return out, nil
}

type GameServiceConfig struct {
	WordCap       int
	SinkTimeout   time.Duration
	FlashcardWait time.Duration
	ScrambleWait  time.Duration
}

// GameRequest addresses one play-through. GroupID may be left zero when a
// study session names the group.
type GameRequest struct {
	Activity        string
	GroupID         int64
	SessionID       *int64
	StudyActivityID *int64
	ClientID        string
}

type GameService struct {
	games    *game.Manager
	sessions SessionLookup
	notify   Publisher
	log      *zap.Logger

	clients sync.Map // game key -> client id
}

func NewGameService(
	supply game.WordSupply,
	sink game.ProgressSink,
	store game.Store,
	sessions SessionLookup,
	notify Publisher,
	cfg GameServiceConfig,
	log *zap.Logger,
) *GameService {
	s := &GameService{
		sessions: sessions,
		notify:   notify,
		log:      log.Named("game"),
	}

	flashcard := game.DefaultRules(game.Flashcard)
	scramble := game.DefaultRules(game.Scramble)
	if cfg.FlashcardWait > 0 {
		flashcard.AdvanceDelay = cfg.FlashcardWait
	}
	if cfg.ScrambleWait > 0 {
		scramble.AdvanceDelay = cfg.ScrambleWait
	}

	s.games = game.NewManager(game.ManagerConfig{
		Words:       supply,
		Sink:        sink,
		Store:       store,
		Logger:      s.log,
		WordCap:     cfg.WordCap,
		SinkTimeout: cfg.SinkTimeout,
		Rules: map[game.Activity]game.Rules{
			game.Flashcard: flashcard,
			game.Scramble:  scramble,
		},
		OnCompleted: s.completed,
	})
	return s
}

func (s *GameService) params(ctx context.Context, req GameRequest) (game.Params, error) {
	activity, err := game.ParseActivity(req.Activity)
	if err != nil {
		return game.Params{}, invalid("activity", "must be flashcard or scramble")
	}

	p := game.Params{
		Activity:        activity,
		GroupID:         req.GroupID,
		SessionID:       req.SessionID,
		StudyActivityID: req.StudyActivityID,
	}

	if req.SessionID != nil {
		if *req.SessionID <= 0 {
			return game.Params{}, invalid("session_id", "must be positive")
		}
		sess, err := s.sessions.GetByID(ctx, *req.SessionID)
		if errors.Is(err, repository.ErrNotFound) {
			return game.Params{}, &NotFoundError{Message: "study session not found"}
		}
		if err != nil {
			return game.Params{}, fmt.Errorf("load study session: %w", err)
		}
		if p.GroupID == 0 {
			p.GroupID = sess.GroupID
		} else if p.GroupID != sess.GroupID {
			return game.Params{}, invalid("group_id", "does not match the study session")
		}
		if p.StudyActivityID == nil {
			id := sess.StudyActivityID
			p.StudyActivityID = &id
		}
	}

	if p.GroupID <= 0 {
		return game.Params{}, invalid("group_id", "group id is required")
	}
	return p, nil
}

func (s *GameService) open(ctx context.Context, req GameRequest) (*game.Game, game.View, error) {
	p, err := s.params(ctx, req)
	if err != nil {
		return nil, game.View{}, err
	}
	if req.ClientID != "" {
		s.clients.Store(p.Key(), req.ClientID)
	}

	g, v, err := s.games.Open(ctx, p)
	if err != nil {
		return nil, v, gameError(err)
	}
	return g, v, nil
}

// Start restores or begins the play-through and returns its view.
func (s *GameService) Start(ctx context.Context, req GameRequest) (game.View, error) {
	_, v, err := s.open(ctx, req)
	return v, err
}

func (s *GameService) Reveal(ctx context.Context, req GameRequest) (game.View, error) {
	g, _, err := s.open(ctx, req)
	if err != nil {
		return game.View{}, err
	}
	v, err := g.Reveal(ctx)
	return v, gameError(err)
}

func (s *GameService) Grade(ctx context.Context, req GameRequest, correct bool) (game.Outcome, error) {
	g, _, err := s.open(ctx, req)
	if err != nil {
		return game.Outcome{}, err
	}
	out, err := g.Grade(ctx, correct)
	return out, gameError(err)
}

func (s *GameService) Guess(ctx context.Context, req GameRequest, guess string) (game.Outcome, error) {
	g, _, err := s.open(ctx, req)
	if err != nil {
		return game.Outcome{}, err
	}
	out, err := g.SubmitGuess(ctx, guess)
	return out, gameError(err)
}

func (s *GameService) Rescramble(ctx context.Context, req GameRequest) (game.View, error) {
	g, _, err := s.open(ctx, req)
	if err != nil {
		return game.View{}, err
	}
	v, err := g.Rescramble(ctx)
	return v, gameError(err)
}

// Next skips the delay after a graded word.
func (s *GameService) Next(ctx context.Context, req GameRequest) (game.View, error) {
	g, _, err := s.open(ctx, req)
	if err != nil {
		return game.View{}, err
	}
	v, err := g.Advance(ctx)
	return v, gameError(err)
}

func (s *GameService) Restart(ctx context.Context, req GameRequest) (game.View, error) {
	p, err := s.params(ctx, req)
	if err != nil {
		return game.View{}, err
	}
	if req.ClientID != "" {
		s.clients.Store(p.Key(), req.ClientID)
	}
	_, v, err := s.games.Restart(ctx, p)
	return v, gameError(err)
}

func (s *GameService) Summary(ctx context.Context, req GameRequest) (game.Summary, error) {
	g, _, err := s.open(ctx, req)
	if err != nil {
		return game.Summary{}, err
	}
	sum, err := g.Summary()
	return sum, gameError(err)
}

func (s *GameService) completed(p game.Params, sum game.Summary) {
	s.log.Info("game completed",
		zap.String("key", p.Key()),
		zap.Int("score", sum.Score),
		zap.Int("correct", sum.CorrectAnswers),
		zap.Int("total", sum.TotalWords))

	v, ok := s.clients.Load(p.Key())
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.notify.PublishUpdate(ctx, v.(string), models.WSMessage{
		Type: "game_completed",
		Payload: models.GameCompletedEvent{
			Key:            p.Key(),
			Activity:       string(p.Activity),
			GroupID:        p.GroupID,
			Score:          sum.Score,
			CorrectAnswers: sum.CorrectAnswers,
			TotalWords:     sum.TotalWords,
			Percentage:     sum.Percentage,
		},
	})
}

// RunPruner closes games left idle longer than idle until ctx ends.
func (s *GameService) RunPruner(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.games.Prune(idle)
		}
	}
}

func (s *GameService) Shutdown() {
	s.games.Shutdown()
}

func gameError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, game.ErrInvalidParams), errors.Is(err, game.ErrUnknownActivity):
		return &ValidationError{Fields: map[string]string{"game": err.Error()}}
	case errors.Is(err, game.ErrNoWords):
		return &NotFoundError{Message: "this group has no words to study"}
	case errors.Is(err, game.ErrWrongActivity),
		errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrAlreadyGraded),
		errors.Is(err, game.ErrGameCompleted),
		errors.Is(err, game.ErrNotCompleted),
		errors.Is(err, game.ErrNotStarted),
		errors.Is(err, game.ErrClosed):
		return &ConflictError{Message: err.Error()}
	default:
		return err
	}
}
