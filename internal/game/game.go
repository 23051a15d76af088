package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWordCap     = 30
	defaultSinkTimeout = 10 * time.Second
	persistTimeout     = 5 * time.Second
)

type Config struct {
	Words     WordSupply
	Sink      ProgressSink
	Store     Store
	Scheduler Scheduler
	Logger    *zap.Logger
	Rand      *rand.Rand
	Rules     Rules

	WordCap     int
	SinkTimeout time.Duration

	// OnCompleted runs once per play-through, on its own goroutine.
	OnCompleted func(Params, Summary)
}

// Game drives one play-through:
//
//	Loading -> Restored | Initializing -> Active <-> Answering -> Completed
//
// Restart returns any started game to Loading. Every change to the snapshot
// is written to the store before the call returns.
type Game struct {
	startMu sync.Mutex

	mu     sync.Mutex
	params Params
	key    string
	cfg    Config
	log    *zap.Logger

	state    State
	origin   State
	snap     Snapshot
	graded   bool
	closed   bool
	gen      uint64
	timer    Timer
	lastUsed time.Time
}

type View struct {
	Key      string   `json:"key"`
	Activity Activity `json:"activity"`
	State    State    `json:"state"`
	Origin   State    `json:"origin"`
	Graded   bool     `json:"graded"`
	Current  *Word    `json:"current,omitempty"`
	Snapshot Snapshot `json:"snapshot"`
	Summary  *Summary `json:"summary,omitempty"`
}

type Outcome struct {
	Correct   bool `json:"correct"`
	Points    int  `json:"points"`
	Completed bool `json:"completed"`
	View      View `json:"view"`

	// Recorded tracks the progress sink call for the graded word.
	Recorded *BestEffort `json:"-"`
}

func New(p Params, cfg Config) *Game {
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Rules.Points == nil {
		cfg.Rules = DefaultRules(p.Activity)
	}
	if cfg.WordCap == 0 {
		cfg.WordCap = defaultWordCap
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}

	key := p.Key()
	return &Game{
		params:   p,
		key:      key,
		cfg:      cfg,
		log:      cfg.Logger.With(zap.String("game", key)),
		state:    StateLoading,
		origin:   StateLoading,
		lastUsed: time.Now(),
	}
}

func (g *Game) Key() string { return g.key }

func (g *Game) Params() Params { return g.params }

// Start restores the persisted snapshot for the game's key or, when there is
// none, samples a fresh working set. Calling Start on a started game returns
// its current view.
func (g *Game) Start(ctx context.Context) (View, error) {
	g.startMu.Lock()
	defer g.startMu.Unlock()

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return View{}, ErrClosed
	}
	if g.state != StateLoading {
		g.touchLocked()
		v := g.viewLocked()
		g.mu.Unlock()
		return v, nil
	}
	gen := g.gen
	g.mu.Unlock()

	snap, found, err := g.loadSnapshot(ctx)
	if err != nil {
		return View{}, err
	}

	if found {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.staleLocked(gen) {
			return View{}, ErrClosed
		}
		g.restoreLocked(ctx, snap)
		return g.viewLocked(), nil
	}

	pool := g.fetchPool(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.staleLocked(gen) {
		return View{}, ErrClosed
	}
	if err := g.initializeLocked(ctx, pool); err != nil {
		return g.viewLocked(), err
	}
	return g.viewLocked(), nil
}

func (g *Game) loadSnapshot(ctx context.Context) (Snapshot, bool, error) {
	data, err := g.cfg.Store.Get(ctx, g.key)
	if errors.Is(err, ErrSnapshotNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot %s: %w", g.key, err)
	}

	snap, err := DecodeSnapshot(data)
	if err == nil && snap.GroupID != g.params.GroupID {
		err = fmt.Errorf("%w: group %d, want %d", ErrCorruptSnapshot, snap.GroupID, g.params.GroupID)
	}
	if err != nil {
		g.log.Warn("discarding unusable snapshot", zap.Error(err))
		if rmErr := g.cfg.Store.Remove(ctx, g.key); rmErr != nil {
			g.log.Error("remove unusable snapshot", zap.Error(rmErr))
		}
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (g *Game) fetchPool(ctx context.Context) []Word {
	words, err := g.cfg.Words.FetchGroupWords(ctx, g.params.GroupID)
	if err != nil {
		g.log.Warn("word supply failed", zap.Int64("group_id", g.params.GroupID), zap.Error(err))
		return nil
	}
	return words
}

func (g *Game) restoreLocked(ctx context.Context, snap Snapshot) {
	g.state = StateRestored
	g.origin = StateRestored
	g.snap = snap
	g.graded = false
	g.touchLocked()

	switch {
	case snap.GameCompleted:
		g.state = StateCompleted
		g.graded = true
	case snap.TotalAnswered == snap.CurrentIndex+1:
		g.state = StateAnswering
		g.graded = true
		g.scheduleAdvanceLocked()
	case snap.IsFlipped != nil && *snap.IsFlipped:
		g.state = StateAnswering
	default:
		g.state = StateActive
		if g.params.Activity == Scramble && g.snap.ScrambledWord == "" {
			g.snap.ScrambledWord = ScrambleWord(g.currentLocked().Romaji, g.cfg.Rand)
			g.persistLocked(ctx)
		}
	}

	g.log.Info("game restored",
		zap.Stringer("state", g.state),
		zap.Int("index", snap.CurrentIndex),
		zap.Int("answered", snap.TotalAnswered))
}

func (g *Game) initializeLocked(ctx context.Context, pool []Word) error {
	g.state = StateInitializing

	accepted := make([]Word, 0, len(pool))
	for _, w := range pool {
		if g.cfg.Rules.Normalize != nil {
			w = g.cfg.Rules.Normalize(w)
		}
		if g.cfg.Rules.Accept != nil && !g.cfg.Rules.Accept(w) {
			continue
		}
		accepted = append(accepted, w)
	}

	if len(accepted) == 0 {
		g.state = StateLoading
		return ErrNoWords
	}

	words := Sample(accepted, g.cfg.WordCap, g.cfg.Rand)
	g.snap = Snapshot{
		Words:           words,
		GroupID:         g.params.GroupID,
		StudyActivityID: g.params.StudyActivityID,
	}
	switch g.params.Activity {
	case Flashcard:
		g.snap.IsFlipped = boolPtr(false)
	case Scramble:
		g.snap.ScrambledWord = ScrambleWord(words[0].Romaji, g.cfg.Rand)
	}

	g.origin = StateInitializing
	g.state = StateActive
	g.graded = false
	g.touchLocked()
	g.persistLocked(ctx)

	g.log.Info("game initialized", zap.Int("pool", len(accepted)), zap.Int("words", len(words)))
	return nil
}

// Reveal flips the current flashcard.
func (g *Game) Reveal(ctx context.Context) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.usableLocked(); err != nil {
		return View{}, err
	}
	if g.params.Activity != Flashcard {
		return View{}, ErrWrongActivity
	}

	switch g.state {
	case StateAnswering:
		return g.viewLocked(), nil
	case StateCompleted:
		return View{}, ErrGameCompleted
	case StateActive:
	default:
		return View{}, ErrInvalidTransition
	}

	g.state = StateAnswering
	g.graded = false
	g.snap.IsFlipped = boolPtr(true)
	g.persistLocked(ctx)
	return g.viewLocked(), nil
}

// Grade records the learner's verdict on the revealed flashcard.
func (g *Game) Grade(ctx context.Context, correct bool) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.usableLocked(); err != nil {
		return Outcome{}, err
	}
	if g.params.Activity != Flashcard {
		return Outcome{}, ErrWrongActivity
	}
	if err := g.gradableLocked(StateAnswering); err != nil {
		return Outcome{}, err
	}
	return g.gradeLocked(ctx, correct), nil
}

// SubmitGuess checks a typed romaji answer for the current scramble word.
func (g *Game) SubmitGuess(ctx context.Context, guess string) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.usableLocked(); err != nil {
		return Outcome{}, err
	}
	if g.params.Activity != Scramble {
		return Outcome{}, ErrWrongActivity
	}
	if err := g.gradableLocked(StateActive); err != nil {
		return Outcome{}, err
	}

	correct := CheckGuess(guess, g.currentLocked().Romaji)
	g.state = StateAnswering
	return g.gradeLocked(ctx, correct), nil
}

// Rescramble draws a new letter order for the current scramble word.
func (g *Game) Rescramble(ctx context.Context) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.usableLocked(); err != nil {
		return View{}, err
	}
	if g.params.Activity != Scramble {
		return View{}, ErrWrongActivity
	}
	if g.state == StateCompleted {
		return View{}, ErrGameCompleted
	}
	if g.state != StateActive {
		return View{}, ErrInvalidTransition
	}

	g.snap.ScrambledWord = ScrambleWord(g.currentLocked().Romaji, g.cfg.Rand)
	g.persistLocked(ctx)
	return g.viewLocked(), nil
}

// Advance applies a pending post-grade advance without waiting for its delay.
func (g *Game) Advance(ctx context.Context) (View, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.usableLocked(); err != nil {
		return View{}, err
	}
	if g.state != StateAnswering || !g.graded {
		return View{}, ErrInvalidTransition
	}
	g.advanceLocked(ctx)
	return g.viewLocked(), nil
}

// Restart clears the persisted snapshot and returns the game to Loading.
func (g *Game) Restart(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	if g.state == StateLoading {
		return ErrInvalidTransition
	}

	g.stopTimerLocked()
	g.gen++
	g.snap = Snapshot{}
	g.graded = false
	g.state = StateLoading
	g.origin = StateLoading
	g.touchLocked()

	if err := g.cfg.Store.Remove(ctx, g.key); err != nil {
		return fmt.Errorf("remove snapshot %s: %w", g.key, err)
	}
	g.log.Info("game reset")
	return nil
}

func (g *Game) Summary() (Summary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateCompleted {
		return Summary{}, ErrNotCompleted
	}
	return g.snap.Summary(), nil
}

func (g *Game) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.viewLocked()
}

func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Close stops pending work. Results of in-flight fetches or advances that
// land afterwards are discarded.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	g.gen++
	g.stopTimerLocked()
}

func (g *Game) idleSince() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastUsed
}

func (g *Game) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Game) gradableLocked(want State) error {
	switch {
	case g.state == StateCompleted:
		return ErrGameCompleted
	case g.state == StateAnswering && g.graded:
		return ErrAlreadyGraded
	case g.state != want:
		return ErrInvalidTransition
	}
	return nil
}

func (g *Game) gradeLocked(ctx context.Context, correct bool) Outcome {
	word := g.currentLocked()

	points := 0
	g.snap.TotalAnswered++
	if correct {
		points = g.cfg.Rules.Points(word)
		g.snap.CorrectAnswers++
		g.snap.Score += points
	}
	g.graded = true
	g.touchLocked()

	recorded := g.recordOutcome(word, correct)

	completed := g.snap.CurrentIndex == len(g.snap.Words)-1
	if completed {
		g.snap.GameCompleted = true
		g.state = StateCompleted
		g.persistLocked(ctx)

		summary := g.snap.Summary()
		g.log.Info("game completed",
			zap.Int("score", summary.Score),
			zap.Int("percentage", summary.Percentage))
		if g.cfg.OnCompleted != nil {
			go g.cfg.OnCompleted(g.params, summary)
		}
	} else {
		g.persistLocked(ctx)
		g.scheduleAdvanceLocked()
	}

	return Outcome{
		Correct:   correct,
		Points:    points,
		Completed: completed,
		View:      g.viewLocked(),
		Recorded:  recorded,
	}
}

func (g *Game) recordOutcome(word Word, correct bool) *BestEffort {
	if g.cfg.Sink == nil {
		return finishedBestEffort(nil)
	}

	sink := g.cfg.Sink
	sessionID := g.params.SessionID
	fields := []zap.Field{
		zap.String("game", g.key),
		zap.Int64("word_id", word.ID),
		zap.Bool("correct", correct),
	}
	return runBestEffort(g.cfg.SinkTimeout, g.cfg.Logger, "record word outcome failed", fields,
		func(ctx context.Context) error {
			return sink.RecordWordOutcome(ctx, word.ID, correct, sessionID)
		})
}

func (g *Game) scheduleAdvanceLocked() {
	g.stopTimerLocked()

	gen := g.gen
	index := g.snap.CurrentIndex
	g.timer = g.cfg.Scheduler.AfterFunc(g.cfg.Rules.AdvanceDelay, func() {
		g.mu.Lock()
		defer g.mu.Unlock()

		if g.staleLocked(gen) || g.state != StateAnswering || !g.graded || g.snap.CurrentIndex != index {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		g.advanceLocked(ctx)
	})
}

func (g *Game) advanceLocked(ctx context.Context) {
	g.stopTimerLocked()

	g.snap.CurrentIndex++
	g.graded = false
	g.state = StateActive
	switch g.params.Activity {
	case Flashcard:
		g.snap.IsFlipped = boolPtr(false)
	case Scramble:
		g.snap.ScrambledWord = ScrambleWord(g.currentLocked().Romaji, g.cfg.Rand)
	}
	g.persistLocked(ctx)
}

func (g *Game) persistLocked(ctx context.Context) {
	data, err := json.Marshal(g.snap)
	if err != nil {
		g.log.Error("encode snapshot", zap.Error(err))
		return
	}
	if err := g.cfg.Store.Set(ctx, g.key, data); err != nil {
		g.log.Error("persist snapshot", zap.Error(err))
	}
}

func (g *Game) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *Game) usableLocked() error {
	if g.closed {
		return ErrClosed
	}
	if g.state == StateLoading {
		return ErrNotStarted
	}
	g.touchLocked()
	return nil
}

func (g *Game) staleLocked(gen uint64) bool {
	return g.closed || g.gen != gen
}

func (g *Game) touchLocked() {
	g.lastUsed = time.Now()
}

func (g *Game) currentLocked() Word {
	return g.snap.Words[g.snap.CurrentIndex]
}

func (g *Game) viewLocked() View {
	v := View{
		Key:      g.key,
		Activity: g.params.Activity,
		State:    g.state,
		Origin:   g.origin,
		Graded:   g.graded,
		Snapshot: g.snap.clone(),
	}
	if g.state != StateLoading && g.snap.CurrentIndex < len(g.snap.Words) {
		w := g.snap.Words[g.snap.CurrentIndex]
		v.Current = &w
	}
	if g.state == StateCompleted {
		s := g.snap.Summary()
		v.Summary = &s
	}
	return v
}

func boolPtr(b bool) *bool { return &b }
