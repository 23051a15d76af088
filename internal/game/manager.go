package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ManagerConfig struct {
	Words     WordSupply
	Sink      ProgressSink
	Store     Store
	Scheduler Scheduler
	Logger    *zap.Logger

	WordCap     int
	SinkTimeout time.Duration
	Rules       map[Activity]Rules

	// Seed feeds each game's random source. Defaults to the wall clock.
	Seed func() int64

	OnCompleted func(Params, Summary)
}

// Manager owns at most one live Game per snapshot key.
type Manager struct {
	cfg ManagerConfig

	mu    sync.Mutex
	games map[string]*Game
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Seed == nil {
		cfg.Seed = func() int64 { return time.Now().UnixNano() }
	}
	return &Manager{cfg: cfg, games: make(map[string]*Game)}
}

// Open returns the live game for p, starting it if needed.
func (m *Manager) Open(ctx context.Context, p Params) (*Game, View, error) {
	if err := p.Validate(); err != nil {
		return nil, View{}, err
	}

	g := m.getOrCreate(p)
	v, err := g.Start(ctx)
	return g, v, err
}

// Restart discards the persisted progress for p and samples a new working set.
func (m *Manager) Restart(ctx context.Context, p Params) (*Game, View, error) {
	if err := p.Validate(); err != nil {
		return nil, View{}, err
	}

	g := m.getOrCreate(p)
	if g.State() != StateLoading {
		if err := g.Restart(ctx); err != nil {
			return g, View{}, err
		}
	} else if err := m.cfg.Store.Remove(ctx, g.Key()); err != nil {
		return g, View{}, err
	}

	v, err := g.Start(ctx)
	return g, v, err
}

// Get returns the live game for p without starting it.
func (m *Manager) Get(p Params) (*Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[p.Key()]
	return g, ok
}

func (m *Manager) Close(key string) {
	m.mu.Lock()
	g, ok := m.games[key]
	delete(m.games, key)
	m.mu.Unlock()

	if ok {
		g.Close()
	}
}

// Prune closes games untouched for longer than idle. Their snapshots stay in
// the store, so a later Open restores them.
func (m *Manager) Prune(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	m.mu.Lock()
	var stale []*Game
	for key, g := range m.games {
		if g.idleSince().Before(cutoff) {
			stale = append(stale, g)
			delete(m.games, key)
		}
	}
	m.mu.Unlock()

	for _, g := range stale {
		g.Close()
	}
	if len(stale) > 0 {
		m.cfg.Logger.Info("pruned idle games", zap.Int("count", len(stale)))
	}
	return len(stale)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	games := m.games
	m.games = make(map[string]*Game)
	m.mu.Unlock()

	for _, g := range games {
		g.Close()
	}
}

func (m *Manager) getOrCreate(p Params) *Game {
	key := p.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.games[key]; ok && !g.isClosed() {
		return g
	}

	rules, ok := m.cfg.Rules[p.Activity]
	if !ok {
		rules = DefaultRules(p.Activity)
	}

	g := New(p, Config{
		Words:       m.cfg.Words,
		Sink:        m.cfg.Sink,
		Store:       m.cfg.Store,
		Scheduler:   m.cfg.Scheduler,
		Logger:      m.cfg.Logger,
		Rand:        rand.New(rand.NewSource(m.cfg.Seed())),
		Rules:       rules,
		WordCap:     m.cfg.WordCap,
		SinkTimeout: m.cfg.SinkTimeout,
		OnCompleted: m.cfg.OnCompleted,
	})
	m.games[key] = g
	return g
}
