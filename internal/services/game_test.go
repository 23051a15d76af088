package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zenstudy-backend/internal/game"
	"zenstudy-backend/internal/models"
	"zenstudy-backend/internal/repository"
)

type MockGroupWords struct {
	mock.Mock
}

func (m *MockGroupWords) ListByGroup(ctx context.Context, groupID int64, limit int) ([]models.Word, error) {
	args := m.Called(ctx, groupID, limit)
	words, _ := args.Get(0).([]models.Word)
	return words, args.Error(1)
}

type MockSessionLookup struct {
	mock.Mock
}

func (m *MockSessionLookup) GetByID(ctx context.Context, id int64) (*models.StudySession, error) {
	args := m.Called(ctx, id)
	sess, _ := args.Get(0).(*models.StudySession)
	return sess, args.Error(1)
}

type recordingSink struct {
	mu       sync.Mutex
	outcomes map[int64]bool
}

func (s *recordingSink) RecordWordOutcome(_ context.Context, wordID int64, correct bool, _ *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcomes == nil {
		s.outcomes = map[int64]bool{}
	}
	s.outcomes[wordID] = correct
	return nil
}

type channelPublisher struct {
	ch chan models.WSMessage
}

func (p *channelPublisher) PublishUpdate(_ context.Context, clientID string, msg models.WSMessage) {
	if clientID == "client-1" {
		p.ch <- msg
	}
}

func newGameServiceTest(words []models.Word) (*GameService, *MockGroupWords, *MockSessionLookup, *channelPublisher, *recordingSink) {
	groupWords := &MockGroupWords{}
	groupWords.On("ListByGroup", mock.Anything, int64(3), 100).Return(words, nil)
	groupWords.On("ListByGroup", mock.Anything, int64(4), 100).Return([]models.Word{}, nil)

	sessions := &MockSessionLookup{}
	pub := &channelPublisher{ch: make(chan models.WSMessage, 1)}
	sink := &recordingSink{}

	svc := NewGameService(NewWordSupply(groupWords, 100), sink, game.NewMemoryStore(), sessions, pub,
		GameServiceConfig{WordCap: 30, FlashcardWait: 10 * time.Millisecond}, zap.NewNop())
	return svc, groupWords, sessions, pub, sink
}

func TestWordSupply_FetchGroupWords(t *testing.T) {
	groupWords := &MockGroupWords{}
	groupWords.On("ListByGroup", mock.Anything, int64(3), 50).Return([]models.Word{
		{ID: 7, Kanji: "水", Romaji: "mizu", Vietnamese: "nước", JLPTLevel: "N5", Difficulty: "easy"},
	}, nil)

	got, err := NewWordSupply(groupWords, 50).FetchGroupWords(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, []game.Word{{ID: 7, Japanese: "水", Romaji: "mizu", Meaning: "nước", JLPTLevel: "N5", Difficulty: "easy"}}, got)
}

func TestGameService_FlashcardPlayThrough(t *testing.T) {
	svc, _, _, pub, sink := newGameServiceTest([]models.Word{
		{ID: 7, Kanji: "水", Romaji: "mizu", Vietnamese: "nước", JLPTLevel: "N4"},
	})
	t.Cleanup(svc.Shutdown)

	ctx := context.Background()
	req := GameRequest{Activity: "flashcard", GroupID: 3, ClientID: "client-1"}

	v, err := svc.Start(ctx, req)
	require.NoError(t, err)
	require.Equal(t, game.StateActive, v.State)
	require.Equal(t, "flashcard-progress-group-3", v.Key)

	_, err = svc.Grade(ctx, req, true)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	v, err = svc.Reveal(ctx, req)
	require.NoError(t, err)
	require.Equal(t, game.StateAnswering, v.State)

	out, err := svc.Grade(ctx, req, true)
	require.NoError(t, err)
	require.True(t, out.Completed)
	require.Equal(t, 15, out.Points)
	require.NoError(t, out.Recorded.Wait(ctx))

	sum, err := svc.Summary(ctx, req)
	require.NoError(t, err)
	require.Equal(t, game.Summary{Score: 15, CorrectAnswers: 1, TotalWords: 1, Percentage: 100}, sum)

	select {
	case msg := <-pub.ch:
		require.Equal(t, "game_completed", msg.Type)
		event := msg.Payload.(models.GameCompletedEvent)
		require.Equal(t, int64(3), event.GroupID)
		require.Equal(t, 100, event.Percentage)
	case <-time.After(2 * time.Second):
		t.Fatal("completion was not published")
	}

	sink.mu.Lock()
	require.Equal(t, map[int64]bool{7: true}, sink.outcomes)
	sink.mu.Unlock()
}

func TestGameService_SessionSuppliesGroup(t *testing.T) {
	svc, _, sessions, _, _ := newGameServiceTest([]models.Word{
		{ID: 1, Kanji: "山", Romaji: "yama", Vietnamese: "núi", Difficulty: "easy"},
		{ID: 2, Kanji: "川", Romaji: "kawa", Vietnamese: "sông", Difficulty: "easy"},
	})
	t.Cleanup(svc.Shutdown)

	sessions.On("GetByID", mock.Anything, int64(11)).Return(&models.StudySession{ID: 11, GroupID: 3, StudyActivityID: 2}, nil)
	sessions.On("GetByID", mock.Anything, int64(12)).Return(nil, repository.ErrNotFound)

	ctx := context.Background()
	session := int64(11)
	v, err := svc.Start(ctx, GameRequest{Activity: "scramble", SessionID: &session})
	require.NoError(t, err)
	require.Equal(t, "scramble-progress-session-11", v.Key)
	require.Equal(t, int64(3), v.Snapshot.GroupID)
	require.Equal(t, int64(2), *v.Snapshot.StudyActivityID)
	require.Len(t, v.Snapshot.Words, 2)

	var verr *ValidationError
	_, err = svc.Start(ctx, GameRequest{Activity: "scramble", GroupID: 9, SessionID: &session})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "group_id")

	missing := int64(12)
	var nf *NotFoundError
	_, err = svc.Start(ctx, GameRequest{Activity: "scramble", SessionID: &missing})
	require.ErrorAs(t, err, &nf)
}

func TestGameService_Rejects(t *testing.T) {
	svc, _, _, _, _ := newGameServiceTest(nil)
	t.Cleanup(svc.Shutdown)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   GameRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown activity",
			req:  GameRequest{Activity: "listening", GroupID: 3},
			check: func(t *testing.T, err error) {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				require.Contains(t, verr.Fields, "activity")
			},
		},
		{
			name: "missing group",
			req:  GameRequest{Activity: "flashcard"},
			check: func(t *testing.T, err error) {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
			},
		},
		{
			name: "empty group",
			req:  GameRequest{Activity: "flashcard", GroupID: 4},
			check: func(t *testing.T, err error) {
				var nf *NotFoundError
				require.ErrorAs(t, err, &nf)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Start(ctx, tc.req)
			tc.check(t, err)
		})
	}
}

func TestGameService_WrongActivityOperation(t *testing.T) {
	svc, _, _, _, _ := newGameServiceTest([]models.Word{
		{ID: 1, Kanji: "山", Romaji: "yama", Vietnamese: "núi"},
	})
	t.Cleanup(svc.Shutdown)

	var conflict *ConflictError
	_, err := svc.Guess(context.Background(), GameRequest{Activity: "flashcard", GroupID: 3}, "yama")
	require.ErrorAs(t, err, &conflict)
}
