package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zenstudy-backend/internal/models"
	"zenstudy-backend/internal/repository"
)

type MockTranscriptSource struct {
	mock.Mock
}

func (m *MockTranscriptSource) GetTranscript(ctx context.Context, videoID string) ([]string, error) {
	args := m.Called(ctx, videoID)
	lines, _ := args.Get(0).([]string)
	return lines, args.Error(1)
}

func (m *MockTranscriptSource) VideoInfo(ctx context.Context, videoID string) (VideoInfo, error) {
	args := m.Called(ctx, videoID)
	return args.Get(0).(VideoInfo), args.Error(1)
}

func (m *MockTranscriptSource) DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error) {
	args := m.Called(ctx, videoURL)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

type MockQuestionGenerator struct {
	mock.Mock
}

func (m *MockQuestionGenerator) StructureSection(ctx context.Context, section string) (string, error) {
	args := m.Called(ctx, section)
	return args.String(0), args.Error(1)
}

func (m *MockQuestionGenerator) GenerateQuestion(ctx context.Context, conversation string) (*models.Question, error) {
	args := m.Called(ctx, conversation)
	q, _ := args.Get(0).(*models.Question)
	return q, args.Error(1)
}

func (m *MockQuestionGenerator) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	args := m.Called(ctx, audio, mimeType)
	return args.String(0), args.Error(1)
}

type MockListeningStore struct {
	mock.Mock
}

func (m *MockListeningStore) Save(ctx context.Context, v *models.VideoData) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockListeningStore) GetByVideoID(ctx context.Context, videoID string) (*models.VideoData, error) {
	args := m.Called(ctx, videoID)
	v, _ := args.Get(0).(*models.VideoData)
	return v, args.Error(1)
}

func (m *MockListeningStore) ReplaceQuestion(ctx context.Context, videoID string, mondaiID int, q models.Question) error {
	return m.Called(ctx, videoID, mondaiID, q).Error(0)
}

const (
	testVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	testVideoID  = "dQw4w9WgXcQ"

	stationBlock = "<question>Introduction: 駅で話しています。\nConversation: 男：左ですか。\nQuestion: 駅はどこですか。\nOptions:\n1. 左\n2. 右\n3. まっすぐ\nCorrectAnswer: 2</question>"
)

func newListeningTest() (*ListeningService, *MockTranscriptSource, *MockQuestionGenerator, *MockListeningStore) {
	videos := &MockTranscriptSource{}
	gen := &MockQuestionGenerator{}
	store := &MockListeningStore{}
	svc := NewListeningService(videos, gen, store, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc, videos, gen, store
}

func TestListeningService_Analyze(t *testing.T) {
	svc, videos, gen, store := newListeningTest()

	videos.On("GetTranscript", mock.Anything, testVideoID).
		Return([]string{"問題1 男の人が話しています。", "問題2 女の人が話しています。"}, nil)
	videos.On("VideoInfo", mock.Anything, testVideoID).
		Return(VideoInfo{Title: "JLPT N3 Listening", Duration: 83 * time.Second}, nil)
	gen.On("StructureSection", mock.Anything, "問題1 男の人が話しています。").Return(stationBlock, nil)
	gen.On("StructureSection", mock.Anything, "問題2 女の人が話しています。").Return("", errors.New("model overloaded"))
	store.On("Save", mock.Anything, mock.AnythingOfType("*models.VideoData")).Return(nil)

	var steps []int
	data, err := svc.Analyze(context.Background(), models.AnalyzeRequest{YouTubeURL: testVideoURL},
		func(step int, _ string, _ int) { steps = append(steps, step) })
	require.NoError(t, err)

	require.Equal(t, "JLPT N3 Listening", data.Title)
	require.Equal(t, "1:23", data.Duration)
	require.Equal(t, testVideoID, data.VideoID)
	require.Len(t, data.Mondais, 1)
	require.Equal(t, 1, data.Mondais[0].ID)
	require.Equal(t, "Mondai 1", data.Mondais[0].Title)
	require.Equal(t, 1, data.TotalQuestions)
	require.Equal(t, "駅はどこですか。", data.Mondais[0].Questions[0].Question)
	require.Equal(t, []int{1, 3, 3, 4}, steps)

	store.AssertExpectations(t)
	videos.AssertNotCalled(t, "DownloadAudio", mock.Anything, mock.Anything)
}

func TestListeningService_AnalyzeFiltersSectionsAndFallsBackToAudio(t *testing.T) {
	svc, videos, gen, store := newListeningTest()

	videos.On("GetTranscript", mock.Anything, testVideoID).Return(nil, &NotFoundError{Message: "no captions"})
	videos.On("DownloadAudio", mock.Anything, testVideoURL).Return([]byte("audio"), "audio/mp4", nil)
	gen.On("TranscribeAudio", mock.Anything, []byte("audio"), "audio/mp4").
		Return("問題1 一つ目。\n問題2 二つ目。", nil)
	videos.On("VideoInfo", mock.Anything, testVideoID).Return(VideoInfo{}, errors.New("blocked"))
	gen.On("StructureSection", mock.Anything, "問題2 二つ目。").Return(stationBlock, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	data, err := svc.Analyze(context.Background(),
		models.AnalyzeRequest{YouTubeURL: testVideoURL, SectionNums: []int{2}}, nil)
	require.NoError(t, err)

	require.Equal(t, "YouTube video "+testVideoID, data.Title)
	require.Len(t, data.Mondais, 1)
	require.Equal(t, 2, data.Mondais[0].ID)
	gen.AssertNumberOfCalls(t, "StructureSection", 1)
}

func TestListeningService_AnalyzeRejects(t *testing.T) {
	t.Run("bad url", func(t *testing.T) {
		svc, _, _, _ := newListeningTest()
		_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{YouTubeURL: "https://example.com"}, nil)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "youtube_url")
	})

	t.Run("no sections", func(t *testing.T) {
		svc, videos, _, _ := newListeningTest()
		videos.On("GetTranscript", mock.Anything, testVideoID).Return([]string{"just talking"}, nil)

		_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{YouTubeURL: testVideoURL}, nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("nothing generated", func(t *testing.T) {
		svc, videos, gen, store := newListeningTest()
		videos.On("GetTranscript", mock.Anything, testVideoID).Return([]string{"問題1 text"}, nil)
		videos.On("VideoInfo", mock.Anything, testVideoID).Return(VideoInfo{Title: "t"}, nil)
		gen.On("StructureSection", mock.Anything, mock.Anything).Return("no blocks at all", nil)

		_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{YouTubeURL: testVideoURL}, nil)
		var uerr *UnavailableError
		require.ErrorAs(t, err, &uerr)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestListeningService_RegenerateQuestion(t *testing.T) {
	svc, _, gen, store := newListeningTest()

	stored := &models.VideoData{
		VideoID: testVideoID,
		Mondais: []models.Mondai{{
			ID: 2,
			Questions: []models.Question{
				{ID: 1, Conversation: "男：駅はどこですか。"},
				{ID: 2, Introduction: "女の人が話しています。"},
			},
		}},
	}
	store.On("GetByVideoID", mock.Anything, testVideoID).Return(stored, nil)

	answer := "3"
	fresh := &models.Question{ID: 1, Introduction: "i", Conversation: "c", Question: "q", Options: []string{"a", "b", "c"}, CorrectAnswer: &answer}
	gen.On("GenerateQuestion", mock.Anything, "女の人が話しています。").Return(fresh, nil)
	store.On("ReplaceQuestion", mock.Anything, testVideoID, 2,
		mock.MatchedBy(func(q models.Question) bool { return q.ID == 2 })).Return(nil)

	q, err := svc.RegenerateQuestion(context.Background(), testVideoID, 2, 2)
	require.NoError(t, err)
	require.Equal(t, 2, q.ID)
	store.AssertExpectations(t)
}

func TestListeningService_RegenerateQuestionMissing(t *testing.T) {
	svc, _, _, store := newListeningTest()
	store.On("GetByVideoID", mock.Anything, "nope").Return(nil, repository.ErrNotFound)
	store.On("GetByVideoID", mock.Anything, testVideoID).
		Return(&models.VideoData{VideoID: testVideoID, Mondais: []models.Mondai{{ID: 1}}}, nil)

	var nf *NotFoundError
	_, err := svc.RegenerateQuestion(context.Background(), "nope", 1, 1)
	require.ErrorAs(t, err, &nf)

	_, err = svc.RegenerateQuestion(context.Background(), testVideoID, 1, 9)
	require.ErrorAs(t, err, &nf)
}

func TestListeningService_GenerateQuestionRequiresConversation(t *testing.T) {
	svc, _, _, _ := newListeningTest()

	_, err := svc.GenerateQuestion(context.Background(), "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "0:05", formatDuration(5*time.Second))
	require.Equal(t, "12:00", formatDuration(12*time.Minute))
	require.Equal(t, "1:02:03", formatDuration(time.Hour+2*time.Minute+3*time.Second))
}
