package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"zenstudy-backend/internal/listening"
	"zenstudy-backend/internal/models"
	"zenstudy-backend/internal/repository"
)

type TranscriptSource interface {
	GetTranscript(ctx context.Context, videoID string) ([]string, error)
	VideoInfo(ctx context.Context, videoID string) (VideoInfo, error)
	DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error)
}

type QuestionGenerator interface {
	StructureSection(ctx context.Context, section string) (string, error)
	GenerateQuestion(ctx context.Context, conversation string) (*models.Question, error)
	TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type ListeningStore interface {
	Save(ctx context.Context, v *models.VideoData) error
	GetByVideoID(ctx context.Context, videoID string) (*models.VideoData, error)
	ReplaceQuestion(ctx context.Context, videoID string, mondaiID int, q models.Question) error
}

// ProgressFunc reports pipeline steps to whoever queued the analysis.
type ProgressFunc func(step int, name string, etaSeconds int)

type ListeningService struct {
	videos TranscriptSource
	gen    QuestionGenerator
	store  ListeningStore
	log    *zap.Logger
	now    func() time.Time
}

func NewListeningService(videos TranscriptSource, gen QuestionGenerator, store ListeningStore, log *zap.Logger) *ListeningService {
	return &ListeningService{
		videos: videos,
		gen:    gen,
		store:  store,
		log:    log.Named("listening"),
		now:    time.Now,
	}
}

func videoIDFromURL(url string) (string, error) {
	id := listening.ExtractVideoID(url)
	if id == "" {
		return "", invalid("youtube_url", "not a recognised YouTube video URL")
	}
	return id, nil
}

// Transcript returns the caption lines for a video URL.
func (s *ListeningService) Transcript(ctx context.Context, url string) (string, []string, error) {
	id, err := videoIDFromURL(url)
	if err != nil {
		return "", nil, err
	}
	lines, err := s.videos.GetTranscript(ctx, id)
	if err != nil {
		return id, nil, err
	}
	return id, lines, nil
}

// Sections splits a transcript into its numbered 問題 parts.
func (s *ListeningService) Sections(transcript string) []listening.Section {
	return listening.SplitSections(transcript)
}

func (s *ListeningService) transcriptText(ctx context.Context, url, videoID string, progress ProgressFunc) (string, error) {
	lines, err := s.videos.GetTranscript(ctx, videoID)
	if err == nil {
		return strings.Join(lines, "\n"), nil
	}

	s.log.Info("no captions, transcribing audio", zap.String("video_id", videoID), zap.Error(err))
	progress(2, "Transcribing Audio", 90)

	audio, mimeType, dlErr := s.videos.DownloadAudio(ctx, url)
	if dlErr != nil {
		return "", &UnavailableError{Message: "no transcript and audio download failed", Err: errors.Join(err, dlErr)}
	}
	text, trErr := s.gen.TranscribeAudio(ctx, audio, mimeType)
	if trErr != nil {
		return "", trErr
	}
	return text, nil
}

// Analyze builds the question set for a video: transcript, sections, one
// generated question block per section. A section whose generation fails is
// skipped.
func (s *ListeningService) Analyze(ctx context.Context, req models.AnalyzeRequest, progress ProgressFunc) (*models.VideoData, error) {
	if progress == nil {
		progress = func(int, string, int) {}
	}

	videoID, err := videoIDFromURL(req.YouTubeURL)
	if err != nil {
		return nil, err
	}

	progress(1, "Fetching Transcript", 60)
	transcript, err := s.transcriptText(ctx, req.YouTubeURL, videoID, progress)
	if err != nil {
		return nil, err
	}

	sections := filterSections(listening.SplitSections(transcript), req.SectionNums)
	if len(sections) == 0 {
		return nil, invalid("youtube_url", "transcript has no 問題 sections")
	}

	data := &models.VideoData{
		Title:      "YouTube video " + videoID,
		URL:        req.YouTubeURL,
		VideoID:    videoID,
		Mondais:    []models.Mondai{},
		AnalyzedAt: s.now(),
	}
	if info, err := s.videos.VideoInfo(ctx, videoID); err == nil {
		if info.Title != "" {
			data.Title = info.Title
		}
		if info.Duration > 0 {
			data.Duration = formatDuration(info.Duration)
		}
	} else {
		s.log.Warn("video metadata unavailable", zap.String("video_id", videoID), zap.Error(err))
	}

	for i, sec := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress(3, fmt.Sprintf("Generating Questions (%d/%d)", i+1, len(sections)), 30*(len(sections)-i))

		raw, err := s.gen.StructureSection(ctx, listening.CleanText(sec.Text))
		if err != nil {
			s.log.Warn("section skipped", zap.String("video_id", videoID), zap.Int("section", sec.Number), zap.Error(err))
			continue
		}

		questions := listening.ParseQuestions(raw)
		if len(questions) == 0 {
			s.log.Warn("section produced no questions", zap.String("video_id", videoID), zap.Int("section", sec.Number))
			continue
		}

		data.Mondais = append(data.Mondais, models.Mondai{
			ID:          sec.Number,
			Title:       fmt.Sprintf("Mondai %d", sec.Number),
			Description: fmt.Sprintf("Section %d questions", sec.Number),
			Questions:   questions,
		})
		data.TotalQuestions += len(questions)
	}

	if data.TotalQuestions == 0 {
		return nil, &UnavailableError{Message: "no questions could be generated for this video"}
	}

	progress(4, "Saving", 2)
	if err := s.store.Save(ctx, data); err != nil {
		return nil, fmt.Errorf("save video %s: %w", videoID, err)
	}
	return data, nil
}

func (s *ListeningService) GetVideo(ctx context.Context, videoID string) (*models.VideoData, error) {
	v, err := s.store.GetByVideoID(ctx, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "video has not been analysed"}
	}
	return v, err
}

// GenerateQuestion writes one question around a conversation.
func (s *ListeningService) GenerateQuestion(ctx context.Context, conversation string) (*models.Question, error) {
	conversation = strings.TrimSpace(conversation)
	if conversation == "" {
		return nil, invalid("conversation", "conversation is required")
	}
	return s.gen.GenerateQuestion(ctx, conversation)
}

// RegenerateQuestion replaces one stored question with a fresh one built from
// the same conversation. The question keeps its id.
func (s *ListeningService) RegenerateQuestion(ctx context.Context, videoID string, mondaiID, questionID int) (*models.Question, error) {
	v, err := s.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var current *models.Question
	for _, m := range v.Mondais {
		if m.ID != mondaiID {
			continue
		}
		for i := range m.Questions {
			if m.Questions[i].ID == questionID {
				current = &m.Questions[i]
			}
		}
	}
	if current == nil {
		return nil, &NotFoundError{Message: fmt.Sprintf("question %d of mondai %d not found", questionID, mondaiID)}
	}

	source := current.Conversation
	if source == "" {
		source = current.Introduction
	}
	if strings.TrimSpace(source) == "" {
		return nil, &ConflictError{Message: "question has no conversation to regenerate from"}
	}

	q, err := s.gen.GenerateQuestion(ctx, source)
	if err != nil {
		return nil, err
	}
	q.ID = questionID

	if err := s.store.ReplaceQuestion(ctx, videoID, mondaiID, *q); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "question no longer exists"}
		}
		return nil, fmt.Errorf("replace question %d: %w", questionID, err)
	}
	return q, nil
}

func filterSections(sections []listening.Section, nums []int) []listening.Section {
	if len(nums) == 0 {
		return sections
	}
	want := make(map[int]bool, len(nums))
	for _, n := range nums {
		want[n] = true
	}

	out := sections[:0:0]
	for _, sec := range sections {
		if want[sec.Number] {
			out = append(out, sec)
		}
	}
	return out
}

func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
