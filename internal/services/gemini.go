package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"zenstudy-backend/internal/listening"
	"zenstudy-backend/internal/models"
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	log      *zap.Logger
	rateChan chan struct{} // Token bucket
	limiter  *rate.Limiter
}

func NewGeminiService(
	apiKey string,
	modelName string,
	concurrentReqs int,
	log *zap.Logger,
) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		log:      log.Named("gemini"),
		rateChan: rateChan,
	}, nil
}

// WithRequestsPerMinute caps the request rate on top of the concurrency
// limit. Zero leaves the rate unbounded.
func (s *GeminiService) WithRequestsPerMinute(n int) *GeminiService {
	if n > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
	}
	return s
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return &RateLimitError{Message: "timeout waiting for Gemini rate slot"}
	}
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		s.releaseRate()
		return err
	}
	return nil
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &UnavailableError{Message: "generation request failed", Err: err}
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.log.Warn("generation stopped early",
				zap.Int("candidate", i),
				zap.Stringer("finish_reason", cand.FinishReason))
		}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", &UnavailableError{Message: "generation returned empty text"}
	}
	return text, nil
}

// StructureSection rewrites one transcript section as <question> blocks.
func (s *GeminiService) StructureSection(ctx context.Context, section string) (string, error) {
	return s.generate(ctx, buildStructurePrompt(section))
}

// GenerateQuestion writes one new question around a given conversation.
func (s *GeminiService) GenerateQuestion(ctx context.Context, conversation string) (*models.Question, error) {
	raw, err := s.generate(ctx, buildQuestionPrompt(conversation))
	if err != nil {
		return nil, err
	}
	return questionFromGenerated(raw)
}

// GenerateVocabulary returns the raw model output for a themed word list.
func (s *GeminiService) GenerateVocabulary(ctx context.Context, theme, level string, count int, sourceText string) (string, error) {
	return s.generate(ctx, buildVocabularyPrompt(theme, level, count, sourceText))
}

// TranscribeAudio uses Gemini File API to transcribe uploaded audio bytes.
func (s *GeminiService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
		DisplayName: "listening-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", &UnavailableError{Message: "failed to upload audio", Err: err}
	}
	defer s.client.DeleteFile(context.Background(), file.Name)

	for i := 0; i < 20; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}

		if current.State == genai.FileStateActive {
			file = current
			break
		}
		if current.State == genai.FileStateFailed {
			return "", &UnavailableError{Message: "uploaded audio could not be processed"}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", &UnavailableError{Message: "audio file did not become active in time"}
	}

	prompt := "Transcribe the provided Japanese audio verbatim, keeping 問題 and 番 announcements on their own lines. Return plain text only, without markdown, headers, or explanations."

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	if err != nil {
		return "", &UnavailableError{Message: "transcription request failed", Err: err}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", &UnavailableError{Message: "transcription returned empty text"}
	}

	return text, nil
}

// questionFromGenerated keeps the first parsed block and rejects it unless
// every part of the question came back. Three-option items have their
// conversation cleared by the parser, so only four-option items need one.
func questionFromGenerated(raw string) (*models.Question, error) {
	questions := listening.ParseQuestions(raw)
	if len(questions) == 0 {
		return nil, &UnavailableError{Message: "could not generate question"}
	}

	q := questions[0]
	switch {
	case q.Introduction == "" || q.Question == "" || q.CorrectAnswer == nil:
		return nil, &UnavailableError{Message: "could not generate question"}
	case len(q.Options) != 3 && len(q.Options) != 4:
		return nil, &UnavailableError{Message: "could not generate question"}
	case len(q.Options) == 4 && q.Conversation == "":
		return nil, &UnavailableError{Message: "could not generate question"}
	}
	return &q, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
