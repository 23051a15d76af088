package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"zenstudy-backend/internal/listening"
	"zenstudy-backend/internal/models"
)

type ListeningAnalyzer interface {
	Transcript(ctx context.Context, url string) (string, []string, error)
	Sections(transcript string) []listening.Section
	GetVideo(ctx context.Context, videoID string) (*models.VideoData, error)
	GenerateQuestion(ctx context.Context, conversation string) (*models.Question, error)
	RegenerateQuestion(ctx context.Context, videoID string, mondaiID, questionID int) (*models.Question, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

type WorksheetWriter interface {
	Render(v *models.VideoData, withAnswers bool, w io.Writer) error
}

type ListeningHandler struct {
	svc       ListeningAnalyzer
	jobs      JobQueue
	worksheet WorksheetWriter
	log       *zap.Logger
}

func NewListeningHandler(svc ListeningAnalyzer, jobs JobQueue, worksheet WorksheetWriter, log *zap.Logger) *ListeningHandler {
	return &ListeningHandler{svc: svc, jobs: jobs, worksheet: worksheet, log: log.Named("listening_handler")}
}

func (h *ListeningHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		YouTubeURL string `json:"youtube_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	videoID, lines, err := h.svc.Transcript(r.Context(), req.YouTubeURL)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video_id": videoID,
		"lines":    lines,
		"sections": h.svc.Sections(strings.Join(lines, "\n")),
	})
}

// Parse runs the question-block parser over raw generated text.
func (h *ListeningHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	questions := listening.ParseQuestions(req.Text)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
		"count":     len(questions),
	})
}

func (h *ListeningHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	videoID := listening.ExtractVideoID(req.YouTubeURL)
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"youtube_url": "not a recognised YouTube video URL"}, r))
		return
	}
	for _, n := range req.SectionNums {
		if n < 1 || n > 7 {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"section_nums": "sections are numbered 1 to 7"}, r))
			return
		}
	}

	config, _ := json.Marshal(req)
	job := &models.Job{
		ID:          uuid.New(),
		ClientID:    clientID(r),
		Type:        models.JobListeningAnalysis,
		ReferenceID: videoID,
		ConfigJSON:  config,
		Status:      "pending",
		MaxRetries:  3,
	}
	if err := h.jobs.Enqueue(r.Context(), job); err != nil {
		handleServiceError(w, r, h.log, fmt.Errorf("enqueue listening analysis: %w", err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   job.ID,
		"video_id": videoID,
		"status":   job.Status,
	})
}

func (h *ListeningHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVideo(r.Context(), chi.URLParam(r, "videoId"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *ListeningHandler) GenerateQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Conversation string `json:"conversation"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.svc.GenerateQuestion(r.Context(), req.Conversation)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"question": q})
}

func (h *ListeningHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	mondaiID, err1 := strconv.Atoi(chi.URLParam(r, "mondaiId"))
	questionID, err2 := strconv.Atoi(chi.URLParam(r, "questionId"))
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid mondai or question id", r))
		return
	}

	q, err := h.svc.RegenerateQuestion(r.Context(), chi.URLParam(r, "videoId"), mondaiID, questionID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"question": q})
}

func (h *ListeningHandler) Worksheet(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	v, err := h.svc.GetVideo(r.Context(), videoID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	withAnswers, _ := strconv.ParseBool(r.URL.Query().Get("answers"))

	var buf bytes.Buffer
	if err := h.worksheet.Render(v, withAnswers, &buf); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-worksheet.pdf"`, videoID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
