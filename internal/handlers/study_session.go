package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"zenstudy-backend/internal/models"
	"zenstudy-backend/internal/repository"
	"zenstudy-backend/internal/services"
)

type StudySessionStore interface {
	Create(ctx context.Context, s *models.StudySession) error
	GetByID(ctx context.Context, id int64) (*models.StudySession, error)
	ReviewStats(ctx context.Context, id int64) (total, correct int, err error)
}

type ActivityStore interface {
	List(ctx context.Context) ([]models.StudyActivity, error)
	GetByID(ctx context.Context, id int64) (*models.StudyActivity, error)
}

type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*models.Group, error)
}

type StudySessionHandler struct {
	sessions    StudySessionStore
	activities  ActivityStore
	groups      GroupStore
	frontendURL string
	log         *zap.Logger
}

func NewStudySessionHandler(sessions StudySessionStore, activities ActivityStore, groups GroupStore, frontendURL string, log *zap.Logger) *StudySessionHandler {
	return &StudySessionHandler{
		sessions:    sessions,
		activities:  activities,
		groups:      groups,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log.Named("study_session_handler"),
	}
}

func (h *StudySessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudySessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.GroupID <= 0 {
		fields["group_id"] = "group_id is required"
	}
	if req.StudyActivityID <= 0 {
		fields["study_activity_id"] = "study_activity_id is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if _, err := h.groups.GetByID(r.Context(), req.GroupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = &services.NotFoundError{Message: "Group not found"}
		}
		handleServiceError(w, r, h.log, err)
		return
	}
	if _, err := h.activities.GetByID(r.Context(), req.StudyActivityID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = &services.NotFoundError{Message: "Study activity not found"}
		}
		handleServiceError(w, r, h.log, err)
		return
	}

	session := &models.StudySession{GroupID: req.GroupID, StudyActivityID: req.StudyActivityID}
	if err := h.sessions.Create(r.Context(), session); err != nil {
		handleServiceError(w, r, h.log, fmt.Errorf("create study session: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session": session,
	})
}

func (h *StudySessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt64(r, "id")
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	total, correct, err := h.sessions.ReviewStats(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.log, fmt.Errorf("review stats for session %d: %w", id, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":         session,
		"reviewed_words":  total,
		"correct_answers": correct,
	})
}

// QR renders a PNG QR code that opens the session's activity page.
func (h *StudySessionHandler) QR(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt64(r, "id")
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	session, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	activity, err := h.activities.GetByID(r.Context(), session.StudyActivityID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	png, err := qrcode.Encode(h.sessionLink(session, activity), qrcode.Medium, 256)
	if err != nil {
		handleServiceError(w, r, h.log, fmt.Errorf("encode qr code: %w", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *StudySessionHandler) sessionLink(s *models.StudySession, a *models.StudyActivity) string {
	q := url.Values{}
	q.Set("group_id", fmt.Sprint(s.GroupID))
	q.Set("session_id", fmt.Sprint(s.ID))
	return h.frontendURL + a.URL + "?" + q.Encode()
}

func (h *StudySessionHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activities.List(r.Context())
	if err != nil {
		handleServiceError(w, r, h.log, fmt.Errorf("list study activities: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activities": activities,
	})
}
