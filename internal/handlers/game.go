package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"zenstudy-backend/internal/game"
	"zenstudy-backend/internal/services"
)

type GamePlayer interface {
	Start(ctx context.Context, req services.GameRequest) (game.View, error)
	Reveal(ctx context.Context, req services.GameRequest) (game.View, error)
	Grade(ctx context.Context, req services.GameRequest, correct bool) (game.Outcome, error)
	Guess(ctx context.Context, req services.GameRequest, guess string) (game.Outcome, error)
	Rescramble(ctx context.Context, req services.GameRequest) (game.View, error)
	Next(ctx context.Context, req services.GameRequest) (game.View, error)
	Restart(ctx context.Context, req services.GameRequest) (game.View, error)
	Summary(ctx context.Context, req services.GameRequest) (game.Summary, error)
}

type GameHandler struct {
	games GamePlayer
	log   *zap.Logger
}

func NewGameHandler(games GamePlayer, log *zap.Logger) *GameHandler {
	return &GameHandler{games: games, log: log.Named("game_handler")}
}

func gameRequest(r *http.Request) (services.GameRequest, error) {
	req := services.GameRequest{
		Activity: chi.URLParam(r, "activity"),
		ClientID: clientID(r),
	}

	group, err := queryInt64(r, "group_id")
	if err != nil {
		return req, err
	}
	if group != nil {
		req.GroupID = *group
	}
	if req.SessionID, err = queryInt64(r, "session_id"); err != nil {
		return req, err
	}
	if req.StudyActivityID, err = queryInt64(r, "study_activity_id"); err != nil {
		return req, err
	}
	return req, nil
}

// viewAction wraps the operations that answer with the game view.
func (h *GameHandler) viewAction(op func(context.Context, services.GameRequest) (game.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := gameRequest(r)
		if err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		v, err := op(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.viewAction(h.games.Start)(w, r)
}

func (h *GameHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	h.viewAction(h.games.Reveal)(w, r)
}

func (h *GameHandler) Rescramble(w http.ResponseWriter, r *http.Request) {
	h.viewAction(h.games.Rescramble)(w, r)
}

func (h *GameHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.viewAction(h.games.Next)(w, r)
}

func (h *GameHandler) Restart(w http.ResponseWriter, r *http.Request) {
	h.viewAction(h.games.Restart)(w, r)
}

func (h *GameHandler) Grade(w http.ResponseWriter, r *http.Request) {
	req, err := gameRequest(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	var body struct {
		Correct *bool `json:"correct"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Correct == nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"correct": "correct is required"}, r))
		return
	}

	out, err := h.games.Grade(r.Context(), req, *body.Correct)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *GameHandler) Guess(w http.ResponseWriter, r *http.Request) {
	req, err := gameRequest(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	var body struct {
		Guess string `json:"guess"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	out, err := h.games.Guess(r.Context(), req, body.Guess)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *GameHandler) Summary(w http.ResponseWriter, r *http.Request) {
	req, err := gameRequest(r)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	sum, err := h.games.Summary(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
