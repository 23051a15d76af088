package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"zenstudy-backend/internal/handlers"
	"zenstudy-backend/internal/middleware"
	"zenstudy-backend/internal/websocket"
)

// HealthFunc reports whether the backing stores are reachable.
type HealthFunc func(ctx context.Context) error

func New(
	gameHandler *handlers.GameHandler,
	studySessionHandler *handlers.StudySessionHandler,
	listeningHandler *handlers.ListeningHandler,
	importHandler *handlers.ImportHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	llmLimiter *middleware.RateLimiter,
	health HealthFunc,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	if llmLimiter == nil {
		llmLimiter = middleware.NewRateLimiter(30, time.Minute)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Game Routes ────
		r.Route("/games/{activity}", func(r chi.Router) {
			r.Post("/start", gameHandler.Start)
			r.Get("/state", gameHandler.Start)
			r.Post("/reveal", gameHandler.Reveal)
			r.Post("/grade", gameHandler.Grade)
			r.Post("/guess", gameHandler.Guess)
			r.Post("/rescramble", gameHandler.Rescramble)
			r.Post("/next", gameHandler.Next)
			r.Post("/restart", gameHandler.Restart)
			r.Get("/summary", gameHandler.Summary)
		})

		// ──── Study Session Routes ────
		r.Route("/study-sessions", func(r chi.Router) {
			r.Post("/", studySessionHandler.Create)
			r.Get("/{id}", studySessionHandler.Get)
			r.Get("/{id}/qr", studySessionHandler.QR)
		})
		r.Get("/study-activities", studySessionHandler.ListActivities)

		// ──── Listening Routes ────
		r.Route("/listening", func(r chi.Router) {
			r.Post("/parse", listeningHandler.Parse)
			r.Get("/videos/{videoId}", listeningHandler.GetVideo)
			r.Get("/videos/{videoId}/worksheet.pdf", listeningHandler.Worksheet)

			// Upstream-bound calls share the per-client budget
			r.Group(func(r chi.Router) {
				r.Use(llmLimiter.Middleware)
				r.Post("/transcript", listeningHandler.Transcript)
				r.Post("/analyze", listeningHandler.Analyze)
				r.Post("/generate-question", listeningHandler.GenerateQuestion)
				r.Post("/videos/{videoId}/mondais/{mondaiId}/questions/{questionId}/regenerate", listeningHandler.Regenerate)
			})
		})

		// ──── Import Routes ────
		r.Route("/import", func(r chi.Router) {
			r.Use(llmLimiter.Middleware)
			r.Post("/generate", importHandler.Generate)
			r.Post("/upload", importHandler.Upload)
		})

		// ──── Job Routes ────
		r.Get("/jobs/{id}", jobHandler.GetJob)

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
