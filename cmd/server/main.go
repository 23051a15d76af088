package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"zenstudy-backend/internal/config"
	"zenstudy-backend/internal/database"
	"zenstudy-backend/internal/handlers"
	"zenstudy-backend/internal/logger"
	"zenstudy-backend/internal/middleware"
	"zenstudy-backend/internal/repository"
	"zenstudy-backend/internal/router"
	"zenstudy-backend/internal/services"
	"zenstudy-backend/internal/websocket"
	"zenstudy-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting zenstudy backend", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()
	log.Info("postgres connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClients.Close()
	log.Info("redis connected")

	// ──── Step 4: Run Database Migrations ────
	applied, err := database.RunMigrations(ctx, pool, "migrations", log)
	if err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	log.Info("database migrations applied", zap.Int("count", applied))

	// ──── Initialize Repositories ────
	wordRepo := repository.NewWordRepo(pool)
	groupRepo := repository.NewGroupRepo(pool)
	wordProgressRepo := repository.NewWordProgressRepo(pool)
	studySessionRepo := repository.NewStudySessionRepo(pool)
	studyActivityRepo := repository.NewStudyActivityRepo(pool)
	listeningRepo := repository.NewListeningRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	progressStore := repository.NewProgressStore(redisClients.Queue, cfg.GameSnapshotTTL)

	seeded, err := database.SeedStudyActivities(ctx, studyActivityRepo, cfg.StudyActivitiesFile)
	if err != nil {
		log.Warn("study activity seed skipped", zap.String("file", cfg.StudyActivitiesFile), zap.Error(err))
	} else {
		log.Info("study activities seeded", zap.Int("count", seeded))
	}

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs, log)
	if err != nil {
		log.Fatal("gemini client initialization failed", zap.Error(err))
	}
	defer geminiService.Close()
	geminiService.WithRequestsPerMinute(cfg.LLMRatePerMinute)
	log.Info("gemini client initialized", zap.String("model", cfg.GeminiModel))

	// ──── Initialize Services ────
	notifier := services.NewNotifier(redisClients.Queue, log)
	youtubeService := services.NewYouTubeService(log)
	fileExtractService := services.NewFileExtractService(50000)
	importService := services.NewImportService(
		wordRepo,
		geminiService,
		fileExtractService,
		services.NewSpreadsheetImporter(0),
		log,
	)
	listeningService := services.NewListeningService(youtubeService, geminiService, listeningRepo, log)
	worksheetRenderer := services.NewWorksheetRenderer(cfg.PDFFontFile)
	gameService := services.NewGameService(
		services.NewWordSupply(wordRepo, cfg.FlashcardFetchLimit),
		wordProgressRepo,
		progressStore,
		studySessionRepo,
		notifier,
		services.GameServiceConfig{
			WordCap:       cfg.GameWordCap,
			SinkTimeout:   5 * time.Second,
			FlashcardWait: cfg.FlashcardAdvanceDelay,
			ScrambleWait:  cfg.ScrambleAdvanceDelay,
		},
		log,
	)
	defer gameService.Shutdown()

	// ──── Step 6: Start Job Worker Pool ────
	jobQueue := worker.NewQueue(redisClients.Queue, jobRepo)
	workerPool := worker.NewPool(
		redisClients.Queue,
		jobRepo,
		listeningService,
		importService,
		notifier,
		cfg.WorkerCount,
		log,
	)
	workerPool.Start()

	go gameService.RunPruner(ctx, 10*time.Minute, cfg.GameIdleTimeout)

	llmLimiter := middleware.NewRateLimiter(cfg.LLMRouteRatePerMin, time.Minute)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				llmLimiter.Cleanup()
			}
		}
	}()

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, log)
	defer wsHub.Close()

	// ──── Initialize Handlers ────
	gameHandler := handlers.NewGameHandler(gameService, log)
	studySessionHandler := handlers.NewStudySessionHandler(studySessionRepo, studyActivityRepo, groupRepo, cfg.FrontendURL, log)
	listeningHandler := handlers.NewListeningHandler(listeningService, jobQueue, worksheetRenderer, log)
	importHandler := handlers.NewImportHandler(importService, jobQueue, cfg.StoragePath, cfg.UploadMaxBytes, log)
	jobHandler := handlers.NewJobHandler(jobRepo, log)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		gameHandler,
		studySessionHandler,
		listeningHandler,
		importHandler,
		jobHandler,
		wsHub,
		llmLimiter,
		func(ctx context.Context) error {
			return errors.Join(pool.Ping(ctx), redisClients.Ping(ctx))
		},
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		workerPool.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("zenstudy backend ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}
