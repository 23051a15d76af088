package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Logging
	LogLevel string
	LogFile  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int
	LLMRatePerMinute     int
	LLMRouteRatePerMin   int

	// Worker
	WorkerCount int

	// Games
	GameWordCap           int
	FlashcardFetchLimit   int
	FlashcardAdvanceDelay time.Duration
	ScrambleAdvanceDelay  time.Duration
	GameSnapshotTTL       time.Duration
	GameIdleTimeout       time.Duration

	// Seeds / storage
	StudyActivitiesFile string
	StoragePath         string
	UploadMaxBytes      int64
	PDFFontFile         string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:               getEnvOrDefault("LOG_FILE", ""),
		DatabaseURL:           mustGetEnv("DATABASE_URL"),
		RedisURL:              mustGetEnv("REDIS_URL"),
		GeminiAPIKey:          mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		LLMRatePerMinute:      getEnvAsIntOrDefault("LLM_RATE_PER_MINUTE", 20),
		LLMRouteRatePerMin:    getEnvAsIntOrDefault("LLM_ROUTE_RATE_PER_MINUTE", 30),
		WorkerCount:           getEnvAsIntOrDefault("WORKER_COUNT", 3),
		GameWordCap:           getEnvAsIntOrDefault("GAME_WORD_CAP", 30),
		FlashcardFetchLimit:   getEnvAsIntOrDefault("FLASHCARD_FETCH_LIMIT", 100),
		FlashcardAdvanceDelay: getEnvAsDurationOrDefault("FLASHCARD_ADVANCE_DELAY", 500*time.Millisecond),
		ScrambleAdvanceDelay:  getEnvAsDurationOrDefault("SCRAMBLE_ADVANCE_DELAY", 1500*time.Millisecond),
		GameSnapshotTTL:       getEnvAsDurationOrDefault("GAME_SNAPSHOT_TTL", 720*time.Hour),
		GameIdleTimeout:       getEnvAsDurationOrDefault("GAME_IDLE_TIMEOUT", 2*time.Hour),
		StudyActivitiesFile:   getEnvOrDefault("STUDY_ACTIVITIES_FILE", "seeds/study_activities.yaml"),
		StoragePath:           getEnvOrDefault("STORAGE_PATH", "./uploads"),
		UploadMaxBytes:        int64(getEnvAsIntOrDefault("UPLOAD_MAX_BYTES", 20<<20)),
		PDFFontFile:           getEnvOrDefault("PDF_FONT_FILE", ""),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvAsDurationOrDefault accepts Go duration strings ("500ms", "2h")
// or a bare integer number of milliseconds.
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
