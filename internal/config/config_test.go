package config

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "ZEN_TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "ZEN_TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "ZEN_TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "ZEN_TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "ZEN_TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal time.Duration
		expected   time.Duration
	}{
		{"parses duration string", "ZEN_TEST_DUR_1", "1500ms", time.Second, 1500 * time.Millisecond},
		{"parses bare milliseconds", "ZEN_TEST_DUR_2", "250", time.Second, 250 * time.Millisecond},
		{"parses hours", "ZEN_TEST_DUR_3", "2h", time.Second, 2 * time.Hour},
		{"uses default for empty", "ZEN_TEST_DUR_4", "", time.Second, time.Second},
		{"uses default for garbage", "ZEN_TEST_DUR_5", "soon", time.Second, time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvAsDurationOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	t.Setenv("ZEN_NONEXISTENT_REQUIRED_VAR", "")
	mustGetEnv("ZEN_NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	t.Setenv("ZEN_TEST_REQUIRED", "value123")

	result := mustGetEnv("ZEN_TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func TestLoad_GameDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/zen")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GAME_WORD_CAP", "")
	t.Setenv("FLASHCARD_ADVANCE_DELAY", "")
	t.Setenv("SCRAMBLE_ADVANCE_DELAY", "")

	cfg := Load()

	if cfg.GameWordCap != 30 {
		t.Errorf("Expected word cap 30, got %d", cfg.GameWordCap)
	}
	if cfg.FlashcardAdvanceDelay != 500*time.Millisecond {
		t.Errorf("Expected flashcard delay 500ms, got %v", cfg.FlashcardAdvanceDelay)
	}
	if cfg.ScrambleAdvanceDelay != 1500*time.Millisecond {
		t.Errorf("Expected scramble delay 1500ms, got %v", cfg.ScrambleAdvanceDelay)
	}
	if cfg.FlashcardFetchLimit != 100 {
		t.Errorf("Expected fetch limit 100, got %d", cfg.FlashcardFetchLimit)
	}
}
