package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
// It is built once at startup and read-only afterwards.
type Config struct {
	Port string

	// Fine-tuned model endpoint
	ModelEndpoint string
	ModelAPIKey   string

	// Artifact storage roots
	AudioDir  string
	TextDir   string
	IndexPath string // sqlite artifact index

	// Retention policy
	AudioMaxAgeHours int
	TextMaxAgeDays   int
	// Extensions swept from the temp audio partition. The original product
	// behavior swept wav+mp3 only while listing also includes ogg; kept as
	// the default pending product sign-off on sweeping ogg too.
	SweepExtensions []string
	// Hours between scheduled retention sweeps; 0 disables the background
	// job and leaves sweeping caller-triggered only.
	CleanupIntervalHours int

	// Optional YAML file overriding the built-in fallback story pool
	FallbackStoriesFile string

	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "5000"),

		ModelEndpoint: getEnv("MODEL_ENDPOINT", "http://localhost:8000/api/model"),
		ModelAPIKey:   getEnv("MODEL_API_KEY", ""),

		AudioDir:  getEnv("AUDIO_OUTPUT_DIR", "audio_outputs"),
		TextDir:   getEnv("TEXT_OUTPUT_DIR", "text_outputs"),
		IndexPath: getEnv("ARTIFACT_INDEX_PATH", "text_outputs/artifacts.db"),

		AudioMaxAgeHours:     getIntEnv("AUDIO_MAX_AGE_HOURS", 24),
		TextMaxAgeDays:       getIntEnv("TEXT_MAX_AGE_DAYS", 30),
		SweepExtensions:      getListEnv("AUDIO_SWEEP_EXTENSIONS", []string{"wav", "mp3"}),
		CleanupIntervalHours: getIntEnv("CLEANUP_INTERVAL_HOURS", 0),

		FallbackStoriesFile: getEnv("FALLBACK_STORIES_FILE", ""),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
	}
}

// fallbackFile is the YAML shape of an external fallback story pool
type fallbackFile struct {
	Stories []string `yaml:"stories"`
}

// LoadFallbackStories loads a replacement fallback story pool from a YAML file
func LoadFallbackStories(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback stories file: %w", err)
	}

	var f fallbackFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fallback stories YAML: %w", err)
	}
	if len(f.Stories) == 0 {
		return nil, fmt.Errorf("fallback stories file %s contains no stories", filePath)
	}

	return f.Stories, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "."))
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
