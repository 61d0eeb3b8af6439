package config

import (
	"os"
	"strconv"
	"time"
)

// AchievementThresholds holds the numeric triggers for the achievement table.
// These are configuration, not hard-coded fact: the streak and master-learner
// rules in particular were only ever referenced by name upstream.
type AchievementThresholds struct {
	QuestionsMilestone   int // "100-questions"
	StreakDays           int // "week-streak": nonzero weekday slots required
	MasterStudyHours     int // "master-learner"
	DocumentExpertCount  int // "document-expert"
	CollaboratorSessions int // "ai-collaborator": completed conversations
}

// Config holds all application configuration
type Config struct {
	Port         string
	DatabasePath string // SQLite file path; empty selects in-memory stores
	MongoURI     string // optional; enables MongoDB-backed chat history
	RedisURL     string // optional; enables achievement/stat event publishing
	CORSOrigin   string

	// Generation backend (OpenAI-compatible chat completions endpoint)
	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	LLMTimeout      time.Duration
	LLMRateLimitRPS float64

	// Turn processing
	GroundingBudgetChars int
	HistoryWindow        int
	SessionTTL           time.Duration

	// Document uploads
	UploadMaxBytes int64

	// Retention jobs
	HistoryRetention    time.Duration // saved conversations older than this are pruned
	FailedUploadMaxAge  time.Duration // failed uploads older than this are removed
	RetentionJobEnabled bool

	Achievements AchievementThresholds
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "5000"),
		DatabasePath: getEnv("DATABASE_PATH", "./studymate.db"),
		MongoURI:     getEnv("MONGODB_URI", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		CORSOrigin:   getEnv("CORS_ORIGIN", "http://localhost:5173"),

		LLMBaseURL:      getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "gemini-2.5-flash"),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 30*time.Second),
		LLMRateLimitRPS: getFloatEnv("LLM_RATE_LIMIT_RPS", 5),

		GroundingBudgetChars: getIntEnv("GROUNDING_BUDGET_CHARS", 10000),
		HistoryWindow:        getIntEnv("HISTORY_WINDOW", 10),
		SessionTTL:           getDurationEnv("SESSION_TTL", 30*time.Minute),

		UploadMaxBytes: int64(getIntEnv("UPLOAD_MAX_BYTES", 20*1024*1024)),

		HistoryRetention:    getDurationEnv("HISTORY_RETENTION", 90*24*time.Hour),
		FailedUploadMaxAge:  getDurationEnv("FAILED_UPLOAD_MAX_AGE", 24*time.Hour),
		RetentionJobEnabled: getBoolEnv("RETENTION_JOBS_ENABLED", true),

		Achievements: AchievementThresholds{
			QuestionsMilestone:   getIntEnv("ACHIEVEMENT_QUESTIONS_MILESTONE", 100),
			StreakDays:           getIntEnv("ACHIEVEMENT_STREAK_DAYS", 7),
			MasterStudyHours:     getIntEnv("ACHIEVEMENT_MASTER_STUDY_HOURS", 1000),
			DocumentExpertCount:  getIntEnv("ACHIEVEMENT_DOCUMENT_EXPERT_COUNT", 50),
			CollaboratorSessions: getIntEnv("ACHIEVEMENT_COLLABORATOR_SESSIONS", 10),
		},
	}
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

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
