package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath     string
	UploadDir  string
	LockPath   string
	ServerPort string
	LogLevel   string

	AllianceID   int64
	AllianceName string
	AllianceTag  string

	AIEnabled      bool
	VisionModel    string
	VisionAPIKey   string
	VisionEndpoint string
	RateLimitDelay time.Duration

	Timezone   *time.Location
	BearWindow time.Duration

	FuzzyThreshold    float64
	AuditThreshold    float64
	AIConfidenceFloor float64
	HeuristicCeiling  float64

	DeleteProcessed   bool
	RetentionPeriod   time.Duration
	RetentionSchedule string
	MaxImageBytes     int64
	WorkerQueueSize   int
	TesseractBinary   string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "observatory.db"),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		LockPath:          getEnv("LOCK_PATH", "observatory.lock"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AllianceName:      getEnv("ALLIANCE_NAME", "default"),
		AllianceTag:       getEnv("ALLIANCE_TAG", ""),
		VisionModel:       getEnv("AI_OCR_MODEL", "gpt-4o-mini"),
		VisionAPIKey:      getEnv("OPENAI_API_KEY", ""),
		VisionEndpoint:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1/chat/completions"),
		RetentionSchedule: getEnv("RETENTION_SCHEDULE", "@hourly"),
		TesseractBinary:   getEnv("TESSERACT_BINARY", "tesseract"),
	}

	var err error
	cfg.AllianceID, err = getEnvInt64("ALLIANCE_ID", 1)
	collect(err)
	cfg.AIEnabled, err = getEnvBool("AI_OCR_ENABLED", false)
	collect(err)
	cfg.DeleteProcessed, err = getEnvBool("DELETE_PROCESSED_SCREENSHOTS", false)
	collect(err)

	delaySeconds, err := getEnvFloat("AI_OCR_RATE_LIMIT_DELAY", 12)
	collect(err)
	cfg.RateLimitDelay = time.Duration(delaySeconds * float64(time.Second))

	windowHours, err := getEnvFloat("BEAR_EVENT_WINDOW_HOURS", 24)
	collect(err)
	cfg.BearWindow = time.Duration(windowHours * float64(time.Hour))

	cfg.FuzzyThreshold, err = getEnvFloat("FUZZY_MATCH_THRESHOLD", 0.85)
	collect(err)
	cfg.AuditThreshold, err = getEnvFloat("AUDIT_MATCH_THRESHOLD", 0.70)
	collect(err)
	cfg.AIConfidenceFloor, err = getEnvFloat("AI_CONFIDENCE_FLOOR", 0.7)
	collect(err)
	cfg.HeuristicCeiling, err = getEnvFloat("HEURISTIC_CONFIDENCE_CEILING", 0.8)
	collect(err)

	cfg.RetentionPeriod, err = getEnvDuration("RETENTION_PERIOD", 720*time.Hour)
	collect(err)
	cfg.MaxImageBytes, err = getEnvInt64("MAX_IMAGE_BYTES", 10<<20)
	collect(err)
	queueSize, err := getEnvInt64("WORKER_QUEUE_SIZE", 32)
	collect(err)
	cfg.WorkerQueueSize = int(queueSize)

	tzName := getEnv("SCREENSHOT_TIMEZONE", "America/New_York")
	cfg.Timezone, err = time.LoadLocation(tzName)
	if err != nil {
		collect(fmt.Errorf("SCREENSHOT_TIMEZONE %q: %w", tzName, err))
	}

	collect(cfg.validate())
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("upload_dir", cfg.UploadDir).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int64("alliance_id", cfg.AllianceID).
		Bool("ai_enabled", cfg.AIEnabled).
		Str("ai_model", cfg.VisionModel).
		Dur("rate_limit_delay", cfg.RateLimitDelay).
		Str("timezone", cfg.Timezone.String()).
		Dur("bear_window", cfg.BearWindow).
		Float64("fuzzy_threshold", cfg.FuzzyThreshold).
		Float64("audit_threshold", cfg.AuditThreshold).
		Bool("delete_processed", cfg.DeleteProcessed).
		Dur("retention_period", cfg.RetentionPeriod).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string
	for name, v := range map[string]float64{
		"FUZZY_MATCH_THRESHOLD":        c.FuzzyThreshold,
		"AUDIT_MATCH_THRESHOLD":        c.AuditThreshold,
		"AI_CONFIDENCE_FLOOR":          c.AIConfidenceFloor,
		"HEURISTIC_CONFIDENCE_CEILING": c.HeuristicCeiling,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1]", name))
		}
	}
	if c.RateLimitDelay < 0 {
		problems = append(problems, "AI_OCR_RATE_LIMIT_DELAY must not be negative")
	}
	if c.BearWindow <= 0 {
		problems = append(problems, "BEAR_EVENT_WINDOW_HOURS must be positive")
	}
	if c.AIEnabled && c.VisionAPIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required when AI_OCR_ENABLED is set")
	}
	if c.WorkerQueueSize <= 0 {
		problems = append(problems, "WORKER_QUEUE_SIZE must be positive")
	}
	if c.MaxImageBytes <= 0 {
		problems = append(problems, "MAX_IMAGE_BYTES must be positive")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(problems, "; "))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

var Module = fx.Provide(Load)
