package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/gemini"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/openai"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/storage"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/db"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/observability"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/envutil"
)

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendMock   = "mock"
)

type Config struct {
	LogMode string
	Port    string `validate:"required,numeric"`

	DB db.Config

	RedisAddr        string `validate:"omitempty,hostname_port"`
	RedisChannel     string
	SettingsCacheTTL time.Duration

	Backend string `validate:"oneof=openai gemini mock"`
	OpenAI  openai.Config
	Gemini  gemini.Config
	Storage storage.Config

	CallTimeout        time.Duration `validate:"gt=0"`
	Language           string        `validate:"required,min=2,max=16"`
	DefaultsFile       string
	PersistMaxAttempts int           `validate:"min=1,max=10"`
	JobRetention       time.Duration `validate:"gt=0"`

	CORSOrigins []string
	Otel        observability.OtelConfig
}

// LoadConfig reads .env (when present) and then the process environment.
func LoadConfig() (Config, error) {
	return LoadConfigWith(nil)
}

// LoadConfigWith is LoadConfig with a hook to adjust values before validation.
func LoadConfigWith(adjust func(*Config)) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		LogMode: envutil.String("LOG_MODE", "development"),
		Port:    envutil.String("PORT", "8080"),

		DB: db.ConfigFromEnv(),

		RedisAddr:        envutil.String("REDIS_ADDR", ""),
		RedisChannel:     envutil.String("REDIS_CHANNEL", "lessonforge:sse"),
		SettingsCacheTTL: envutil.Seconds("SETTINGS_CACHE_TTL_SECONDS", time.Minute),

		Backend: strings.ToLower(envutil.String("GENERATION_BACKEND", BackendOpenAI)),
		OpenAI:  openai.ConfigFromEnv(),
		Gemini:  gemini.ConfigFromEnv(),
		Storage: storage.Config{
			Bucket:       envutil.String("GCS_BUCKET", ""),
			EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
			MaxBytes:     int64(envutil.Int("CONTEXT_FILE_MAX_BYTES", 20<<20)),
		},

		CallTimeout:        envutil.Seconds("GENERATION_CALL_TIMEOUT_SECONDS", 120*time.Second),
		Language:           envutil.String("GENERATION_LANGUAGE", "cs"),
		DefaultsFile:       envutil.String("GENERATION_DEFAULTS_FILE", ""),
		PersistMaxAttempts: envutil.Int("PERSIST_MAX_ATTEMPTS", 3),
		JobRetention:       envutil.Seconds("JOB_RETENTION_SECONDS", 30*time.Minute),

		CORSOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "lessonforge"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},
	}
	if adjust != nil {
		adjust(&cfg)
	}
	return cfg, cfg.Validate()
}

// Validate checks field formats and the credentials the chosen backend needs.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Backend {
	case BackendOpenAI:
		if strings.TrimSpace(c.OpenAI.APIKey) == "" {
			return fmt.Errorf("invalid config: OPENAI_API_KEY is required for the openai backend")
		}
	case BackendGemini:
		if strings.TrimSpace(c.Gemini.APIKey) == "" {
			return fmt.Errorf("invalid config: GEMINI_API_KEY is required for the gemini backend")
		}
	}
	return nil
}
