package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMissingCredential is returned when no API key for the configured
// generation/transcription provider is present in the environment.
var ErrMissingCredential = errors.New("missing API credential")

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Media     MediaConfig
	Docgen    DocgenConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	APIKey       string // empty disables auth
	APIKeyHeader string
}

type OpenAIConfig struct {
	APIKey             string
	TranscriptionModel string
	GenerationModel    string
}

type AnthropicConfig struct {
	APIKey          string
	GenerationModel string
}

type MediaConfig struct {
	FFmpegPath   string
	FFprobePath  string
	ByteBudget   int64 // max payload accepted by the transcription upload
	MinChunkMS   int64
	ShrinkFactor float64
}

type DocgenConfig struct {
	Provider     string // "openai" or "anthropic"
	PDFLatexPath string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	byteBudget, err := getEnvInt64("CHUNK_BYTE_BUDGET", 24*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_BYTE_BUDGET: %w", err)
	}

	minChunkMS, err := getEnvInt64("MIN_CHUNK_MS", 5000)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_CHUNK_MS: %w", err)
	}

	shrinkFactor, err := getEnvFloat("CHUNK_SHRINK_FACTOR", 0.7)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SHRINK_FACTOR: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			APIKey:       getEnv("API_KEY", ""),
			APIKeyHeader: getEnv("API_KEY_HEADER", "X-API-Key"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "gpt-4o-transcribe"),
			GenerationModel:    getEnv("OPENAI_GENERATION_MODEL", "gpt-4.1"),
		},
		Anthropic: AnthropicConfig{
			APIKey:          getEnv("ANTHROPIC_API_KEY", ""),
			GenerationModel: getEnv("ANTHROPIC_GENERATION_MODEL", "claude-sonnet-4-20250514"),
		},
		Media: MediaConfig{
			FFmpegPath:   getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:  getEnv("FFPROBE_PATH", "ffprobe"),
			ByteBudget:   byteBudget,
			MinChunkMS:   minChunkMS,
			ShrinkFactor: shrinkFactor,
		},
		Docgen: DocgenConfig{
			Provider:     getEnv("GENERATION_PROVIDER", "openai"),
			PDFLatexPath: getEnv("PDFLATEX_PATH", "pdflatex"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks that the credentials a run will need are present up front.
func (c *Config) Validate() error {
	var missing []string
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Docgen.Provider == "anthropic" && c.Anthropic.APIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	if c.Media.ShrinkFactor <= 0 || c.Media.ShrinkFactor >= 1 {
		return fmt.Errorf("CHUNK_SHRINK_FACTOR must be in (0, 1), got %v", c.Media.ShrinkFactor)
	}
	if c.Media.MinChunkMS <= 0 {
		return fmt.Errorf("MIN_CHUNK_MS must be positive, got %d", c.Media.MinChunkMS)
	}
	if c.Media.ByteBudget <= 0 {
		return fmt.Errorf("CHUNK_BYTE_BUDGET must be positive, got %d", c.Media.ByteBudget)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
