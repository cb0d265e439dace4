package config

import (
	"fmt"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string `conf:"default::8080,env:LISTEN_ADDR"`
	DBPath     string `conf:"default:/data/pantrytrack.db,env:DB_PATH"`

	// Vision backend: gemini, claude or ollama.
	VisionBackend      string        `conf:"default:gemini,enum:gemini|claude|ollama,env:VISION_BACKEND"`
	GeminiAPIKey       string        `conf:"env:GEMINI_API_KEY,noprint"`
	GeminiModel        string        `conf:"default:gemini-2.5-flash,env:GEMINI_MODEL"`
	ClaudeAPIKey       string        `conf:"env:CLAUDE_API_KEY,noprint"`
	ClaudeModel        string        `conf:"default:claude-opus-4-6,env:CLAUDE_MODEL"`
	OllamaHost         string        `conf:"default:http://localhost:11434,env:OLLAMA_HOST"`
	OllamaModel        string        `conf:"default:llava,env:OLLAMA_MODEL"`
	MaxImageBytes      int64         `conf:"default:10485760,env:MAX_IMAGE_BYTES"`
	ExtractTimeout     time.Duration `conf:"default:60s,env:EXTRACT_TIMEOUT"`
	ExtractMaxAttempts uint          `conf:"default:3,env:EXTRACT_MAX_ATTEMPTS"`

	// Photo backend: local or s3.
	PhotoBackend string `conf:"default:local,enum:local|s3,env:PHOTO_BACKEND"`
	PhotoPath    string `conf:"default:/data/receipts,env:PHOTO_LOCAL_PATH"`
	S3Bucket     string `conf:"default:pantrytrack-receipts,env:S3_BUCKET"`
	S3Endpoint   string `conf:"env:S3_ENDPOINT"`
	S3Region     string `conf:"default:auto,env:S3_REGION"`
	S3AccessKey  string `conf:"env:S3_ACCESS_KEY_ID,noprint"`
	S3SecretKey  string `conf:"env:S3_SECRET_ACCESS_KEY,noprint"`

	// Barcode lookups. An empty RedisURL disables the product cache.
	OpenFoodFactsURL string        `conf:"default:https://world.openfoodfacts.org,env:OFF_BASE_URL"`
	RedisURL         string        `conf:"env:REDIS_URL"`
	ProductCacheTTL  time.Duration `conf:"default:24h,env:PRODUCT_CACHE_TTL"`

	// AuthRequired rejects requests without X-User-ID instead of treating them as the guest owner.
	AuthRequired    bool   `conf:"default:false,env:AUTH_REQUIRED"`
	CORSOrigins     string `conf:"default:*,env:CORS_ORIGINS"`
	RateLimitPerMin int    `conf:"default:120,env:RATE_LIMIT_PER_MIN"`

	LogLevel   string `conf:"default:info,env:LOG_LEVEL"`
	LogFile    string `conf:"env:LOG_FILE"`
	OtelStdout bool   `conf:"default:false,env:OTEL_STDOUT"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	var cfg Config
	_ = godotenv.Load()
	if _, err := conf.Parse("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// VisionAPIKey returns the credential for the selected vision backend.
// Ollama runs locally and needs none.
func (c *Config) VisionAPIKey() string {
	switch c.VisionBackend {
	case "claude":
		return c.ClaudeAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return ""
	}
}
