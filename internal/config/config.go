package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"20s"`

	// Resilience
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"2"`
	InitialBackoff time.Duration `env:"INITIAL_BACKOFF" envDefault:"200ms"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"6"`

	// Cache
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"15m"`
	TrendsCacheTTL time.Duration `env:"TRENDS_CACHE_TTL" envDefault:"6h"`
	MemoryTTL      time.Duration `env:"MEMORY_TTL" envDefault:"168h"`

	// Observability
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`

	// Storage
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// OpenAI
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL"`
	OpenAIChatModel   string `env:"OPENAI_CHAT_MODEL" envDefault:"gpt-4o"`
	OpenAIVisionModel string `env:"OPENAI_VISION_MODEL" envDefault:"gpt-4o"`
	OpenAIImageModel  string `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-3"`

	// Vertex AI
	VertexEnabled  bool   `env:"VERTEX_ENABLED" envDefault:"false"`
	VertexProject  string `env:"VERTEX_PROJECT"`
	VertexLocation string `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	VertexModel    string `env:"VERTEX_MODEL" envDefault:"gemini-2.0-flash"`

	// Shopping / media APIs
	ProductSearchURL string  `env:"PRODUCT_SEARCH_URL" envDefault:"https://serpapi.com"`
	ProductSearchKey string  `env:"PRODUCT_SEARCH_KEY"`
	TrendsFeedURL    string  `env:"TRENDS_FEED_URL"`
	UnsplashURL      string  `env:"UNSPLASH_URL" envDefault:"https://api.unsplash.com"`
	UnsplashKey      string  `env:"UNSPLASH_ACCESS_KEY"`
	UnsplashRPS      float64 `env:"UNSPLASH_RPS" envDefault:"1"`
	ImageHostURL     string  `env:"IMAGE_HOST_URL" envDefault:"https://api.imgbb.com"`
	ImageHostKey     string  `env:"IMAGE_HOST_KEY"`
	FallbackImageURL string  `env:"FALLBACK_IMAGE_BASE_URL" envDefault:"https://static.stylist.app/fallback"`

	// Barcode lookup
	UPCItemDBURL string `env:"UPCITEMDB_URL" envDefault:"https://api.upcitemdb.com"`
	RapidAPIURL  string `env:"RAPIDAPI_URL" envDefault:"https://barcodes1.p.rapidapi.com"`
	RapidAPIKey  string `env:"RAPIDAPI_KEY"`
	RapidAPIHost string `env:"RAPIDAPI_HOST" envDefault:"barcodes1.p.rapidapi.com"`

	// Chat memory
	SummaryThreshold  int `env:"MEMORY_SUMMARY_THRESHOLD" envDefault:"10"`
	HistoryLimit      int `env:"CHAT_HISTORY_LIMIT" envDefault:"20"`
	WorkerConcurrency int `env:"WORKER_CONCURRENCY" envDefault:"4"`

	// Auth
	JWTSecret string `env:"JWT_SECRET"`
	DevAuth   bool   `env:"DEV_AUTH" envDefault:"false"` // accepts X-User-ID instead of a bearer token

	SecretsDir string `env:"SECRETS_DIR" envDefault:"/run/secrets"`
}

// Load resolves the layered sources and parses them into Config. Highest
// precedence first: process env, secret files, .env.local, .env, defaults.
func Load() (*Config, error) {
	dotenv := ReadDotEnv(".env.local", ".env")
	if dir := bootstrapSecretsDir(dotenv); dir != "" {
		if err := LoadSecretFiles(dir); err != nil {
			return nil, fmt.Errorf("load secret files: %w", err)
		}
	}
	ApplyUnset(dotenv)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// VertexReady reports whether the Vertex backend has enough settings to start.
func (c *Config) VertexReady() bool {
	return c.VertexEnabled && c.VertexProject != ""
}
