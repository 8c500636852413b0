package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	CORSOrigin string
	// Static bearer token gating the API; empty disables auth entirely.
	APIToken string

	// Remote store (system of record for Projects and Chapters)
	StoreBaseURL         string
	StoreAPIKey          string
	StoreVersion         string
	ProjectsCollectionID string
	ChaptersCollectionID string

	// Workflow webhooks
	GhostwriterWebhook string
	BookBinderWebhook  string

	// LLM chat endpoint (OpenRouter-compatible)
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string
	AppReferer        string

	// Redis chapter-list cache; empty disables caching.
	RedisURL string
	CacheTTL time.Duration

	// Meilisearch; empty URL disables search.
	MeiliURL       string
	MeiliMasterKey string

	// Chapter revision repositories
	RevisionsDir string

	// MinIO publish snapshots; empty endpoint disables archiving.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	return Config{
		Addr:       getenv("API_ADDR", ":8787"),
		CORSOrigin: getenv("STUDIO_CORS_ORIGIN", "*"),
		APIToken:   getenv("STUDIO_API_TOKEN", ""),

		StoreBaseURL:         getenv("STORE_BASE_URL", "https://api.notion.com/v1"),
		StoreAPIKey:          getenv("STORE_API_KEY", ""),
		StoreVersion:         getenv("STORE_VERSION", "2022-06-28"),
		ProjectsCollectionID: getenv("STORE_PROJECTS_COLLECTION_ID", ""),
		ChaptersCollectionID: getenv("STORE_CHAPTERS_COLLECTION_ID", ""),

		GhostwriterWebhook: getenv("GHOSTWRITER_WEBHOOK_URL", ""),
		BookBinderWebhook:  getenv("BOOK_BINDER_WEBHOOK_URL", ""),

		OpenRouterAPIKey:  getenv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getenv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:   getenv("OPENROUTER_MODEL", "google/gemini-2.0-flash-001"),
		AppReferer:        getenv("STUDIO_APP_REFERER", "https://ebook-creator.studio"),

		RedisURL: getenv("REDIS_URL", ""),
		CacheTTL: time.Duration(getenvInt("STUDIO_CACHE_TTL_SECONDS", 60)) * time.Second,

		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),

		RevisionsDir: getenv("STUDIO_REVISIONS_DIR", "./data/revisions"),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "bookstudio-snapshots"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
