// config.go - Configuration loaded from environment variables

package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	// Generation service (product detection, variants, re-rank, verification)
	GENERATION_PROVIDER string // gemini | openai
	GENERATION_MODEL    string
	VERIFY_MODEL        string
	GEMINI_API_KEY      string
	OPENAI_API_KEY      string
	OPENAI_BASE_URL     string
	OPENAI_MODEL        string

	// Recognition service
	OCR_PROVIDER          string // vision | gemini | mistral
	GOOGLE_VISION_API_KEY string
	OCR_MODEL_NAME        string
	MISTRAL_API_KEY       string
	MISTRAL_MODEL_NAME    string

	// Pricing (per 1M tokens in USD)
	GENERATION_INPUT_PRICE_PER_MILLION  float64
	GENERATION_OUTPUT_PRICE_PER_MILLION float64
	VERIFY_INPUT_PRICE_PER_MILLION      float64
	VERIFY_OUTPUT_PRICE_PER_MILLION     float64
	USD_TO_KRW                          float64

	// Catalog
	CATALOG_SOURCE           string // .xlsx | .csv | .db | .sqlite | mongodb
	CATALOG_SQLITE_TABLE     string
	CATALOG_SCHEMA_FILE      string
	CATALOG_REFRESH_MINUTES  int
	MONGO_URI                string
	MONGO_DB_NAME            string
	MONGO_CATALOG_COLLECTION string

	// Pipeline
	SUMMARY_TOP_N           int
	COARSE_TOP_N            int
	RERANK_TOP_K            int
	EXPAND_VARIANTS         bool
	FALLBACK_POLICY         string // llm | score
	VERIFY_WORKERS          int
	GENERATION_RPM          int
	GENERATION_MAX_ATTEMPTS int
	IMAGE_FETCH_TIMEOUT_SEC int

	// Image preprocessing settings
	ENABLE_IMAGE_PREPROCESSING bool
	MAX_IMAGE_DIMENSION        int

	// Server Configuration
	PORT            string
	UPLOAD_DIR      string
	ALLOWED_ORIGINS string
	LOG_LEVEL       string
	GIN_MODE        string
)

// LoadConfig loads configuration from .env (if present) and environment variables.
func LoadConfig() error {
	// Missing .env is fine; plain environment variables still apply
	_ = godotenv.Load()

	GENERATION_PROVIDER = strings.ToLower(getEnv("GENERATION_PROVIDER", "gemini"))
	GENERATION_MODEL = getEnv("GENERATION_MODEL", "gemini-2.0-flash")
	VERIFY_MODEL = getEnv("VERIFY_MODEL", "gemini-2.5-flash")
	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")
	OPENAI_API_KEY = getEnv("OPENAI_API_KEY", "")
	OPENAI_BASE_URL = getEnv("OPENAI_BASE_URL", "")
	OPENAI_MODEL = getEnv("OPENAI_MODEL", "gpt-4o-mini")

	OCR_PROVIDER = strings.ToLower(getEnv("OCR_PROVIDER", "vision"))
	GOOGLE_VISION_API_KEY = getEnv("GOOGLE_VISION_API_KEY", "")
	OCR_MODEL_NAME = getEnv("OCR_MODEL_NAME", "gemini-2.5-flash-lite")
	MISTRAL_API_KEY = getEnv("MISTRAL_API_KEY", "")
	MISTRAL_MODEL_NAME = getEnv("MISTRAL_MODEL_NAME", "mistral-ocr-latest")

	// Default to Flash pricing
	GENERATION_INPUT_PRICE_PER_MILLION = getEnvFloat("GENERATION_INPUT_PRICE_PER_MILLION", 0.10)
	GENERATION_OUTPUT_PRICE_PER_MILLION = getEnvFloat("GENERATION_OUTPUT_PRICE_PER_MILLION", 0.40)
	VERIFY_INPUT_PRICE_PER_MILLION = getEnvFloat("VERIFY_INPUT_PRICE_PER_MILLION", 0.30)
	VERIFY_OUTPUT_PRICE_PER_MILLION = getEnvFloat("VERIFY_OUTPUT_PRICE_PER_MILLION", 2.50)
	USD_TO_KRW = getEnvFloat("USD_TO_KRW", 1380.0)

	CATALOG_SOURCE = getEnv("CATALOG_SOURCE", "data/products.xlsx")
	CATALOG_SQLITE_TABLE = getEnv("CATALOG_SQLITE_TABLE", "products")
	CATALOG_SCHEMA_FILE = getEnv("CATALOG_SCHEMA_FILE", "")
	CATALOG_REFRESH_MINUTES = getEnvInt("CATALOG_REFRESH_MINUTES", 0)
	MONGO_URI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "labelmatch")
	MONGO_CATALOG_COLLECTION = getEnv("MONGO_CATALOG_COLLECTION", "products")

	SUMMARY_TOP_N = getEnvInt("SUMMARY_TOP_N", 3)
	COARSE_TOP_N = getEnvInt("COARSE_TOP_N", 100)
	RERANK_TOP_K = getEnvInt("RERANK_TOP_K", 5)
	EXPAND_VARIANTS = getEnvBool("EXPAND_VARIANTS", true)
	FALLBACK_POLICY = strings.ToLower(getEnv("FALLBACK_POLICY", "llm"))
	VERIFY_WORKERS = getEnvInt("VERIFY_WORKERS", 1)
	GENERATION_RPM = getEnvInt("GENERATION_RPM", 0)
	GENERATION_MAX_ATTEMPTS = getEnvInt("GENERATION_MAX_ATTEMPTS", 1)
	IMAGE_FETCH_TIMEOUT_SEC = getEnvInt("IMAGE_FETCH_TIMEOUT_SEC", 20)

	ENABLE_IMAGE_PREPROCESSING = getEnvBool("ENABLE_IMAGE_PREPROCESSING", false)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 2000)

	PORT = getEnv("PORT", "8080")
	UPLOAD_DIR = getEnv("UPLOAD_DIR", "uploads")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")
	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	GIN_MODE = getEnv("GIN_MODE", "release")

	return Validate()
}

// Validate checks provider selections and the credentials they need.
func Validate() error {
	switch GENERATION_PROVIDER {
	case "gemini":
		if GEMINI_API_KEY == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when GENERATION_PROVIDER=gemini")
		}
	case "openai":
		if OPENAI_API_KEY == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when GENERATION_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unsupported GENERATION_PROVIDER: %s (supported: gemini, openai)", GENERATION_PROVIDER)
	}

	switch OCR_PROVIDER {
	case "vision":
		if GOOGLE_VISION_API_KEY == "" {
			return fmt.Errorf("GOOGLE_VISION_API_KEY is required when OCR_PROVIDER=vision")
		}
	case "gemini":
		if GEMINI_API_KEY == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when OCR_PROVIDER=gemini")
		}
	case "mistral":
		if MISTRAL_API_KEY == "" {
			return fmt.Errorf("MISTRAL_API_KEY is required when OCR_PROVIDER=mistral")
		}
	default:
		return fmt.Errorf("unsupported OCR_PROVIDER: %s (supported: vision, gemini, mistral)", OCR_PROVIDER)
	}

	if FALLBACK_POLICY != "llm" && FALLBACK_POLICY != "score" {
		return fmt.Errorf("unsupported FALLBACK_POLICY: %s (supported: llm, score)", FALLBACK_POLICY)
	}
	if SUMMARY_TOP_N <= 0 || COARSE_TOP_N <= 0 || RERANK_TOP_K <= 0 {
		return fmt.Errorf("SUMMARY_TOP_N, COARSE_TOP_N and RERANK_TOP_K must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
