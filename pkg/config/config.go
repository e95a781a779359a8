package config

import (
	"log"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	DatabaseDSN   string
	AppEnv        string
	IsStaging     bool
	IsProduction  bool

	JWTSecret string
	Port      string

	AdminEmail           string
	AdminPasswordHash    string
	CareTeamEmail        string
	CareTeamPasswordHash string

	// runtime tunables
	RateLimitWindowSeconds  int
	RateLimitCapacity       int
	ProviderMaxAttempts     int
	ProviderRetryBaseMs     int
	ChatbotCacheTTLSeconds  int
	ChatbotCacheMaxItems    int
	GenericFallbackResponse string
)

// loadAppEnv loads .env only outside production; production relies on host env.
func loadAppEnv() {
	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
}

func init() {
	loadAppEnv()

	OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	OpenAIModel = os.Getenv("OPENAI_MODEL")
	OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	DatabaseDSN = os.Getenv("DB_DSN")

	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "" {
		AppEnv = "staging"
	}
	if !slices.Contains([]string{"staging", "production"}, AppEnv) {
		log.Fatal("environment variable APP_ENV must be 'staging' or 'production'")
	}
	IsStaging = AppEnv == "staging"
	IsProduction = AppEnv == "production"

	if OpenAIModel == "" {
		OpenAIModel = "gpt-4o-mini"
	}
	if OpenAIBaseURL == "" {
		OpenAIBaseURL = "https://api.openai.com/v1"
	}

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "5000"
	}

	AdminEmail = os.Getenv("ADMIN_EMAIL")
	AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")
	CareTeamEmail = os.Getenv("CARETEAM_EMAIL")
	CareTeamPasswordHash = os.Getenv("CARETEAM_PASSWORD_HASH")

	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 5)
	ProviderMaxAttempts = atoiOr(os.Getenv("PROVIDER_MAX_ATTEMPTS"), 3)
	ProviderRetryBaseMs = atoiOr(os.Getenv("PROVIDER_RETRY_BASE_MS"), 500)
	ChatbotCacheTTLSeconds = atoiOr(os.Getenv("CHATBOT_CACHE_TTL_SECONDS"), 300)
	ChatbotCacheMaxItems = atoiOr(os.Getenv("CHATBOT_CACHE_MAX_ITEMS"), 500)

	GenericFallbackResponse = os.Getenv("GENERIC_FALLBACK_RESPONSE")
	if GenericFallbackResponse == "" {
		GenericFallbackResponse = "I'm sorry, I wasn't able to answer that. Please try again."
	}

	if IsProduction && JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set in production")
	}

	log.Printf("[config] AppEnv=%s IsStaging=%v IsProduction=%v", AppEnv, IsStaging, IsProduction)
	log.Printf("[config] OpenAIKeyPresent=%v model=%s", OpenAIAPIKey != "", OpenAIModel)
	log.Printf("[config] RateLimit window=%ds capacity=%d retries=%d retryBase=%dms cacheTTL=%ds cacheMax=%d",
		RateLimitWindowSeconds, RateLimitCapacity, ProviderMaxAttempts, ProviderRetryBaseMs, ChatbotCacheTTLSeconds, ChatbotCacheMaxItems)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
