package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret    string
	JWTExpiresIn time.Duration

	// Cookies
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string

	// OpenRouter
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	LLMTimeout        time.Duration

	// Frontend
	ClientURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),

		JWTSecret:    mustGetEnv("JWT_SECRET"),
		JWTExpiresIn: getEnvAsDurationOrDefault("JWT_EXPIRES_IN", 7*24*time.Hour),

		CookieDomain:   getEnvOrDefault("COOKIE_DOMAIN", "localhost"),
		CookieSecure:   getEnvAsBoolOrDefault("COOKIE_SECURE", false),
		CookieSameSite: getEnvOrDefault("COOKIE_SAME_SITE", "lax"),

		// No default API key: the LLM service fails fast on first use instead,
		// so the rest of the app stays usable without OpenRouter credentials.
		OpenRouterAPIKey:  getEnvOrDefault("OPENROUTER_API_KEY", ""),
		OpenRouterModel:   getEnvOrDefault("OPENROUTER_MODEL", "meta-llama/llama-3.2-3b-instruct:free"),
		OpenRouterBaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMTimeout:        getEnvAsDurationOrDefault("LLM_TIMEOUT", 30*time.Second),

		ClientURL: getEnvOrDefault("CLIENT_URL", "http://localhost:3000"),
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
