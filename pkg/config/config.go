package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Application metadata exposed on the service info endpoints.
const (
	AppName        = "masarif"
	AppVersion     = "1.0.0"
	AppDescription = "AI-powered expense extraction, analytics and export API"
)

type Config struct {
	Server ServerConfig
	OpenAI OpenAIConfig
	Fetch  FetchConfig
	Logger LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // optional, for proxies and compatible gateways
	Model       string
	VisionModel string
	MaxTokens   int
}

// FetchConfig bounds outbound HTTP fetches for the webpage ingestion flow.
type FetchConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root.
	// If none is found environment variables are used directly
	// (useful for Docker/K8s).
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout := getEnvInt("SERVER_READ_TIMEOUT", 30)
	writeTimeout := getEnvInt("SERVER_WRITE_TIMEOUT", 30)
	fetchTimeout := getEnvInt("FETCH_TIMEOUT", 15)
	maxBody := getEnvInt("FETCH_MAX_BODY_KB", 2048)

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			VisionModel: getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 2000),
		},
		Fetch: FetchConfig{
			Timeout:      time.Duration(fetchTimeout) * time.Second,
			MaxBodyBytes: int64(maxBody) * 1024,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
