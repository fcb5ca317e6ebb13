package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	SoraBaseURL      string
	SoraAPIKey       string
	ChatUpstreamURL  string
	PollInterval     time.Duration
	UploadDir        string
	AllowedOrigins   []string
	SubmitRateLimit  int

	SystemPromptEnabled bool
	ImageSystemPrompt   string
	VideoSystemPrompt   string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	UpstreamTimeout  time.Duration
	StreamTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SoraBaseURL:      getEnv("SORA_BASE_URL", "https://grsai.dakka.com.cn"),
		SoraAPIKey:       os.Getenv("SORA_API_KEY"),
		ChatUpstreamURL:  os.Getenv("CHAT_UPSTREAM_URL"),
		PollInterval:     time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 1500)),
		UploadDir:        getEnv("UPLOAD_DIR", "./uploads"),
		AllowedOrigins:   splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
		SubmitRateLimit:  getEnvInt("SUBMIT_RATE_LIMIT_PER_MINUTE", 0),

		SystemPromptEnabled: getEnvBool("SYSTEM_PROMPT_ENABLED", true),
		ImageSystemPrompt:   getEnv("IMAGE_SYSTEM_PROMPT", defaultImageSystemPrompt),
		VideoSystemPrompt:   getEnv("VIDEO_SYSTEM_PROMPT", defaultVideoSystemPrompt),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		UpstreamTimeout:  time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30)),
		StreamTimeout:    time.Second * time.Duration(getEnvInt("STREAM_TIMEOUT_SECONDS", 300)),
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}

	return cfg, nil
}

const defaultImageSystemPrompt = "You are an Amazon ecommerce product imaging assistant. " +
	"Follow Amazon image policies and the user's request. " +
	"If the user does not specify image type, assume MAIN IMAGE.\n" +
	"MAIN IMAGE rules: pure white #FFFFFF background, product only, no props " +
	"unless part of the product, no text or watermarks, centered, clean lighting.\n" +
	"A+ / lifestyle rules: contextual scenes are allowed, but keep product " +
	"dominant, realistic scale, no deceptive claims, no copyrighted logos unless provided."

const defaultVideoSystemPrompt = "You are an Amazon ecommerce product video director. " +
	"Follow the user's request and Amazon video policies. " +
	"If the user does not specify type, assume a short promo/hero product video.\n" +
	"Keep shots clean, stable, and product-focused. Avoid text overlays, " +
	"watermarks, and copyrighted assets unless the user explicitly asks."

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
