package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the evaluation service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	RedisURL       string
	ResultCacheTTL time.Duration

	NATSURL     string
	NATSSubject string

	JWTSecret string

	OpenAIAPIKey   string
	JudgeModel     string
	JudgeTimeout   time.Duration
	JudgeRetries   int
	JudgeBackoff   time.Duration
	EmbeddingModel string

	NLIServiceURL string
	NLITimeout    time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QUIZORA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Quizora Evaluation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("result_cache_ttl", "10m")
	v.SetDefault("nats.subject", "quizora.evaluation.completed")
	v.SetDefault("judge.model", "gpt-4o-mini")
	v.SetDefault("judge.timeout", "45s")
	v.SetDefault("judge.retries", 2)
	v.SetDefault("judge.backoff", "1s")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("nli.timeout", "15s")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")

	cacheTTL, err := time.ParseDuration(v.GetString("result_cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid result cache ttl: %w", err)
	}

	judgeTimeout, err := time.ParseDuration(v.GetString("judge.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge timeout: %w", err)
	}

	judgeBackoff, err := time.ParseDuration(v.GetString("judge.backoff"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge backoff: %w", err)
	}

	nliTimeout, err := time.ParseDuration(v.GetString("nli.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid nli timeout: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("rate_limit.window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		RedisURL:        v.GetString("redis.url"),
		ResultCacheTTL:  cacheTTL,
		NATSURL:         v.GetString("nats.url"),
		NATSSubject:     v.GetString("nats.subject"),
		JWTSecret:       v.GetString("jwt.secret"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		JudgeModel:      v.GetString("judge.model"),
		JudgeTimeout:    judgeTimeout,
		JudgeRetries:    v.GetInt("judge.retries"),
		JudgeBackoff:    judgeBackoff,
		EmbeddingModel:  v.GetString("embedding.model"),
		NLIServiceURL:   v.GetString("nli.service_url"),
		NLITimeout:      nliTimeout,
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: rateWindow,
	}

	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("openai api key must be provided")
	}

	if cfg.JudgeRetries < 0 {
		cfg.JudgeRetries = 0
	}

	return cfg, nil
}
