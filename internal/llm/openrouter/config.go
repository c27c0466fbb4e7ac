package openrouter

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the OpenRouter client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENROUTER_API_KEY
	BaseURL     string        // default https://openrouter.ai/api/v1
	Model       string        // e.g., "openai/gpt-4"
	Temperature float32       // 0..2
	MaxTokens   int           // response budget, default 500
	Timeout     time.Duration // http client timeout, default 30s
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}
