// Package llm wraps the hosted text-completion APIs behind one interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/DeafMist/outbreak-radar/backend/internal/config"
)

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// Request is a single-turn completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the configured provider client, rate limited when a rate is set.
func New(cfg config.LLM) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is empty")
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	var c Completer
	switch cfg.Provider {
	case config.ProviderAnthropic:
		c = NewAnthropic(cfg.Endpoint, cfg.Model, cfg.APIKey, httpClient)
	case config.ProviderOpenAI:
		c = NewOpenAI(cfg.Endpoint, cfg.Model, cfg.APIKey, httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}

	if cfg.RatePerMinute > 0 {
		c = NewRateLimited(c, cfg.RatePerMinute)
	}
	return c, nil
}
