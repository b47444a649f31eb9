package ai

import (
	"context"
	"errors"

	"github.com/aarav0180/aven-backend/internal/models"
)

// Provider is one hosted chat endpoint. Providers are stateless
// request/response adapters; the invoker owns timeout and fallback.
type Provider interface {
	// Name returns the provider identifier (e.g. "gemini", "openrouter").
	Name() string
	// Chat sends the prompt and returns the model's text answer.
	Chat(ctx context.Context, messages []models.Message) (string, error)
}

// Domain errors for provider adapters.
var (
	ErrMissingCredential = errors.New("provider credential not configured")
	ErrEmptyResponse     = errors.New("provider returned no text")
)
