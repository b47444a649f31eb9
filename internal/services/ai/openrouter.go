package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// OpenRouter calls an OpenAI-format chat/completions endpoint.
type OpenRouter struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewOpenRouter creates an OpenRouter provider adapter.
func NewOpenRouter(name, baseURL, apiKey, model string, client *http.Client, logger *logrus.Logger) *OpenRouter {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = "meta-llama/llama-3.2-3b-instruct:free"
	}
	return &OpenRouter{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

func (o *OpenRouter) Name() string { return o.name }

// Chat implements Provider.
func (o *OpenRouter) Chat(ctx context.Context, messages []models.Message) (string, error) {
	if o.apiKey == "" {
		return "", ErrMissingCredential
	}

	reqBody := map[string]interface{}{
		"model":       o.model,
		"messages":    messages,
		"temperature": 0.7,
		"max_tokens":  1024,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := o.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		o.logger.WithFields(logrus.Fields{
			"provider": o.name,
			"status":   resp.StatusCode,
			"body":     string(body),
		}).Error("OpenRouter request failed")
		return "", fmt.Errorf("openrouter request failed with status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error.Message != "" {
		return "", fmt.Errorf("openrouter error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return result.Choices[0].Message.Content, nil
}
