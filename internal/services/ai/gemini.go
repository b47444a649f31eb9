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

// Gemini calls the Google generative-language HTTP endpoint. Gemini has
// no native system role here, so the whole prompt is flattened into a
// single user part: system messages first, then history lines, then the
// query.
type Gemini struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGemini creates a Gemini provider adapter.
func NewGemini(name, baseURL, apiKey, model string, client *http.Client, logger *logrus.Logger) *Gemini {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

func (g *Gemini) Name() string { return g.name }

// Chat implements Provider.
func (g *Gemini) Chat(ctx context.Context, messages []models.Message) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingCredential
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": flattenPrompt(messages)}},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.WithFields(logrus.Fields{
			"provider": g.name,
			"status":   resp.StatusCode,
			"body":     string(body),
		}).Error("Gemini request failed")
		return "", fmt.Errorf("gemini request failed with status %d", resp.StatusCode)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := result.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// flattenPrompt collapses the ordered message sequence into one text
// block, preserving the build order.
func flattenPrompt(messages []models.Message) string {
	var systemParts, historyParts []string
	userQuery := ""

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case models.RoleAssistant:
			historyParts = append(historyParts, "Assistant: "+msg.Content)
		case models.RoleUser:
			userQuery = msg.Content
		}
	}

	parts := make([]string, 0, 3)
	if len(systemParts) > 0 {
		parts = append(parts, strings.Join(systemParts, "\n"))
	}
	if len(historyParts) > 0 {
		parts = append(parts, strings.Join(historyParts, "\n"))
	}
	if userQuery != "" {
		parts = append(parts, "User: "+userQuery)
	}
	return strings.Join(parts, "\n")
}
