// Package retrieval fetches grounding context from the vector store. The
// core treats the result as opaque text; an empty string is a valid
// "no context" outcome, never an error.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// PromptSource supplies the optional per-tenant instructional prompt.
type PromptSource interface {
	InstructionalPrompt(ctx context.Context, subject string) string
}

// Retriever returns passage text plus an optional instructional prompt
// for a query embedding.
type Retriever interface {
	Retrieve(ctx context.Context, query string, embedding []float32, filter map[string]string) (contextText, instructionalPrompt string)
}

// PineconeRetriever queries a Pinecone index over its HTTP API.
type PineconeRetriever struct {
	endpoint   string
	apiKey     string
	topK       int
	httpClient *http.Client
	prompts    PromptSource
	logger     *logrus.Logger
}

// NewPineconeRetriever creates a retriever for the given index endpoint.
// prompts may be nil when no tenant prompts are configured.
func NewPineconeRetriever(endpoint, apiKey string, topK int, client *http.Client, prompts PromptSource, logger *logrus.Logger) *PineconeRetriever {
	if topK <= 0 {
		topK = 5
	}
	return &PineconeRetriever{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		topK:       topK,
		httpClient: client,
		prompts:    prompts,
		logger:     logger,
	}
}

// Retrieve implements Retriever. Any failure degrades to an empty
// context string.
func (r *PineconeRetriever) Retrieve(ctx context.Context, query string, embedding []float32, filter map[string]string) (string, string) {
	instructional := ""
	if r.prompts != nil {
		instructional = r.prompts.InstructionalPrompt(ctx, filter["subject"])
	}

	if r.endpoint == "" || r.apiKey == "" {
		r.logger.Error("Pinecone endpoint or API key not set")
		return "", instructional
	}

	body := map[string]interface{}{
		"vector":          embedding,
		"topK":            r.topK,
		"includeMetadata": true,
		"includeValues":   false,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		r.logger.WithError(err).Error("Failed to encode Pinecone query")
		return "", instructional
	}

	url := r.endpoint + "/query"
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		r.logger.WithError(err).Error("Failed to create Pinecone request")
		return "", instructional
	}
	req.Header.Set("Api-Key", r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.WithError(err).Error("Pinecone retrieval failed")
		return "", instructional
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.WithError(err).Error("Failed to read Pinecone response")
		return "", instructional
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(respBody),
		}).Error("Pinecone query returned non-OK status")
		return "", instructional
	}

	var result struct {
		Matches []struct {
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		r.logger.WithError(err).Error("Failed to parse Pinecone response")
		return "", instructional
	}

	r.logger.WithField("matches", len(result.Matches)).Debug("Pinecone query completed")

	contexts := make([]string, 0, len(result.Matches))
	for i, match := range result.Matches {
		if i >= r.topK {
			break
		}
		if content, ok := match.Metadata["content"].(string); ok && content != "" {
			contexts = append(contexts, content)
		}
	}
	return strings.Join(contexts, "\n\n"), instructional
}

var _ Retriever = (*PineconeRetriever)(nil)
