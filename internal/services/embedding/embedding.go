// Package embedding turns a query into a vector via a hosted embedding
// endpoint. Embedding is best-effort: any failure yields the zero vector
// so retrieval simply finds nothing, rather than erroring the request.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Service produces query embeddings.
type Service interface {
	Embed(ctx context.Context, query string) []float32
}

// HTTPEmbedder posts the query to an embedding endpoint and parses the
// returned vector. The endpoint may return the vector directly or nested
// one level under "data".
type HTTPEmbedder struct {
	url        string
	token      string
	dimension  int
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewHTTPEmbedder creates an embedder. dimension sizes the zero vector
// returned on failure.
func NewHTTPEmbedder(url, token string, dimension int, client *http.Client, logger *logrus.Logger) *HTTPEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HTTPEmbedder{
		url:        url,
		token:      token,
		dimension:  dimension,
		httpClient: client,
		logger:     logger,
	}
}

// Embed implements Service.
func (e *HTTPEmbedder) Embed(ctx context.Context, query string) []float32 {
	if e.url == "" {
		return e.zeroVector()
	}

	payload, err := json.Marshal(map[string]interface{}{"data": []string{query}})
	if err != nil {
		e.logger.WithError(err).Error("Failed to encode embedding request")
		return e.zeroVector()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewBuffer(payload))
	if err != nil {
		e.logger.WithError(err).Error("Failed to create embedding request")
		return e.zeroVector()
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.WithError(err).Error("Embedding request failed")
		return e.zeroVector()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		e.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
		}).Error("Embedding endpoint returned no usable response")
		return e.zeroVector()
	}

	vector, ok := parseVector(body)
	if !ok {
		e.logger.Error("No valid embedding in response, returning zero vector")
		return e.zeroVector()
	}
	return vector
}

func (e *HTTPEmbedder) zeroVector() []float32 {
	return make([]float32, e.dimension)
}

// parseVector accepts either {"data": [[...]]}, {"data": [...]},
// {"embedding": [...]} or a bare JSON array.
func parseVector(body []byte) ([]float32, bool) {
	var envelope struct {
		Data      json.RawMessage `json:"data"`
		Embedding []float32       `json:"embedding"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Embedding) > 0 {
			return envelope.Embedding, true
		}
		if len(envelope.Data) > 0 {
			if v, ok := parseNumberList(envelope.Data); ok {
				return v, true
			}
		}
	}
	return parseNumberList(body)
}

// parseNumberList unwraps up to two levels of array nesting around a
// list of numbers.
func parseNumberList(raw json.RawMessage) ([]float32, bool) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat, true
	}

	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], true
	}

	var deep [][][]float32
	if err := json.Unmarshal(raw, &deep); err == nil && len(deep) > 0 && len(deep[0]) > 0 && len(deep[0][0]) > 0 {
		return deep[0][0], true
	}

	return nil, false
}
