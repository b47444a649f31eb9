package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestEmbedParsesNestedVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [[0.1, 0.2, 0.3]]}`))
	}))
	defer server.Close()

	e := NewHTTPEmbedder(server.URL, "tok", 3, server.Client(), logrus.New())
	got := e.Embed(context.Background(), "hello")
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got)
}

func TestEmbedParsesEmbeddingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding": [1, 2]}`))
	}))
	defer server.Close()

	e := NewHTTPEmbedder(server.URL, "", 2, server.Client(), logrus.New())
	assert.Equal(t, []float32{1, 2}, e.Embed(context.Background(), "hello"))
}

func TestEmbedFailureReturnsZeroVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewHTTPEmbedder(server.URL, "", 4, server.Client(), logrus.New())
	assert.Equal(t, make([]float32, 4), e.Embed(context.Background(), "hello"))
}
