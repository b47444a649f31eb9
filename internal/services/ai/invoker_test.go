package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	name string
	text string
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Chat(ctx context.Context, messages []models.Message) (string, error) {
	return s.text, s.err
}

func newTestInvoker(providers ...Provider) *Invoker {
	return NewInvoker(providers, time.Second, nil, logrus.New())
}

func TestInvokePrimarySucceeds(t *testing.T) {
	inv := newTestInvoker(
		&stubProvider{name: "gemini", text: "primary answer"},
		&stubProvider{name: "openrouter", text: "never reached"},
	)

	got, ok := inv.Invoke(context.Background(), nil)
	// No degraded-mode annotation on the primary path.
	assert.True(t, ok)
	assert.Equal(t, "primary answer", got)
}

func TestInvokeFallbackAnnotated(t *testing.T) {
	inv := newTestInvoker(
		&stubProvider{name: "gemini", err: errors.New("quota exceeded")},
		&stubProvider{name: "openrouter", text: "fallback answer"},
	)

	got, ok := inv.Invoke(context.Background(), nil)
	assert.True(t, ok)
	assert.Equal(t, "[gemini failed: quota exceeded]\n[openrouter fallback]: fallback answer", got)
}

func TestInvokeEmptyTreatedAsFailure(t *testing.T) {
	inv := newTestInvoker(
		&stubProvider{name: "gemini", text: "   "},
		&stubProvider{name: "openrouter", text: "fallback answer"},
	)

	got, ok := inv.Invoke(context.Background(), nil)
	assert.True(t, ok)
	assert.Contains(t, got, "[gemini failed:")
	assert.Contains(t, got, "[openrouter fallback]: fallback answer")
}

func TestInvokeMissingCredentialFallsBack(t *testing.T) {
	inv := newTestInvoker(
		&stubProvider{name: "gemini", err: ErrMissingCredential},
		&stubProvider{name: "openrouter", text: "fallback answer"},
	)

	got, ok := inv.Invoke(context.Background(), nil)
	assert.True(t, ok)
	assert.Contains(t, got, "[openrouter fallback]: fallback answer")
}

func TestInvokeAllFail(t *testing.T) {
	inv := newTestInvoker(
		&stubProvider{name: "gemini", err: errors.New("down")},
		&stubProvider{name: "openrouter", err: errors.New("also down")},
	)

	got, ok := inv.Invoke(context.Background(), nil)
	assert.False(t, ok)
	assert.Contains(t, got, "[gemini failed: down]")
	assert.Contains(t, got, "[openrouter failed: also down]")
	assert.Contains(t, got, "[no provider produced a response]")
}
