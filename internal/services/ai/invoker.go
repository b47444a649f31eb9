package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Recorder receives per-provider call metrics. A nil recorder disables
// recording.
type Recorder interface {
	RecordModelRequest(provider, status string, duration time.Duration)
	RecordProviderFallback()
}

// Invoker tries an ordered list of providers until one answers. The
// design generalizes the primary/fallback pair to N providers without
// branching per provider name; there are no retries beyond walking the
// list once, to bound latency and cost.
type Invoker struct {
	providers []Provider
	timeout   time.Duration
	metrics   Recorder
	logger    *logrus.Logger
}

// NewInvoker creates an invoker over the given providers in fallback
// order.
func NewInvoker(providers []Provider, timeout time.Duration, metrics Recorder, logger *logrus.Logger) *Invoker {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Invoker{providers: providers, timeout: timeout, metrics: metrics, logger: logger}
}

// Invoke returns a single text answer, or a clearly tagged failure string
// when every provider fails. The second return reports whether any
// provider answered; callers use it to avoid treating the failure string
// as a cacheable response. When a fallback provider answers after an
// earlier one failed, the failure detail is embedded alongside the
// fallback's output so callers can distinguish degraded-mode results.
func (inv *Invoker) Invoke(ctx context.Context, messages []models.Message) (string, bool) {
	var failures []string

	for _, provider := range inv.providers {
		callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
		start := time.Now()
		text, err := provider.Chat(callCtx, messages)
		cancel()

		if err == nil && strings.TrimSpace(text) != "" {
			inv.record(provider.Name(), "ok", time.Since(start))
			if len(failures) == 0 {
				return text, true
			}
			if inv.metrics != nil {
				inv.metrics.RecordProviderFallback()
			}
			inv.logger.WithField("provider", provider.Name()).Info("Answered via fallback provider")
			return fmt.Sprintf("%s\n[%s fallback]: %s", strings.Join(failures, "\n"), provider.Name(), text), true
		}

		if err == nil {
			err = ErrEmptyResponse
		}
		inv.record(provider.Name(), "error", time.Since(start))
		inv.logger.WithError(err).WithField("provider", provider.Name()).Warn("Provider call failed")
		failures = append(failures, fmt.Sprintf("[%s failed: %v]", provider.Name(), err))
	}

	return strings.Join(failures, "\n") + "\n[no provider produced a response]", false
}

func (inv *Invoker) record(provider, status string, duration time.Duration) {
	if inv.metrics != nil {
		inv.metrics.RecordModelRequest(provider, status, duration)
	}
}
