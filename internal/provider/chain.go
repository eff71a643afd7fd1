// Package provider implements the ordered-fallback execution strategy shared
// by geocoding and official-update aggregation: try providers in priority
// order, stop at the first success, and fall back to a deterministic
// substitute when every provider fails. The chain never surfaces a provider
// failure to its caller.
package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/reliefgrid/disaster-aggregator/internal/observability"
)

// SubstituteTag marks results produced by the substitute generator.
const SubstituteTag = "mock"

// DefaultTimeout bounds a single provider call. A provider that does not
// answer within it is treated as failed and the chain advances.
const DefaultTimeout = 10 * time.Second

// Provider is one entry in a fallback chain.
type Provider[I, O any] interface {
	// Name tags results and log lines; it becomes the source of a
	// successful resolution.
	Name() string
	// Resolve produces a result or fails. Implementations must honor ctx
	// cancellation; the chain imposes a per-call timeout.
	Resolve(ctx context.Context, input I) (O, error)
}

// Chain tries providers in order and guarantees a usable result.
// Providers run sequentially on purpose: an early success must prevent later
// providers from being called at all.
type Chain[I, O any] struct {
	component  string
	providers  []Provider[I, O]
	substitute func(input I) O
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewChain builds a chain for the named component. The substitute function
// must always succeed; its results are tagged with SubstituteTag.
func NewChain[I, O any](component string, providers []Provider[I, O], substitute func(input I) O, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Chain[I, O] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Chain[I, O]{
		component:  component,
		providers:  providers,
		substitute: substitute,
		timeout:    timeout,
		logger:     logger,
		metrics:    metrics,
	}
}

// Resolve walks the providers in priority order and returns the first
// successful result along with the provider name that produced it. When all
// providers fail it returns the substitute result tagged SubstituteTag.
func (c *Chain[I, O]) Resolve(ctx context.Context, input I) (O, string) {
	for _, p := range c.providers {
		result, err := c.tryProvider(ctx, p, input)
		if err != nil {
			c.logger.Warn("provider failed, advancing chain",
				"component", c.component,
				"provider", p.Name(),
				"error", err,
			)
			continue
		}
		return result, p.Name()
	}

	c.logger.Warn("all providers failed, using substitute data", "component", c.component)
	c.metrics.ChainFallbacks.WithLabelValues(c.component).Inc()
	return c.substitute(input), SubstituteTag
}

func (c *Chain[I, O]) tryProvider(ctx context.Context, p Provider[I, O], input I) (O, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := p.Resolve(callCtx, input)
	c.metrics.ProviderDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		if callCtx.Err() != nil {
			outcome = "timeout"
		}
	}
	c.metrics.ProviderRequests.WithLabelValues(p.Name(), outcome).Inc()

	return result, err
}
