// Package notify broadcasts change events to interested consumers. Delivery
// is best effort: a failing sink is logged and counted, never surfaced to
// the caller, so a dead broker cannot block report ingestion.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/reliefgrid/disaster-aggregator/internal/domain"
	"github.com/reliefgrid/disaster-aggregator/internal/observability"
)

// Event is one change notification.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Publisher delivers events to one sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event Event) error
}

// Notifier fans events out to every configured publisher.
type Notifier struct {
	publishers []Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewNotifier builds a notifier over the given sinks. A notifier with no
// sinks is valid and does nothing.
func NewNotifier(publishers []Publisher, logger *slog.Logger, metrics *observability.Metrics) *Notifier {
	return &Notifier{publishers: publishers, logger: logger, metrics: metrics}
}

// Notify delivers an event to every sink. Failures are logged per sink and
// do not stop delivery to the remaining sinks.
func (n *Notifier) Notify(ctx context.Context, eventType string, payload any) {
	event := Event{Type: eventType, Payload: payload, EmittedAt: domain.Now()}

	for _, p := range n.publishers {
		if err := p.Publish(ctx, event); err != nil {
			n.logger.Warn("event publish failed", "sink", p.Name(), "event_type", eventType, "error", err)
			n.metrics.PublishAttempts.WithLabelValues(p.Name(), "error").Inc()
			continue
		}
		n.metrics.PublishAttempts.WithLabelValues(p.Name(), "success").Inc()
	}
}
