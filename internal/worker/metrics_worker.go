package worker

import (
	"context"

	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/observability"
)

// CountEvents bumps a domain counter named after each published event type.
func CountEvents(dispatcher events.Dispatcher, metrics *observability.Metrics) {
	if dispatcher == nil || metrics == nil {
		return
	}
	dispatcher.SubscribeAll(func(_ context.Context, event events.Event) error {
		metrics.Inc(string(event.Type))
		return nil
	})
}
