package reconciliation

import (
	"context"

	"github.com/meritledger/backend/internal/domain/shared"
)

// eventSink gathers domain events raised inside a transaction so they can be
// published once it commits. Events from a rolled-back transaction are dropped.
type eventSink struct {
	events []shared.DomainEvent
}

func (s *eventSink) add(events ...shared.DomainEvent) {
	s.events = append(s.events, events...)
}

// collect moves pending events off an aggregate
func (s *eventSink) collect(aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		s.events = append(s.events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
}

// publish hands the events to the publisher (errors are logged by the event bus, not propagated)
func (s *eventSink) publish(ctx context.Context, publisher shared.EventPublisher) {
	if publisher == nil || len(s.events) == 0 {
		return
	}
	_ = publisher.Publish(ctx, s.events...)
	s.events = nil
}
