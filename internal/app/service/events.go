package service

import "github.com/ikkim/medilens-admin/internal/app/model"

// EventPublisher receives billing events after the originating transaction commits.
type EventPublisher interface {
	Publish(event model.BillingEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(model.BillingEvent) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
