package ports

import (
	"context"
	"reflect"

	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

// EventPublisher queues queue-lifecycle events for asynchronous delivery.
type EventPublisher interface {
	Publish(event domain.Event) error
}

// EventSubscriber registers handlers by concrete event type, e.g. reflect.TypeFor[domain.FinishEvent]().
type EventSubscriber interface {
	Subscribe(eventType reflect.Type, handler func(context.Context, domain.Event)) error
}
