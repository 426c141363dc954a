package orders

import (
	"context"
	"time"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

var _ Publisher = (*kafkax.Producer)(nil)

// Emitter wraps payloads in the v1 envelope and hands them to the producer.
// A nil Emitter or one without a producer drops events silently.
type Emitter struct {
	Producer Publisher
	Service  string
}

func (e *Emitter) Emit(ctx context.Context, topic, eventType, orderID string, payload any) {
	if e == nil || e.Producer == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	e.Producer.Publish(topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
