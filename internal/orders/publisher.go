package orders

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
)

type producer interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// KafkaEvents publishes OrderPlaced envelopes keyed by order number.
type KafkaEvents struct {
	Producer producer
	Service  string
}

func NewKafkaEvents(p *kafka.Producer, service string) *KafkaEvents {
	return &KafkaEvents{Producer: p, Service: service}
}

func (k *KafkaEvents) OrderPlaced(ctx context.Context, o *Order) error {
	env, err := NewEnvelope(EventOrderPlaced, k.Service, o.OrderNumber, PlacedPayload(o), time.Now())
	if err != nil {
		return err
	}
	return k.Producer.Publish(ctx, PartitionKey(o.OrderNumber), kafka.MustMarshal(env),
		kafkago.Header{Key: "event_type", Value: []byte(EventOrderPlaced)})
}
