package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/backend"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

const (
	EventsExchange        = "ecommerce.events"
	CartStoredRoutingKey  = "cart.stored.v1"
	OrderPlacedRoutingKey = "order.placed.v1"
	defaultProducer       = "cartstore"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher emits cart store events to the topic exchange.
type Publisher struct {
	ch       Channel
	seqRepo  SequenceRepository
	producer string
	now      func() time.Time
}

var _ backend.EventPublisher = (*Publisher)(nil)

// NewRabbitPublisher opens a channel on conn and declares the events exchange.
func NewRabbitPublisher(conn *amqp.Connection, seqRepo SequenceRepository, producer string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return NewPublisher(ch, seqRepo, producer), nil
}

func NewPublisher(ch Channel, seqRepo SequenceRepository, producer string) *Publisher {
	if producer == "" {
		producer = defaultProducer
	}
	return &Publisher{ch: ch, seqRepo: seqRepo, producer: producer, now: time.Now}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishCartStored(ctx context.Context, c backend.Cart) error {
	now := p.now().UTC()
	seq, err := p.seqRepo.NextSequence(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	ev := CartStoredEvent{
		EventName:     EventTypeCartStored,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: middleware.GetCorrelationID(ctx),
		Producer:      p.producer,
		PartitionKey:  c.ID,
		Sequence:      seq,
		OccurredAt:    now,
		Schema:        cartStoredSchema,
		Payload:       cartStoredPayload(c, now),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal CartStored envelope: %w", err)
	}
	return p.publishJSON(ctx, CartStoredRoutingKey, body)
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o backend.Order) error {
	now := p.now().UTC()
	seq, err := p.seqRepo.NextSequence(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	ev := OrderPlacedEvent{
		EventName:     EventTypeOrderPlaced,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: middleware.GetCorrelationID(ctx),
		Producer:      p.producer,
		PartitionKey:  o.ID,
		Sequence:      seq,
		OccurredAt:    now,
		Schema:        orderPlacedSchema,
		Payload:       orderPlacedPayload(o, now),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}
	return p.publishJSON(ctx, OrderPlacedRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
