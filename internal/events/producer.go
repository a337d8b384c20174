package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/mavi-pizzeria/api/internal/events")

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderProducer writes order events as JSON to one Kafka topic, keyed by
// order id.
type OrderProducer struct {
	writer messageWriter
	topic  string
}

func NewOrderProducer(brokers []string, topic string) *OrderProducer {
	return &OrderProducer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
		},
	}
}

// PublishOrderEvent sends ev and waits for the broker ack. The caller's
// trace context travels in the message headers.
func (p *OrderProducer) PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	if ev.OrderID == "" {
		return errMissingOrderID
	}

	ctx, span := tracer.Start(ctx, "publish "+ev.Type,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(ev.OrderID),
			attribute.String("order.number", ev.OrderNumber),
			attribute.String("order.status", ev.Status),
		),
	)
	defer span.End()

	msg, err := orderMessage(ctx, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode event")
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish %s for order %s: %w", ev.Type, ev.OrderID, err)
	}
	return nil
}

func (p *OrderProducer) Close() error {
	return p.writer.Close()
}

func orderMessage(ctx context.Context, ev OrderEvent) (kafka.Message, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Key:     []byte(ev.OrderID),
		Value:   body,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(ev.Type)}},
		Time:    ev.OccurredAt,
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})
	return msg, nil
}
