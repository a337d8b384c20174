//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mavi-pizzeria/api/internal/events"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestProducer_PublishesKeyedEvent(t *testing.T) {
	ctx := context.Background()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.8.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) }) //nolint:errcheck

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	const topic = "orders.events.test"
	p := events.NewOrderProducer(brokers, topic)
	defer p.Close()

	ev := events.OrderEvent{
		Type:        events.TypeOrderStatusChanged,
		OrderID:     "0b7d1c52-1111-4c5e-9f27-2f0c1f3f9b0a",
		OrderNumber: "ORD-20260301-0001",
		Status:      "CONFIRMED",
		OccurredAt:  time.Now().UTC(),
	}

	// The first write may race topic auto-creation.
	require.Eventually(t, func() bool {
		return p.PublishOrderEvent(ctx, ev) == nil
	}, 30*time.Second, time.Second)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MaxWait:   500 * time.Millisecond,
	})
	defer reader.Close()

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, ev.OrderID, string(msg.Key))
	for _, h := range msg.Headers {
		if h.Key == events.HeaderEventType {
			assert.Equal(t, events.TypeOrderStatusChanged, string(h.Value))
		}
	}
	var got events.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "CONFIRMED", got.Status)
	assert.Equal(t, "ORD-20260301-0001", got.OrderNumber)
}
