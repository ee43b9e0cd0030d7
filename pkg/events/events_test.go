package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"scoopflow/pkg/order"
)

func TestNewSnapshotsOrder(t *testing.T) {
	o := order.Order{ID: "o1", Status: "pending", Price: 4.5}
	e := New(OrderCreated, o)
	o.Status = "changed"

	assert.Equal(t, OrderCreated, e.Type)
	assert.Equal(t, "o1", e.OrderID)
	assert.Equal(t, "pending", e.Status)
	require.NotNil(t, e.Order)
	assert.Equal(t, "pending", e.Order.Status)
	assert.False(t, e.OccurredAt.IsZero())
}

func TestMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg, err := message(ctx, Deleted("o9"))
	require.NoError(t, err)
	assert.Equal(t, "o9", string(msg.Key))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "order.deleted", body["type"])
	assert.Equal(t, "o9", body["order_id"])
	assert.NotContains(t, body, "order")

	carrier := &headerCarrier{headers: &msg.Headers}
	assert.Equal(t, "order.deleted", carrier.Get("event-type"))
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
	assert.Contains(t, carrier.Keys(), "traceparent")
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Deleted("x")))
	assert.NoError(t, p.Close())
}
