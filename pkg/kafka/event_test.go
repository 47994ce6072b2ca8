package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
	}

	event, err := NewEvent("order.completed", "ord_1", "checkout-service", payload{OrderID: "ord_1"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "order.completed", event.Type)
	assert.Equal(t, "ord_1", event.OrderID)
	assert.Equal(t, "checkout-service", event.Source)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestEvent_EncodeDecodeRoundTrip(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
	}

	event, err := NewEvent("order.pending_manual", "ord_2", "checkout-service", payload{OrderID: "ord_2"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1").WithMetadata("created_manually", "true")

	data, err := event.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "corr-1", decoded.CorrelationID)
	assert.Equal(t, "true", decoded.Metadata["created_manually"])

	var p payload
	require.NoError(t, decoded.DecodePayload(&p))
	assert.Equal(t, "ord_2", p.OrderID)
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent("order.completed", "ord_3", "checkout-service", make(chan int))
	assert.Error(t, err)
}
