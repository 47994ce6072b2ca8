package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope this service publishes. Consumers partition on
// OrderID, dispatch on Type, and read the order snapshot from Payload.
type Event struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	OrderID       string            `json:"order_id"`
	Source        string            `json:"source"`
	OccurredAt    time.Time         `json:"occurred_at"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEvent wraps payload in an envelope. The payload is marshaled eagerly so
// a serialization problem surfaces at the call site, not inside the producer.
func NewEvent(eventType, orderID, source string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    orderID,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// WithCorrelationID tags the event with the originating request's ID.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithMetadata attaches a key-value pair for consumers that filter without
// decoding the payload.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Encode serializes the envelope for the wire.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses an envelope off the wire.
func Decode(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

// DecodePayload unmarshals the payload into dst.
func (e *Event) DecodePayload(dst any) error {
	return json.Unmarshal(e.Payload, dst)
}
