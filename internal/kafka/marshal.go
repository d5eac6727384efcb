package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/nexus-inventory/internal/orders"
	"github.com/segmentio/kafka-go"
	"strconv"
)

// UnwrapPayload decodes an envelope payload into T.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

type publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// Emitter publishes domain envelopes; it satisfies orders.EventSink.
type Emitter struct {
	P publisher
}

func (e *Emitter) Emit(ctx context.Context, topic string, key []byte, env orders.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return e.P.Publish(ctx, topic, key, b,
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}
