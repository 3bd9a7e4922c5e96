package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

var _ Bus = (*NatsConn[Message])(nil)

// NatsConn publishes serialized messages on NATS subjects and decodes
// received payloads as T.
type NatsConn[T Message] struct {
	nc *nats.Conn
}

func NewNatsBus[T Message](url string, opts ...nats.Option) (*NatsConn[T], error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NatsConn[T]{nc: nc}, nil
}

func (eb *NatsConn[T]) Publish(topic string, msg Message) error {
	return eb.nc.Publish(topic, msg.Serialize())
}

func (eb *NatsConn[T]) Subscribe(topic string, handler MessageReceiver) error {
	_, err := eb.nc.Subscribe(topic, eb.consumedMessages(context.Background(), handler.Receive))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending publishes and closes the connection
func (eb *NatsConn[T]) Close() error {
	return eb.nc.Drain()
}

func (eb *NatsConn[T]) consumedMessages(ctx context.Context, receiver func(ctx context.Context, msg Message)) func(*nats.Msg) {
	return func(msg *nats.Msg) {
		decoded, err := deserialize[T](msg)
		if err != nil {
			return
		}
		receiver(ctx, decoded)
	}
}

func deserialize[T any](message *nats.Msg) (T, error) {
	var msg T
	err := json.Unmarshal(message.Data, &msg)
	return msg, err
}
