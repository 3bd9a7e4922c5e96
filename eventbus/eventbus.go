package eventbus

import "context"

// Message is anything a bus can carry across process boundaries
type Message interface {
	Serialize() []byte
}

type Bus interface {
	Publish(topic string, msg Message) error
	Subscribe(topic string, handler MessageReceiver) error
	Close() error
}

type MessageReceiver interface {
	Receive(ctx context.Context, msg Message)
}

// ReceiverFunc adapts a plain function to MessageReceiver
type ReceiverFunc func(ctx context.Context, msg Message)

func (f ReceiverFunc) Receive(ctx context.Context, msg Message) {
	f(ctx, msg)
}
