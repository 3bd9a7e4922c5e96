package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/seb7887/gofw/wp"
)

var _ Bus = (*InMem)(nil)

// ErrClosed is returned when publishing on a closed bus
var ErrClosed = errors.New("eventbus: closed")

// InMem delivers messages asynchronously inside the process. Messages on the
// same topic are delivered in publish order.
type InMem struct {
	pool *wp.Pool

	mu          sync.RWMutex
	subscribers map[string][]MessageReceiver
}

func NewInMemBus() *InMem {
	return NewInMemBusWithWorkers(4, 100)
}

func NewInMemBusWithWorkers(workers, buffer int) *InMem {
	return &InMem{
		pool:        wp.NewPool(workers, buffer),
		subscribers: make(map[string][]MessageReceiver),
	}
}

func (b *InMem) Publish(topic string, msg Message) error {
	b.mu.RLock()
	handlers := append([]MessageReceiver(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}
	ok := b.pool.Submit(topic, func() {
		for _, h := range handlers {
			h.Receive(context.Background(), msg)
		}
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

func (b *InMem) Subscribe(topic string, handler MessageReceiver) error {
	if handler == nil {
		return errors.New("eventbus: nil handler")
	}
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
	b.mu.Unlock()
	return nil
}

// Close waits for in-flight deliveries
func (b *InMem) Close() error {
	b.pool.Stop()
	return nil
}
