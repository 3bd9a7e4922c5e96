package undeletable

import (
	"context"
	"encoding/json"
	"time"

	"github.com/seb7887/gofw/eventbus"
	"github.com/seb7887/gofw/idgen"
)

// DeletionMessage announces a committed deletion on an event bus
type DeletionMessage struct {
	// EventID lets consumers drop redelivered messages
	EventID   string    `json:"event_id"`
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Force     bool      `json:"force"`
	Bulk      bool      `json:"bulk"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (m DeletionMessage) Serialize() []byte {
	b, _ := json.Marshal(m)
	return b
}

var _ eventbus.Message = DeletionMessage{}

// PublishDeletions registers a post-delete hook on p that publishes every
// committed deletion to topic. A failed publish surfaces as *PostDeleteError.
func PublishDeletions[T any](p *Provider[T], bus eventbus.Bus, topic string) {
	p.Signals().OnPostDelete(func(_ context.Context, ev DeleteEvent[T]) error {
		msg := DeletionMessage{
			EventID:   idgen.NewUUID(),
			Entity:    ev.Entity,
			ID:        IDOf(ev.Item),
			Force:     ev.Force,
			Bulk:      ev.Bulk,
			DeletedAt: p.now(),
		}
		if d := baseOf(ev.Item).DeletedAt; d != nil && !ev.Force {
			msg.DeletedAt = *d
		}
		return bus.Publish(topic, msg)
	})
}
