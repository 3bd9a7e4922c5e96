package sietch

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process Cache backed by patrickmn/go-cache
type MemoryCache[T any, ID comparable] struct {
	c *gocache.Cache
}

func NewMemoryCache[T any, ID comparable](ttl, cleanupInterval time.Duration) *MemoryCache[T, ID] {
	return &MemoryCache[T, ID]{c: gocache.New(ttl, cleanupInterval)}
}

func (m *MemoryCache[T, ID]) key(id ID) string {
	return fmt.Sprint(id)
}

func (m *MemoryCache[T, ID]) Get(_ context.Context, id ID) (*T, error) {
	v, ok := m.c.Get(m.key(id))
	if !ok {
		return nil, ErrItemNotFound
	}
	item := v.(T)
	return &item, nil
}

func (m *MemoryCache[T, ID]) Set(_ context.Context, id ID, item *T) error {
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}
	m.c.SetDefault(m.key(id), *item)
	return nil
}

func (m *MemoryCache[T, ID]) Delete(_ context.Context, id ID) error {
	m.c.Delete(m.key(id))
	return nil
}

func (m *MemoryCache[T, ID]) Flush(context.Context) error {
	m.c.Flush()
	return nil
}
