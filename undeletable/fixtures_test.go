package undeletable

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/seb7887/gofw/idgen"
	"github.com/seb7887/gofw/sietch"
	"github.com/stretchr/testify/require"
)

type author struct {
	NamedModel
}

type book struct {
	NamedModel
	AuthorID *string `db:"author_id"`
}

// tickingClock advances one second per reading
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *tickingClock {
	return &tickingClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newAuthors(t *testing.T, opts ...Option) *Provider[author] {
	t.Helper()
	store := sietch.NewInMemoryConnector[author](IDOf[author])
	base := []Option{WithClock(newClock().Now), WithIDGenerator(idgen.Sequence("author"))}
	p, err := NewProvider[author](store, append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func newBooks(t *testing.T, opts ...Option) *Provider[book] {
	t.Helper()
	store := sietch.NewInMemoryConnector[book](IDOf[book])
	base := []Option{WithClock(newClock().Now), WithIDGenerator(idgen.Sequence("book"))}
	p, err := NewProvider[book](store, append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func createAuthor(t *testing.T, p *Provider[author], name string) *author {
	t.Helper()
	a := &author{}
	a.Name = name
	require.NoError(t, p.Create(context.Background(), a))
	return a
}

func mustCount[T any](t *testing.T, s Scope[T]) int64 {
	t.Helper()
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	return n
}
