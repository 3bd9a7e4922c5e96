package undeletable

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/seb7887/gofw/sietch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCockroach(t *testing.T) *Provider[author] {
	t.Helper()
	dsn := os.Getenv("UNDELETABLE_TEST_DSN")
	if dsn == "" {
		dsn = "postgres://root@localhost:26257/defaultdb?sslmode=disable"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pool, err := sietch.NewCockroachDBConnPool(ctx, dsn)
	if err != nil {
		t.Skip("CockroachDB not available for testing:", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skip("CockroachDB not available for testing:", err)
	}
	t.Cleanup(pool.Close)

	def, err := TableDef[author]("undeletable_test_authors")
	require.NoError(t, err)
	require.NoError(t, sietch.DropTable(ctx, pool, def.Name))
	require.NoError(t, sietch.CreateTable(ctx, pool, def))
	t.Cleanup(func() {
		_ = sietch.TruncateTable(context.Background(), pool, def.Name)
	})

	store, err := sietch.NewCockroachDBConnector[author](pool, def.Name, IDOf[author])
	require.NoError(t, err)
	p, err := NewProvider[author](store)
	require.NoError(t, err)
	return p
}

func TestCockroach_SoftDeleteLifecycle(t *testing.T) {
	p := setupCockroach(t)
	ctx := context.Background()

	createAuthor(t, p, "visible")
	deleted := createAuthor(t, p, "deleted")

	require.NoError(t, p.Delete(ctx, deleted))
	assert.EqualValues(t, 1, mustCount(t, p.DefaultScope()))
	assert.EqualValues(t, 1, mustCount(t, p.Deleted()))

	got, err := p.Get(ctx, ByID(deleted.ID))
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.NotNil(t, got.DeletedAt)

	n, err := p.FullScope().Conceal(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = p.Deleted().Undelete(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 2, mustCount(t, p.DefaultScope()))
	assert.EqualValues(t, 0, mustCount(t, p.Visible()))

	require.NoError(t, p.ForceDelete(ctx, deleted))
	n, err = p.FullScope().AllRows().ForceDelete(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 0, mustCount(t, p.FullScope()))
}
