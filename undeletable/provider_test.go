package undeletable

import (
	"context"
	"errors"
	"testing"

	"github.com/seb7887/gofw/sietch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	type plain struct {
		ID string `db:"id"`
	}
	store := sietch.NewInMemoryConnector[plain](func(p *plain) string { return p.ID })
	_, err := NewProvider[plain](store)
	assert.ErrorIs(t, err, ErrNotRecord)

	_, err = NewProvider[author](nil)
	assert.Error(t, err)

	p := newAuthors(t)
	assert.Equal(t, "author", p.Entity())
	assert.Equal(t, []sietch.SortField{{Field: "name", Direction: sietch.SortAsc}}, p.ordering)

	p = newAuthors(t, WithEntityName("Author"), WithOrdering("-modified_at"))
	assert.Equal(t, "Author", p.Entity())
	assert.Equal(t, []sietch.SortField{{Field: "modified_at", Direction: sietch.SortDesc}}, p.ordering)
}

func TestProvider_Create(t *testing.T) {
	p := newAuthors(t)
	a := createAuthor(t, p, "John")

	assert.Equal(t, "author-1", a.ID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, a.CreatedAt, a.ModifiedAt)
	assert.False(t, a.IsDeleted)
	assert.Nil(t, a.DeletedAt)
	assert.False(t, a.Concealed)

	err := p.Create(context.Background(), a)
	assert.ErrorIs(t, err, sietch.ErrItemAlreadyExists)
}

func TestProvider_SaveKeepsDeletionPairConsistent(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	a := createAuthor(t, p, "John")

	a.IsDeleted = true
	require.NoError(t, p.Save(ctx, a))
	require.NotNil(t, a.DeletedAt, "deleted_at follows is_deleted")
	deletedAt := *a.DeletedAt

	a.Name = "Johnny"
	require.NoError(t, p.Save(ctx, a))
	assert.Equal(t, deletedAt, *a.DeletedAt, "deleted_at tracks the transition, not every save")

	a.IsDeleted = false
	require.NoError(t, p.Save(ctx, a))
	assert.Nil(t, a.DeletedAt)

	stored, err := p.Get(ctx, ByID(a.ID))
	require.NoError(t, err)
	assert.False(t, stored.IsDeleted)
	assert.Nil(t, stored.DeletedAt)
	assert.Equal(t, "Johnny", stored.Name)
	assert.True(t, stored.ModifiedAt.After(stored.CreatedAt))
}

func TestProvider_SaveCreatesAndMissingRow(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)

	a := &author{}
	a.Name = "new"
	require.NoError(t, p.Save(ctx, a))
	assert.NotEmpty(t, a.ID)

	ghost := &author{}
	ghost.ID = "ghost"
	assert.ErrorIs(t, p.Save(ctx, ghost), ErrNotFound)
}

// after r.delete() the default scope no longer sees r and the full scope
// yields r with is_deleted set and deleted_at stamped
func TestProvider_DeleteHidesFromDefaultScope(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	a := createAuthor(t, p, "John")

	require.NoError(t, p.Delete(ctx, a))
	assert.True(t, a.IsDeleted)
	require.NotNil(t, a.DeletedAt)

	assert.EqualValues(t, 0, mustCount(t, p.DefaultScope().Where(ColumnID, sietch.OpEqual, a.ID)))

	full, err := p.FullScope().Where(ColumnID, sietch.OpEqual, a.ID).All(ctx)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.True(t, full[0].IsDeleted)
	assert.Equal(t, *a.DeletedAt, *full[0].DeletedAt)
}

// deleting an out of date instance only writes the deletion columns
func TestProvider_DeleteKeepsConcurrentChanges(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	a := createAuthor(t, p, "John")
	stale := *a

	n, err := p.Filter(ByID(a.ID)).Conceal(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, err = p.Filter(ByID(a.ID)).Update(ctx, sietch.Assignments{ColumnName: "Johnny"})
	require.NoError(t, err)

	require.NoError(t, p.Delete(ctx, &stale))
	assert.True(t, stale.IsDeleted)
	assert.True(t, stale.Concealed, "instance is refreshed in place")
	assert.Equal(t, "Johnny", stale.Name)

	stored, err := p.Get(ctx, ByID(a.ID))
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
	assert.True(t, stored.Concealed)
	assert.Equal(t, "Johnny", stored.Name)
}

func TestProvider_DeleteMissingRow(t *testing.T) {
	p := newAuthors(t)
	ghost := &author{}
	ghost.ID = "ghost"
	assert.ErrorIs(t, p.Delete(context.Background(), ghost), ErrNotFound)
	assert.False(t, ghost.IsDeleted)
}

// identifier lookups through the provider reach deleted rows, other
// criteria do not
func TestProvider_IdentifierLookupReachesDeletedRows(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	visible := createAuthor(t, p, "visible")
	deleted := createAuthor(t, p, "deleted")
	require.NoError(t, p.Delete(ctx, deleted))

	got, err := p.Get(ctx, ByID(deleted.ID))
	require.NoError(t, err)
	assert.Equal(t, "deleted", got.Name)
	assert.EqualValues(t, 1, mustCount(t, p.Filter(ByID(deleted.ID))))

	_, err = p.Get(ctx, Eq(ColumnName, "deleted"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 0, mustCount(t, p.Filter(Eq(ColumnName, "deleted"))))

	_, err = p.Deleted().Filter(ByID(visible.ID)).Get(ctx)
	assert.ErrorIs(t, err, ErrNotFound, "deleted() never yields live rows")
}

func TestProvider_Undelete(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	a := createAuthor(t, p, "John")
	require.NoError(t, p.Delete(ctx, a))
	require.EqualValues(t, 0, mustCount(t, p.DefaultScope()))

	require.NoError(t, p.Undelete(ctx, a))
	assert.False(t, a.IsDeleted, "instance is refreshed in place")
	assert.Nil(t, a.DeletedAt)
	assert.EqualValues(t, 1, mustCount(t, p.DefaultScope()))

	before := *a
	require.NoError(t, p.Undelete(ctx, a))
	assert.Equal(t, before, *a, "undelete of a live record changes nothing")
}

// soft delete then force delete: first the row moves to deleted(), then it
// is gone from both scopes
func TestProvider_ForceDeleteAfterSoftDelete(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	createAuthor(t, p, "visible")
	deleted := createAuthor(t, p, "deleted")

	require.NoError(t, p.Delete(ctx, deleted))
	assert.EqualValues(t, 1, mustCount(t, p.DefaultScope()))
	assert.EqualValues(t, 1, mustCount(t, p.Deleted()))

	require.NoError(t, p.ForceDelete(ctx, deleted))
	assert.True(t, deleted.Removed())
	assert.EqualValues(t, 1, mustCount(t, p.DefaultScope()))
	assert.EqualValues(t, 0, mustCount(t, p.Deleted()))
	assert.EqualValues(t, 1, mustCount(t, p.FullScope()))

	_, err := p.FullScope().Where(ColumnID, sietch.OpEqual, deleted.ID).Get(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, p.Save(ctx, deleted), ErrRemoved)
	assert.ErrorIs(t, p.Delete(ctx, deleted), ErrRemoved)
	assert.ErrorIs(t, p.ForceDelete(ctx, deleted), ErrRemoved)
	assert.ErrorIs(t, p.Undelete(ctx, deleted), ErrRemoved)
}

func TestProvider_ForceDeleteMissingRow(t *testing.T) {
	p := newAuthors(t)
	ghost := &author{}
	ghost.ID = "ghost"
	assert.ErrorIs(t, p.ForceDelete(context.Background(), ghost), ErrNotFound)
	assert.False(t, ghost.Removed())
}

func TestProvider_DeleteHooks(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	a := createAuthor(t, p, "John")

	var calls []string
	p.Signals().OnPreDelete(func(_ context.Context, ev DeleteEvent[author]) error {
		calls = append(calls, "pre:"+ev.Item.Name)
		assert.False(t, ev.Item.IsDeleted, "pre hook sees the record before mutation")
		assert.False(t, ev.Bulk)
		return nil
	})
	p.Signals().OnPostDelete(func(_ context.Context, ev DeleteEvent[author]) error {
		calls = append(calls, "post:"+ev.Item.Name)
		assert.True(t, ev.Item.IsDeleted)
		assert.Equal(t, "author", ev.Entity)
		return nil
	})

	require.NoError(t, p.Delete(ctx, a))
	assert.Equal(t, []string{"pre:John", "post:John"}, calls)
}

func TestProvider_PreDeleteHookAborts(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	a := createAuthor(t, p, "John")

	veto := errors.New("protected")
	p.Signals().OnPreDelete(func(context.Context, DeleteEvent[author]) error { return veto })

	assert.ErrorIs(t, p.Delete(ctx, a), veto)
	assert.False(t, a.IsDeleted)
	assert.EqualValues(t, 1, mustCount(t, p.DefaultScope()))

	assert.ErrorIs(t, p.ForceDelete(ctx, a), veto)
	assert.False(t, a.Removed())
	assert.EqualValues(t, 1, mustCount(t, p.FullScope()))
}

func TestProvider_PostDeleteHookFailure(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	a := createAuthor(t, p, "John")

	boom := errors.New("boom")
	p.Signals().OnPostDelete(func(context.Context, DeleteEvent[author]) error { return boom })

	err := p.Delete(ctx, a)
	var postErr *PostDeleteError
	require.ErrorAs(t, err, &postErr)
	assert.Equal(t, a.ID, postErr.ID)
	assert.ErrorIs(t, err, boom)

	assert.EqualValues(t, 1, mustCount(t, p.Deleted()), "the deletion is committed")

	p.Signals().Reset()
	require.NoError(t, p.ForceDelete(ctx, a))
}

func TestProvider_Refresh(t *testing.T) {
	ctx := context.Background()
	p := newAuthors(t)
	a := createAuthor(t, p, "John")

	_, err := p.DefaultScope().Filter(Eq(ColumnName, "John")).Update(ctx, sietch.Assignments{ColumnName: "Jack"})
	require.NoError(t, err)

	require.NoError(t, p.Refresh(ctx, a))
	assert.Equal(t, "Jack", a.Name)
}
