package admin

import (
	"context"
	"time"

	"github.com/seb7887/gofw/sietch"
	"github.com/seb7887/gofw/undeletable"
)

type Records = undeletable.Provider[undeletable.Model]

// Stats summarises the visibility state of a table
type Stats struct {
	Total     int64 `json:"total"`
	Live      int64 `json:"live"`
	Visible   int64 `json:"visible"`
	Deleted   int64 `json:"deleted"`
	Concealed int64 `json:"concealed"`
}

func CollectStats(ctx context.Context, records *Records) (Stats, error) {
	var (
		s   Stats
		err error
	)
	counts := []struct {
		dst   *int64
		scope undeletable.Scope[undeletable.Model]
	}{
		{&s.Total, records.FullScope()},
		{&s.Live, records.DefaultScope()},
		{&s.Visible, records.Visible()},
		{&s.Deleted, records.Deleted()},
		{&s.Concealed, records.FullScope().Where(undeletable.ColumnConcealed, sietch.OpEqual, true)},
	}
	for _, c := range counts {
		if *c.dst, err = c.scope.Count(ctx); err != nil {
			return Stats{}, err
		}
	}
	return s, nil
}

// Purge force deletes rows soft-deleted before cutoff. The count and the
// delete share a transaction when the store supports one.
func Purge(ctx context.Context, records *Records, cutoff time.Time) (int64, error) {
	stale := records.Deleted().Where(undeletable.ColumnDeletedAt, sietch.OpLessThan, cutoff)

	txStore, ok := records.Store().(sietch.Transactional)
	if !ok {
		return stale.ForceDelete(ctx)
	}
	var purged int64
	err := txStore.WithTx(ctx, func(ctx context.Context) error {
		n, err := stale.ForceDelete(ctx)
		purged = n
		return err
	})
	return purged, err
}

// SetDeleted soft-deletes, force deletes or restores one record by id
func SetDeleted(ctx context.Context, records *Records, id string, deleted, force bool) error {
	rec, err := records.Get(ctx, undeletable.ByID(id))
	if err != nil {
		return err
	}
	switch {
	case force:
		return records.ForceDelete(ctx, rec)
	case deleted:
		return records.Delete(ctx, rec)
	default:
		return records.Undelete(ctx, rec)
	}
}

// SetConcealed conceals or reveals one record by id
func SetConcealed(ctx context.Context, records *Records, id string, concealed bool) (int64, error) {
	scope := records.Filter(undeletable.ByID(id))
	if concealed {
		return scope.Conceal(ctx)
	}
	return scope.Reveal(ctx)
}
