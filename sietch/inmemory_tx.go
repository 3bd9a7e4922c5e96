package sietch

import (
	"context"
	"fmt"
)

// WithTx executes the given function within a transaction simulation.
// For InMemory connector, this creates a snapshot of the data, executes the function,
// and either commits (keeps changes) or rollbacks (restores snapshot) based on the result.
// Transactions on the same connector are serialized.
func (r *InMemoryConnector[T, ID]) WithTx(ctx context.Context, fn TxFunc) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := make(map[ID]*T, len(r.data))
	seq := make(map[ID]uint64, len(r.seq))
	for k, v := range r.data {
		copyValue := *v
		snapshot[k] = &copyValue
		seq[k] = r.seq[k]
	}
	r.mu.Unlock()

	restore := func() {
		r.mu.Lock()
		r.data = snapshot
		r.seq = seq
		r.mu.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		restore()
		return fmt.Errorf("tx error: %w", err)
	}

	return nil
}
