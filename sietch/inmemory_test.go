package sietch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seb7887/gofw/sietch/internal/testutils"
)

func newAccountStore(t *testing.T, accounts ...testutils.Account) *InMemoryConnector[testutils.Account, int64] {
	t.Helper()
	repo := NewInMemoryConnector[testutils.Account](func(a *testutils.Account) int64 { return a.ID })
	for i := range accounts {
		if err := repo.Insert(context.Background(), &accounts[i]); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	return repo
}

func TestInMemoryConnector_InsertFind(t *testing.T) {
	repo := newAccountStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tests := []struct {
		name        string
		account     testutils.Account
		expectError error
	}{
		{"insert a valid account", testutils.Account{ID: 1, Balance: 100}, nil},
		{"insert duplicated account", testutils.Account{ID: 1, Balance: 200}, ErrItemAlreadyExists},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := repo.Insert(ctx, &tc.account)
			if !errors.Is(err, tc.expectError) {
				t.Errorf("expected error %v, got: %v", tc.expectError, err)
			}
		})
	}

	accs, err := repo.Find(ctx, NewFilter().Where("id", OpEqual, int64(1)).Build())
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(accs) != 1 || accs[0].Balance != 100 {
		t.Errorf("expected one account with balance 100, got %+v", accs)
	}
}

func TestInMemoryConnector_CopiesRows(t *testing.T) {
	ctx := context.Background()
	acc := testutils.Account{ID: 1, Balance: 100}
	repo := newAccountStore(t, acc)

	acc.Balance = 999
	found, _ := repo.Find(ctx, nil)
	if found[0].Balance != 100 {
		t.Errorf("stored row changed through caller memory: %d", found[0].Balance)
	}

	found[0].Balance = 555
	again, _ := repo.Find(ctx, nil)
	if again[0].Balance != 100 {
		t.Errorf("stored row changed through a returned copy: %d", again[0].Balance)
	}
}

func TestInMemoryConnector_Operators(t *testing.T) {
	ctx := context.Background()
	repo := newAccountStore(t,
		testutils.Account{ID: 1, Balance: 100},
		testutils.Account{ID: 2, Balance: 200},
		testutils.Account{ID: 3, Balance: 300},
		testutils.Account{ID: 4, Balance: 400},
	)

	tests := []struct {
		name     string
		filter   *Filter
		expected int
	}{
		{"no filter", nil, 4},
		{"equal", NewFilter().Where("balance", OpEqual, 200).Build(), 1},
		{"not equal", NewFilter().Where("balance", OpNotEqual, 200).Build(), 3},
		{"greater than", NewFilter().Where("balance", OpGreaterThan, 200).Build(), 2},
		{"less or equal", NewFilter().Where("balance", OpLessThanOrEqual, 200).Build(), 2},
		{"in", NewFilter().Where("balance", OpIn, []int{100, 300}).Build(), 2},
		{"not in", NewFilter().Where("balance", OpNotIn, []int{100, 300}).Build(), 2},
		{"in empty list", NewFilter().Where("id", OpIn, []int64{}).Build(), 0},
		{"and", NewFilter().Where("balance", OpGreaterThan, 100).Where("balance", OpLessThan, 400).Build(), 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			results, err := repo.Find(ctx, tc.filter)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if len(results) != tc.expected {
				t.Errorf("expected %d results, got %d", tc.expected, len(results))
			}
		})
	}
}

func TestInMemoryConnector_UnknownColumn(t *testing.T) {
	repo := newAccountStore(t, testutils.Account{ID: 1, Balance: 100})

	_, err := repo.Find(context.Background(), NewFilter().Where("missing", OpEqual, 1).Build())
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}

	_, err = repo.UpdateWhere(context.Background(), nil, Assignments{"missing": 1})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestInMemoryConnector_SortAndPage(t *testing.T) {
	ctx := context.Background()
	repo := newAccountStore(t,
		testutils.Account{ID: 1, Balance: 300},
		testutils.Account{ID: 2, Balance: 100},
		testutils.Account{ID: 3, Balance: 200},
	)

	results, err := repo.Find(ctx, NewFilter().OrderBy("balance", SortDesc).Limit(2).Build())
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(results) != 2 || results[0].ID != 1 || results[1].ID != 3 {
		t.Errorf("unexpected order: %+v", results)
	}

	results, _ = repo.Find(ctx, NewFilter().OrderBy("balance", SortAsc).Offset(2).Build())
	if len(results) != 1 || results[0].ID != 1 {
		t.Errorf("unexpected page: %+v", results)
	}

	results, _ = repo.Find(ctx, NewFilter().Offset(10).Build())
	if len(results) != 0 {
		t.Errorf("expected empty page, got %+v", results)
	}
}

func TestInMemoryConnector_Update(t *testing.T) {
	ctx := context.Background()
	repo := newAccountStore(t, testutils.Account{ID: 1, Balance: 100})

	if err := repo.Update(ctx, &testutils.Account{ID: 1, Balance: 150}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := repo.Update(ctx, &testutils.Account{ID: 9, Balance: 150}); !errors.Is(err, ErrNoUpdateItem) {
		t.Errorf("expected ErrNoUpdateItem, got %v", err)
	}

	n, _ := repo.Count(ctx, NewFilter().Where("balance", OpEqual, 150).Build())
	if n != 1 {
		t.Errorf("expected updated row, count %d", n)
	}
}

func TestInMemoryConnector_UpdateWhereDeleteWhere(t *testing.T) {
	ctx := context.Background()
	repo := newAccountStore(t,
		testutils.Account{ID: 1, Balance: 100},
		testutils.Account{ID: 2, Balance: 200},
		testutils.Account{ID: 3, Balance: 300},
	)

	n, err := repo.UpdateWhere(ctx, NewFilter().Where("balance", OpGreaterThan, 150).Build(), Assignments{"balance": 0})
	if err != nil {
		t.Fatalf("UpdateWhere failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 updated rows, got %d", n)
	}

	zero, _ := repo.Count(ctx, NewFilter().Where("balance", OpEqual, 0).Build())
	if zero != 2 {
		t.Errorf("expected 2 rows with zero balance, got %d", zero)
	}

	n, err = repo.DeleteWhere(ctx, NewFilter().Where("balance", OpEqual, 0).Build())
	if err != nil {
		t.Fatalf("DeleteWhere failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted rows, got %d", n)
	}

	exists, _ := repo.Exists(ctx, NewFilter().Where("id", OpEqual, int64(1)).Build())
	if !exists {
		t.Error("expected account 1 to survive")
	}
	exists, _ = repo.Exists(ctx, NewFilter().Where("id", OpEqual, int64(2)).Build())
	if exists {
		t.Error("expected account 2 to be removed")
	}
}

func TestInMemoryConnector_EmbeddedColumnsAndNulls(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryConnector[testutils.Document](func(d *testutils.Document) string { return d.ID })

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	docs := []testutils.Document{
		{ID: "a", Title: "alpha", Audit: testutils.Audit{CreatedAt: now}},
		{ID: "b", Title: "beta", Audit: testutils.Audit{CreatedAt: now.Add(time.Hour)}},
	}
	for i := range docs {
		if err := repo.Insert(ctx, &docs[i]); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	n, err := repo.UpdateWhere(ctx,
		NewFilter().Where("title", OpLike, "al%").Build(),
		Assignments{"deleted_at": now, "archived": true},
	)
	if err != nil || n != 1 {
		t.Fatalf("UpdateWhere: n=%d err=%v", n, err)
	}

	deleted, _ := repo.Find(ctx, NewFilter().Where("deleted_at", OpIsNotNull, nil).Build())
	if len(deleted) != 1 || deleted[0].ID != "a" || deleted[0].DeletedAt == nil || !deleted[0].DeletedAt.Equal(now) {
		t.Fatalf("unexpected deleted rows: %+v", deleted)
	}

	live, _ := repo.Find(ctx, NewFilter().Where("deleted_at", OpEqual, nil).Build())
	if len(live) != 1 || live[0].ID != "b" {
		t.Fatalf("unexpected live rows: %+v", live)
	}

	if _, err := repo.UpdateWhere(ctx, nil, Assignments{"deleted_at": nil}); err != nil {
		t.Fatalf("clearing deleted_at failed: %v", err)
	}
	nulls, _ := repo.Count(ctx, NewFilter().Where("deleted_at", OpIsNull, nil).Build())
	if nulls != 2 {
		t.Errorf("expected 2 null deleted_at, got %d", nulls)
	}

	later, _ := repo.Find(ctx, NewFilter().Where("created_at", OpGreaterThan, now).Build())
	if len(later) != 1 || later[0].ID != "b" {
		t.Errorf("time comparison failed: %+v", later)
	}
}

func TestInMemoryConnector_WithTx(t *testing.T) {
	ctx := context.Background()
	repo := newAccountStore(t, testutils.Account{ID: 1, Balance: 100})

	err := repo.WithTx(ctx, func(ctx context.Context) error {
		if _, err := repo.DeleteWhere(ctx, nil); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected tx error")
	}
	if n, _ := repo.Count(ctx, nil); n != 1 {
		t.Errorf("expected rollback to restore 1 row, got %d", n)
	}

	err = repo.WithTx(ctx, func(ctx context.Context) error {
		_, err := repo.UpdateWhere(ctx, nil, Assignments{"balance": 5})
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	if n, _ := repo.Count(ctx, NewFilter().Where("balance", OpEqual, 5).Build()); n != 1 {
		t.Errorf("expected committed update, got %d", n)
	}
}
