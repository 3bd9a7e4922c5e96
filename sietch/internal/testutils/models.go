package testutils

import "time"

type Account struct {
	ID      int64 `db:"id"`
	Balance int   `db:"balance"`
}

// Audit is embedded to exercise column flattening
type Audit struct {
	CreatedAt time.Time  `db:"created_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type Document struct {
	ID string `db:"id"`
	Audit
	Title    string `db:"title"`
	Archived bool   `db:"archived"`
}
