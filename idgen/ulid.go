package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator returns a new unique identifier
type Generator func() string

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// monotonicULID is lexically sortable and strictly increasing within a process,
// so rows created in the same millisecond keep their creation order.
func monotonicULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

var _ulidGenerator Generator = monotonicULID

func NewULID() string {
	return _ulidGenerator()
}

// UseULID replaces the ULID generator. A nil fn restores the default.
func UseULID(fn Generator) {
	if fn == nil {
		fn = monotonicULID
	}
	_ulidGenerator = fn
}

// ParseULID validates id and returns the time it encodes
func ParseULID(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
