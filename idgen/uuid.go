package idgen

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

var _uuidGenerator Generator = newUUID

func newUUID() string {
	return uuid.New().String()
}

func NewUUID() string {
	return _uuidGenerator()
}

// UseUUID replaces the UUID generator. A nil fn restores the default.
func UseUUID(fn Generator) {
	if fn == nil {
		fn = newUUID
	}
	_uuidGenerator = fn
}

// Sequence returns a generator yielding prefix-1, prefix-2, ... for callers
// that need predictable identifiers.
func Sequence(prefix string) Generator {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
