package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in its canonical 26-character form. The string embeds its
// mint time, so lexical order is creation order and callers can sort
// records by id without a separate timestamp column.
type ID string

// Zero is the absent id.
const Zero ID = ""

// ErrInvalid reports a string that is not a canonical ULID.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mintMu  sync.Mutex
	entropy = sync.OnceValue(func() *ulid.MonotonicEntropy {
		return ulid.Monotonic(rand.Reader, 0)
	})
)

func mint(t time.Time) ID {
	mintMu.Lock()
	defer mintMu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), entropy()).String())
}

// New mints an ID at the current time. The shared monotonic entropy
// source keeps ids minted within one millisecond strictly ordered.
func New() ID {
	return mint(time.Now().UTC())
}

// NewAt mints an ID carrying the given timestamp. Useful in tests and
// for building time-bounded cursors.
func NewAt(t time.Time) ID {
	return mint(t.UTC())
}

// Parse validates s as a canonical ULID and returns it as an ID.
func Parse(s string) (ID, error) {
	u, err := ulid.ParseStrict(strings.TrimSpace(s))
	if err != nil {
		return Zero, ErrInvalid
	}
	return ID(u.String()), nil
}

// MustParse is Parse for hard-coded ids, panicking on bad input.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// Time recovers the mint time embedded in the id, with millisecond
// precision. Zero and malformed ids yield the zero time.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// Compare orders a and b lexically, which for valid ids is also their
// creation order. It returns -1, 0 or +1.
func Compare(a, b ID) int {
	return strings.Compare(string(a), string(b))
}
