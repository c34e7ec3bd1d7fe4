package pagination

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100

	cursorVersion = 1
	cursorLen     = 1 + 8 + 16
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a keyset position: the sort timestamp of the last row plus its
// id as a tiebreaker.
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

// NormalizeLimit enforces the default and maximum limits.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer is the row count to fetch: one past the page so Page can
// tell whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Page trims rows fetched with LimitWithBuffer(limit) down to one page and
// returns the cursor of its last row when more rows remain.
func Page[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[limit-1]))
}

// EncodeCursor packs a version byte, unix nanoseconds and the id into an
// opaque URL-safe string.
func EncodeCursor(c Cursor) string {
	buf := make([]byte, cursorLen)
	buf[0] = cursorVersion
	binary.BigEndian.PutUint64(buf[1:9], uint64(c.At.UnixNano()))
	copy(buf[9:], c.ID[:])
	return base64.RawURLEncoding.EncodeToString(buf)
}

// ParseCursor decodes a cursor string. A blank value yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	buf, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if len(buf) != cursorLen || buf[0] != cursorVersion {
		return nil, ErrInvalidCursor
	}
	id, err := uuid.FromBytes(buf[9:])
	if err != nil || id == uuid.Nil {
		return nil, ErrInvalidCursor
	}
	at := time.Unix(0, int64(binary.BigEndian.Uint64(buf[1:9]))).UTC()
	return &Cursor{At: at, ID: id}, nil
}
