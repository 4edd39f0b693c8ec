// Package pagination implements opaque forward cursors for listing
// endpoints.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor marks the last item a client has seen.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// Page is one slice of a listing plus the cursor for the next slice.
type Page[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// Encode renders c as an opaque string. A cursor without an ID encodes to "".
func (c Cursor) Encode() string {
	if c.LastID == "" {
		return ""
	}
	raw := c.LastID + "|" + c.Timestamp.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a cursor produced by Encode. An empty string yields nil.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	id, ts, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// NewPage builds a page from items fetched with limit+1, so an extra item
// signals that more remain.
func NewPage[T any](items []T, limit int, cursorOf func(T) Cursor) Page[T] {
	if items == nil {
		items = []T{}
	}
	if limit <= 0 || len(items) <= limit {
		return Page[T]{Items: items}
	}
	items = items[:limit]
	return Page[T]{
		Items:   items,
		Cursor:  cursorOf(items[len(items)-1]).Encode(),
		HasMore: true,
	}
}
