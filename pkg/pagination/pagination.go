// Package pagination implements the opaque cursors carried by MCP list
// requests. A cursor encodes the offset of the next page; peers must treat
// it as an opaque token.
package pagination

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
)

const (
	// DefaultPageSize is the page size used by server list handlers.
	DefaultPageSize = 50

	// MaxPageSize bounds the page size a server will ever use.
	MaxPageSize = 200
)

// ErrInvalidCursor is returned when a cursor token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// ErrCursorNotAdvancing is returned when a peer keeps handing back the same
// cursor, which would otherwise loop a collector forever.
var ErrCursorNotAdvancing = errors.New("pagination cursor did not advance")

const cursorPrefix = "offset:"

// EncodeCursor builds the opaque token for the page starting at offset.
func EncodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

// DecodeCursor parses an opaque token back into an offset. An empty cursor
// decodes to offset 0.
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	s := string(raw)
	if len(s) <= len(cursorPrefix) || s[:len(cursorPrefix)] != cursorPrefix {
		return 0, ErrInvalidCursor
	}
	offset, err := strconv.Atoi(s[len(cursorPrefix):])
	if err != nil || offset < 0 {
		return 0, ErrInvalidCursor
	}
	return offset, nil
}

// Collector tracks cursor iteration while collecting every page of a list
// operation.
type Collector struct {
	// NextCursor is the cursor to request the next page with.
	NextCursor string
	// HasMore reports whether another page should be fetched.
	HasMore bool
	// TotalItems is the number of items collected so far.
	TotalItems int
}

// NewCollector creates a collector positioned before the first page.
func NewCollector() *Collector {
	return &Collector{HasMore: true}
}

// Update records one fetched page: the cursor for the following page and
// how many items the page carried. An empty cursor ends the iteration.
func (c *Collector) Update(nextCursor string, itemCount int) error {
	if nextCursor != "" && nextCursor == c.NextCursor {
		return ErrCursorNotAdvancing
	}
	c.NextCursor = nextCursor
	c.HasMore = nextCursor != ""
	c.TotalItems += itemCount
	return nil
}

// CollectAll drives a collector over fetch until the final page and returns
// every item. fetch receives the cursor to request, empty for the first
// page, and returns the page's items plus the next cursor.
func CollectAll[T any](ctx context.Context, fetch func(ctx context.Context, cursor string) ([]T, string, error)) ([]T, error) {
	collector := NewCollector()
	var all []T
	for collector.HasMore {
		items, next, err := fetch(ctx, collector.NextCursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if err := collector.Update(next, len(items)); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// Page slices one page out of a snapshot of n items. It returns the index
// range [start, end) and the cursor for the following page, empty when the
// page reaches the end.
func Page(n int, cursor string, pageSize int) (start, end int, nextCursor string, err error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	start, err = DecodeCursor(cursor)
	if err != nil {
		return 0, 0, "", err
	}
	if start > n {
		start = n
	}
	end = start + pageSize
	if end >= n {
		return start, n, "", nil
	}
	return start, end, EncodeCursor(end), nil
}
