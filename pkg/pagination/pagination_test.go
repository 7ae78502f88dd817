package pagination

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 50, 12345} {
		cursor := EncodeCursor(offset)
		decoded, err := DecodeCursor(cursor)
		require.NoError(t, err)
		assert.Equal(t, offset, decoded)
	}
}

func TestDecodeCursorEmpty(t *testing.T) {
	offset, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
}

func TestDecodeCursorInvalid(t *testing.T) {
	tests := []string{
		"not base64 !!!",
		"aGVsbG8=",       // base64 but wrong prefix
		"b2Zmc2V0Oi01",   // offset:-5
		"b2Zmc2V0OmFiYw==", // offset:abc
	}
	for _, cursor := range tests {
		_, err := DecodeCursor(cursor)
		assert.ErrorIs(t, err, ErrInvalidCursor, "cursor %q", cursor)
	}
}

func TestPage(t *testing.T) {
	// First page of 120 items at page size 50.
	start, end, next, err := Page(120, "", 50)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, 50, end)
	require.NotEmpty(t, next)

	// Second page.
	start, end, next, err = Page(120, next, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, start)
	assert.Equal(t, 100, end)
	require.NotEmpty(t, next)

	// Final page has no next cursor.
	start, end, next, err = Page(120, next, 50)
	require.NoError(t, err)
	assert.Equal(t, 100, start)
	assert.Equal(t, 120, end)
	assert.Empty(t, next)
}

func TestPageDefaultsAndBounds(t *testing.T) {
	// Zero page size falls back to the default.
	_, end, _, err := Page(500, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, end)

	// Oversized page size is capped.
	_, end, _, err = Page(500, "", 10000)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, end)

	// A cursor past the end yields an empty final page.
	start, end, next, err := Page(10, EncodeCursor(99), 50)
	require.NoError(t, err)
	assert.Equal(t, 10, start)
	assert.Equal(t, 10, end)
	assert.Empty(t, next)
}

func TestCollector(t *testing.T) {
	collector := NewCollector()
	require.True(t, collector.HasMore)
	assert.Empty(t, collector.NextCursor)

	require.NoError(t, collector.Update(EncodeCursor(50), 50))
	assert.True(t, collector.HasMore)
	assert.Equal(t, 50, collector.TotalItems)

	// Final page ends the iteration.
	require.NoError(t, collector.Update("", 20))
	assert.False(t, collector.HasMore)
	assert.Equal(t, 70, collector.TotalItems)
}

func TestCollectorRejectsStuckCursor(t *testing.T) {
	collector := NewCollector()
	cursor := EncodeCursor(50)
	require.NoError(t, collector.Update(cursor, 50))
	assert.ErrorIs(t, collector.Update(cursor, 50), ErrCursorNotAdvancing)
}

func TestCollectAll(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	calls := 0
	got, err := CollectAll(context.Background(), func(ctx context.Context, cursor string) ([]int, string, error) {
		calls++
		start, end, next, err := Page(len(items), cursor, 2)
		if err != nil {
			return nil, "", err
		}
		return items[start:end], next, nil
	})
	require.NoError(t, err)
	assert.Equal(t, items, got)
	assert.Equal(t, 3, calls, "three pages of size 2 for 5 items")
}

func TestCollectAllPropagatesFetchError(t *testing.T) {
	_, err := CollectAll(context.Background(), func(ctx context.Context, cursor string) ([]int, string, error) {
		return nil, "", assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCollectAllStopsOnStuckCursor(t *testing.T) {
	cursor := EncodeCursor(0)
	_, err := CollectAll(context.Background(), func(ctx context.Context, c string) ([]int, string, error) {
		return []int{1}, cursor, nil
	})
	assert.ErrorIs(t, err, ErrCursorNotAdvancing)
}

func TestPageEmptySnapshot(t *testing.T) {
	start, end, next, err := Page(0, "", 50)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
	assert.Empty(t, next)
}
