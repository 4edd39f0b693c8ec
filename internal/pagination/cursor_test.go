package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)
	encoded := Cursor{LastID: "ev-42", Timestamp: ts}.Encode()
	require.NotEmpty(t, encoded)

	got, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "ev-42", got.LastID)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestCursor_Empty(t *testing.T) {
	assert.Empty(t, Cursor{}.Encode())

	got, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%"},
		{"no separator", "bm9waXBl"},
		{"bad timestamp", "aWR8bm90LWEtdGltZQ"},
		{"empty id", "fDIwMjQtMDEtMDFUMDA6MDA6MDBa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

type item struct {
	id string
	at time.Time
}

func cursorOf(i item) Cursor { return Cursor{LastID: i.id, Timestamp: i.at} }

func TestNewPage(t *testing.T) {
	now := time.Now()
	items := []item{{"a", now}, {"b", now}, {"c", now}}

	t.Run("extra item means more", func(t *testing.T) {
		page := NewPage(items, 2, cursorOf)
		assert.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)

		next, err := Decode(page.Cursor)
		require.NoError(t, err)
		assert.Equal(t, "b", next.LastID)
	})

	t.Run("short page is last", func(t *testing.T) {
		page := NewPage(items, 3, cursorOf)
		assert.Len(t, page.Items, 3)
		assert.False(t, page.HasMore)
		assert.Empty(t, page.Cursor)
	})

	t.Run("nil items serialize as empty", func(t *testing.T) {
		page := NewPage[item](nil, 10, cursorOf)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
	})
}
