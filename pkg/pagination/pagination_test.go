package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 42, time.UTC), ID: uuid.New()}

	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	cursor, err := ParseCursor("   ")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	_, err = ParseCursor("%%%")
	assert.Error(t, err)

	_, err = ParseCursor("bm90LWEtY3Vyc29y")
	assert.Error(t, err)
}

func TestPageMeta(t *testing.T) {
	p := Page{Number: 0, Limit: 0}
	assert.Equal(t, 0, p.Offset())

	p = Page{Number: 3, Limit: 10}
	assert.Equal(t, 20, p.Offset())

	meta := NewPageMeta(p, 21)
	assert.Equal(t, 3, meta.Page)
	assert.Equal(t, 3, meta.TotalPages)

	meta = NewPageMeta(Page{Number: 1, Limit: 10}, 0)
	assert.Equal(t, 0, meta.TotalPages)
}
