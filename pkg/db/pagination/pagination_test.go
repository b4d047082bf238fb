package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "1790000000000000000"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "1790000000000000000", cursor.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("!!not-base64!!")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Normalize().PageSize)
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10000}.Normalize().PageSize)
	assert.Equal(t, 5, Pagination{PageSize: 5}.Normalize().PageSize)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type item struct{ id string }
	items := []*item{{id: "3"}, {id: "2"}, {id: "1"}}

	info := BuildCursorPageInfo(items, 2, func(i *item) string { return i.id })
	assert.True(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)

	info = BuildCursorPageInfo(items, 3, func(i *item) string { return i.id })
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
