package pagination

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit(t *testing.T) {
	assert.Equal(t, 20, Pagination{}.Limit())
	assert.Equal(t, 20, Pagination{PageSize: -3}.Limit())
	assert.Equal(t, 50, Pagination{PageSize: 50}.Limit())
	assert.Equal(t, 250, Pagination{PageSize: 9999}.Limit())
}

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-06-01T00:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, "2026-06-01T00:00:00Z", cursor.CreatedAt)

	_, err = DecodeCursor("%%%not-base64%%%")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ ID int }
	extract := func(r *row) string { return strconv.Itoa(r.ID) }

	rows := []*row{{1}, {2}, {3}}

	page, info := BuildCursorPageInfo(nil, 2, extract)
	assert.Empty(t, page)
	assert.False(t, info.HasMore)

	// One row past the limit signals another page; the extra row is trimmed
	// and the token points at the last visible row.
	page, info = BuildCursorPageInfo(rows, 2, extract)
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)

	page, info = BuildCursorPageInfo(rows, 3, extract)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
