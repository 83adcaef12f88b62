package keys

import (
	"strings"
	"testing"
	"time"

	"github.com/eventrail/eventrail/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionKeyForID_Normalization(t *testing.T) {
	a, err := PartitionKeyForID("ABC-123")
	require.NoError(t, err)
	b, err := PartitionKeyForID("abc123")
	require.NoError(t, err)
	c, err := PartitionKeyForID("Abc-1-2-3")
	require.NoError(t, err)

	assert.Equal(t, "id:abc123", a)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestPartitionKeyForID_Rejected(t *testing.T) {
	cases := []string{
		"",
		"abc/def",
		"abc\\def",
		"abc#def",
		"abc?def",
		"abc\ndef",
		"abc\x00def",
		"abc\x7fdef",
		"-",
		"---",
	}
	for _, id := range cases {
		_, err := PartitionKeyForID(id)
		assert.Error(t, err, "id %q", id)
		assert.True(t, types.IsValidation(err), "id %q", id)
	}
}

func TestPartitionKeyForDate(t *testing.T) {
	ts := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "date:20240315", PartitionKeyForDate(ts))

	// A non-UTC timestamp is keyed by its UTC day.
	loc := time.FixedZone("UTC+3", 3*3600)
	late := time.Date(2024, 3, 16, 1, 30, 0, 0, loc) // 22:30 UTC on the 15th
	assert.Equal(t, "date:20240315", PartitionKeyForDate(late))
}

func TestRowKeyBase_Width(t *testing.T) {
	base := RowKeyBase(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Len(t, base, 19)
}

func TestRowKey_RoundTrip(t *testing.T) {
	created := time.Date(2024, 6, 1, 12, 34, 56, 789000000, time.UTC)
	rk := RowKey(created)

	require.True(t, strings.HasPrefix(rk, RowKeyBase(created)))

	got, err := TimeFromRowKey(rk)
	require.NoError(t, err)
	assert.True(t, got.Equal(created), "got %v want %v", got, created)
}

func TestRowKeyUpperBound_AdmitsExactInstant(t *testing.T) {
	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	bound := RowKeyUpperBound(at)

	// Keys of rows created at or after the instant sort below the bound.
	assert.Less(t, RowKey(at), bound)
	assert.Less(t, RowKey(at.Add(100*time.Nanosecond)), bound)
	assert.Less(t, RowKey(at.Add(time.Hour)), bound)

	// One tick earlier sorts above it.
	assert.Greater(t, RowKey(at.Add(-100*time.Nanosecond)), bound)
}

func TestRowKey_UniqueSuffix(t *testing.T) {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.NotEqual(t, RowKey(created), RowKey(created))
}

func TestContentID_ParseRoundTrip(t *testing.T) {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rk := RowKey(created)

	cid, err := ContentID("ABC-123", rk)
	require.NoError(t, err)

	id, gotRK, err := ParseContentID(cid)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, rk, gotRK)
}

func TestParseContentID_Malformed(t *testing.T) {
	for _, cid := range []string{"", "abc", "-abc", "abc-", "abc-short"} {
		_, _, err := ParseContentID(cid)
		assert.Error(t, err, "content id %q", cid)
	}
}
