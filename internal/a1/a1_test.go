package a1

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		col  string
		want int
	}{
		{"A", 0},
		{"z", 25},
		{"AA", 26},
		{"az", 51},
		{"BA", 52},
		{"ZZ", 701},
		{"AAA", 702},
	}
	for _, tt := range tests {
		got, err := ColumnIndex(tt.col)
		require.NoError(t, err, tt.col)
		assert.Equal(t, tt.want, got, tt.col)
	}
}

func TestColumnIndex_Invalid(t *testing.T) {
	for _, col := range []string{"", "A1", "-", "Ä", " A", "A B", strings.Repeat("Z", 14), strings.Repeat("a", 40)} {
		_, err := ColumnIndex(col)
		assert.True(t, errors.Is(err, ErrInvalidColumn), "column %q", col)
	}
}

func TestColumnIndex_Widest(t *testing.T) {
	// Thirteen letters still fit in an int; the index must stay positive and
	// survive the round trip.
	col := strings.Repeat("Z", 13)
	index, err := ColumnIndex(col)
	require.NoError(t, err)
	assert.Positive(t, index)
	assert.Equal(t, col, ColumnLetter(index))
}

func TestColumnLetter_RoundTrip(t *testing.T) {
	for i := 0; i < 20000; i++ {
		letter := ColumnLetter(i)
		got, err := ColumnIndex(letter)
		require.NoError(t, err)
		require.Equal(t, i, got, "letter %s", letter)
		require.Equal(t, letter, ColumnLetter(got))
	}
	assert.Equal(t, "", ColumnLetter(-1))
}

func TestRange(t *testing.T) {
	cols := ColumnRange{StartLetter: "A", EndLetter: "C"}
	assert.Equal(t, "'Sheet1'!A5:C9", Range("Sheet1", cols, RowWindow{Start: 5, End: 9}))
	assert.Equal(t, "'Bob''s'!A1:C1", Range("Bob's", cols, RowWindow{Start: 1, End: 1}))
}

func TestOpenColumn(t *testing.T) {
	assert.Equal(t, "'Data'!B5:B", OpenColumn("Data", "b", 5))
}

func TestRowWindow_Len(t *testing.T) {
	assert.Equal(t, 1, RowWindow{Start: 3, End: 3}.Len())
	assert.Equal(t, 5, RowWindow{Start: 5, End: 9}.Len())
}
