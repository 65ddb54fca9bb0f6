// Package a1 converts between spreadsheet column letters and zero-based
// indices and builds the A1-notation ranges used by the sheet backends.
package a1

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidColumn is returned for an empty column label or one that
// contains anything other than the letters A-Z (case-insensitive).
var ErrInvalidColumn = errors.New("invalid column format")

// ColumnIndex converts a column label ("A", "z", "AA") to its zero-based
// index using the bijective base-26 scheme spreadsheets use.
func ColumnIndex(col string) (int, error) {
	if col == "" {
		return -1, fmt.Errorf("%w: empty column", ErrInvalidColumn)
	}
	index := 0
	for _, r := range strings.ToUpper(col) {
		if r < 'A' || r > 'Z' {
			return -1, fmt.Errorf("%w: %q", ErrInvalidColumn, col)
		}
		if index > (math.MaxInt-26)/26 {
			return -1, fmt.Errorf("%w: %q is too long", ErrInvalidColumn, col)
		}
		index = index*26 + int(r-'A'+1)
	}
	return index - 1, nil
}

// ColumnLetter converts a zero-based index back to its column label.
// Negative indices yield an empty string.
func ColumnLetter(index int) string {
	if index < 0 {
		return ""
	}
	var buf []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		buf = append(buf, byte('A'+(n-1)%26))
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// RowWindow is an inclusive, one-based row range.
type RowWindow struct {
	Start int
	End   int
}

// Len returns the number of rows the window covers.
func (w RowWindow) Len() int {
	return w.End - w.Start + 1
}

// QuoteTitle wraps a sheet title in single quotes, doubling any embedded
// quote, as required by A1 notation.
func QuoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// Range returns the A1 range covering cols over the rows of w on the sheet
// named title, e.g. 'Sheet 1'!A5:C9.
func Range(title string, cols ColumnRange, w RowWindow) string {
	return fmt.Sprintf("%s!%s%d:%s%d", QuoteTitle(title), cols.StartLetter, w.Start, cols.EndLetter, w.End)
}

// OpenColumn returns the A1 range for a single column from startRow with no
// upper bound, e.g. 'Sheet1'!B5:B.
func OpenColumn(title, col string, startRow int) string {
	col = strings.ToUpper(col)
	return fmt.Sprintf("%s!%s%d:%s", QuoteTitle(title), col, startRow, col)
}
