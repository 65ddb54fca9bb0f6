// Package sheet reads source rows from and writes comparison results to
// spreadsheets. Two backends implement Store: Google Sheets over the v4 API
// and local .xlsx workbooks.
package sheet

import (
	"context"
	"errors"

	"github.com/valpere/transcompare/internal/a1"
)

// ErrSheetNotFound is returned when no sheet has the requested positional id.
var ErrSheetNotFound = errors.New("sheet not found")

// Store is the spreadsheet transport used by the comparison pipeline and the
// write-back step. Sheets are addressed by their positional id (gid) for
// reads and by title for writes.
type Store interface {
	// SheetTitle resolves the display title of the sheet with the given gid.
	SheetTitle(ctx context.Context, spreadsheetID string, gid int64) (string, error)

	// ReadRange returns the formatted cell values of cols over window. Rows
	// and trailing cells with no data may be omitted; an empty range yields
	// an empty slice and no error.
	ReadRange(ctx context.Context, spreadsheetID, title string, cols a1.ColumnRange, window a1.RowWindow) ([][]string, error)

	// ReadColumn returns the values of a single column from startRow down to
	// its last non-empty cell.
	ReadColumn(ctx context.Context, spreadsheetID, title, column string, startRow int) ([]string, error)

	// WriteSheet replaces the contents of the sheet named title with matrix,
	// creating the sheet when it does not exist, and returns its gid.
	WriteSheet(ctx context.Context, spreadsheetID, title string, matrix [][]string) (int64, error)

	// Format freezes the header and instruction rows, sizes the first width
	// columns, bolds the header row and italicises the instruction row.
	Format(ctx context.Context, spreadsheetID string, gid int64, width int) error
}

// URL returns the browser link to a sheet. Local workbooks have no link.
func URL(s Store, spreadsheetID string, gid int64) string {
	if _, ok := s.(*GoogleStore); !ok {
		return ""
	}
	return GoogleSheetURL(spreadsheetID, gid)
}

// trimRow drops trailing empty cells, matching what the Sheets API returns.
func trimRow(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}

// trimRows drops trailing rows that have no cells.
func trimRows(rows [][]string) [][]string {
	n := len(rows)
	for n > 0 && len(rows[n-1]) == 0 {
		n--
	}
	return rows[:n]
}
