package pipeline

import (
	"context"
	"errors"

	"github.com/valpere/transcompare/internal/a1"
	"github.com/valpere/transcompare/internal/sheet"
)

// SourceRow is one row of the window. Index is its 0-based position in the
// window and is the alignment key for every later step. Notes is nil only
// when no notes column was requested.
type SourceRow struct {
	Index  int
	Source string
	Notes  *string
}

func resolveTitle(ctx context.Context, store sheet.Store, spreadsheetID string, gid int64) (string, error) {
	title, err := store.SheetTitle(ctx, spreadsheetID, gid)
	switch {
	case errors.Is(err, sheet.ErrSheetNotFound):
		return "", newError(KindSheetNotFound, "resolve sheet", err,
			"sheet with gid %d not found in spreadsheet %s", gid, spreadsheetID)
	case err != nil:
		return "", newError(KindTransportFailure, "resolve sheet", err, "spreadsheet %s", spreadsheetID)
	}
	return title, nil
}

// readRows performs the single rectangular read for the window. An empty
// result is returned as an empty slice.
func readRows(ctx context.Context, store sheet.Store, spreadsheetID, title string, cols a1.ColumnRange, window a1.RowWindow) ([][]string, error) {
	rows, err := store.ReadRange(ctx, spreadsheetID, title, cols, window)
	if err != nil {
		return nil, newError(KindTransportFailure, "read rows", err,
			"sheet %s, range %s", spreadsheetID, a1.Range(title, cols, window))
	}
	return rows, nil
}

// Project maps raw rows to SourceRows by the range's relative offsets. Cells
// missing from short rows read as empty strings.
func Project(rows [][]string, cols a1.ColumnRange) []SourceRow {
	out := make([]SourceRow, len(rows))
	for i, row := range rows {
		out[i] = SourceRow{Index: i, Source: cell(row, cols.SourceRel)}
		if cols.HasNotes() {
			notes := cell(row, cols.NotesRel)
			out[i].Notes = &notes
		}
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
