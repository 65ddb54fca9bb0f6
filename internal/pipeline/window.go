package pipeline

import (
	"context"
	"strings"

	"github.com/valpere/transcompare/internal/a1"
	"github.com/valpere/transcompare/internal/sheet"
)

// DetectWindow returns the row window to read. A positive endRow is taken as
// is without touching the sheet. Otherwise the source column is read from
// startRow down and the window ends at the last row of the unbroken run of
// non-blank cells. A blank first cell yields the single-row window
// {startRow, startRow}.
func DetectWindow(ctx context.Context, store sheet.Store, spreadsheetID, title, column string, startRow, endRow int) (a1.RowWindow, error) {
	if endRow > 0 {
		return a1.RowWindow{Start: startRow, End: endRow}, nil
	}

	values, err := store.ReadColumn(ctx, spreadsheetID, title, column, startRow)
	if err != nil {
		return a1.RowWindow{}, newError(KindTransportFailure, "detect rows", err,
			"sheet %s, range %s", spreadsheetID, a1.OpenColumn(title, column, startRow))
	}

	run := 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			break
		}
		run++
	}
	if run == 0 {
		return a1.RowWindow{Start: startRow, End: startRow}, nil
	}
	return a1.RowWindow{Start: startRow, End: startRow + run - 1}, nil
}
