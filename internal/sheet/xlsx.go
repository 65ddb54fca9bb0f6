package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/valpere/transcompare/internal/a1"
)

const (
	minColWidth = 10
	maxColWidth = 80
)

// WorkbookStore implements Store over local .xlsx files. A spreadsheet id
// names <dir>/<id>.xlsx and a sheet's gid is its zero-based position in the
// workbook.
type WorkbookStore struct {
	dir string
	log zerolog.Logger
	mu  sync.Mutex
}

// NewWorkbookStore creates a store rooted at dir.
func NewWorkbookStore(dir string, log zerolog.Logger) *WorkbookStore {
	return &WorkbookStore{dir: dir, log: log}
}

func (s *WorkbookStore) path(spreadsheetID string) (string, error) {
	if spreadsheetID == "" || filepath.Base(spreadsheetID) != spreadsheetID || strings.HasPrefix(spreadsheetID, ".") {
		return "", fmt.Errorf("invalid workbook id %q", spreadsheetID)
	}
	return filepath.Join(s.dir, spreadsheetID+".xlsx"), nil
}

func (s *WorkbookStore) open(spreadsheetID string) (*excelize.File, string, error) {
	path, err := s.path(spreadsheetID)
	if err != nil {
		return nil, "", err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return f, path, nil
}

func (s *WorkbookStore) SheetTitle(ctx context.Context, spreadsheetID string, gid int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, _, err := s.open(spreadsheetID)
	if err != nil {
		return "", err
	}
	defer f.Close()

	list := f.GetSheetList()
	if gid < 0 || gid >= int64(len(list)) {
		return "", fmt.Errorf("%w: gid %d in workbook %s", ErrSheetNotFound, gid, spreadsheetID)
	}
	return list[gid], nil
}

func (s *WorkbookStore) rows(spreadsheetID, title string) ([][]string, error) {
	f, _, err := s.open(spreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(title)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", title, err)
	}
	return rows, nil
}

func (s *WorkbookStore) ReadRange(ctx context.Context, spreadsheetID, title string, cols a1.ColumnRange, window a1.RowWindow) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows(spreadsheetID, title)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("workbook", spreadsheetID).Str("range", a1.Range(title, cols, window)).Msg("reading range")

	first, last := cols.StartIndex, cols.StartIndex+cols.Width()
	out := make([][]string, 0, window.Len())
	for r := window.Start; r <= window.End; r++ {
		var row []string
		if r-1 < len(rows) {
			src := rows[r-1]
			for c := first; c < last; c++ {
				if c < len(src) {
					row = append(row, src[c])
				} else {
					row = append(row, "")
				}
			}
		}
		out = append(out, trimRow(row))
	}
	return trimRows(out), nil
}

func (s *WorkbookStore) ReadColumn(ctx context.Context, spreadsheetID, title, column string, startRow int) ([]string, error) {
	idx, err := a1.ColumnIndex(column)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows(spreadsheetID, title)
	if err != nil {
		return nil, err
	}

	var values []string
	for r := startRow - 1; r >= 0 && r < len(rows); r++ {
		if idx < len(rows[r]) {
			values = append(values, rows[r][idx])
		} else {
			values = append(values, "")
		}
	}
	return trimRow(values), nil
}

func (s *WorkbookStore) WriteSheet(ctx context.Context, spreadsheetID, title string, matrix [][]string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(spreadsheetID)
	if err != nil {
		return 0, err
	}

	f, err := excelize.OpenFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f = excelize.NewFile()
		// A new workbook carries a default sheet that is renamed to the output sheet.
		if err := f.SetSheetName(f.GetSheetName(0), title); err != nil {
			return 0, fmt.Errorf("failed to create output sheet %q: %w", title, err)
		}
	case err != nil:
		return 0, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(title)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare output sheet %q: %w", title, err)
	}
	if idx == -1 {
		s.log.Info().Str("title", title).Msg("creating output sheet")
		if idx, err = f.NewSheet(title); err != nil {
			return 0, fmt.Errorf("failed to create output sheet %q: %w", title, err)
		}
	} else {
		s.log.Info().Str("title", title).Int("gid", idx).Msg("clearing existing output sheet")
		existing, err := f.GetRows(title)
		if err != nil {
			return 0, fmt.Errorf("failed to clear output sheet %q: %w", title, err)
		}
		for r := len(existing); r >= 1; r-- {
			if err := f.RemoveRow(title, r); err != nil {
				return 0, fmt.Errorf("failed to clear output sheet %q: %w", title, err)
			}
		}
	}

	for i, row := range matrix {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return 0, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(title, cell, &values); err != nil {
			return 0, fmt.Errorf("failed to write output sheet %q: %w", title, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create workbook directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return int64(idx), nil
}

func (s *WorkbookStore) Format(ctx context.Context, spreadsheetID string, gid int64, width int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, path, err := s.open(spreadsheetID)
	if err != nil {
		return err
	}
	defer f.Close()

	title := f.GetSheetName(int(gid))
	if title == "" {
		return fmt.Errorf("%w: gid %d in workbook %s", ErrSheetNotFound, gid, spreadsheetID)
	}
	if width < 1 {
		width = 1
	}
	last := a1.ColumnLetter(width - 1)

	if err := f.SetPanes(title, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header rows: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(title, "A1", last+"1", bold); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}

	if width > 1 {
		italic, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true}})
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(title, "B2", last+"2", italic); err != nil {
			return fmt.Errorf("failed to style instructions row: %w", err)
		}
	}

	rows, err := f.GetRows(title)
	if err != nil {
		return err
	}
	for c := 0; c < width; c++ {
		w := minColWidth
		for _, row := range rows {
			if c < len(row) {
				w = max(w, utf8.RuneCountInString(row[c])+2)
			}
		}
		col := a1.ColumnLetter(c)
		if err := f.SetColWidth(title, col, col, float64(min(w, maxColWidth))); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}
