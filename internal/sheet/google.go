package sheet

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/valpere/transcompare/internal/a1"
)

// GoogleStore implements Store over the Google Sheets v4 API.
type GoogleStore struct {
	svc *sheets.Service
	log zerolog.Logger
}

// NewGoogleStore creates a Sheets client. With no options the client uses
// Application Default Credentials; pass option.WithCredentialsFile to use a
// service account key.
func NewGoogleStore(ctx context.Context, log zerolog.Logger, opts ...option.ClientOption) (*GoogleStore, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &GoogleStore{svc: svc, log: log}, nil
}

// GoogleSheetURL returns the browser link to a sheet of a spreadsheet.
func GoogleSheetURL(spreadsheetID string, gid int64) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", spreadsheetID, gid)
}

func (s *GoogleStore) properties(ctx context.Context, spreadsheetID string) ([]*sheets.SheetProperties, error) {
	resp, err := s.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", spreadsheetID, err)
	}
	props := make([]*sheets.SheetProperties, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			props = append(props, sh.Properties)
		}
	}
	return props, nil
}

func (s *GoogleStore) SheetTitle(ctx context.Context, spreadsheetID string, gid int64) (string, error) {
	props, err := s.properties(ctx, spreadsheetID)
	if err != nil {
		return "", err
	}
	for _, p := range props {
		if p.SheetId == gid {
			return p.Title, nil
		}
	}
	return "", fmt.Errorf("%w: gid %d in spreadsheet %s", ErrSheetNotFound, gid, spreadsheetID)
}

func (s *GoogleStore) ReadRange(ctx context.Context, spreadsheetID, title string, cols a1.ColumnRange, window a1.RowWindow) ([][]string, error) {
	rng := a1.Range(title, cols, window)
	s.log.Debug().Str("spreadsheet", spreadsheetID).Str("range", rng).Msg("reading range")

	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rng, err)
	}
	return toStrings(resp.Values), nil
}

func (s *GoogleStore) ReadColumn(ctx context.Context, spreadsheetID, title, column string, startRow int) ([]string, error) {
	rng := a1.OpenColumn(title, column, startRow)

	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		MajorDimension("COLUMNS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read column %s: %w", rng, err)
	}
	values := toStrings(resp.Values)
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (s *GoogleStore) WriteSheet(ctx context.Context, spreadsheetID, title string, matrix [][]string) (int64, error) {
	props, err := s.properties(ctx, spreadsheetID)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare output sheet %q: %w", title, err)
	}

	gid, found := int64(0), false
	for _, p := range props {
		if p.Title == title {
			gid, found = p.SheetId, true
			break
		}
	}

	if found {
		s.log.Info().Str("title", title).Int64("gid", gid).Msg("clearing existing output sheet")
		_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, a1.QuoteTitle(title), &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		if err != nil {
			return 0, fmt.Errorf("failed to clear output sheet %q: %w", title, err)
		}
	} else {
		s.log.Info().Str("title", title).Msg("creating output sheet")
		resp, err := s.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return 0, fmt.Errorf("failed to create output sheet %q: %w", title, err)
		}
		if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
			return 0, fmt.Errorf("no sheet id returned for new output sheet %q", title)
		}
		gid = resp.Replies[0].AddSheet.Properties.SheetId
	}

	values := make([][]interface{}, len(matrix))
	for i, row := range matrix {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	_, err = s.svc.Spreadsheets.Values.Update(spreadsheetID, a1.QuoteTitle(title)+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to write output sheet %q: %w", title, err)
	}
	return gid, nil
}

func (s *GoogleStore) Format(ctx context.Context, spreadsheetID string, gid int64, width int) error {
	w := int64(width)
	requests := []*sheets.Request{
		{UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:         gid,
				GridProperties:  &sheets.GridProperties{FrozenRowCount: 2},
				ForceSendFields: []string{"SheetId"},
			},
			Fields: "gridProperties.frozenRowCount",
		}},
		{AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{SheetId: gid, Dimension: "COLUMNS", StartIndex: 0, EndIndex: w, ForceSendFields: []string{"SheetId", "StartIndex"}},
		}},
		{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{SheetId: gid, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: w,
				ForceSendFields: []string{"SheetId", "StartRowIndex", "StartColumnIndex"}},
			Cell:   &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}}},
			Fields: "userEnteredFormat(textFormat/bold)",
		}},
		{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{SheetId: gid, StartRowIndex: 1, EndRowIndex: 2, StartColumnIndex: 1, EndColumnIndex: w,
				ForceSendFields: []string{"SheetId"}},
			Cell:   &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Italic: true}}},
			Fields: "userEnteredFormat(textFormat/italic)",
		}},
	}

	_, err := s.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to format sheet %d: %w", gid, err)
	}
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				rows[i][j] = fmt.Sprint(v)
			}
		}
	}
	return rows
}
