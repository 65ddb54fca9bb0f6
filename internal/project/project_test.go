package project

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/valpere/transcompare/internal/jobs"
	"github.com/valpere/transcompare/internal/pipeline"
	"github.com/valpere/transcompare/internal/sheet"
	"github.com/valpere/transcompare/internal/store"
	"github.com/valpere/transcompare/internal/translator"
)

type upperService struct{}

func (upperService) Name() string { return "upper" }

func (upperService) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	if req.Text == "boom" {
		return nil, errors.New("provider exploded")
	}
	return &translator.ServiceResult{TranslatedText: strings.ToUpper(req.Text)}, nil
}

func (upperService) IsAvailable(ctx context.Context) error { return nil }

func (upperService) SupportedLanguages(ctx context.Context) ([]string, error) { return nil, nil }

type env struct {
	svc     *Service
	sheets  *sheet.WorkbookStore
	history *store.Store
}

func newEnv(t *testing.T, cells map[string]string) *env {
	t.Helper()
	dir := t.TempDir()

	f := excelize.NewFile()
	_, err := f.NewSheet("Source")
	require.NoError(t, err)
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue("Source", cell, v))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "book.xlsx")))
	require.NoError(t, f.Close())

	sheets := sheet.NewWorkbookStore(dir, zerolog.Nop())
	engine, err := jobs.NewEngine(zerolog.Nop(), jobs.Provider{ID: "up", Service: upperService{}})
	require.NoError(t, err)
	p, err := pipeline.New(pipeline.Config{Store: sheets, Capability: engine})
	require.NoError(t, err)

	history, err := store.New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	return &env{svc: NewService(p, sheets, history, 0, zerolog.Nop()), sheets: sheets, history: history}
}

func validProject() Project {
	return Project{
		SpreadsheetID:  "book",
		GID:            1,
		TestName:       "Run A",
		SourceLanguage: "en",
		TargetLanguage: "fr",
		SourceColumn:   "A",
		NotesColumn:    "B",
		StartRow:       2,
		Translators:    []pipeline.Translator{{Provider: "up", Instructions: "shout"}, {Provider: "ghost"}},
	}
}

func TestService_Execute(t *testing.T) {
	e := newEnv(t, map[string]string{
		"A1": "Text", "B1": "Notes",
		"A2": "hello", "B2": "greeting",
		"A3": "bye",
		"A5": "after the gap",
	})
	ctx := context.Background()

	out, err := e.svc.Execute(ctx, validProject())
	require.NoError(t, err)

	assert.Equal(t, int64(2), out.OutputGID)
	assert.Equal(t, "", out.SheetURL)
	assert.NoError(t, out.FormatErr)
	assert.NotEmpty(t, out.RunID)

	title, err := e.sheets.SheetTitle(ctx, "book", out.OutputGID)
	require.NoError(t, err)
	assert.Equal(t, "Run A", title)

	readBack, err := e.svc.pipeline.Run(ctx, pipeline.Request{
		SpreadsheetID: "book", GID: out.OutputGID, SourceColumn: "A", NotesColumn: "D",
		StartRow: 1, EndRow: 4, Translators: []pipeline.Translator{{Provider: "up"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Source Text", readBack.Rows[0].Source)
	assert.Equal(t, "ghost-2", *readBack.Rows[0].Notes)
	assert.Equal(t, "hello", readBack.Rows[2].Source)
	assert.Equal(t, pipeline.PlaceholderProviderFailed, *readBack.Rows[2].Notes)
	assert.Len(t, readBack.Rows, 4)

	runs, err := e.history.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, runs)
	run := runs[len(runs)-1]
	assert.Equal(t, store.RunSucceeded, run.Status)
	assert.Equal(t, "Source", run.SourceTitle)
	assert.Equal(t, 3, run.EndRow)
	assert.Equal(t, 2, run.RowCount)
	require.Len(t, run.Slots, 2)
	assert.False(t, run.Slots[0].Failed)
	assert.True(t, run.Slots[1].Failed)
}

func TestService_Execute_FailedRunIsRecorded(t *testing.T) {
	e := newEnv(t, map[string]string{"A2": "hello"})
	ctx := context.Background()

	p := validProject()
	p.GID = 9

	_, err := e.svc.Execute(ctx, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrSheetNotFound))

	runs, err := e.history.ListRuns(ctx, store.RunFilter{TestName: "Run A"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "SheetNotFound")
}

func TestService_Execute_InvalidProjectIsNotRecorded(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	p := validProject()
	p.TestName = "  "
	_, err := e.svc.Execute(ctx, p)
	assert.True(t, errors.Is(err, pipeline.ErrInvalidRequest))

	runs, err := e.history.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestService_Preview(t *testing.T) {
	e := newEnv(t, map[string]string{"A2": "hello", "A3": "bye"})
	ctx := context.Background()

	res, err := e.svc.Preview(ctx, validProject())
	require.NoError(t, err)
	require.Len(t, res.Matrix, 4)
	assert.Equal(t, "HELLO", res.Matrix[2][2])

	_, err = e.sheets.SheetTitle(ctx, "book", 2)
	assert.ErrorIs(t, err, sheet.ErrSheetNotFound)

	runs, err := e.history.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestProject_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Project)
		wantErr bool
	}{
		{"valid", func(p *Project) {}, false},
		{"missing spreadsheet", func(p *Project) { p.SpreadsheetID = "" }, true},
		{"missing test name", func(p *Project) { p.TestName = "" }, true},
		{"missing source column", func(p *Project) { p.SourceColumn = "" }, true},
		{"start row zero", func(p *Project) { p.StartRow = 0 }, true},
		{"end before start", func(p *Project) { p.EndRow = 1 }, true},
		{"no translators", func(p *Project) { p.Translators = nil }, true},
		{"bad target", func(p *Project) { p.TargetLanguage = "not a tag!" }, true},
		{"missing target", func(p *Project) { p.TargetLanguage = "" }, true},
		{"bad source", func(p *Project) { p.SourceLanguage = "??" }, true},
		{"auto source", func(p *Project) { p.SourceLanguage = "AUTO" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProject()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 400, pipeline.HTTPStatus(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProject_Validate_Normalises(t *testing.T) {
	p := validProject()
	p.SourceLanguage = ""
	p.TargetLanguage = "pt-br"
	p.TestName = "  Run B "
	require.NoError(t, p.Validate())

	assert.Equal(t, "auto", p.SourceLanguage)
	assert.Equal(t, "pt-BR", p.TargetLanguage)
	assert.Equal(t, "Run B", p.TestName)
}
