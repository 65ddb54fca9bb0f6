// Package pipeline runs a translation comparison over a block of spreadsheet
// rows: it resolves columns and the row window, reads the rows, sends them to
// every requested translator and assembles the aligned result matrix.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/valpere/transcompare/internal/a1"
	"github.com/valpere/transcompare/internal/jobs"
	"github.com/valpere/transcompare/internal/sheet"
)

// AutoLanguage asks the pipeline to detect the source language from the rows.
const AutoLanguage = "auto"

// detectSampleRows bounds how many source rows are joined for detection.
const detectSampleRows = 20

// LanguageDetector guesses the ISO 639-1 code of a text.
type LanguageDetector interface {
	DetectISO(text string) (string, bool)
}

// Config holds the collaborators a Pipeline is built from.
type Config struct {
	Store      sheet.Store
	Capability jobs.Capability
	// Detector resolves AutoLanguage. Without one, "auto" reaches providers as is.
	Detector LanguageDetector
	// Concurrency caps translators in flight; 0 means no cap.
	Concurrency int
	Logger      zerolog.Logger
}

// Request is one comparison run. EndRow 0 asks for auto-detection.
type Request struct {
	SpreadsheetID string
	GID           int64
	SourceColumn  string
	NotesColumn   string
	StartRow      int
	EndRow        int
	SourceLang    string
	TargetLang    string
	Translators   []Translator
}

// Result is everything a run produced. Matrix is ready for write-back.
type Result struct {
	Title      string
	Columns    a1.ColumnRange
	Window     a1.RowWindow
	SourceLang string
	Rows       []SourceRow
	Slots      []SlotResult
	Matrix     Matrix
}

// Pipeline holds no per-run state and may serve concurrent runs.
type Pipeline struct {
	store    sheet.Store
	detector LanguageDetector
	dispatch *dispatcher
	log      zerolog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil || cfg.Capability == nil {
		return nil, errors.New("pipeline needs a sheet store and a translation capability")
	}
	log := cfg.Logger
	return &Pipeline{
		store:    cfg.Store,
		detector: cfg.Detector,
		dispatch: &dispatcher{capability: cfg.Capability, limit: cfg.Concurrency, log: log},
		log:      log,
	}, nil
}

func validate(req Request) error {
	switch {
	case req.SpreadsheetID == "":
		return newError(KindInvalidRequest, "validate", nil, "spreadsheet id is required")
	case req.StartRow < 1:
		return newError(KindInvalidRequest, "validate", nil, "start row must be at least 1, got %d", req.StartRow)
	case req.EndRow != 0 && req.EndRow < req.StartRow:
		return newError(KindInvalidRequest, "validate", nil, "end row %d is before start row %d", req.EndRow, req.StartRow)
	case len(req.Translators) == 0:
		return newError(KindInvalidRequest, "validate", nil, "at least one translator is required")
	}
	for i, t := range req.Translators {
		if strings.TrimSpace(t.Provider) == "" {
			return newError(KindInvalidRequest, "validate", nil, "translator %d has no provider", i+1)
		}
	}
	return nil
}

// Run executes one comparison. Structural failures (bad input, unknown
// sheet, empty window, storage errors) are returned before any translator is
// contacted. A failing translator only degrades its own column.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	cols, err := a1.ResolveColumns(req.SourceColumn, req.NotesColumn)
	if err != nil {
		return nil, newError(KindInvalidColumnFormat, "resolve columns", err, "")
	}

	title, err := resolveTitle(ctx, p.store, req.SpreadsheetID, req.GID)
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("spreadsheet", req.SpreadsheetID).Int64("gid", req.GID).Str("title", title).Msg("sheet resolved")

	sourceCol := a1.ColumnLetter(cols.StartIndex + cols.SourceRel)
	window, err := DetectWindow(ctx, p.store, req.SpreadsheetID, title, sourceCol, req.StartRow, req.EndRow)
	if err != nil {
		return nil, err
	}
	if req.EndRow == 0 {
		p.log.Info().Int("start", window.Start).Int("end", window.End).Msg("end row detected")
	}

	p.log.Info().Str("range", a1.Range(title, cols, window)).Msg("reading rows")
	raw, err := readRows(ctx, p.store, req.SpreadsheetID, title, cols, window)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, newError(KindNoDataFound, "read rows", nil,
			"no data found in %s", a1.Range(title, cols, window))
	}

	rows := Project(raw, cols)
	sourceLang := p.sourceLanguage(req.SourceLang, rows)
	p.log.Info().
		Int("rows", len(rows)).
		Int("translators", len(req.Translators)).
		Str("source", sourceLang).
		Str("target", req.TargetLang).
		Msg("dispatching")

	slots := p.dispatch.dispatch(ctx, rows, req.Translators, sourceLang, req.TargetLang)

	return &Result{
		Title:      title,
		Columns:    cols,
		Window:     window,
		SourceLang: sourceLang,
		Rows:       rows,
		Slots:      slots,
		Matrix:     BuildMatrix(rows, cols.HasNotes(), slots),
	}, nil
}

func (p *Pipeline) sourceLanguage(lang string, rows []SourceRow) string {
	if !strings.EqualFold(lang, AutoLanguage) || p.detector == nil {
		return lang
	}
	var sample []string
	for _, r := range rows {
		if s := strings.TrimSpace(r.Source); s != "" {
			sample = append(sample, s)
		}
		if len(sample) == detectSampleRows {
			break
		}
	}
	code, ok := p.detector.DetectISO(strings.Join(sample, "\n"))
	if !ok {
		p.log.Warn().Msg("could not detect source language")
		return lang
	}
	code = strings.ToLower(code)
	p.log.Info().Str("lang", code).Msg("source language detected")
	return code
}
