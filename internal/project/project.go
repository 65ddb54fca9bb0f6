// Package project runs a comparison end to end: pipeline, write-back to a
// sheet named after the test, formatting and run history.
package project

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/valpere/transcompare/internal/pipeline"
	"github.com/valpere/transcompare/internal/sheet"
	"github.com/valpere/transcompare/internal/store"
)

// Project is a user request: where to read, what to call the output sheet
// and which translators to compare.
type Project struct {
	SpreadsheetID  string                `json:"spreadsheetId"`
	GID            int64                 `json:"gid"`
	TestName       string                `json:"testName"`
	SourceLanguage string                `json:"sourceLanguage"`
	TargetLanguage string                `json:"targetLanguage"`
	SourceColumn   string                `json:"sourceColumn"`
	NotesColumn    string                `json:"notesColumn"`
	StartRow       int                   `json:"startRow"`
	EndRow         int                   `json:"endRow"`
	Translators    []pipeline.Translator `json:"translators"`
}

// Outcome describes a finished project.
type Outcome struct {
	Result    *pipeline.Result
	OutputGID int64
	SheetURL  string
	RunID     string
	// FormatErr is set when the sheet was written but could not be formatted.
	FormatErr error
}

// Recorder persists run history.
type Recorder interface {
	SaveRun(ctx context.Context, run *store.Run) error
}

type Service struct {
	pipeline *pipeline.Pipeline
	sheets   sheet.Store
	history  Recorder
	timeout  time.Duration
	log      zerolog.Logger
}

// NewService wires a service. history may be nil; timeout 0 means none.
func NewService(p *pipeline.Pipeline, sheets sheet.Store, history Recorder, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{pipeline: p, sheets: sheets, history: history, timeout: timeout, log: log}
}

// Validate checks the fields the pipeline does not know about and normalises
// language tags. Failures are pipeline.KindInvalidRequest errors.
func (p *Project) Validate() error {
	invalid := func(format string, args ...any) error {
		return &pipeline.Error{Kind: pipeline.KindInvalidRequest, Op: "validate", Msg: fmt.Sprintf(format, args...)}
	}

	p.TestName = strings.TrimSpace(p.TestName)
	switch {
	case p.SpreadsheetID == "":
		return invalid("spreadsheetId is required")
	case p.TestName == "":
		return invalid("testName is required")
	case p.SourceColumn == "":
		return invalid("sourceColumn is required")
	case p.StartRow < 1:
		return invalid("startRow must be at least 1")
	case p.EndRow != 0 && p.EndRow < p.StartRow:
		return invalid("endRow must not be before startRow")
	case len(p.Translators) == 0:
		return invalid("at least one translator is required")
	}

	if p.SourceLanguage == "" {
		p.SourceLanguage = pipeline.AutoLanguage
	}
	if !strings.EqualFold(p.SourceLanguage, pipeline.AutoLanguage) {
		tag, err := language.Parse(p.SourceLanguage)
		if err != nil {
			return invalid("invalid sourceLanguage %q", p.SourceLanguage)
		}
		p.SourceLanguage = tag.String()
	}
	if p.TargetLanguage == "" {
		return invalid("targetLanguage is required")
	}
	tag, err := language.Parse(p.TargetLanguage)
	if err != nil {
		return invalid("invalid targetLanguage %q", p.TargetLanguage)
	}
	p.TargetLanguage = tag.String()
	return nil
}

func (p *Project) request() pipeline.Request {
	return pipeline.Request{
		SpreadsheetID: p.SpreadsheetID,
		GID:           p.GID,
		SourceColumn:  p.SourceColumn,
		NotesColumn:   p.NotesColumn,
		StartRow:      p.StartRow,
		EndRow:        p.EndRow,
		SourceLang:    p.SourceLanguage,
		TargetLang:    p.TargetLanguage,
		Translators:   p.Translators,
	}
}

// Execute validates and runs the project, then replaces the content of the
// sheet named TestName with the result matrix. The run is recorded whether
// or not it succeeded.
func (s *Service) Execute(ctx context.Context, p Project) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.pipeline.Run(ctx, p.request())
	if err != nil {
		s.record(ctx, p, nil, 0, err)
		return nil, err
	}

	out := &Outcome{Result: res}
	gid, err := s.sheets.WriteSheet(ctx, p.SpreadsheetID, p.TestName, res.Matrix)
	if err != nil {
		err = &pipeline.Error{
			Kind: pipeline.KindTransportFailure,
			Op:   "write results",
			Msg:  fmt.Sprintf("sheet %s, title %q", p.SpreadsheetID, p.TestName),
			Err:  err,
		}
		s.record(ctx, p, res, 0, err)
		return nil, err
	}
	out.OutputGID = gid
	out.SheetURL = sheet.URL(s.sheets, p.SpreadsheetID, gid)
	s.log.Info().
		Str("spreadsheet", p.SpreadsheetID).
		Str("title", p.TestName).
		Int64("gid", gid).
		Int("rows", len(res.Matrix)).
		Msg("results written")

	if err := s.sheets.Format(ctx, p.SpreadsheetID, gid, res.Matrix.Width()); err != nil {
		s.log.Warn().Err(err).Str("title", p.TestName).Msg("could not format output sheet")
		out.FormatErr = err
	}

	out.RunID = s.record(ctx, p, res, gid, nil)
	return out, nil
}

// Preview validates and runs the project without writing to the spreadsheet
// or recording history.
func (s *Service) Preview(ctx context.Context, p Project) (*pipeline.Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.pipeline.Run(ctx, p.request())
}

func (s *Service) record(ctx context.Context, p Project, res *pipeline.Result, gid int64, runErr error) string {
	if s.history == nil {
		return ""
	}
	run := &store.Run{
		TestName:      p.TestName,
		SpreadsheetID: p.SpreadsheetID,
		SourceGID:     p.GID,
		OutputGID:     gid,
		SourceLang:    p.SourceLanguage,
		TargetLang:    p.TargetLanguage,
		StartRow:      p.StartRow,
		EndRow:        p.EndRow,
		Status:        store.RunSucceeded,
	}
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
	}
	if res != nil {
		run.SourceTitle = res.Title
		run.SourceLang = res.SourceLang
		run.EndRow = res.Window.End
		run.RowCount = len(res.Rows)
		for i, slot := range res.Slots {
			rec := store.Slot{
				Position:     i + 1,
				Provider:     slot.Translator.Provider,
				Instructions: slot.Translator.Instructions,
				JobGUID:      slot.Job.GUID,
				Failed:       slot.Failed,
				LatencyMs:    slot.Job.Latency.Milliseconds(),
				Warnings:     slot.Job.Warnings,
			}
			if slot.Err != nil {
				rec.Error = slot.Err.Error()
			}
			run.Slots = append(run.Slots, rec)
		}
	}

	// History must not fail a run that already reached the sheet.
	if err := s.history.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		s.log.Warn().Err(err).Msg("could not record run history")
		return ""
	}
	return run.ID
}
