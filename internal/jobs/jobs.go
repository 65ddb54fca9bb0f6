// Package jobs runs batch translation jobs against the configured providers.
//
// A batch of units is submitted for one provider id; the engine answers with
// the jobs it accepted (one for a known provider, none otherwise). Awaiting a
// job runs it to a terminal state and yields exactly one translation per
// unit, in unit order, or fails the whole job.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/transcompare/internal/translator"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var (
	// ErrUnknownJob is returned when awaiting a job the engine never accepted.
	ErrUnknownJob = errors.New("unknown job")
	// ErrJobFailed wraps the cause of a job that ended in StatusFailed.
	ErrJobFailed = errors.New("job failed")
)

// Unit is one row of a batch.
type Unit struct {
	Index  int
	Source string
	Notes  string
}

// Batch is everything one provider needs to translate a block of rows.
type Batch struct {
	Units        []Unit
	Provider     string
	Instructions string
	SourceLang   string
	TargetLang   string
}

// Job describes an accepted batch.
type Job struct {
	GUID       string
	Provider   string
	SourceLang string
	TargetLang string
	Units      int
	Status     Status
	Latency    time.Duration
	// Warnings counts translations the validator flagged as not being in the
	// target language.
	Warnings int
}

// Outcome is the terminal state of a job.
type Outcome struct {
	Job          Job
	Translations []string
}

// Capability is the translation side of a comparison run.
type Capability interface {
	Submit(ctx context.Context, batch Batch) ([]Job, error)
	Await(ctx context.Context, job Job) (*Outcome, error)
}

// Provider binds a user-facing id to a translation service and its settings.
type Provider struct {
	ID      string
	Service translator.TranslationService
	Config  translator.ServiceConfig
}

// LanguageValidator checks that a translation is in the target language.
type LanguageValidator interface {
	IsValid(translatedText, targetLang string) (bool, error)
}

type jobState struct {
	job   Job
	batch Batch
}

// Engine is the in-process Capability. It is safe for concurrent use.
type Engine struct {
	providers map[string]Provider
	order     []string
	validator LanguageValidator
	log       zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*jobState
}

// NewEngine creates an engine over providers. Provider ids must be unique.
func NewEngine(log zerolog.Logger, providers ...Provider) (*Engine, error) {
	e := &Engine{
		providers: make(map[string]Provider, len(providers)),
		log:       log,
		jobs:      make(map[string]*jobState),
	}
	for _, p := range providers {
		if p.ID == "" || p.Service == nil {
			return nil, fmt.Errorf("provider needs an id and a service")
		}
		if _, dup := e.providers[p.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		e.providers[p.ID] = p
		e.order = append(e.order, p.ID)
	}
	return e, nil
}

// SetValidator enables target-language checks on finished jobs. Flagged
// translations are counted in Job.Warnings; they do not fail the job.
func (e *Engine) SetValidator(v LanguageValidator) {
	e.validator = v
}

// Providers returns the configured provider ids in configuration order.
func (e *Engine) Providers() []string {
	return append([]string(nil), e.order...)
}

// Health is the result of probing one provider.
type Health struct {
	ID string
	// Err is nil when the provider reported itself available.
	Err error
	// Languages is the provider's advertised language list, nil if it could
	// not be fetched.
	Languages []string
}

// Health probes every provider concurrently and reports in configuration
// order.
func (e *Engine) Health(ctx context.Context) []Health {
	out := make([]Health, len(e.order))
	var g errgroup.Group
	for i, id := range e.order {
		svc := e.providers[id].Service
		g.Go(func() error {
			h := Health{ID: id, Err: svc.IsAvailable(ctx)}
			if langs, err := svc.SupportedLanguages(ctx); err == nil {
				h.Languages = langs
			}
			out[i] = h
			return nil
		})
	}
	g.Wait()
	return out
}

// Submit accepts the batch for its provider. An unknown provider yields no
// jobs and no error.
func (e *Engine) Submit(ctx context.Context, batch Batch) ([]Job, error) {
	if _, ok := e.providers[batch.Provider]; !ok {
		e.log.Warn().Str("provider", batch.Provider).Msg("no provider took the job")
		return nil, nil
	}

	job := Job{
		GUID:       uuid.NewString(),
		Provider:   batch.Provider,
		SourceLang: batch.SourceLang,
		TargetLang: batch.TargetLang,
		Units:      len(batch.Units),
		Status:     StatusPending,
	}

	e.mu.Lock()
	e.jobs[job.GUID] = &jobState{job: job, batch: batch}
	e.mu.Unlock()

	return []Job{job}, nil
}

// Job returns the state of a job that is pending or running. Finished jobs
// are only reported through Await's Outcome.
func (e *Engine) Job(guid string) (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.jobs[guid]
	if !ok {
		return Job{}, false
	}
	return st.job, true
}

// Await starts a pending job and blocks until it is done or failed.
func (e *Engine) Await(ctx context.Context, job Job) (*Outcome, error) {
	e.mu.Lock()
	st, ok := e.jobs[job.GUID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, job.GUID)
	}
	if st.job.Status != StatusPending {
		e.mu.Unlock()
		return nil, fmt.Errorf("job %s already %s", job.GUID, st.job.Status)
	}
	st.job.Status = StatusRunning
	batch := st.batch
	e.mu.Unlock()

	start := time.Now()
	translations, err := e.run(ctx, e.providers[batch.Provider], batch)
	latency := time.Since(start)

	warnings := 0
	if err == nil && e.validator != nil {
		for _, t := range translations {
			if strings.TrimSpace(t) == "" {
				continue
			}
			if ok, _ := e.validator.IsValid(t, batch.TargetLang); !ok {
				warnings++
			}
		}
	}

	// A finished job is handed back in the Outcome and forgotten; the engine
	// only tracks jobs in flight.
	e.mu.Lock()
	st.job.Latency = latency
	st.job.Warnings = warnings
	if err != nil {
		st.job.Status = StatusFailed
	} else {
		st.job.Status = StatusDone
	}
	final := st.job
	delete(e.jobs, job.GUID)
	e.mu.Unlock()

	e.log.Info().
		Str("job", final.GUID).
		Str("provider", final.Provider).
		Str("source", final.SourceLang).
		Str("target", final.TargetLang).
		Str("status", string(final.Status)).
		Int("units", final.Units).
		Dur("latency", latency).
		Int("warnings", warnings).
		Msg("job finished")

	if err != nil {
		return &Outcome{Job: final}, fmt.Errorf("%w: %s: %v", ErrJobFailed, final.Provider, err)
	}
	return &Outcome{Job: final, Translations: translations}, nil
}

func (e *Engine) run(ctx context.Context, p Provider, batch Batch) ([]string, error) {
	out := make([]string, len(batch.Units))

	// Blank sources are passed through untranslated.
	var pending []int
	for i, u := range batch.Units {
		if strings.TrimSpace(u.Source) != "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	if bs, ok := p.Service.(translator.BatchService); ok {
		texts := make([]string, len(pending))
		notes := make([]string, len(pending))
		for i, idx := range pending {
			texts[i] = batch.Units[idx].Source
			notes[i] = batch.Units[idx].Notes
		}
		got, err := bs.TranslateBatch(ctx, p.Config, translator.BatchRequest{
			Texts:        texts,
			Notes:        notes,
			SourceLang:   batch.SourceLang,
			TargetLang:   batch.TargetLang,
			Instructions: batch.Instructions,
		})
		if err != nil {
			return nil, err
		}
		if len(got) != len(pending) {
			return nil, fmt.Errorf("provider returned %d translations for %d texts", len(got), len(pending))
		}
		for i, idx := range pending {
			out[idx] = got[i]
		}
		return out, nil
	}

	for _, idx := range pending {
		u := batch.Units[idx]
		res, err := p.Service.Translate(ctx, p.Config, translator.TranslateRequest{
			Text:         u.Source,
			SourceLang:   batch.SourceLang,
			TargetLang:   batch.TargetLang,
			Instructions: batch.Instructions,
			Notes:        u.Notes,
		})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", u.Index+1, err)
		}
		if res.Error != "" {
			return nil, fmt.Errorf("row %d: %s", u.Index+1, res.Error)
		}
		out[idx] = res.TranslatedText
	}
	return out, nil
}
