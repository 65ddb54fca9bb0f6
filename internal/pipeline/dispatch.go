package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/transcompare/internal/jobs"
)

// Translator is one requested comparison column.
type Translator struct {
	Provider     string `json:"provider"`
	Instructions string `json:"instructions"`
}

// SlotResult is the outcome of one translator. Either Translations holds at
// most one string per source row, in row order, or Failed is set and the
// whole slot is unusable.
type SlotResult struct {
	Translator   Translator
	Translations []string
	Failed       bool
	Err          error
	Job          jobs.Job
}

type dispatcher struct {
	capability jobs.Capability
	limit      int
	log        zerolog.Logger
}

// dispatch runs every translator against the full row batch and returns the
// slots in translator order, whatever order they complete in.
func (d *dispatcher) dispatch(ctx context.Context, rows []SourceRow, translators []Translator, sourceLang, targetLang string) []SlotResult {
	units := make([]jobs.Unit, len(rows))
	for i, r := range rows {
		units[i] = jobs.Unit{Index: r.Index, Source: r.Source}
		if r.Notes != nil {
			units[i].Notes = *r.Notes
		}
	}

	slots := make([]SlotResult, len(translators))

	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for i, t := range translators {
		g.Go(func() error {
			slots[i] = d.runSlot(ctx, t, jobs.Batch{
				Units:        units,
				Provider:     t.Provider,
				Instructions: t.Instructions,
				SourceLang:   sourceLang,
				TargetLang:   targetLang,
			})
			return nil
		})
	}
	// Slot failures are recorded on the slot, never returned.
	_ = g.Wait()

	return slots
}

func (d *dispatcher) runSlot(ctx context.Context, t Translator, batch jobs.Batch) SlotResult {
	slot := SlotResult{Translator: t}
	fail := func(err error) SlotResult {
		slot.Failed = true
		slot.Translations = nil
		slot.Err = newError(KindProviderDispatchFailed, "dispatch", err, "provider %s", t.Provider)
		d.log.Warn().Err(err).Str("provider", t.Provider).Msg("translator slot failed")
		return slot
	}

	accepted, err := d.capability.Submit(ctx, batch)
	if err != nil {
		return fail(fmt.Errorf("failed to submit job: %w", err))
	}
	if len(accepted) != 1 || accepted[0].Provider != t.Provider {
		return fail(fmt.Errorf("%s provider didn't take the job (%d jobs accepted)", t.Provider, len(accepted)))
	}

	outcome, err := d.capability.Await(ctx, accepted[0])
	if outcome != nil {
		slot.Job = outcome.Job
	}
	if err != nil {
		return fail(err)
	}
	if len(outcome.Translations) > len(batch.Units) {
		return fail(fmt.Errorf("got %d translations for %d rows", len(outcome.Translations), len(batch.Units)))
	}

	slot.Translations = outcome.Translations
	d.log.Info().
		Str("provider", t.Provider).
		Str("job", outcome.Job.GUID).
		Str("status", string(outcome.Job.Status)).
		Int("rows", len(outcome.Translations)).
		Msg("translator finished")
	return slot
}
