package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/valpere/transcompare/internal/a1"
	"github.com/valpere/transcompare/internal/jobs"
	"github.com/valpere/transcompare/internal/sheet"
)

// fakeStore serves one sheet from an in-memory grid of 1-based rows.
type fakeStore struct {
	gid      int64
	title    string
	grid     map[int][]string
	titleErr error
	readErr  error

	mu          sync.Mutex
	columnReads []string
	rangeReads  []string
}

func newFakeStore(rows map[int][]string) *fakeStore {
	return &fakeStore{gid: 42, title: "Data", grid: rows}
}

func (s *fakeStore) SheetTitle(ctx context.Context, spreadsheetID string, gid int64) (string, error) {
	if s.titleErr != nil {
		return "", s.titleErr
	}
	if gid != s.gid {
		return "", fmt.Errorf("%w: gid %d", sheet.ErrSheetNotFound, gid)
	}
	return s.title, nil
}

func (s *fakeStore) ReadRange(ctx context.Context, spreadsheetID, title string, cols a1.ColumnRange, window a1.RowWindow) ([][]string, error) {
	s.mu.Lock()
	s.rangeReads = append(s.rangeReads, a1.Range(title, cols, window))
	s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}

	var out [][]string
	for r := window.Start; r <= window.End; r++ {
		src := s.grid[r]
		var row []string
		for c := cols.StartIndex; c < cols.StartIndex+cols.Width() && c < len(src); c++ {
			row = append(row, src[c])
		}
		out = append(out, row)
	}
	// Trailing empty rows are not returned, like the Sheets API.
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (s *fakeStore) ReadColumn(ctx context.Context, spreadsheetID, title, column string, startRow int) ([]string, error) {
	s.mu.Lock()
	s.columnReads = append(s.columnReads, column)
	s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}

	idx, err := a1.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	last := 0
	for r := range s.grid {
		last = max(last, r)
	}
	var out []string
	for r := startRow; r <= last; r++ {
		if row := s.grid[r]; idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, "")
		}
	}
	return out, nil
}

func (s *fakeStore) WriteSheet(ctx context.Context, spreadsheetID, title string, matrix [][]string) (int64, error) {
	return 0, errors.New("not used")
}

func (s *fakeStore) Format(ctx context.Context, spreadsheetID string, gid int64, width int) error {
	return errors.New("not used")
}

// fakeCapability answers per provider with a scripted behaviour.
type fakeCapability struct {
	// translate maps a provider to its translation function; a provider
	// absent from the map is rejected at submit.
	translate map[string]func(units []jobs.Unit) ([]string, error)
	// misassign hands every job to this provider instead of the requested one.
	misassign string
	// delay per provider, to shuffle completion order.
	delay map[string]time.Duration

	mu      sync.Mutex
	batches []jobs.Batch
	pending map[string]jobs.Batch
	n       int
}

func (c *fakeCapability) Submit(ctx context.Context, batch jobs.Batch) ([]jobs.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)

	if _, ok := c.translate[batch.Provider]; !ok {
		return nil, nil
	}
	if c.pending == nil {
		c.pending = make(map[string]jobs.Batch)
	}
	c.n++
	guid := fmt.Sprintf("job-%d", c.n)
	c.pending[guid] = batch

	provider := batch.Provider
	if c.misassign != "" {
		provider = c.misassign
	}
	return []jobs.Job{{GUID: guid, Provider: provider, Status: jobs.StatusPending, Units: len(batch.Units)}}, nil
}

func (c *fakeCapability) Await(ctx context.Context, job jobs.Job) (*jobs.Outcome, error) {
	c.mu.Lock()
	batch := c.pending[job.GUID]
	fn := c.translate[batch.Provider]
	d := c.delay[batch.Provider]
	c.mu.Unlock()

	time.Sleep(d)
	out, err := fn(batch.Units)
	if err != nil {
		job.Status = jobs.StatusFailed
		return &jobs.Outcome{Job: job}, err
	}
	job.Status = jobs.StatusDone
	return &jobs.Outcome{Job: job, Translations: out}, nil
}

func (c *fakeCapability) submitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func prefixer(prefix string) func([]jobs.Unit) ([]string, error) {
	return func(units []jobs.Unit) ([]string, error) {
		out := make([]string, len(units))
		for i, u := range units {
			out[i] = prefix + u.Source
		}
		return out, nil
	}
}

func fixed(values ...string) func([]jobs.Unit) ([]string, error) {
	return func([]jobs.Unit) ([]string, error) { return values, nil }
}

type fixedDetector struct {
	code string
	seen string
}

func (d *fixedDetector) DetectISO(text string) (string, bool) {
	d.seen = text
	return d.code, d.code != ""
}
