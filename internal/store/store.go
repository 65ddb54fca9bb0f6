package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/montanaflynn/stats"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

const (
	RunSucceeded = "success"
	RunFailed    = "error"
)

// Run is one recorded comparison run.
type Run struct {
	ID            string    `db:"id"`
	TestName      string    `db:"test_name"`
	SpreadsheetID string    `db:"spreadsheet_id"`
	SourceGID     int64     `db:"source_gid"`
	SourceTitle   string    `db:"source_title"`
	OutputGID     int64     `db:"output_gid"`
	SourceLang    string    `db:"source_lang"`
	TargetLang    string    `db:"target_lang"`
	StartRow      int       `db:"start_row"`
	EndRow        int       `db:"end_row"`
	RowCount      int       `db:"row_count"`
	Status        string    `db:"status"`
	Error         string    `db:"error"`
	CreatedAt     time.Time `db:"created_at"`

	Slots []Slot `db:"-"`
}

// Slot is one translator column of a run.
type Slot struct {
	RunID        string `db:"run_id"`
	Position     int    `db:"position"`
	Provider     string `db:"provider"`
	Instructions string `db:"instructions"`
	JobGUID      string `db:"job_guid"`
	Failed       bool   `db:"failed"`
	LatencyMs    int64  `db:"latency_ms"`
	Warnings     int    `db:"warnings"`
	Error        string `db:"error"`
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	TestName      string
	SpreadsheetID string
	Limit         int
}

// ProviderStat summarises how a provider fared across recorded runs.
// Latencies cover successful slots only.
type ProviderStat struct {
	Provider      string
	Slots         int
	Failures      int
	Warnings      int
	MeanLatency   time.Duration
	MedianLatency time.Duration
}

type Store struct {
	db *sqlx.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS comparison_runs (
		id TEXT PRIMARY KEY,
		test_name TEXT NOT NULL,
		spreadsheet_id TEXT NOT NULL,
		source_gid INTEGER NOT NULL,
		source_title TEXT NOT NULL DEFAULT '',
		output_gid INTEGER NOT NULL DEFAULT 0,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		start_row INTEGER NOT NULL,
		end_row INTEGER NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS comparison_slots (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		provider TEXT NOT NULL,
		instructions TEXT NOT NULL DEFAULT '',
		job_guid TEXT NOT NULL DEFAULT '',
		failed BOOLEAN DEFAULT FALSE,
		latency_ms INTEGER DEFAULT 0,
		warnings INTEGER DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES comparison_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_test ON comparison_runs(test_name, created_at);
	CREATE INDEX IF NOT EXISTS idx_slots_provider ON comparison_slots(provider);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun records a run and its slots in one transaction. An empty ID is
// filled with a new UUID and a zero CreatedAt with the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.TestName = normalizeText(run.TestName)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO comparison_runs (
			id, test_name, spreadsheet_id, source_gid, source_title, output_gid,
			source_lang, target_lang, start_row, end_row, row_count, status, error, created_at
		) VALUES (
			:id, :test_name, :spreadsheet_id, :source_gid, :source_title, :output_gid,
			:source_lang, :target_lang, :start_row, :end_row, :row_count, :status, :error, :created_at
		)`, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for i := range run.Slots {
		slot := &run.Slots[i]
		slot.RunID = run.ID
		slot.Instructions = normalizeText(slot.Instructions)
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO comparison_slots (
				run_id, position, provider, instructions, job_guid, failed, latency_ms, warnings, error
			) VALUES (
				:run_id, :position, :provider, :instructions, :job_guid, :failed, :latency_ms, :warnings, :error
			)`, slot); err != nil {
			return fmt.Errorf("failed to save slot %d: %w", slot.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first, each with its slots in position order.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, test_name, spreadsheet_id, source_gid, source_title, output_gid,
		source_lang, target_lang, start_row, end_row, row_count, status, error, created_at
		FROM comparison_runs`
	var where []string
	var args []interface{}
	if filter.TestName != "" {
		where = append(where, "test_name = ?")
		args = append(args, normalizeText(filter.TestName))
	}
	if filter.SpreadsheetID != "" {
		where = append(where, "spreadsheet_id = ?")
		args = append(args, filter.SpreadsheetID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return runs, nil
	}

	ids := make([]string, len(runs))
	byID := make(map[string]*Run, len(runs))
	for i := range runs {
		ids[i] = runs[i].ID
		byID[runs[i].ID] = &runs[i]
	}

	slotQuery, slotArgs, err := sqlx.In(`SELECT run_id, position, provider, instructions, job_guid,
		failed, latency_ms, warnings, error
		FROM comparison_slots WHERE run_id IN (?) ORDER BY run_id, position`, ids)
	if err != nil {
		return nil, err
	}
	var slots []Slot
	if err := s.db.SelectContext(ctx, &slots, s.db.Rebind(slotQuery), slotArgs...); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	for _, slot := range slots {
		if r, ok := byID[slot.RunID]; ok {
			r.Slots = append(r.Slots, slot)
		}
	}
	return runs, nil
}

// ProviderStats aggregates every recorded slot by provider, sorted by
// provider id.
func (s *Store) ProviderStats(ctx context.Context) ([]ProviderStat, error) {
	var slots []Slot
	if err := s.db.SelectContext(ctx, &slots,
		`SELECT provider, failed, latency_ms, warnings FROM comparison_slots`); err != nil {
		return nil, fmt.Errorf("failed to load slots: %w", err)
	}

	type acc struct {
		stat      ProviderStat
		latencies []float64
	}
	byProvider := make(map[string]*acc)
	for _, slot := range slots {
		a, ok := byProvider[slot.Provider]
		if !ok {
			a = &acc{stat: ProviderStat{Provider: slot.Provider}}
			byProvider[slot.Provider] = a
		}
		a.stat.Slots++
		a.stat.Warnings += slot.Warnings
		if slot.Failed {
			a.stat.Failures++
			continue
		}
		a.latencies = append(a.latencies, float64(slot.LatencyMs))
	}

	out := make([]ProviderStat, 0, len(byProvider))
	for _, a := range byProvider {
		if len(a.latencies) > 0 {
			mean, err := stats.Mean(a.latencies)
			if err != nil {
				return nil, err
			}
			median, err := stats.Median(a.latencies)
			if err != nil {
				return nil, err
			}
			a.stat.MeanLatency = time.Duration(mean * float64(time.Millisecond))
			a.stat.MedianLatency = time.Duration(median * float64(time.Millisecond))
		}
		out = append(out, a.stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization so
// that names typed on different systems compare equal.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
