// Package results persists per-run daily counters to the SQLite results
// store, one database per run directory.
package results

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/episim/episim/internal/database"
)

// Run is one simulation run record.
type Run struct {
	ID         string
	RunNumber  int
	Seed       uint64
	ModelFile  string
	Days       int
	Population int
}

// DailyCount is one (day, condition, state) counter row.
type DailyCount struct {
	Day       int
	Date      string
	EpiWeek   string
	Condition string
	State     string
	New       int
	Current   int
	Total     int
}

// Store writes run records and daily counters.
type Store struct {
	db *database.DB
}

// Open opens (creating if needed) the results database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	migrator, err := database.NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migrator.MigrateUp(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating results store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a run record, assigning a fresh id when the record has
// none.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, run_number, seed, model_file, days, population)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunNumber, int64(run.Seed), run.ModelFile, run.Days, run.Population,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's finish time.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = datetime('now') WHERE id = ?", runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// RecordDay writes one day's popsize and counter rows in a single
// transaction.
func (s *Store) RecordDay(ctx context.Context, runID string, day, popsize int, counts []DailyCount) error {
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO daily_popsize (run_id, day, popsize)
			VALUES (?, ?, ?)`,
			runID, day, popsize,
		); err != nil {
			return fmt.Errorf("inserting popsize: %w", err)
		}
		for _, c := range counts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO daily_counts (
					run_id, day, date, epi_week, condition_name, state_name,
					new_count, current_count, total_count
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, c.Day, c.Date, c.EpiWeek, c.Condition, c.State,
				c.New, c.Current, c.Total,
			); err != nil {
				return fmt.Errorf("inserting daily count: %w", err)
			}
		}
		return nil
	})
}

// GetRun retrieves a run record by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	var seed int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_number, seed, model_file, days, population
		FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.RunNumber, &seed, &run.ModelFile, &run.Days, &run.Population)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	run.Seed = uint64(seed)
	return run, nil
}

// DailyCounts returns the counter rows for a run and condition in day and
// state order.
func (s *Store) DailyCounts(ctx context.Context, runID, condition string) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, date, epi_week, condition_name, state_name,
			new_count, current_count, total_count
		FROM daily_counts
		WHERE run_id = ? AND condition_name = ?
		ORDER BY day, state_name`,
		runID, condition,
	)
	if err != nil {
		return nil, fmt.Errorf("querying daily counts: %w", err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Day, &c.Date, &c.EpiWeek, &c.Condition, &c.State,
			&c.New, &c.Current, &c.Total); err != nil {
			return nil, fmt.Errorf("scanning daily count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily counts: %w", err)
	}
	return counts, nil
}

// Popsizes returns the per-day population sizes for a run in day order.
func (s *Store) Popsizes(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT popsize FROM daily_popsize
		WHERE run_id = ? ORDER BY day`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying popsizes: %w", err)
	}
	defer rows.Close()

	var sizes []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning popsize: %w", err)
		}
		sizes = append(sizes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating popsizes: %w", err)
	}
	return sizes, nil
}
