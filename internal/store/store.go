// Package store persists planning runs, their candidates and the chosen plan
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/procurement-planner/internal/catalog"
	"github.com/iwvelando/procurement-planner/internal/models"
	"github.com/iwvelando/procurement-planner/internal/results"
	"github.com/iwvelando/procurement-planner/pkg/optimization"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// Store wraps a SQLite database connection.
type Store struct {
	logger *zap.Logger
	sql    *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(logger *zap.Logger, path string) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &Store{logger: logger, sql: sqlDB}
	if err := s.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	logger.Debug("opened run store",
		zap.String("op", "store.Open"),
		zap.String("path", path),
	)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sql.Close()
}

func (s *Store) migrate() error {
	version := 0
	// The table does not exist on first open; version stays 0.
	_ = s.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS runs (
				id               TEXT PRIMARY KEY,
				started_at       TEXT NOT NULL,
				seed             INTEGER NOT NULL,
				status           TEXT NOT NULL,
				objective        REAL NOT NULL,
				candidates       INTEGER NOT NULL,
				considered       INTEGER NOT NULL,
				dropped          INTEGER NOT NULL,
				purchased        INTEGER NOT NULL,
				periods          INTEGER NOT NULL,
				nodes            INTEGER NOT NULL,
				transit_strategy TEXT NOT NULL,
				workers          INTEGER NOT NULL,
				generation_ms    INTEGER NOT NULL,
				solve_ms         INTEGER NOT NULL,
				total_ms         INTEGER NOT NULL,
				notes            TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

			CREATE TABLE IF NOT EXISTS candidates (
				run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				id               TEXT NOT NULL,
				price            REAL NOT NULL,
				size             REAL NOT NULL,
				demand           REAL NOT NULL,
				markup           REAL NOT NULL,
				logistics        REAL NOT NULL,
				transit          TEXT NOT NULL,
				transit_capacity REAL NOT NULL,
				transit_cost     REAL NOT NULL,
				stock            TEXT NOT NULL,
				PRIMARY KEY (run_id, id)
			);

			CREATE TABLE IF NOT EXISTS plan_entries (
				run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				id          TEXT NOT NULL,
				position    INTEGER NOT NULL,
				quantity    INTEGER NOT NULL,
				periods     TEXT NOT NULL DEFAULT '',
				price       REAL NOT NULL,
				size        REAL NOT NULL,
				demand      REAL NOT NULL,
				logistics   REAL NOT NULL,
				markup      REAL NOT NULL,
				stock       TEXT NOT NULL,
				transit     TEXT NOT NULL,
				unit_score  REAL NOT NULL,
				total_score REAL NOT NULL,
				cost        TEXT NOT NULL,
				revenue     TEXT NOT NULL,
				margin      TEXT NOT NULL,
				PRIMARY KEY (run_id, id)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}
	return nil
}

// SaveRun stores a run with its candidates and plan in one transaction. A
// missing RunID is assigned; the id is returned.
func (s *Store) SaveRun(ctx context.Context, summary optimization.Summary, candidates []catalog.Candidate, plan results.Results) (id string, err error) {
	id = summary.RunID
	if id == "" {
		id = uuid.New().String()
	}
	if summary.StartedAt.IsZero() {
		summary.StartedAt = time.Now()
	}

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (id, started_at, seed, status, objective, candidates,
		considered, dropped, purchased, periods, nodes, transit_strategy, workers,
		generation_ms, solve_ms, total_ms, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, summary.StartedAt.UTC().Format(time.RFC3339Nano), int64(summary.Seed), summary.Status,
		summary.Objective, summary.Candidates, summary.Considered, summary.Dropped, summary.Purchased,
		summary.Periods, summary.Nodes, summary.TransitStrategy, summary.Workers,
		summary.Generation.Milliseconds(), summary.Solve.Milliseconds(), summary.Total.Milliseconds(),
		strings.Join(summary.Notes, "\n"),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	candStmt, err := tx.PrepareContext(ctx, `INSERT INTO candidates (run_id, id, price, size, demand,
		markup, logistics, transit, transit_capacity, transit_cost, stock) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare candidates: %w", err)
	}
	defer candStmt.Close()
	for _, c := range candidates {
		if _, err = candStmt.ExecContext(ctx, id, c.ID, c.Price, c.Size, c.Demand, c.Markup, c.Logistics,
			c.Transit.String(), c.TransitCapacity, c.TransitCost, c.Stock.String()); err != nil {
			return "", fmt.Errorf("insert candidate %s: %w", c.ID, err)
		}
	}

	entryStmt, err := tx.PrepareContext(ctx, `INSERT INTO plan_entries (run_id, id, position, quantity, periods,
		price, size, demand, logistics, markup, stock, transit, unit_score, total_score, cost, revenue, margin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare plan entries: %w", err)
	}
	defer entryStmt.Close()
	for rank, e := range plan.Entries {
		if _, err = entryStmt.ExecContext(ctx, id, e.ID, rank+1, e.Quantity, joinInts(e.Periods),
			e.Price, e.Size, e.Demand, e.Logistics, e.Markup, e.Stock.String(), e.Transit.String(),
			e.UnitScore, e.TotalScore, e.Cost.String(), e.Revenue.String(), e.Margin.String()); err != nil {
			return "", fmt.Errorf("insert plan entry %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("saved planning run",
		zap.String("op", "store.SaveRun"),
		zap.String("runId", id),
		zap.Int("candidates", len(candidates)),
		zap.Int("entries", len(plan.Entries)),
	)
	return id, nil
}

const runColumns = `id, started_at, seed, status, objective, candidates, considered, dropped,
	purchased, periods, nodes, transit_strategy, workers, generation_ms, solve_ms, total_ms, notes`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (optimization.Summary, error) {
	var (
		r                  optimization.Summary
		started, notes     string
		seed               int64
		genMs, solveMs, ms int64
	)
	if err := row.Scan(&r.RunID, &started, &seed, &r.Status, &r.Objective, &r.Candidates, &r.Considered,
		&r.Dropped, &r.Purchased, &r.Periods, &r.Nodes, &r.TransitStrategy, &r.Workers,
		&genMs, &solveMs, &ms, &notes); err != nil {
		return r, err
	}
	r.Seed = uint64(seed)
	r.Generation = time.Duration(genMs) * time.Millisecond
	r.Solve = time.Duration(solveMs) * time.Millisecond
	r.Total = time.Duration(ms) * time.Millisecond
	if notes != "" {
		r.Notes = strings.Split(notes, "\n")
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return r, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	r.StartedAt = t
	return r, nil
}

// GetRun returns the summary of one run.
func (s *Store) GetRun(ctx context.Context, id string) (optimization.Summary, error) {
	row := s.sql.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return r, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns the last limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]optimization.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sql.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []optimization.Summary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Candidates returns the candidates stored for a run in id order.
func (s *Store) Candidates(ctx context.Context, runID string) ([]catalog.Candidate, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT id, price, size, demand, markup, logistics, transit,
		transit_capacity, transit_cost, stock FROM candidates WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []catalog.Candidate
	for rows.Next() {
		var (
			c              catalog.Candidate
			transit, stock string
		)
		if err := rows.Scan(&c.ID, &c.Price, &c.Size, &c.Demand, &c.Markup, &c.Logistics, &transit,
			&c.TransitCapacity, &c.TransitCost, &stock); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if c.Transit, err = models.ParseTransitMode(transit); err != nil {
			return nil, err
		}
		if c.Stock, err = models.ParseStock(stock); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PlanEntries returns the stored plan of a run in rank order.
func (s *Store) PlanEntries(ctx context.Context, runID string) ([]results.Entry, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT id, quantity, periods, price, size, demand, logistics,
		markup, stock, transit, unit_score, total_score, cost, revenue, margin
		FROM plan_entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query plan entries: %w", err)
	}
	defer rows.Close()

	var out []results.Entry
	for rows.Next() {
		var (
			e                       results.Entry
			periods, stock, transit string
			cost, revenue, margin   string
		)
		if err := rows.Scan(&e.ID, &e.Quantity, &periods, &e.Price, &e.Size, &e.Demand, &e.Logistics,
			&e.Markup, &stock, &transit, &e.UnitScore, &e.TotalScore, &cost, &revenue, &margin); err != nil {
			return nil, fmt.Errorf("scan plan entry: %w", err)
		}
		if e.Periods, err = splitInts(periods); err != nil {
			return nil, err
		}
		if e.Stock, err = models.ParseStock(stock); err != nil {
			return nil, err
		}
		if e.Transit, err = models.ParseTransitMode(transit); err != nil {
			return nil, err
		}
		var errs error
		e.Cost, err = decimal.NewFromString(cost)
		errs = multierr.Append(errs, err)
		e.Revenue, err = decimal.NewFromString(revenue)
		errs = multierr.Append(errs, err)
		e.Margin, err = decimal.NewFromString(margin)
		errs = multierr.Append(errs, err)
		if errs != nil {
			return nil, fmt.Errorf("plan entry %s: %w", e.ID, errs)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.sql.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(text string) ([]int, error) {
	if text == "" {
		return nil, nil
	}
	parts := strings.Split(text, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		if _, err := fmt.Sscan(p, &out[i]); err != nil {
			return nil, fmt.Errorf("invalid period list %q: %w", text, err)
		}
	}
	return out, nil
}
