package postgres

import (
	"context"
	"fmt"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

// SimulationRunStore implements storage.SimulationRunStore using PostgreSQL.
type SimulationRunStore struct {
	pool *Pool
}

// NewSimulationRunStore creates a new SimulationRunStore.
func NewSimulationRunStore(pool *Pool) *SimulationRunStore {
	return &SimulationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)

const runColumns = `run_id, portfolio_id, status, progress_percent, current_iteration,
	total_iterations, submitted_at, started_at, finished_at, error_message`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(ctx context.Context, r *domain.SimulationRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO simulation_runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.RunID, r.PortfolioID, string(r.Status), r.ProgressPercent, r.CurrentIteration,
		r.TotalIterations, r.SubmittedAt, r.StartedAt, r.FinishedAt, r.ErrorMessage,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM simulation_runs WHERE run_id = $1`, runID,
	)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select simulation run: %w", err)
	}
	return r, nil
}

// Update overwrites the run's mutable fields. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) Update(ctx context.Context, r *domain.SimulationRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE simulation_runs
		 SET status = $2, progress_percent = $3, current_iteration = $4,
		     started_at = $5, finished_at = $6, error_message = $7
		 WHERE run_id = $1`,
		r.RunID, string(r.Status), r.ProgressPercent, r.CurrentIteration,
		r.StartedAt, r.FinishedAt, r.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("update simulation run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByPortfolio retrieves runs for a portfolio, ordered by submitted_at DESC.
func (s *SimulationRunStore) ListByPortfolio(ctx context.Context, portfolioID string) ([]*domain.SimulationRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM simulation_runs
		 WHERE portfolio_id = $1 ORDER BY submitted_at DESC`,
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("select runs by portfolio: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ListActive retrieves pending and running runs, ordered by submitted_at ASC.
func (s *SimulationRunStore) ListActive(ctx context.Context) ([]*domain.SimulationRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM simulation_runs
		 WHERE status IN ($1, $2) ORDER BY submitted_at ASC`,
		string(domain.RunPending), string(domain.RunRunning),
	)
	if err != nil {
		return nil, fmt.Errorf("select active runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.SimulationRun, error) {
	var r domain.SimulationRun
	var status string
	if err := row.Scan(
		&r.RunID, &r.PortfolioID, &status, &r.ProgressPercent, &r.CurrentIteration,
		&r.TotalIterations, &r.SubmittedAt, &r.StartedAt, &r.FinishedAt, &r.ErrorMessage,
	); err != nil {
		return nil, err
	}
	r.Status = domain.RunStatus(status)
	return &r, nil
}

func scanRuns(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]*domain.SimulationRun, error) {
	var out []*domain.SimulationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation runs: %w", err)
	}
	return out, nil
}
