package storage

import (
	"context"

	"cyber-risk-lab/internal/domain"
)

// PortfolioStore provides access to portfolios storage.
type PortfolioStore interface {
	// Insert adds a new portfolio. Returns ErrDuplicateKey if portfolio_id exists.
	Insert(ctx context.Context, p *domain.Portfolio) error

	// GetByID retrieves a portfolio by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, portfolioID string) (*domain.Portfolio, error)

	// List retrieves all portfolios ordered by portfolio_id ASC.
	List(ctx context.Context) ([]*domain.Portfolio, error)
}

// SimulationRunStore provides access to simulation_runs storage. Runs are
// the one mutable entity: status and progress advance while a run executes.
type SimulationRunStore interface {
	// Insert adds a new run in pending state. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SimulationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error)

	// Update overwrites the run's mutable fields (status, progress,
	// timestamps, error message). Returns ErrNotFound if not exists.
	Update(ctx context.Context, r *domain.SimulationRun) error

	// ListByPortfolio retrieves runs for a portfolio, ordered by submitted_at DESC.
	ListByPortfolio(ctx context.Context, portfolioID string) ([]*domain.SimulationRun, error)

	// ListActive retrieves runs in pending or running state, ordered by submitted_at ASC.
	ListActive(ctx context.Context) ([]*domain.SimulationRun, error)
}

// ResultStore provides access to simulation_results storage.
type ResultStore interface {
	// Insert adds a completed run's result. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SimulationResult) error

	// GetByRunID retrieves the result for a run. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.SimulationResult, error)
}

// LossVectorStore provides access to per-iteration loss storage for
// after-the-fact analytics over raw loss distributions.
type LossVectorStore interface {
	// InsertBulk stores a run's full loss vector. Returns ErrDuplicateKey
	// if the run already has losses stored.
	InsertBulk(ctx context.Context, runID string, losses domain.LossVector) error

	// GetByRunID retrieves a run's losses ordered by iteration ASC.
	// Returns ErrNotFound if the run has no stored losses.
	GetByRunID(ctx context.Context, runID string) (domain.LossVector, error)
}
