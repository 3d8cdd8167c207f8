package postgres

import (
	"context"
	"fmt"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

// PortfolioStore implements storage.PortfolioStore using PostgreSQL.
// Policies live in their own table keyed by (portfolio_id, policy_id);
// seq preserves the portfolio's policy order, which event assignment
// depends on.
type PortfolioStore struct {
	pool *Pool
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(pool *Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PortfolioStore = (*PortfolioStore)(nil)

// Insert adds a new portfolio and its policies atomically.
// Returns ErrDuplicateKey if portfolio_id exists.
func (s *PortfolioStore) Insert(ctx context.Context, p *domain.Portfolio) error {
	if p == nil || p.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO portfolios (portfolio_id, name, total_value) VALUES ($1, $2, $3)`,
		p.PortfolioID, p.Name, p.TotalValue,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert portfolio: %w", err)
	}

	for i, policy := range p.Policies {
		_, err = tx.Exec(ctx,
			`INSERT INTO policies (portfolio_id, policy_id, seq, limit_amount, deductible, coinsurance, premium)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.PortfolioID, policy.PolicyID, i, policy.Limit, policy.Deductible, policy.Coinsurance, policy.Premium,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert policy %s: %w", policy.PolicyID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a portfolio with its policies in original order.
// Returns ErrNotFound if not exists.
func (s *PortfolioStore) GetByID(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	var p domain.Portfolio
	err := s.pool.QueryRow(ctx,
		`SELECT portfolio_id, name, total_value FROM portfolios WHERE portfolio_id = $1`,
		portfolioID,
	).Scan(&p.PortfolioID, &p.Name, &p.TotalValue)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select portfolio: %w", err)
	}

	policies, err := s.policiesFor(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	p.Policies = policies
	return &p, nil
}

// List retrieves all portfolios ordered by portfolio_id ASC.
func (s *PortfolioStore) List(ctx context.Context) ([]*domain.Portfolio, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT portfolio_id, name, total_value FROM portfolios ORDER BY portfolio_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select portfolios: %w", err)
	}
	defer rows.Close()

	var out []*domain.Portfolio
	for rows.Next() {
		var p domain.Portfolio
		if err := rows.Scan(&p.PortfolioID, &p.Name, &p.TotalValue); err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolios: %w", err)
	}

	for _, p := range out {
		policies, err := s.policiesFor(ctx, p.PortfolioID)
		if err != nil {
			return nil, err
		}
		p.Policies = policies
	}
	return out, nil
}

// policiesFor loads one portfolio's policies ordered by seq.
func (s *PortfolioStore) policiesFor(ctx context.Context, portfolioID string) ([]domain.Policy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT policy_id, limit_amount, deductible, coinsurance, premium
		 FROM policies WHERE portfolio_id = $1 ORDER BY seq ASC`,
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("select policies: %w", err)
	}
	defer rows.Close()

	var policies []domain.Policy
	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(&p.PolicyID, &p.Limit, &p.Deductible, &p.Coinsurance, &p.Premium); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return policies, nil
}
