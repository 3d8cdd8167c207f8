package memory

import (
	"context"
	"sort"
	"sync"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

// PortfolioStore is an in-memory implementation of storage.PortfolioStore.
type PortfolioStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Portfolio // keyed by portfolio_id
}

// NewPortfolioStore creates a new in-memory portfolio store.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{
		data: make(map[string]*domain.Portfolio),
	}
}

// Insert adds a new portfolio. Returns ErrDuplicateKey if portfolio_id exists.
func (s *PortfolioStore) Insert(_ context.Context, p *domain.Portfolio) error {
	if p == nil || p.PortfolioID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PortfolioID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[p.PortfolioID] = clonePortfolio(p)
	return nil
}

// GetByID retrieves a portfolio by its ID. Returns ErrNotFound if not exists.
func (s *PortfolioStore) GetByID(_ context.Context, portfolioID string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[portfolioID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clonePortfolio(p), nil
}

// List retrieves all portfolios ordered by portfolio_id ASC.
func (s *PortfolioStore) List(_ context.Context) ([]*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Portfolio, 0, len(s.data))
	for _, p := range s.data {
		out = append(out, clonePortfolio(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PortfolioID < out[j].PortfolioID
	})
	return out, nil
}

// clonePortfolio deep-copies a portfolio so callers cannot mutate stored state.
func clonePortfolio(p *domain.Portfolio) *domain.Portfolio {
	cp := *p
	cp.Policies = append([]domain.Policy(nil), p.Policies...)
	return &cp
}

var _ storage.PortfolioStore = (*PortfolioStore)(nil)
