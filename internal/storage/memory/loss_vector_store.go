package memory

import (
	"context"
	"sync"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

// LossVectorStore is an in-memory implementation of storage.LossVectorStore.
type LossVectorStore struct {
	mu   sync.RWMutex
	data map[string]domain.LossVector // keyed by run_id
}

// NewLossVectorStore creates a new in-memory loss vector store.
func NewLossVectorStore() *LossVectorStore {
	return &LossVectorStore{
		data: make(map[string]domain.LossVector),
	}
}

// InsertBulk stores a run's full loss vector. Returns ErrDuplicateKey if
// the run already has losses stored.
func (s *LossVectorStore) InsertBulk(_ context.Context, runID string, losses domain.LossVector) error {
	if runID == "" || len(losses) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[runID] = append(domain.LossVector(nil), losses...)
	return nil
}

// GetByRunID retrieves a run's losses ordered by iteration ASC.
// Returns ErrNotFound if the run has no stored losses.
func (s *LossVectorStore) GetByRunID(_ context.Context, runID string) (domain.LossVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	losses, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return append(domain.LossVector(nil), losses...), nil
}

var _ storage.LossVectorStore = (*LossVectorStore)(nil)
