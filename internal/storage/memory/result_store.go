package memory

import (
	"context"
	"sync"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationResult // keyed by run_id
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		data: make(map[string]*domain.SimulationResult),
	}
}

// Insert adds a result. Returns ErrDuplicateKey if run_id exists.
func (s *ResultStore) Insert(_ context.Context, r *domain.SimulationResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = cloneResult(r)
	return nil
}

// GetByRunID retrieves the result for a run. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByRunID(_ context.Context, runID string) (*domain.SimulationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneResult(r), nil
}

// cloneResult deep-copies a result so callers cannot mutate stored state.
func cloneResult(r *domain.SimulationResult) *domain.SimulationResult {
	cp := *r
	cp.VaR = cloneFloatMap(r.VaR)
	cp.TVaR = cloneFloatMap(r.TVaR)
	cp.Percentiles = cloneFloatMap(r.Percentiles)
	cp.HistogramData.Counts = append([]int(nil), r.HistogramData.Counts...)
	cp.HistogramData.BinEdges = append([]float64(nil), r.HistogramData.BinEdges...)
	cp.HistogramData.BinCenters = append([]float64(nil), r.HistogramData.BinCenters...)
	cp.ExceedanceCurve.LossLevels = append([]float64(nil), r.ExceedanceCurve.LossLevels...)
	cp.ExceedanceCurve.ExceedanceProbabilities = append([]float64(nil), r.ExceedanceCurve.ExceedanceProbabilities...)
	cp.ExceedanceCurve.ReturnPeriods = append([]float64(nil), r.ExceedanceCurve.ReturnPeriods...)
	return &cp
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ storage.ResultStore = (*ResultStore)(nil)
