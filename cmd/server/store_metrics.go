package main

import (
	"context"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

// queryRecorder is the slice of observability.Metrics the store wrappers
// need, narrowed so tests can substitute it.
type queryRecorder interface {
	RecordDBQuery(database, operation string, seconds float64, err error)
}

// instrumentStores wraps the database-backed stores so every call lands
// in the query duration and error metrics.
func instrumentStores(s *allStores, rec queryRecorder) *allStores {
	return &allStores{
		portfolioStore:  &timedPortfolioStore{next: s.portfolioStore, rec: rec},
		runStore:        &timedRunStore{next: s.runStore, rec: rec},
		resultStore:     &timedResultStore{next: s.resultStore, rec: rec},
		lossVectorStore: &timedLossVectorStore{next: s.lossVectorStore, rec: rec},
	}
}

type timedPortfolioStore struct {
	next storage.PortfolioStore
	rec  queryRecorder
}

func (s *timedPortfolioStore) Insert(ctx context.Context, p *domain.Portfolio) error {
	start := time.Now()
	err := s.next.Insert(ctx, p)
	s.rec.RecordDBQuery("postgres", "portfolio_insert", time.Since(start).Seconds(), err)
	return err
}

func (s *timedPortfolioStore) GetByID(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	start := time.Now()
	p, err := s.next.GetByID(ctx, portfolioID)
	s.rec.RecordDBQuery("postgres", "portfolio_get", time.Since(start).Seconds(), err)
	return p, err
}

func (s *timedPortfolioStore) List(ctx context.Context) ([]*domain.Portfolio, error) {
	start := time.Now()
	out, err := s.next.List(ctx)
	s.rec.RecordDBQuery("postgres", "portfolio_list", time.Since(start).Seconds(), err)
	return out, err
}

type timedRunStore struct {
	next storage.SimulationRunStore
	rec  queryRecorder
}

func (s *timedRunStore) Insert(ctx context.Context, r *domain.SimulationRun) error {
	start := time.Now()
	err := s.next.Insert(ctx, r)
	s.rec.RecordDBQuery("postgres", "run_insert", time.Since(start).Seconds(), err)
	return err
}

func (s *timedRunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	start := time.Now()
	r, err := s.next.GetByID(ctx, runID)
	s.rec.RecordDBQuery("postgres", "run_get", time.Since(start).Seconds(), err)
	return r, err
}

func (s *timedRunStore) Update(ctx context.Context, r *domain.SimulationRun) error {
	start := time.Now()
	err := s.next.Update(ctx, r)
	s.rec.RecordDBQuery("postgres", "run_update", time.Since(start).Seconds(), err)
	return err
}

func (s *timedRunStore) ListByPortfolio(ctx context.Context, portfolioID string) ([]*domain.SimulationRun, error) {
	start := time.Now()
	out, err := s.next.ListByPortfolio(ctx, portfolioID)
	s.rec.RecordDBQuery("postgres", "run_list_by_portfolio", time.Since(start).Seconds(), err)
	return out, err
}

func (s *timedRunStore) ListActive(ctx context.Context) ([]*domain.SimulationRun, error) {
	start := time.Now()
	out, err := s.next.ListActive(ctx)
	s.rec.RecordDBQuery("postgres", "run_list_active", time.Since(start).Seconds(), err)
	return out, err
}

type timedResultStore struct {
	next storage.ResultStore
	rec  queryRecorder
}

func (s *timedResultStore) Insert(ctx context.Context, r *domain.SimulationResult) error {
	start := time.Now()
	err := s.next.Insert(ctx, r)
	s.rec.RecordDBQuery("clickhouse", "result_insert", time.Since(start).Seconds(), err)
	return err
}

func (s *timedResultStore) GetByRunID(ctx context.Context, runID string) (*domain.SimulationResult, error) {
	start := time.Now()
	r, err := s.next.GetByRunID(ctx, runID)
	s.rec.RecordDBQuery("clickhouse", "result_get", time.Since(start).Seconds(), err)
	return r, err
}

type timedLossVectorStore struct {
	next storage.LossVectorStore
	rec  queryRecorder
}

func (s *timedLossVectorStore) InsertBulk(ctx context.Context, runID string, losses domain.LossVector) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, runID, losses)
	s.rec.RecordDBQuery("clickhouse", "loss_vector_insert", time.Since(start).Seconds(), err)
	return err
}

func (s *timedLossVectorStore) GetByRunID(ctx context.Context, runID string) (domain.LossVector, error) {
	start := time.Now()
	out, err := s.next.GetByRunID(ctx, runID)
	s.rec.RecordDBQuery("clickhouse", "loss_vector_get", time.Since(start).Seconds(), err)
	return out, err
}
