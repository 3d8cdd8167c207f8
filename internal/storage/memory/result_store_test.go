package memory

import (
	"context"
	"errors"
	"testing"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

func testResult(runID string) *domain.SimulationResult {
	return &domain.SimulationResult{
		RunID:        runID,
		ExpectedLoss: 120_000,
		StdDeviation: 45_000,
		VaR:          map[string]float64{"0.950": 400_000},
		TVaR:         map[string]float64{"0.950": 520_000},
		Percentiles:  map[string]float64{"0.950": 400_000},
		HistogramData: domain.Histogram{
			Counts:            []int{3, 7},
			BinEdges:          []float64{0, 1, 2},
			BinCenters:        []float64{0.5, 1.5},
			TotalObservations: 10,
		},
	}
}

func TestResultStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewResultStore()

	if err := s.Insert(ctx, testResult("run-1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, testResult("run-1")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("duplicate insert: want ErrDuplicateKey, got %v", err)
	}

	got, err := s.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if got.ExpectedLoss != 120_000 || got.VaR["0.950"] != 400_000 {
		t.Fatalf("unexpected result %+v", got)
	}

	if _, err := s.GetByRunID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestResultStoreCopySemantics(t *testing.T) {
	ctx := context.Background()
	s := NewResultStore()
	if err := s.Insert(ctx, testResult("run-1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, _ := s.GetByRunID(ctx, "run-1")
	got.VaR["0.950"] = 0
	got.HistogramData.Counts[0] = 99

	again, _ := s.GetByRunID(ctx, "run-1")
	if again.VaR["0.950"] != 400_000 {
		t.Fatal("stored VaR mutated through returned map")
	}
	if again.HistogramData.Counts[0] != 3 {
		t.Fatal("stored histogram mutated through returned slice")
	}
}

func TestLossVectorStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLossVectorStore()

	losses := domain.LossVector{1, 2, 3, 5}
	if err := s.InsertBulk(ctx, "run-1", losses); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
	if err := s.InsertBulk(ctx, "run-1", losses); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("duplicate insert: want ErrDuplicateKey, got %v", err)
	}
	if err := s.InsertBulk(ctx, "", losses); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("empty run id: want ErrInvalidInput, got %v", err)
	}

	got, err := s.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if len(got) != 4 || got[3] != 5 {
		t.Fatalf("unexpected losses %v", got)
	}

	got[0] = 42
	again, _ := s.GetByRunID(ctx, "run-1")
	if again[0] != 1 {
		t.Fatal("stored losses mutated through returned slice")
	}

	if _, err := s.GetByRunID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
