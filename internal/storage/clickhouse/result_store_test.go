package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

func testResult(runID string) *domain.SimulationResult {
	return &domain.SimulationResult{
		RunID:                  runID,
		ExpectedLoss:           125_000.5,
		StdDeviation:           48_200.25,
		Variance:               48_200.25 * 48_200.25,
		MinLoss:                0,
		MaxLoss:                980_000,
		MedianLoss:             110_500,
		Skewness:               1.85,
		Kurtosis:               4.2,
		CoefficientOfVariation: 0.3856,
		ProbabilityOfLoss:      0.92,
		VaR: map[string]float64{
			"0.950": 250_000,
			"0.990": 410_000,
			"0.999": 820_000,
		},
		TVaR: map[string]float64{
			"0.950": 330_000,
			"0.990": 560_000,
			"0.999": 910_000,
		},
		Percentiles: map[string]float64{
			"0.950": 250_000,
			"0.990": 410_000,
			"0.999": 820_000,
		},
		HistogramData: domain.Histogram{
			Counts:            []int{40, 35, 15, 8, 2},
			BinEdges:          []float64{0, 200_000, 400_000, 600_000, 800_000, 1_000_000},
			BinCenters:        []float64{100_000, 300_000, 500_000, 700_000, 900_000},
			BinWidth:          200_000,
			TotalObservations: 100,
		},
		ExceedanceCurve: domain.ExceedanceCurve{
			LossLevels:              []float64{980_000, 500_000, 100_000},
			ExceedanceProbabilities: []float64{0.01, 0.1, 0.5},
			ReturnPeriods:           []float64{100, 10, 2},
		},
		RequestedIterations: 100_000,
		ExecutedIterations:  42_000,
		Converged:           true,
		ConvergedAt:         42_000,
		Seed:                12345,
		Elapsed:             1520 * time.Millisecond,
		FinishedAt:          time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestResultStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewResultStore(conn)

	res := testResult("run-res-1")
	require.NoError(t, store.Insert(ctx, res))

	err := store.Insert(ctx, res)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-res-1")
	require.NoError(t, err)

	assert.Equal(t, res.ExpectedLoss, got.ExpectedLoss)
	assert.Equal(t, res.StdDeviation, got.StdDeviation)
	assert.Equal(t, res.MedianLoss, got.MedianLoss)
	assert.Equal(t, res.ProbabilityOfLoss, got.ProbabilityOfLoss)
	assert.Equal(t, res.VaR, got.VaR)
	assert.Equal(t, res.TVaR, got.TVaR)
	assert.Equal(t, res.Percentiles, got.Percentiles)
	assert.Equal(t, res.HistogramData, got.HistogramData)
	assert.Equal(t, res.ExceedanceCurve, got.ExceedanceCurve)
	assert.Equal(t, res.ExecutedIterations, got.ExecutedIterations)
	assert.True(t, got.Converged)
	assert.Equal(t, res.ConvergedAt, got.ConvergedAt)
	assert.Equal(t, res.Seed, got.Seed)
	assert.Equal(t, res.Elapsed, got.Elapsed)
	assert.True(t, got.FinishedAt.Equal(res.FinishedAt))
}

func TestResultStore_NotFound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewResultStore(conn)

	_, err := store.GetByRunID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResultStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewResultStore(conn)

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.SimulationResult{}), storage.ErrInvalidInput)
}
