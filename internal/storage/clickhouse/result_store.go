package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

// ResultStore implements storage.ResultStore using ClickHouse. The
// VaR/TVaR/percentile maps are flattened into parallel arrays sharing
// one sorted key column.
type ResultStore struct {
	conn *Conn
}

// NewResultStore creates a new ResultStore.
func NewResultStore(conn *Conn) *ResultStore {
	return &ResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// Insert adds a completed run's result. Returns ErrDuplicateKey if run_id
// exists. MergeTree does not enforce uniqueness, so existence is checked
// explicitly first.
func (s *ResultStore) Insert(ctx context.Context, r *domain.SimulationResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, r.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	keys := sortedKeys(r.Percentiles)
	varVals := make([]float64, len(keys))
	tvarVals := make([]float64, len(keys))
	pctVals := make([]float64, len(keys))
	for i, k := range keys {
		varVals[i] = r.VaR[k]
		tvarVals[i] = r.TVaR[k]
		pctVals[i] = r.Percentiles[k]
	}

	counts := make([]uint64, len(r.HistogramData.Counts))
	for i, c := range r.HistogramData.Counts {
		counts[i] = uint64(c)
	}

	var converged uint8
	if r.Converged {
		converged = 1
	}

	query := `
		INSERT INTO simulation_results (
			run_id,
			expected_loss, std_deviation, variance,
			min_loss, max_loss, median_loss,
			skewness, kurtosis, coefficient_of_variation, probability_of_loss,
			percentile_keys, var_values, tvar_values, percentile_values,
			histogram_counts, histogram_edges, histogram_centers,
			histogram_bin_width, histogram_total,
			exceedance_levels, exceedance_probs, exceedance_periods,
			requested_iterations, executed_iterations,
			converged, converged_at, seed, elapsed_ms, finished_at
		) VALUES (
			?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?,
			?, ?,
			?, ?, ?,
			?, ?,
			?, ?, ?, ?, ?
		)
	`

	err = s.conn.Exec(ctx, query,
		r.RunID,
		r.ExpectedLoss, r.StdDeviation, r.Variance,
		r.MinLoss, r.MaxLoss, r.MedianLoss,
		r.Skewness, r.Kurtosis, r.CoefficientOfVariation, r.ProbabilityOfLoss,
		keys, varVals, tvarVals, pctVals,
		counts, r.HistogramData.BinEdges, r.HistogramData.BinCenters,
		r.HistogramData.BinWidth, uint64(r.HistogramData.TotalObservations),
		r.ExceedanceCurve.LossLevels, r.ExceedanceCurve.ExceedanceProbabilities, r.ExceedanceCurve.ReturnPeriods,
		uint64(r.RequestedIterations), uint64(r.ExecutedIterations),
		converged, uint64(r.ConvergedAt), r.Seed, r.Elapsed.Milliseconds(), r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert simulation result: %w", err)
	}
	return nil
}

// GetByRunID retrieves the result for a run. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByRunID(ctx context.Context, runID string) (*domain.SimulationResult, error) {
	query := `
		SELECT
			run_id,
			expected_loss, std_deviation, variance,
			min_loss, max_loss, median_loss,
			skewness, kurtosis, coefficient_of_variation, probability_of_loss,
			percentile_keys, var_values, tvar_values, percentile_values,
			histogram_counts, histogram_edges, histogram_centers,
			histogram_bin_width, histogram_total,
			exceedance_levels, exceedance_probs, exceedance_periods,
			requested_iterations, executed_iterations,
			converged, converged_at, seed, elapsed_ms, finished_at
		FROM simulation_results
		WHERE run_id = ?
		LIMIT 1
	`

	var (
		r          domain.SimulationResult
		keys       []string
		varVals    []float64
		tvarVals   []float64
		pctVals    []float64
		counts     []uint64
		histTotal  uint64
		requested  uint64
		executed   uint64
		converged  uint8
		convergAt  uint64
		elapsedMs  int64
		finishedAt time.Time
	)

	row := s.conn.QueryRow(ctx, query, runID)
	err := row.Scan(
		&r.RunID,
		&r.ExpectedLoss, &r.StdDeviation, &r.Variance,
		&r.MinLoss, &r.MaxLoss, &r.MedianLoss,
		&r.Skewness, &r.Kurtosis, &r.CoefficientOfVariation, &r.ProbabilityOfLoss,
		&keys, &varVals, &tvarVals, &pctVals,
		&counts, &r.HistogramData.BinEdges, &r.HistogramData.BinCenters,
		&r.HistogramData.BinWidth, &histTotal,
		&r.ExceedanceCurve.LossLevels, &r.ExceedanceCurve.ExceedanceProbabilities, &r.ExceedanceCurve.ReturnPeriods,
		&requested, &executed,
		&converged, &convergAt, &r.Seed, &elapsedMs, &finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select simulation result: %w", err)
	}

	r.VaR = make(map[string]float64, len(keys))
	r.TVaR = make(map[string]float64, len(keys))
	r.Percentiles = make(map[string]float64, len(keys))
	for i, k := range keys {
		r.VaR[k] = varVals[i]
		r.TVaR[k] = tvarVals[i]
		r.Percentiles[k] = pctVals[i]
	}

	r.HistogramData.Counts = make([]int, len(counts))
	for i, c := range counts {
		r.HistogramData.Counts[i] = int(c)
	}
	r.HistogramData.TotalObservations = int(histTotal)

	r.RequestedIterations = int(requested)
	r.ExecutedIterations = int(executed)
	r.Converged = converged != 0
	r.ConvergedAt = int(convergAt)
	r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	r.FinishedAt = finishedAt

	return &r, nil
}

// exists checks whether a result row is already stored for the run.
func (s *ResultStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM simulation_results WHERE run_id = ?`, runID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// sortedKeys returns the map's keys in ascending order for a stable
// array layout.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
