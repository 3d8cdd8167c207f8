package clickhouse

import (
	"context"
	"fmt"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

// LossVectorStore implements storage.LossVectorStore using ClickHouse,
// one row per iteration. Raw loss vectors can reach millions of rows per
// run, which is exactly the shape MergeTree batch inserts are for.
type LossVectorStore struct {
	conn *Conn
}

// NewLossVectorStore creates a new LossVectorStore.
func NewLossVectorStore(conn *Conn) *LossVectorStore {
	return &LossVectorStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LossVectorStore = (*LossVectorStore)(nil)

// InsertBulk stores a run's full loss vector. Returns ErrDuplicateKey if
// the run already has losses stored.
func (s *LossVectorStore) InsertBulk(ctx context.Context, runID string, losses domain.LossVector) error {
	if runID == "" || len(losses) == 0 {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx,
		`INSERT INTO loss_vectors (run_id, iteration, loss)`,
	)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, loss := range losses {
		if err := batch.Append(runID, uint64(i), loss); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run's losses ordered by iteration ASC.
// Returns ErrNotFound if the run has no stored losses.
func (s *LossVectorStore) GetByRunID(ctx context.Context, runID string) (domain.LossVector, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT loss FROM loss_vectors WHERE run_id = ? ORDER BY iteration ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("select losses: %w", err)
	}
	defer rows.Close()

	var out domain.LossVector
	for rows.Next() {
		var loss float64
		if err := rows.Scan(&loss); err != nil {
			return nil, fmt.Errorf("scan loss: %w", err)
		}
		out = append(out, loss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate losses: %w", err)
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

// exists checks whether the run already has stored losses.
func (s *LossVectorStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM loss_vectors WHERE run_id = ?`, runID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
