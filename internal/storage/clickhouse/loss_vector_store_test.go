package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

func TestLossVectorStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLossVectorStore(conn)

	losses := make(domain.LossVector, 5_000)
	for i := range losses {
		losses[i] = float64(i) * 13.5
	}

	require.NoError(t, store.InsertBulk(ctx, "run-lv-1", losses))

	err := store.InsertBulk(ctx, "run-lv-1", losses)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-lv-1")
	require.NoError(t, err)
	require.Len(t, got, len(losses))

	// Iteration order must survive the round trip.
	assert.Equal(t, losses[0], got[0])
	assert.Equal(t, losses[2_500], got[2_500])
	assert.Equal(t, losses[4_999], got[4_999])
}

func TestLossVectorStore_NotFound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLossVectorStore(conn)

	_, err := store.GetByRunID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLossVectorStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLossVectorStore(conn)

	assert.ErrorIs(t, store.InsertBulk(ctx, "", domain.LossVector{1}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.InsertBulk(ctx, "run-x", nil), storage.ErrInvalidInput)
}
