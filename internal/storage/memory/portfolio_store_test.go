package memory

import (
	"context"
	"errors"
	"testing"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage"
)

func testPortfolio(id string) *domain.Portfolio {
	return &domain.Portfolio{
		PortfolioID: id,
		Name:        "test",
		TotalValue:  1_000_000,
		Policies: []domain.Policy{
			{PolicyID: id + "-p1", Limit: 500_000, Deductible: 10_000},
		},
	}
}

func TestPortfolioStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewPortfolioStore()

	if err := s.Insert(ctx, testPortfolio("pf-1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, testPortfolio("pf-1")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("duplicate insert: want ErrDuplicateKey, got %v", err)
	}

	got, err := s.GetByID(ctx, "pf-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "test" || len(got.Policies) != 1 {
		t.Fatalf("unexpected portfolio %+v", got)
	}

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestPortfolioStoreInsertInvalid(t *testing.T) {
	s := NewPortfolioStore()
	if err := s.Insert(context.Background(), &domain.Portfolio{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestPortfolioStoreListOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewPortfolioStore()
	for _, id := range []string{"pf-b", "pf-a", "pf-c"} {
		if err := s.Insert(ctx, testPortfolio(id)); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}
	out, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"pf-a", "pf-b", "pf-c"}
	for i, p := range out {
		if p.PortfolioID != want[i] {
			t.Fatalf("List order = %v at %d, want %v", p.PortfolioID, i, want[i])
		}
	}
}

func TestPortfolioStoreCopySemantics(t *testing.T) {
	ctx := context.Background()
	s := NewPortfolioStore()
	p := testPortfolio("pf-1")
	if err := s.Insert(ctx, p); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	p.Policies[0].Limit = 0 // caller mutation must not leak in

	got, err := s.GetByID(ctx, "pf-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Policies[0].Limit != 500_000 {
		t.Fatalf("stored policy mutated through caller slice")
	}
	got.Name = "changed" // returned copy must not leak out
	again, _ := s.GetByID(ctx, "pf-1")
	if again.Name != "test" {
		t.Fatal("stored portfolio mutated through returned copy")
	}
}
