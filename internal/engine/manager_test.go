package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/storage/memory"
)

func newTestManager() (*Manager, *memory.SimulationRunStore, *memory.ResultStore, *memory.LossVectorStore) {
	runs := memory.NewSimulationRunStore()
	results := memory.NewResultStore()
	losses := memory.NewLossVectorStore()
	m := NewManager(ManagerOptions{
		RunStore:        runs,
		ResultStore:     results,
		LossVectorStore: losses,
	})
	return m, runs, results, losses
}

func TestManagerSubmitCompletes(t *testing.T) {
	ctx := context.Background()
	m, _, _, lossStore := newTestManager()

	req := baseRequest(42)
	req.Iterations = 5_000

	run, err := m.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if run.Status != domain.RunPending {
		t.Fatalf("initial status = %s, want pending", run.Status)
	}
	if run.RunID == "" {
		t.Fatal("empty run ID")
	}

	m.Wait()

	got, err := m.Status(ctx, run.RunID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != domain.RunCompleted {
		t.Fatalf("status = %s (%s), want completed", got.Status, got.ErrorMessage)
	}
	if got.ProgressPercent != 100 {
		t.Errorf("ProgressPercent = %v, want 100", got.ProgressPercent)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Error("missing start/finish timestamps")
	}

	res, err := m.Result(ctx, run.RunID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.ExecutedIterations != 5_000 || res.Seed != 42 {
		t.Errorf("unexpected result metadata: executed=%d seed=%d", res.ExecutedIterations, res.Seed)
	}
	if res.ExpectedLoss <= 0 {
		t.Errorf("ExpectedLoss = %v, want positive", res.ExpectedLoss)
	}

	vec, err := lossStore.GetByRunID(ctx, run.RunID)
	if err != nil {
		t.Fatalf("loss vector not stored: %v", err)
	}
	if len(vec) != 5_000 {
		t.Errorf("stored vector length = %d, want 5000", len(vec))
	}
}

func TestManagerRejectsInvalidRequest(t *testing.T) {
	m, _, _, _ := newTestManager()
	req := baseRequest(1)
	req.Iterations = 10 // below the minimum
	if _, err := m.Submit(context.Background(), req); err == nil {
		t.Fatal("invalid request accepted")
	}
}

func TestManagerUnknownRun(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager()

	if _, err := m.Status(ctx, "nope"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("Status: want ErrRunNotFound, got %v", err)
	}
	if _, err := m.Result(ctx, "nope"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("Result: want ErrRunNotFound, got %v", err)
	}
	if err := m.RequestStop(ctx, "nope"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("RequestStop: want ErrRunNotFound, got %v", err)
	}
}

func TestManagerStopCancelsRun(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager()

	req := baseRequest(3)
	req.Iterations = 5_000_000
	req.ParallelProcessing = true
	req.MaxWorkers = 2

	run, err := m.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Give the run a moment to start before stopping it.
	time.Sleep(50 * time.Millisecond)
	if err := m.RequestStop(ctx, run.RunID); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}
	m.Wait()

	got, err := m.Status(ctx, run.RunID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != domain.RunCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}

	if _, err := m.Result(ctx, run.RunID); !errors.Is(err, domain.ErrNoResult) {
		t.Fatalf("Result of cancelled run: want ErrNoResult, got %v", err)
	}

	// Stopping an already terminal run is a no-op.
	if err := m.RequestStop(ctx, run.RunID); err != nil {
		t.Fatalf("second RequestStop: %v", err)
	}
}

func TestManagerFailedRun(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager()

	req := baseRequest(5)
	req.EventParams.Severity = domain.SeverityParams{Kind: domain.SeverityLogNormal, Mu: 1e6, Sigma: 1}

	run, err := m.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	m.Wait()

	got, err := m.Status(ctx, run.RunID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got.Status != domain.RunFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Error("failed run carries no error message")
	}

	if _, err := m.Result(ctx, run.RunID); !errors.Is(err, domain.ErrNoResult) {
		t.Fatalf("Result of failed run: want ErrNoResult, got %v", err)
	}
}

func TestManagerSinkFactoryReceivesTerminalReport(t *testing.T) {
	runs := memory.NewSimulationRunStore()

	type report struct {
		current int
		status  domain.RunStatus
	}
	ch := make(chan report, 64)

	m := NewManager(ManagerOptions{
		RunStore:    runs,
		ResultStore: memory.NewResultStore(),
		SinkFactory: func(runID string) ProgressSink {
			return sinkFunc(func(current, total int, status domain.RunStatus) {
				ch <- report{current: current, status: status}
			})
		},
	})

	req := baseRequest(8)
	req.Iterations = 2_000
	if _, err := m.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	m.Wait()
	close(ch)

	var last report
	count := 0
	for r := range ch {
		last = r
		count++
	}
	if count == 0 {
		t.Fatal("sink received no reports")
	}
	if last.status != domain.RunCompleted {
		t.Fatalf("last report status = %s, want completed", last.status)
	}
	if last.current != 2_000 {
		t.Fatalf("last report current = %d, want 2000", last.current)
	}
}
