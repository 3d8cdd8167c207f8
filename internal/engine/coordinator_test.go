package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/metrics"
)

func baseRequest(seed int64) domain.SimulationRequest {
	return domain.SimulationRequest{
		Iterations: 20_000,
		RandomSeed: &seed,
		EventParams: domain.EventParameters{
			Frequency: domain.FrequencyParams{Kind: domain.FrequencyPoisson, Lambda: 2.5},
			Severity:  domain.SeverityParams{Kind: domain.SeverityLogNormal, Mu: 11, Sigma: 1.3},
		},
		Portfolio: domain.Portfolio{
			PortfolioID: "pf-test",
			Name:        "coordinator test",
			TotalValue:  50_000_000,
			Policies: []domain.Policy{
				{PolicyID: "p1", Limit: 2_000_000, Deductible: 50_000, Coinsurance: 0.1},
				{PolicyID: "p2", Limit: 5_000_000, Deductible: 250_000, Coinsurance: 0.25},
			},
		},
		ApplyDeductibles: true,
		ApplyLimits:      true,
	}
}

func mustExecute(t *testing.T, req domain.SimulationRequest) *Outcome {
	t.Helper()
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	out, err := NewCoordinator(CoordinatorOptions{}).Execute(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return out
}

func TestExecuteDeterministicAcrossWorkerCounts(t *testing.T) {
	serial := baseRequest(42)
	serial.ParallelProcessing = false

	parallel := baseRequest(42)
	parallel.ParallelProcessing = true
	parallel.MaxWorkers = 8

	a := mustExecute(t, serial)
	b := mustExecute(t, parallel)

	if a.Executed != b.Executed {
		t.Fatalf("executed %d vs %d", a.Executed, b.Executed)
	}
	for i := range a.Losses {
		if a.Losses[i] != b.Losses[i] {
			t.Fatalf("loss vector diverged at %d: %v vs %v", i, a.Losses[i], b.Losses[i])
		}
	}
	if a.Seed != 42 || b.Seed != 42 {
		t.Fatalf("seed not propagated: %d, %d", a.Seed, b.Seed)
	}
}

func TestExecuteDifferentSeedsDiffer(t *testing.T) {
	a := mustExecute(t, baseRequest(1))
	b := mustExecute(t, baseRequest(2))

	same := true
	for i := range a.Losses {
		if a.Losses[i] != b.Losses[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical loss vectors")
	}
}

func TestExecuteConvergenceEarlyStop(t *testing.T) {
	run := func(workers int, parallel bool) *Outcome {
		req := baseRequest(7)
		req.Iterations = 50_000
		req.ConvergenceCheck = true
		req.ConvergenceThreshold = 0.05
		req.ConvergenceWindow = 200
		req.ParallelProcessing = parallel
		req.MaxWorkers = workers
		return mustExecute(t, req)
	}

	a := run(1, false)
	if !a.Converged {
		t.Fatal("run did not converge")
	}
	if a.Executed >= 50_000 {
		t.Fatalf("converged run executed all %d iterations", a.Executed)
	}
	if a.Executed != a.ConvergedAt {
		t.Fatalf("Executed %d != ConvergedAt %d", a.Executed, a.ConvergedAt)
	}
	if len(a.Losses) != a.Executed {
		t.Fatalf("loss vector length %d != executed %d", len(a.Losses), a.Executed)
	}

	// Early stop must land on the same iteration regardless of workers.
	b := run(8, true)
	if !b.Converged || b.ConvergedAt != a.ConvergedAt {
		t.Fatalf("parallel run converged at %d, serial at %d", b.ConvergedAt, a.ConvergedAt)
	}
	for i := range a.Losses {
		if a.Losses[i] != b.Losses[i] {
			t.Fatalf("converged loss vectors diverged at %d", i)
		}
	}
}

func TestExecuteCancellation(t *testing.T) {
	req := baseRequest(13)
	req.Iterations = 1_000_000
	req.ParallelProcessing = true
	req.MaxWorkers = 4
	req = req.WithDefaults()

	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	sink := sinkFunc(func(current, total int, status domain.RunStatus) {
		// Cancel as soon as the first batch lands.
		once.Do(cancel)
	})

	_, err := NewCoordinator(CoordinatorOptions{}).Execute(ctx, req, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestExecuteNumericInstabilityFailsRun(t *testing.T) {
	req := baseRequest(5)
	// exp(mu) overflows float64, so any iteration with at least one event
	// produces +Inf.
	req.EventParams.Severity = domain.SeverityParams{Kind: domain.SeverityLogNormal, Mu: 1e6, Sigma: 1}
	req = req.WithDefaults()

	_, err := NewCoordinator(CoordinatorOptions{}).Execute(context.Background(), req, nil)
	if !errors.Is(err, domain.ErrNumericInstability) {
		t.Fatalf("want ErrNumericInstability, got %v", err)
	}
}

func TestExecuteReferenceScenario(t *testing.T) {
	seed := int64(42)
	// LogNormal with mean 500k and std 1M: sigma^2 = ln(1+(std/mean)^2),
	// mu = ln(mean) - sigma^2/2.
	req := domain.SimulationRequest{
		Iterations: 10_000,
		RandomSeed: &seed,
		EventParams: domain.EventParameters{
			Frequency: domain.FrequencyParams{Kind: domain.FrequencyPoisson, Lambda: 2.0},
			Severity:  domain.SeverityParams{Kind: domain.SeverityLogNormal, Mu: 12.3177, Sigma: 1.2686},
		},
		Portfolio: domain.Portfolio{
			PortfolioID: "pf-ref",
			Name:        "reference book",
			TotalValue:  10_000_000,
			Policies: []domain.Policy{
				{PolicyID: "p1", Limit: 5_000_000, Deductible: 50_000, Coinsurance: 0.2},
			},
		},
		ApplyDeductibles: true,
		ApplyLimits:      true,
		PercentileLevels: []float64{0.95, 0.99},
	}

	a := mustExecute(t, req)
	b := mustExecute(t, req)
	for i := range a.Losses {
		if a.Losses[i] != b.Losses[i] {
			t.Fatalf("repeat run diverged at iteration %d: %v vs %v", i, a.Losses[i], b.Losses[i])
		}
	}

	res, err := metrics.Compute(a.Losses, req.PercentileLevels)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	var95 := res.VaR[domain.PercentileKey(0.95)]
	var99 := res.VaR[domain.PercentileKey(0.99)]
	if res.ExpectedLoss <= 0 {
		t.Fatalf("ExpectedLoss = %v, want positive", res.ExpectedLoss)
	}
	if var95 < res.ExpectedLoss {
		t.Errorf("var95 %v below expected loss %v", var95, res.ExpectedLoss)
	}
	if var99 < var95 {
		t.Errorf("var99 %v below var95 %v", var99, var95)
	}
}

func TestExecuteDeductibleDominatesSeverity(t *testing.T) {
	req := baseRequest(7)
	req.Iterations = 2_000
	// Draws land around e^2, orders of magnitude below every deductible
	// in the portfolio.
	req.EventParams.Severity = domain.SeverityParams{Kind: domain.SeverityLogNormal, Mu: 2, Sigma: 0.5}

	out := mustExecute(t, req)
	res, err := metrics.Compute(out.Losses, []float64{0.95})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.ExpectedLoss != 0 || res.MaxLoss != 0 {
		t.Fatalf("want zero losses, got expected=%v max=%v", res.ExpectedLoss, res.MaxLoss)
	}
	if res.ProbabilityOfLoss != 0 {
		t.Errorf("ProbabilityOfLoss = %v, want 0", res.ProbabilityOfLoss)
	}
}

func TestMergeKeepsConvergedResultOnLateBatchError(t *testing.T) {
	req := domain.SimulationRequest{
		ConvergenceCheck:     true,
		ConvergenceThreshold: 0.5,
		ConvergenceWindow:    3,
	}
	cancelled := false
	st := newMergeState(20, 2, 10, req, func() { cancelled = true })

	losses := make([]float64, 10)
	for i := range losses {
		losses[i] = 100
	}
	st.fold(batchResult{index: 0, start: 0, losses: losses})
	if !st.converged {
		t.Fatal("constant losses did not converge within the first batch")
	}
	if !cancelled {
		t.Error("convergence did not cancel outstanding batches")
	}
	if got := st.monitor.ConvergedAt(); got != 4 {
		t.Errorf("ConvergedAt = %d, want 4", got)
	}

	// A failing batch beyond the converged prefix arrives late; its data
	// is discarded, so the converged result stands.
	st.fold(batchResult{index: 1, start: 10, err: domain.ErrNumericInstability})
	if st.err != nil {
		t.Fatalf("late batch error overturned converged run: %v", st.err)
	}
	if !st.converged {
		t.Error("converged flag cleared by late batch error")
	}
}

func TestExecuteReportsProgress(t *testing.T) {
	req := baseRequest(9)
	req.Iterations = 5_000
	req.BatchSize = 1_000
	req = req.WithDefaults()

	var mu sync.Mutex
	var reports []int
	sink := sinkFunc(func(current, total int, status domain.RunStatus) {
		mu.Lock()
		reports = append(reports, current)
		mu.Unlock()
		if total != 5_000 {
			t.Errorf("total = %d, want 5000", total)
		}
	})

	if _, err := NewCoordinator(CoordinatorOptions{}).Execute(context.Background(), req, sink); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(reports) != 5 {
		t.Fatalf("got %d reports, want 5", len(reports))
	}
	if reports[len(reports)-1] != 5_000 {
		t.Fatalf("final report = %d, want 5000", reports[len(reports)-1])
	}
}

// sinkFunc adapts a function to the ProgressSink interface.
type sinkFunc func(current, total int, status domain.RunStatus)

func (f sinkFunc) Report(current, total int, status domain.RunStatus) { f(current, total, status) }
