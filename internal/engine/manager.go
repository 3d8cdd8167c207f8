package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/idhash"
	"cyber-risk-lab/internal/metrics"
	"cyber-risk-lab/internal/storage"
)

// SinkFactory builds a per-run progress sink. Implementations route the
// run's progress to transports that need the run identity (websocket
// feeds, metric labels).
type SinkFactory func(runID string) ProgressSink

// Manager owns the lifecycle of simulation runs: it assigns IDs, tracks
// status, executes runs in the background and exposes stop requests.
type Manager struct {
	coordinator *Coordinator
	runStore    storage.SimulationRunStore
	resultStore storage.ResultStore
	lossStore   storage.LossVectorStore
	sinkFor     SinkFactory
	clock       func() time.Time

	mu     sync.Mutex
	active map[string]context.CancelFunc

	wg sync.WaitGroup
}

// ManagerOptions contains configuration for creating a Manager.
// RunStore and ResultStore are required; LossVectorStore and SinkFactory
// are optional.
type ManagerOptions struct {
	Coordinator     *Coordinator
	RunStore        storage.SimulationRunStore
	ResultStore     storage.ResultStore
	LossVectorStore storage.LossVectorStore
	SinkFactory     SinkFactory
	Clock           func() time.Time
}

// NewManager creates a run manager.
func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		coordinator: opts.Coordinator,
		runStore:    opts.RunStore,
		resultStore: opts.ResultStore,
		lossStore:   opts.LossVectorStore,
		sinkFor:     opts.SinkFactory,
		clock:       opts.Clock,
		active:      make(map[string]context.CancelFunc),
	}
	if m.coordinator == nil {
		m.coordinator = NewCoordinator(CoordinatorOptions{Clock: opts.Clock})
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	return m
}

// Submit validates the request, registers a pending run and starts its
// execution in the background. The returned run snapshot is in pending
// state; poll Status for progress.
func (m *Manager) Submit(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := m.clock()
	var seed int64
	if req.RandomSeed != nil {
		seed = *req.RandomSeed
	}
	runID := idhash.ComputeRunID(req.Portfolio.PortfolioID, req.Iterations, seed, now.UnixNano())

	run := &domain.SimulationRun{
		RunID:           runID,
		PortfolioID:     req.Portfolio.PortfolioID,
		Status:          domain.RunPending,
		TotalIterations: req.Iterations,
		SubmittedAt:     now,
	}
	if err := m.runStore.Insert(ctx, run); err != nil {
		return nil, err
	}

	// The run outlives the submitting request; its context is only
	// cancelled by RequestStop.
	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.active[runID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.execute(runCtx, run, req)

	snapshot := *run
	return &snapshot, nil
}

// Status returns the current snapshot of a run.
func (m *Manager) Status(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	run, err := m.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// Result returns the risk metrics of a completed run. Runs still in
// flight return ErrRunNotTerminal; failed and cancelled runs return
// ErrNoResult.
func (m *Manager) Result(ctx context.Context, runID string) (*domain.SimulationResult, error) {
	run, err := m.Status(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Status.Terminal() {
		return nil, domain.ErrRunNotTerminal
	}
	if run.Status != domain.RunCompleted {
		return nil, domain.ErrNoResult
	}
	res, err := m.resultStore.GetByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrNoResult
		}
		return nil, err
	}
	return res, nil
}

// RequestStop asks a running simulation to stop cooperatively. Stopping
// a run that already reached a terminal state is a no-op; an unknown run
// returns ErrRunNotFound.
func (m *Manager) RequestStop(ctx context.Context, runID string) error {
	m.mu.Lock()
	cancel, ok := m.active[runID]
	m.mu.Unlock()
	if ok {
		cancel()
		return nil
	}
	if _, err := m.Status(ctx, runID); err != nil {
		return err
	}
	return nil
}

// Wait blocks until all in-flight runs have finished. Used on shutdown.
func (m *Manager) Wait() { m.wg.Wait() }

// execute drives one run to a terminal state.
func (m *Manager) execute(ctx context.Context, run *domain.SimulationRun, req domain.SimulationRequest) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.active, run.RunID)
		m.mu.Unlock()
	}()

	started := m.clock()
	run.Status = domain.RunRunning
	run.StartedAt = &started
	m.persistRun(run)

	var sink ProgressSink = &runTracker{m: m, run: run}
	if m.sinkFor != nil {
		if s := m.sinkFor(run.RunID); s != nil {
			sink = MultiSink{sink, s}
		}
	}

	outcome, err := m.coordinator.Execute(ctx, req, sink)

	finished := m.clock()
	run.FinishedAt = &finished

	switch {
	case errors.Is(err, context.Canceled):
		run.Status = domain.RunCancelled
	case err != nil:
		run.Status = domain.RunFailed
		run.ErrorMessage = err.Error()
	default:
		if err := m.storeResult(run, req, outcome, finished); err != nil {
			run.Status = domain.RunFailed
			run.ErrorMessage = err.Error()
			break
		}
		run.Status = domain.RunCompleted
		run.ProgressPercent = 100
		run.CurrentIteration = outcome.Executed
	}
	m.persistRun(run)

	sink.Report(run.CurrentIteration, run.TotalIterations, run.Status)
}

// storeResult computes risk metrics from the outcome and persists the
// result (and, when configured, the raw loss vector).
func (m *Manager) storeResult(run *domain.SimulationRun, req domain.SimulationRequest, outcome *Outcome, finished time.Time) error {
	res, err := metrics.Compute(outcome.Losses, req.PercentileLevels)
	if err != nil {
		return err
	}
	res.RunID = run.RunID
	res.RequestedIterations = req.Iterations
	res.ExecutedIterations = outcome.Executed
	res.Converged = outcome.Converged
	res.ConvergedAt = outcome.ConvergedAt
	res.Seed = outcome.Seed
	res.Elapsed = outcome.Elapsed
	res.FinishedAt = finished

	if err := m.resultStore.Insert(context.Background(), res); err != nil {
		return err
	}
	if m.lossStore != nil {
		if err := m.lossStore.InsertBulk(context.Background(), run.RunID, outcome.Losses); err != nil {
			return err
		}
	}
	return nil
}

// persistRun writes the run's current state, logging rather than failing
// on storage errors: the run itself must not die on a status write.
func (m *Manager) persistRun(run *domain.SimulationRun) {
	if err := m.runStore.Update(context.Background(), run); err != nil {
		log.Printf("[manager] run %s: status update failed: %v", run.RunID, err)
	}
}

// runTracker mirrors coordinator progress into the run record.
type runTracker struct {
	m   *Manager
	run *domain.SimulationRun
}

// Report implements ProgressSink.
func (t *runTracker) Report(current, total int, status domain.RunStatus) {
	if status != domain.RunRunning {
		return // terminal transitions are persisted by execute
	}
	t.run.CurrentIteration = current
	if total > 0 {
		t.run.ProgressPercent = 100 * float64(current) / float64(total)
	}
	t.m.persistRun(t.run)
}
