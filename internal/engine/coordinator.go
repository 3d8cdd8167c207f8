package engine

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/eventgen"
	"cyber-risk-lab/internal/financial"
	"cyber-risk-lab/internal/sampler"
)

// Outcome is the raw product of one executed simulation: the loss vector
// plus execution metadata. Risk metrics are derived from it separately.
type Outcome struct {
	Losses      domain.LossVector
	Seed        int64
	Executed    int
	Converged   bool
	ConvergedAt int
	Elapsed     time.Duration
}

// Coordinator partitions a run into batches and executes them, optionally
// across a worker pool. Each batch draws from its own RNG substream keyed
// by batch index, so the assembled loss vector is identical whatever the
// worker count or scheduling order.
type Coordinator struct {
	clock func() time.Time
}

// CoordinatorOptions configures a Coordinator. Nil fields get defaults.
type CoordinatorOptions struct {
	Clock func() time.Time
}

// NewCoordinator creates a coordinator.
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{clock: opts.Clock}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// batchResult carries one batch's losses back to the merge loop.
type batchResult struct {
	index   int
	start   int
	losses  []float64
	skipped bool
	err     error
}

// Execute runs the simulation described by req to completion, early
// convergence, cancellation or failure. The request must already be
// validated and defaulted. sink receives progress after each merged
// batch; nil discards it. Cancellation is cooperative: in-flight batches
// finish, their results are discarded, and ctx.Err() is returned.
func (c *Coordinator) Execute(ctx context.Context, req domain.SimulationRequest, sink ProgressSink) (*Outcome, error) {
	if sink == nil {
		sink = NopSink{}
	}
	started := c.clock()

	seed := resolveSeed(req, started)

	gen, err := eventgen.New(req.EventParams, req.MaxEventsPerIteration)
	if err != nil {
		return nil, err
	}
	terms, err := financial.FromRequest(req)
	if err != nil {
		return nil, err
	}

	// The convergence monitor tracks the running mean, which does not
	// settle when the severity distribution has infinite variance.
	if req.ConvergenceCheck && gen.Severity().HeavyTailed() {
		log.Printf("[coordinator] severity %s is heavy-tailed, convergence check may never trigger", req.EventParams.Severity.Kind)
	}

	total := req.Iterations
	batchSize := req.BatchSize
	numBatches := (total + batchSize - 1) / batchSize

	workers := 1
	if req.ParallelProcessing {
		workers = req.MaxWorkers
		if workers > numBatches {
			workers = numBatches
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	batchCh := make(chan int)
	resCh := make(chan batchResult, workers)

	go func() {
		defer close(batchCh)
		for b := 0; b < numBatches; b++ {
			select {
			case batchCh <- b:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var buf []float64
			for b := range batchCh {
				if runCtx.Err() != nil {
					resCh <- batchResult{index: b, skipped: true}
					continue
				}
				res := runBatch(seed, b, batchSize, total, gen, terms, &buf)
				resCh <- res
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resCh)
	}()

	// Merge loop: single writer over the master vector. Convergence is
	// evaluated over the contiguous prefix of completed batches, in batch
	// order, so the early-stop point does not depend on scheduling.
	st := newMergeState(total, numBatches, batchSize, req, cancel)
	for res := range resCh {
		if st.fold(res) {
			sink.Report(st.completed, total, domain.RunRunning)
		}
	}

	if st.err != nil {
		return nil, st.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	executed := total
	if st.converged {
		executed = st.monitor.ConvergedAt()
	}

	out := &Outcome{
		Losses:   st.master[:executed],
		Seed:     seed,
		Executed: executed,
		Elapsed:  c.clock().Sub(started),
	}
	if st.converged {
		out.Converged = true
		out.ConvergedAt = st.monitor.ConvergedAt()
	}
	return out, nil
}

// mergeState is the coordinator's single-writer view of an executing
// run: the master loss vector, per-batch completion, and the contiguous
// prefix already folded into the aggregator and convergence monitor.
type mergeState struct {
	master    []float64
	done      []bool
	batchSize int
	agg       *Aggregator
	monitor   *Monitor
	cancel    context.CancelFunc

	completed int
	prefix    int // batches fully folded into the monitor
	converged bool
	err       error
}

func newMergeState(total, numBatches, batchSize int, req domain.SimulationRequest, cancel context.CancelFunc) *mergeState {
	st := &mergeState{
		master:    make([]float64, total),
		done:      make([]bool, numBatches),
		batchSize: batchSize,
		agg:       NewAggregator(),
		cancel:    cancel,
	}
	if req.ConvergenceCheck {
		st.monitor = NewMonitor(req.ConvergenceThreshold, req.ConvergenceWindow)
	}
	return st
}

// fold merges one batch result and reports whether it carried losses.
func (m *mergeState) fold(res batchResult) bool {
	if res.skipped {
		return false
	}
	if res.err != nil {
		// A converged run fixed its result at the converged prefix;
		// errors in batches beyond it concern data that is discarded
		// either way.
		if m.err == nil && !m.converged {
			m.err = res.err
			m.cancel()
		}
		return false
	}

	copy(m.master[res.start:], res.losses)
	m.done[res.index] = true
	m.completed += len(res.losses)

	if m.err != nil || m.converged {
		return true
	}
	for m.prefix < len(m.done) && m.done[m.prefix] {
		start := m.prefix * m.batchSize
		for _, loss := range m.master[start : start+m.batchLen(m.prefix)] {
			if err := m.agg.Add(loss); err != nil {
				m.err = err
				m.cancel()
				return true
			}
			if m.monitor != nil && m.monitor.Observe(loss) {
				m.converged = true
				m.cancel()
				return true
			}
		}
		m.prefix++
	}
	return true
}

// batchLen returns the length of batch b; only the last one is short.
func (m *mergeState) batchLen(b int) int {
	if b == len(m.done)-1 {
		return len(m.master) - b*m.batchSize
	}
	return m.batchSize
}

// runBatch executes the iterations of one batch on its own substream.
// The substream is derived purely from (seed, batch index), never from
// worker identity.
func runBatch(seed int64, index, batchSize, total int, gen *eventgen.Generator, terms *financial.Terms, buf *[]float64) batchResult {
	start := index * batchSize
	end := start + batchSize
	if end > total {
		end = total
	}

	rng := sampler.NewRNG(seed, uint64(index))
	losses := make([]float64, 0, end-start)
	for i := start; i < end; i++ {
		events := gen.Generate(rng, *buf)
		*buf = events
		// A policy limit would cap an overflowing draw to a finite
		// loss, so raw severities are checked before terms apply.
		for _, x := range events {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return batchResult{index: index, start: start, err: domain.ErrNumericInstability}
			}
		}
		loss := terms.IterationLoss(events)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return batchResult{index: index, start: start, err: domain.ErrNumericInstability}
		}
		losses = append(losses, loss)
	}
	return batchResult{index: index, start: start, losses: losses}
}

// resolveSeed picks the run's master seed: the requested one when set,
// otherwise the start timestamp.
func resolveSeed(req domain.SimulationRequest, started time.Time) int64 {
	if req.RandomSeed != nil {
		return *req.RandomSeed
	}
	return started.UnixNano()
}
