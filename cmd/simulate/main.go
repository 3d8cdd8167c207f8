// Package main provides a one-shot simulation CLI: run a request to
// completion, optionally run the scenario comparison, and write report
// artifacts to disk.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/engine"
	"cyber-risk-lab/internal/orchestrator"
	"cyber-risk-lab/internal/reporting"
	"cyber-risk-lab/internal/storage/memory"
)

func main() {
	// Parse flags
	requestPath := flag.String("request", "", "Path to a simulation request JSON file (omit for the demo request)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	iterations := flag.Int("iterations", 0, "Override the request's iteration count")
	seed := flag.Int64("seed", 0, "Override the request's random seed (0 keeps the request's)")
	workers := flag.Int("workers", 0, "Override the request's worker count")
	compare := flag.Bool("compare", false, "Run the scenario comparison after the baseline")
	lossCSV := flag.Bool("loss-csv", false, "Write the raw loss vector CSV (can be large)")
	verbose := flag.Bool("verbose", false, "Verbose progress output")
	flag.Parse()

	ctx := context.Background()

	req, err := loadRequest(*requestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading request: %v\n", err)
		os.Exit(1)
	}

	if *iterations > 0 {
		req.Iterations = *iterations
	}
	if *seed != 0 {
		req.RandomSeed = seed
	}
	if *workers > 0 {
		req.MaxWorkers = *workers
		req.ParallelProcessing = true
	}

	// Memory-backed manager: the CLI never needs durable storage.
	runStore := memory.NewSimulationRunStore()
	resultStore := memory.NewResultStore()
	lossStore := memory.NewLossVectorStore()

	var sinkFactory engine.SinkFactory
	if *verbose {
		sinkFactory = func(string) engine.ProgressSink {
			return &engine.LogSink{MinDelta: 10}
		}
	}

	manager := engine.NewManager(engine.ManagerOptions{
		RunStore:        runStore,
		ResultStore:     resultStore,
		LossVectorStore: lossStore,
		SinkFactory:     sinkFactory,
	})

	fmt.Printf("Running simulation: %d iterations over portfolio %s...\n",
		req.Iterations, req.Portfolio.PortfolioID)
	start := time.Now()

	run, err := manager.Submit(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error submitting run: %v\n", err)
		os.Exit(1)
	}
	manager.Wait()

	final, err := manager.Status(ctx, run.RunID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading run status: %v\n", err)
		os.Exit(1)
	}
	if final.Status != domain.RunCompleted {
		fmt.Fprintf(os.Stderr, "Run %s: %s", final.RunID, final.Status)
		if final.ErrorMessage != "" {
			fmt.Fprintf(os.Stderr, " (%s)", final.ErrorMessage)
		}
		fmt.Fprintln(os.Stderr)
		os.Exit(1)
	}

	res, err := manager.Result(ctx, run.RunID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading result: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Completed %d iterations in %v (expected loss %.2f)\n",
		res.ExecutedIterations, time.Since(start).Round(time.Millisecond), res.ExpectedLoss)
	if res.Converged {
		fmt.Printf("Converged early at iteration %d\n", res.ConvergedAt)
	}

	report := reporting.NewGenerator(runStore, resultStore, nil).
		FromResult(res, req.Portfolio)

	if *compare {
		fmt.Println("Running scenario comparison...")
		orch := orchestrator.New(orchestrator.Options{Verbose: *verbose})
		cmp, err := orch.Compare(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running comparison: %v\n", err)
			os.Exit(1)
		}
		for _, msg := range cmp.Errors {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
		report.AddComparison(cmp.Deltas)
	}

	if err := writeArtifacts(ctx, *outputDir, report, res, lossStore, run.RunID, *lossCSV); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing artifacts: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Artifacts written:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/EXCEEDANCE.csv\n", *outputDir)
	if *lossCSV {
		fmt.Printf("  - %s/LOSS_VECTOR.csv\n", *outputDir)
	}
}

// loadRequest reads a request file, or builds the demo request when no
// path is given.
func loadRequest(path string) (domain.SimulationRequest, error) {
	if path == "" {
		fmt.Println("No --request given, using the built-in demo request")
		return demoRequest(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.SimulationRequest{}, err
	}
	var req domain.SimulationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.SimulationRequest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return req, nil
}

// demoRequest is a small cyber book under a Poisson/LogNormal event model.
func demoRequest() domain.SimulationRequest {
	seed := int64(42)
	return domain.SimulationRequest{
		Iterations: 100_000,
		RandomSeed: &seed,
		EventParams: domain.EventParameters{
			Frequency: domain.FrequencyParams{Kind: domain.FrequencyPoisson, Lambda: 2.5},
			Severity:  domain.SeverityParams{Kind: domain.SeverityLogNormal, Mu: 11, Sigma: 1.3},
		},
		Portfolio: domain.Portfolio{
			PortfolioID: "demo-book",
			Name:        "demo cyber book",
			TotalValue:  50_000_000,
			Policies: []domain.Policy{
				{PolicyID: "p1", Limit: 1_000_000, Deductible: 50_000, Coinsurance: 0.1, Premium: 12_000},
				{PolicyID: "p2", Limit: 5_000_000, Deductible: 250_000, Coinsurance: 0.25, Premium: 80_000},
				{PolicyID: "p3", Limit: 500_000, Deductible: 10_000, Coinsurance: 0, Premium: 4_500},
			},
		},
		ApplyDeductibles:   true,
		ApplyLimits:        true,
		ConvergenceCheck:   true,
		ParallelProcessing: true,
	}
}

// writeArtifacts renders and writes the report files.
func writeArtifacts(ctx context.Context, dir string, report *reporting.Report, res *domain.SimulationResult, lossStore *memory.LossVectorStore, runID string, withLossCSV bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	md := reporting.RenderMarkdown(report)
	if err := os.WriteFile(filepath.Join(dir, "REPORT.md"), []byte(md), 0644); err != nil {
		return err
	}

	curve := reporting.RenderExceedanceCSV(res.ExceedanceCurve)
	if err := os.WriteFile(filepath.Join(dir, "EXCEEDANCE.csv"), []byte(curve), 0644); err != nil {
		return err
	}

	if withLossCSV {
		losses, err := lossStore.GetByRunID(ctx, runID)
		if err != nil {
			return fmt.Errorf("load loss vector: %w", err)
		}
		csv := reporting.RenderLossVectorCSV(losses)
		if err := os.WriteFile(filepath.Join(dir, "LOSS_VECTOR.csv"), []byte(csv), 0644); err != nil {
			return err
		}
	}

	return nil
}
