// Package main provides the simulation service:
// - Run lifecycle over HTTP: submit, status, stop, result
// - Live progress feed over WebSocket
// - Prometheus metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/engine"
	"cyber-risk-lab/internal/observability"
	"cyber-risk-lab/internal/progress"
	"cyber-risk-lab/internal/reporting"
	"cyber-risk-lab/internal/storage"
	chstore "cyber-risk-lab/internal/storage/clickhouse"
	"cyber-risk-lab/internal/storage/memory"
	"cyber-risk-lab/internal/storage/migrations"
	pgstore "cyber-risk-lab/internal/storage/postgres"
)

// Server holds the service's components.
type Server struct {
	manager    *engine.Manager
	hub        *progress.Hub
	metrics    *observability.Metrics
	reports    *reporting.Generator
	portfolios storage.PortfolioStore
	logger     *log.Logger

	started time.Time
}

// allStores holds the storage implementations behind the manager.
type allStores struct {
	portfolioStore  storage.PortfolioStore
	runStore        storage.SimulationRunStore
	resultStore     storage.ResultStore
	lossVectorStore storage.LossVectorStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	storeLossVectors := flag.Bool("store-loss-vectors", true, "Persist raw per-iteration loss vectors")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics("")

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()
	if !*useMemory {
		stores = instrumentStores(stores, metrics)
	}

	hub := progress.NewHub()
	go hub.Run()

	var lossStore storage.LossVectorStore
	if *storeLossVectors {
		lossStore = stores.lossVectorStore
	}

	manager := engine.NewManager(engine.ManagerOptions{
		RunStore:        stores.runStore,
		ResultStore:     stores.resultStore,
		LossVectorStore: lossStore,
		SinkFactory: func(runID string) engine.ProgressSink {
			return engine.MultiSink{hub.Sink(runID), metrics.Sink(runID)}
		},
	})

	server := &Server{
		manager:    manager,
		hub:        hub,
		metrics:    metrics,
		reports:    reporting.NewGenerator(stores.runStore, stores.resultStore, stores.portfolioStore),
		portfolios: stores.portfolioStore,
		logger:     logger,
		started:    time.Now(),
	}

	// Uptime counter
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UptimeSeconds.Inc()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Waiting for in-flight runs...")
	manager.Wait()
	close(done)

	logger.Println("Shutdown complete")
}

// createStores creates the storage implementations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			portfolioStore:  memory.NewPortfolioStore(),
			runStore:        memory.NewSimulationRunStore(),
			resultStore:     memory.NewResultStore(),
			lossVectorStore: memory.NewLossVectorStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL: portfolios and run lifecycle
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	// ClickHouse: results and loss vectors
	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouse(ctx, chConn); err != nil {
		chConn.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}

	stores := &allStores{
		portfolioStore:  pgstore.NewPortfolioStore(pool),
		runStore:        pgstore.NewSimulationRunStore(pool),
		resultStore:     chstore.NewResultStore(chConn),
		lossVectorStore: chstore.NewLossVectorStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("POST /api/v1/simulations", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/simulations/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/v1/simulations/{id}/result", s.handleResult)
	mux.HandleFunc("GET /api/v1/simulations/{id}/report", s.handleReport)
	mux.HandleFunc("POST /api/v1/simulations/{id}/stop", s.handleStop)

	mux.HandleFunc("GET /ws/progress", s.hub.HandleWS)

	return mux
}

// handleSubmit accepts a simulation request and starts a run.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req domain.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	run, err := s.manager.Submit(r.Context(), req)
	if err != nil {
		var paramErr *domain.ParameterError
		if errors.As(err, &paramErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "run already exists")
			return
		}
		s.logger.Printf("submit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}

	// Keep the portfolio readable for report generation. Resubmitting
	// the same book is normal, so duplicates pass silently.
	if err := s.portfolios.Insert(r.Context(), &req.Portfolio); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.logger.Printf("portfolio %s: insert failed: %v", req.Portfolio.PortfolioID, err)
	}

	s.metrics.RecordRunSubmitted()
	writeJSON(w, http.StatusAccepted, run)
}

// handleStatus returns the current run snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	run, err := s.manager.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleResult returns the risk metrics of a completed run.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.manager.Result(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleReport renders the markdown report of a completed run.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Generate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(rep)))
}

// handleStop requests cooperative cancellation of a run.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.RequestStop(r.Context(), r.PathValue("id")); err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stop requested"})
}

// writeRunError maps run lifecycle errors to HTTP statuses.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case errors.Is(err, domain.ErrRunNotTerminal):
		writeError(w, http.StatusConflict, "run still in progress")
	case errors.Is(err, domain.ErrNoResult):
		writeError(w, http.StatusNotFound, "run produced no result")
	default:
		s.logger.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// envOr returns the env var's value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
