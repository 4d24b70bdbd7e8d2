// Command kaskade boots the execution control plane.
//
// Boot sequence:
//  1. config.LoadDotEnv()     – read .env (no shell exports required)
//  2. cfg := config.Load()    – build runtime Config
//  3. open the database, run recover_uncommitted
//  4. wire one market ingestion task + scheduler + executor router per pair
//  5. start the Prometheus /healthz and /metrics server on cfg.Port
//  6. signal.NotifyContext + graceful shutdown
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/0xphen/kaskade/internal/cache"
	"github.com/0xphen/kaskade/internal/config"
	"github.com/0xphen/kaskade/internal/executor"
	"github.com/0xphen/kaskade/internal/logging"
	"github.com/0xphen/kaskade/internal/market"
	"github.com/0xphen/kaskade/internal/metrics"
	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/pulse"
	"github.com/0xphen/kaskade/internal/quote"
	"github.com/0xphen/kaskade/internal/scheduler"
	"github.com/0xphen/kaskade/internal/store"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := logging.New(cfg.IsProduction())

	if len(cfg.PairIDs) == 0 {
		log.Fatal().Msg("no pairs configured (PAIR_IDS)")
	}

	repo, err := store.Open(cfg.DSN(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	if err := repo.RecoverUncommitted(); err != nil {
		log.Error().Err(err).Msg("recover uncommitted batches")
	}

	mv := market.NewStore()
	stop := make(chan struct{})

	for _, pairID := range cfg.PairIDs {
		startPair(pairID, cfg, repo, mv, log, stop)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("serving healthz/metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	log.Info().Msg("shutting down")

	close(stop)

	shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)
}

// startPair wires one pair's market ingestion task, scheduler ticker, and
// executor router. The ingestion task and the scheduler ticker run until
// stop is closed; the router's workers do not watch stop.
func startPair(pairID string, cfg config.Config, repo *store.GormRepository, mv *market.Store, log zerolog.Logger, stop chan struct{}) {
	scope := quote.ExecutionScope{Kind: quote.MarketWide}
	engine := pulse.NewPairEngine(cfg.PulseMaxAgeMs, scope)
	source := quote.NewFakeSource(64) // spec §1 non-goal: real feed adapters are out of scope

	go ingestPair(pairID, engine, source, mv, stop)

	c := cache.New(cfg.MaxCachedSessions)
	pager := cache.NewPager(c, repo, cfg.PageSize)
	router := executor.NewRouter(
		cfg.PerPairWorkerCapacityOrMin(),
		pager,
		repo,
		mv,
		executor.DummyExecutor{}, // spec §1 non-goal: the real chain-side swap executor is out of scope
		executor.FailureCooldown{Ms: uint64(cfg.DefaultFailureCooldown.Milliseconds())},
		log,
	)

	sched := scheduler.New(pairID, c, pager, mv, repo, router, scheduler.Config{
		CandidateMin:     cfg.SchedulerCandidateMin,
		MaxAttempts:      cfg.SchedulerMaxAttempts,
		MaxUsersPerBatch: cfg.SchedulerMaxUsersPerBatch,
		Policy:           defaultPolicy(),
	}, log)

	go sched.Run(cfg.TickInterval, stop)
}

// ingestPair feeds decoded quote events through the pair's pulse engines and
// publishes the resulting view, until source closes or stop fires.
func ingestPair(pairID string, engine *pulse.PairEngine, source quote.Source, mv *market.Store, stop chan struct{}) {
	defer source.Close()
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-source.Events():
			if !ok {
				return
			}
			qu, ok := ev.(quote.QuoteUpdated)
			if !ok {
				continue
			}
			snapshot := engine.Evaluate(qu.Quote)
			mv.Put(pairID, market.FromSnapshot(snapshot))

			metrics.PulseValidity.WithLabelValues(pairID, "spread").Set(validityGauge(snapshot.Spread.Validity == pulse.Valid))
			metrics.PulseValidity.WithLabelValues(pairID, "trend").Set(validityGauge(snapshot.Trend.Validity == pulse.Valid))
			metrics.PulseValidity.WithLabelValues(pairID, "depth").Set(validityGauge(snapshot.Depth.Validity == pulse.Valid))
			metrics.PulseValidity.WithLabelValues(pairID, "slippage").Set(validityGauge(snapshot.Slippage.Validity == pulse.Valid))
		}
	}
}

func validityGauge(valid bool) float64 {
	if valid {
		return 1
	}
	return 0
}

// defaultPolicy builds the planner bounds from spec §6 defaults not yet
// exposed as individual env vars; operators needing different bounds per
// pair should extend config.Config.
func defaultPolicy() planner.Policy {
	return planner.Policy{
		HardMaxTotalBidPerTick: 1_000_000,
		DepthUtilization:       0.5,
		MaxBidPerUserPerTick:   50_000,
		MaxChunkBid:            10_000,
		MinChunkBid:            100,
	}
}
