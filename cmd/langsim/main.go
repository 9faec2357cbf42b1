// Command langsim runs populations of agents that form colour concepts
// and agree on words for them through language games.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/concept-world/internal/api"
	"github.com/talgya/concept-world/internal/config"
	"github.com/talgya/concept-world/internal/engine"
	"github.com/talgya/concept-world/internal/entropy"
	"github.com/talgya/concept-world/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("langsim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Configuration ─────────────────────────────────────────────────
	cfgPath := envOr("LANGSIM_CONFIG", "langsim.yaml")
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return err
	}
	if v := os.Getenv("LANGSIM_DB"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("LANGSIM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LANGSIM_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("LANGSIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("LANGSIM_SEED: %w", err)
		}
		cfg.Run.Seed = seed
	}

	opts, err := cfg.Options()
	if err != nil {
		return fmt.Errorf("config %s: %w", cfgPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Seed ──────────────────────────────────────────────────────────
	if opts.Seed == 0 {
		rnd := entropy.NewClient(os.Getenv("RANDOM_ORG_API_KEY"))
		if !rnd.Enabled() {
			slog.Warn("RANDOM_ORG_API_KEY not set, seeding from crypto/rand")
		}
		opts.Seed = rnd.Seed(ctx)
	}

	slog.Info("langsim starting",
		"config", cfgPath,
		"mode", opts.Mode,
		"agents", opts.Agents,
		"cycles", humanize.Comma(int64(opts.Cycles)),
		"replicas", opts.Replicas,
		"stimuli", opts.Stimuli.Kind,
		"seed", opts.Seed,
	)

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.Storage.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err = persistence.Open(cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.Storage.DBPath)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	monitor := engine.NewMonitor(engine.NewRunID())
	if cfg.API.Port > 0 {
		apiServer := &api.Server{Monitor: monitor, DB: db, Port: cfg.API.Port}
		apiServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			apiServer.Shutdown(shutdownCtx)
		}()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}

	// ── Run ───────────────────────────────────────────────────────────
	fmt.Println("Starting run... (Ctrl+C to stop)")
	res, runErr := engine.Run(ctx, opts, monitor)
	if res == nil {
		return runErr
	}
	if runErr != nil {
		slog.Warn("run interrupted, keeping partial result", "error", runErr)
	}

	elapsed := res.Finished.Sub(res.Started)
	games := 0
	for _, sim := range res.Replicas {
		games += sim.Engine.Cycle
	}
	if n := len(res.GuessingSuccess); n > 0 {
		slog.Info("run finished",
			"run", res.RunID,
			"games", humanize.Comma(int64(games)),
			"elapsed", elapsed.Round(time.Millisecond),
			"success", fmt.Sprintf("%.3f±%.3f", res.GuessingSuccess[n-1].Mean, res.GuessingSuccess[n-1].SD),
			"successful_words", fmt.Sprintf("%.2f±%.2f", res.SuccessfulWords[n-1].Mean, res.SuccessfulWords[n-1].SD),
		)
	}

	if db != nil {
		if err := db.SaveRun(res); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		if err := db.SaveMeta("last_run", res.RunID); err != nil {
			slog.Error("save meta failed", "error", err)
		}
		fmt.Printf("Run %s saved to %s.\n", res.RunID, cfg.Storage.DBPath)
	}

	if cfg.API.Port > 0 && cfg.API.Linger && ctx.Err() == nil {
		fmt.Println("Run complete, API still serving... (Ctrl+C to stop)")
		<-ctx.Done()
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
