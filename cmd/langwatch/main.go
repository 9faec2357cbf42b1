// Command langwatch follows a running langsim process through its API and
// logs how each replica's communication is converging.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/concept-world/internal/api"
	"github.com/talgya/concept-world/internal/watch"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	apiURL := envOrDefault("LANGSIM_API_URL", "http://localhost:8080")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observer := watch.NewObserver(apiURL)
	slog.Info("waiting for langsim API...", "api_url", apiURL)
	if err := observer.WaitReady(ctx); err != nil {
		slog.Error("langsim API never became ready", "error", err)
		os.Exit(1)
	}

	snap, err := observer.Observe(ctx, 5)
	if err != nil {
		slog.Error("observation failed", "error", err)
		os.Exit(1)
	}
	for _, r := range snap.Runs {
		slog.Info("stored run",
			"run", r.ID,
			"mode", r.Mode,
			"cycles", humanize.Comma(int64(r.Cycles)),
			"success", fmt.Sprintf("%.3f", r.FinalSuccess),
		)
	}
	if !snap.Status.Running {
		fmt.Println("No run in progress.")
		return
	}
	slog.Info("following run", "run", snap.Status.RunID, "replicas", snap.Status.Replicas)

	trend := watch.NewTrend()
	err = observer.Follow(ctx, func(msg api.StreamMessage) {
		switch msg.Type {
		case "snapshot":
			for _, p := range msg.Replicas {
				trend.Record(p)
			}
		case "progress":
			p := *msg.Progress
			trend.Record(p)
			slog.Info(trend.Summary(p.Replica),
				"successful_words", fmt.Sprintf("%.2f", p.SuccessfulWords),
				"words_in_world", humanize.Comma(int64(p.Words)),
			)
		case "done":
			slog.Info("run finished", "run", snap.Status.RunID)
		}
	})
	if err != nil && ctx.Err() == nil {
		slog.Error("stream failed", "error", err)
		os.Exit(1)
	}

	if !snap.Status.Stored {
		return
	}
	rows, err := observer.Progress(context.Background(), snap.Status.RunID, 1000)
	if err != nil {
		// the run may still be saving
		slog.Warn("stored progress unavailable", "error", err)
		return
	}
	for _, r := range rows {
		fmt.Printf("%8s  success %.3f±%.3f  words %.2f±%.2f\n",
			humanize.Comma(int64(r.Cycle)), r.SuccessMean, r.SuccessSD, r.WordsMean, r.WordsSD)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
