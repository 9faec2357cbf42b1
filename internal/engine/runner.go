package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/concept-world/internal/metric"
)

// Result is a finished run: every replica plus the mean and standard
// deviation of its series across replicas, cycle by cycle.
type Result struct {
	RunID           string
	Options         Options
	Started         time.Time
	Finished        time.Time
	Replicas        []*Simulation
	GuessingSuccess []metric.Point
	SuccessfulWords []metric.Point
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// Run plays opts.Replicas independent replicas in parallel and aggregates
// their series. monitor may be nil; when set its run ID names the run.
// A cancelled ctx stops every replica and the partial result is returned
// together with the context's error.
func Run(ctx context.Context, opts Options, monitor *Monitor) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	runID := NewRunID()
	if monitor != nil {
		runID = monitor.RunID()
	}
	res := &Result{
		RunID:    runID,
		Options:  opts,
		Started:  time.Now(),
		Replicas: make([]*Simulation, opts.Replicas),
	}

	for i := range res.Replicas {
		sim, err := NewSimulation(opts, i, monitor)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		res.Replicas[i] = sim
	}
	slog.Info("run started", "run", runID, "mode", opts.Mode, "replicas", opts.Replicas,
		"agents", len(res.Replicas[0].Agents), "cycles", opts.Cycles)

	errs := make([]error, len(res.Replicas))
	var wg sync.WaitGroup
	for i, sim := range res.Replicas {
		wg.Add(1)
		go func(i int, sim *Simulation) {
			defer wg.Done()
			errs[i] = sim.Run(ctx)
			if monitor != nil {
				p := sim.Progress()
				p.Done = true
				monitor.Report(p)
			}
			slog.Info("replica finished", "run", runID, "replica", i,
				"success", fmt.Sprintf("%.3f", sim.Progress().Success))
		}(i, sim)
	}
	wg.Wait()
	res.Finished = time.Now()

	guessing := make([][]float64, len(res.Replicas))
	words := make([][]float64, len(res.Replicas))
	for i, sim := range res.Replicas {
		guessing[i] = sim.Series.GuessingSuccess
		words[i] = sim.Series.SuccessfulWords
	}
	res.GuessingSuccess = metric.MeanSD(guessing)
	res.SuccessfulWords = metric.MeanSD(words)

	return res, errors.Join(errs...)
}
