// Package engine provides the cycle-based game loop and the simulations
// it drives: population language games, teacher/learner games and plain
// discrimination training.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultReportEvery is how many cycles pass between progress reports.
const DefaultReportEvery = 100

// Engine drives one simulation forward, one game per cycle.
type Engine struct {
	Cycle       int           // cycles completed
	Cycles      int           // cycles to run
	ReportEvery int           // cycles between OnReport calls
	Interval    time.Duration // minimum wall time per cycle, 0 = flat out

	// Callbacks populated during setup.
	OnCycle  func(cycle int) error // every cycle, with the zero-based cycle index
	OnReport func(cycle int)       // every ReportEvery completed cycles, and at the end

	running atomic.Bool
}

// NewEngine creates an engine that runs the given number of cycles.
func NewEngine(cycles int) *Engine {
	return &Engine{
		Cycles:      cycles,
		ReportEvery: DefaultReportEvery,
	}
}

// Run plays cycles until all are done, ctx is cancelled, Stop is called or
// a cycle fails. Blocks until then.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Debug("game loop started", "cycle", e.Cycle, "cycles", e.Cycles)

	for e.Cycle < e.Cycles && e.running.Load() {
		if err := ctx.Err(); err != nil {
			e.report()
			return err
		}

		start := time.Now()

		if err := e.step(); err != nil {
			return err
		}

		if e.Interval > 0 {
			if elapsed := time.Since(start); elapsed < e.Interval {
				select {
				case <-ctx.Done():
				case <-time.After(e.Interval - elapsed):
				}
			}
		}
	}

	e.report()
	slog.Debug("game loop stopped", "cycle", e.Cycle)
	return nil
}

// Stop halts a running loop after the current cycle. It only affects a Run
// already in progress: a later Run resumes from Cycle.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) step() error {
	if e.OnCycle != nil {
		if err := e.OnCycle(e.Cycle); err != nil {
			return err
		}
	}
	e.Cycle++

	if e.ReportEvery > 0 && e.Cycle%e.ReportEvery == 0 && e.Cycle < e.Cycles {
		e.report()
	}
	return nil
}

func (e *Engine) report() {
	if e.OnReport != nil {
		e.OnReport(e.Cycle)
	}
}
