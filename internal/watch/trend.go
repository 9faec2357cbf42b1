package watch

import (
	"fmt"

	"github.com/talgya/concept-world/internal/engine"
)

const maxRecords = 10

// Level is a coarse reading of where a replica's communication stands.
type Level string

const (
	LevelStarting  Level = "STARTING"  // fewer than two reports
	LevelLearning  Level = "LEARNING"  // success still climbing
	LevelStalled   Level = "STALLED"   // flat below the converged mark
	LevelConverged Level = "CONVERGED" // flat at or above the converged mark
)

// Converged is the guessing success at which a flat replica counts as
// having agreed on its words.
const Converged = 0.9

// minSlope is the success gain per thousand cycles below which a replica
// is considered flat.
const minSlope = 0.005

// Trend keeps the last few progress reports of each replica.
type Trend struct {
	records map[int][]engine.Progress
}

// NewTrend creates an empty trend.
func NewTrend() *Trend {
	return &Trend{records: make(map[int][]engine.Progress)}
}

// Record adds a report, trimming the replica's history to maxRecords.
func (t *Trend) Record(p engine.Progress) {
	rs := append(t.records[p.Replica], p)
	if len(rs) > maxRecords {
		rs = rs[len(rs)-maxRecords:]
	}
	t.records[p.Replica] = rs
}

// Slope is the replica's success gain per thousand cycles over its
// recorded window.
func (t *Trend) Slope(replica int) float64 {
	rs := t.records[replica]
	if len(rs) < 2 {
		return 0
	}
	first, last := rs[0], rs[len(rs)-1]
	if last.Cycle == first.Cycle {
		return 0
	}
	return (last.Success - first.Success) / float64(last.Cycle-first.Cycle) * 1000
}

// Level classifies a replica from its recorded window.
func (t *Trend) Level(replica int) Level {
	rs := t.records[replica]
	if len(rs) < 2 {
		return LevelStarting
	}
	if t.Slope(replica) > minSlope {
		return LevelLearning
	}
	if rs[len(rs)-1].Success >= Converged {
		return LevelConverged
	}
	return LevelStalled
}

// Summary is a one-line reading of a replica for logs.
func (t *Trend) Summary(replica int) string {
	rs := t.records[replica]
	if len(rs) == 0 {
		return fmt.Sprintf("replica %d: no reports", replica)
	}
	last := rs[len(rs)-1]
	return fmt.Sprintf("replica %d: cycle=%d success=%.3f slope=%+.4f level=%s",
		replica, last.Cycle, last.Success, t.Slope(replica), t.Level(replica))
}
