package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/concept-world/internal/assoc"
	"github.com/talgya/concept-world/internal/concepts"
	"github.com/talgya/concept-world/internal/lexicon"
	"github.com/talgya/concept-world/internal/naming"
)

// Snapshot is everything an observer or a store needs to know about an
// agent at one point of a run.
type Snapshot struct {
	Name       string            `json:"name"`
	Speaking   bool              `json:"speaking"`
	Pretrained bool              `json:"pretrained"`
	Stats      Stats             `json:"stats"`
	Percepts   int               `json:"percepts"`
	Words      int               `json:"words"`
	Concepts   concepts.Snapshot `json:"concepts"`
	Lexicon    lexicon.Snapshot  `json:"lexicon"`
	Links      assoc.Table       `json:"links"`
}

// SuccessCriteria decides which words count as successful in a snapshot.
type SuccessCriteria struct {
	TotalCycles    int
	Threshold      float64
	MinUseFraction float64
}

// Snapshot captures the agent. Safe to call between any two operations.
func (a *Agent) Snapshot(crit SuccessCriteria) Snapshot {
	return Snapshot{
		Name:       a.Name,
		Speaking:   a.Speaking,
		Pretrained: a.Pretrained,
		Stats:      a.Stats,
		Percepts:   a.space.Len(),
		Words:      a.lex.Len(),
		Concepts:   a.space.Export(),
		Lexicon:    a.lex.Export(crit.TotalCycles, crit.Threshold, crit.MinUseFraction),
		Links:      a.links.Table(),
	}
}

// Restore rebuilds an agent from a snapshot. The restored words are
// registered with registry.
func Restore(snap Snapshot, cfg Config, registry *naming.Registry, rng *rand.Rand, lexOpts lexicon.Options, perceiver Perceiver) (*Agent, error) {
	space, err := concepts.Import(snap.Concepts)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", snap.Name, err)
	}
	links, err := assoc.FromTable("cs_lex", cfg.LateralInhibition, snap.Links)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", snap.Name, err)
	}

	a := New(snap.Name, cfg, registry, rng, lexOpts, perceiver)
	a.Speaking = snap.Speaking
	a.Pretrained = snap.Pretrained
	a.Stats = snap.Stats
	a.space = space
	a.lex = lexicon.Import(snap.Lexicon, registry, rng, lexOpts)
	a.links = links
	return a, nil
}
