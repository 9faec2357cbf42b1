package lexicon

import (
	"math/rand"

	"github.com/talgya/concept-world/internal/naming"
)

// Snapshot is the exported form of a lexicon.
type Snapshot struct {
	Words      []WordSnapshot `json:"words"`
	Successful int            `json:"successful"`
}

// WordSnapshot is one word of a Snapshot.
type WordSnapshot struct {
	Tag          string  `json:"tag"`
	Coords       []int   `json:"coords,omitempty"`
	Uses         int     `json:"uses"`
	Successes    int     `json:"successes"`
	SuccessRatio float64 `json:"success_ratio"`
}

// Export captures the lexicon. The successful-word count is evaluated
// against the given cycle total and thresholds.
func (l *Lexicon) Export(totalCycles int, threshold, minUseFraction float64) Snapshot {
	snap := Snapshot{
		Words:      make([]WordSnapshot, 0, len(l.words)),
		Successful: l.SuccessfulCount(totalCycles, threshold, minUseFraction),
	}
	for _, w := range l.words {
		snap.Words = append(snap.Words, WordSnapshot{
			Tag:          w.Tag,
			Coords:       append([]int(nil), w.Coords...),
			Uses:         w.Uses,
			Successes:    w.Successes,
			SuccessRatio: w.SuccessRatio(),
		})
	}
	return snap
}

// Import rebuilds a lexicon and registers its words with the registry.
func Import(snap Snapshot, registry *naming.Registry, rng *rand.Rand, opts Options) *Lexicon {
	l := New(registry, rng, opts)
	for _, ws := range snap.Words {
		if _, ok := l.index[ws.Tag]; ok {
			continue
		}
		w := &Word{Tag: ws.Tag, Uses: ws.Uses, Successes: ws.Successes}
		if len(ws.Coords) > 0 {
			w.Coords = append([]int(nil), ws.Coords...)
		}
		registry.Register(ws.Tag)
		l.add(w)
	}
	return l
}
