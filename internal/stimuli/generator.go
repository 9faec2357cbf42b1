// Package stimuli generates the contexts language games are played on.
// A context is a small set of stimuli that lie at least a minimum distance
// apart, so every topic is in principle distinguishable from the rest.
package stimuli

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/talgya/concept-world/internal/concepts"
	"github.com/talgya/concept-world/internal/metric"
	"github.com/talgya/concept-world/internal/naming"
)

// ErrSeparationUnreachable is returned when no stimulus far enough from the
// rest of the context could be drawn within naming.MaxAttempts tries.
var ErrSeparationUnreachable = errors.New("minimum separation unreachable")

// Kind selects the stimulus domain.
type Kind uint8

const (
	KindRGB        Kind = iota // three channels in [0, 1)
	KindWavelength             // one integer wavelength in [400, 700]
	KindObject                 // seven object features in [0, 1)
)

// Wavelength bounds in nanometres.
const (
	MinWavelength = 400
	MaxWavelength = 700
)

// Domain names carried by generated stimuli.
const (
	DomainRGB        = "rgb"
	DomainWavelength = "wav"
	DomainObject     = "hri"
)

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "rgb", "colour", "color":
		return KindRGB, nil
	case "wav", "wavelength":
		return KindWavelength, nil
	case "hri", "object", "objects":
		return KindObject, nil
	}
	return 0, fmt.Errorf("unknown stimulus kind %q", s)
}

func (k Kind) String() string {
	switch k {
	case KindWavelength:
		return DomainWavelength
	case KindObject:
		return DomainObject
	default:
		return DomainRGB
	}
}

// Config controls context generation.
type Config struct {
	Kind          Kind
	ContextSize   int
	MinSeparation float64 // strict lower bound on pairwise euclidean distance
}

// Generator draws contexts from its own seeded source.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator. The seed offset keeps its stream apart
// from the other seeded sources of a run.
func NewGenerator(cfg Config, seed int64) *Generator {
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = 1
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed + 500))}
}

// Config returns the generator's settings.
func (g *Generator) Config() Config { return g.cfg }

// Stimulus draws one raw stimulus with no separation constraint.
func (g *Generator) Stimulus() concepts.Percept {
	switch g.cfg.Kind {
	case KindWavelength:
		w := MinWavelength + g.rng.Intn(MaxWavelength-MinWavelength+1)
		return concepts.Percept{{Domain: DomainWavelength, Values: []float64{float64(w)}}}
	case KindObject:
		return concepts.Percept{{Domain: DomainObject, Values: g.uniform(7)}}
	default:
		return concepts.Percept{{Domain: DomainRGB, Values: g.uniform(3)}}
	}
}

func (g *Generator) uniform(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = g.rng.Float64()
	}
	return v
}

// Context draws ContextSize stimuli, each further than MinSeparation from
// every stimulus drawn before it.
func (g *Generator) Context() ([]concepts.Percept, error) {
	ctx := make([]concepts.Percept, 0, g.cfg.ContextSize)
	for len(ctx) < g.cfg.ContextSize {
		s, err := g.separated(ctx)
		if err != nil {
			return nil, err
		}
		ctx = append(ctx, s)
	}
	return ctx, nil
}

// Dataset draws n contexts.
func (g *Generator) Dataset(n int) ([][]concepts.Percept, error) {
	out := make([][]concepts.Percept, 0, n)
	for i := 0; i < n; i++ {
		ctx, err := g.Context()
		if err != nil {
			return nil, fmt.Errorf("context %d of %d: %w", i, n, err)
		}
		out = append(out, ctx)
	}
	return out, nil
}

func (g *Generator) separated(ctx []concepts.Percept) (concepts.Percept, error) {
	for attempt := 0; attempt < naming.MaxAttempts; attempt++ {
		s := g.Stimulus()
		if g.farEnough(s, ctx) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s stimulus %g apart from %d others: %w",
		g.cfg.Kind, g.cfg.MinSeparation, len(ctx), ErrSeparationUnreachable)
}

func (g *Generator) farEnough(s concepts.Percept, ctx []concepts.Percept) bool {
	for _, other := range ctx {
		d, err := metric.Euclidean(s[0].Values, other[0].Values)
		if err != nil || d <= g.cfg.MinSeparation {
			return false
		}
	}
	return true
}
