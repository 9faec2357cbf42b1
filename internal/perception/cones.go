// Package perception turns raw stimuli into an agent's subjective feature
// vectors. Wavelengths go through a model of the three human cone types;
// every perceiver leaves domains it does not model untouched.
package perception

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/talgya/concept-world/internal/concepts"
)

// Domains produced by the cone models.
const (
	DomainCone       = "cone"
	DomainOpponency  = "cone_opp"
	domainWavelength = "wav"
)

// Cone is a gaussian sensitivity curve a*exp(-((w-b)/c)^2).
type Cone struct {
	A, B, C float64
}

// Response returns the cone's activation at wavelength w.
func (c Cone) Response(w float64) float64 {
	x := (w - c.B) / c.C
	return c.A * math.Exp(-x*x)
}

// Fitted short, medium and long wavelength cones.
var (
	ConeS = Cone{A: 0.9889, B: 447.2, C: 33.4}
	ConeM = Cone{A: 0.9989, B: 545.2, C: 52.69}
	ConeL = Cone{A: 1, B: 567.9, C: 64.78}
)

// Proportions weighs the S, M and L responses of one agent.
type Proportions [3]float64

// ProportionMode selects how agents get their cone proportions.
type ProportionMode uint8

const (
	ProportionsFixed   ProportionMode = iota // everyone uses the configured proportions
	ProportionsRandom                        // S fixed at 0.1, M and L split the rest at random
	ProportionsRandom2                       // S random, M and L split the rest at random
)

// ParseProportionMode maps a configuration string to a ProportionMode.
func ParseProportionMode(s string) (ProportionMode, error) {
	switch strings.ToLower(s) {
	case "", "fixed":
		return ProportionsFixed, nil
	case "random":
		return ProportionsRandom, nil
	case "random2":
		return ProportionsRandom2, nil
	}
	return 0, fmt.Errorf("unknown cone proportion mode %q", s)
}

func (m ProportionMode) String() string {
	switch m {
	case ProportionsRandom:
		return "random"
	case ProportionsRandom2:
		return "random2"
	default:
		return "fixed"
	}
}

// DrawProportions returns the proportions for one agent.
func DrawProportions(mode ProportionMode, fixed Proportions, rng *rand.Rand) Proportions {
	switch mode {
	case ProportionsRandom:
		m := 0.9 * rng.Float64()
		return Proportions{0.1, m, 0.9 - m}
	case ProportionsRandom2:
		s := rng.Float64()
		m := (1 - s) * rng.Float64()
		return Proportions{s, m, (1 - s) - m}
	default:
		return fixed
	}
}

// Cones perceives wavelengths through weighted S, M and L cones, either as
// raw responses or as the red-green and blue-yellow opponent channels.
type Cones struct {
	Proportions Proportions
	Opponency   bool
}

// Perceive maps each "wav" observation to a cone observation.
func (c Cones) Perceive(stimulus concepts.Percept) concepts.Percept {
	out := make(concepts.Percept, 0, len(stimulus))
	for _, o := range stimulus {
		if o.Domain != domainWavelength || len(o.Values) == 0 {
			out = append(out, concepts.Observation{Domain: o.Domain, Values: append([]float64(nil), o.Values...)})
			continue
		}
		out = append(out, c.observe(o.Values[0]))
	}
	return out
}

func (c Cones) observe(w float64) concepts.Observation {
	s := c.Proportions[0] * ConeS.Response(w)
	m := c.Proportions[1] * ConeM.Response(w)
	l := c.Proportions[2] * ConeL.Response(w)
	if c.Opponency {
		return concepts.Observation{Domain: DomainOpponency, Values: []float64{l - m, s - (0.5*l + 0.5*m)}}
	}
	return concepts.Observation{Domain: DomainCone, Values: []float64{s, m, l}}
}

// Identity perceives stimuli as they are.
type Identity struct{}

func (Identity) Perceive(stimulus concepts.Percept) concepts.Percept {
	return stimulus.Clone()
}
