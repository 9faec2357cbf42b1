package perception

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/concept-world/internal/concepts"
)

// Perceiver is satisfied by every model in this package.
type Perceiver interface {
	Perceive(stimulus concepts.Percept) concepts.Percept
}

// Jitter adds a smooth, agent-specific bias on top of another perceiver.
// The bias for a feature is simplex noise sampled at the feature's value,
// so nearby stimuli are distorted alike and the same stimulus always looks
// the same to the same agent.
type Jitter struct {
	Base      Perceiver
	Amplitude float64
	Frequency float64

	noise opensimplex.Noise
}

// NewJitter wraps base. A zero amplitude turns the jitter off.
func NewJitter(base Perceiver, seed int64, amplitude, frequency float64) *Jitter {
	if base == nil {
		base = Identity{}
	}
	if frequency == 0 {
		frequency = 1
	}
	return &Jitter{
		Base:      base,
		Amplitude: amplitude,
		Frequency: frequency,
		noise:     opensimplex.New(seed),
	}
}

func (j *Jitter) Perceive(stimulus concepts.Percept) concepts.Percept {
	out := j.Base.Perceive(stimulus)
	if j.Amplitude == 0 {
		return out
	}
	for d := range out {
		for i, v := range out[d].Values {
			out[d].Values[i] = v + j.Amplitude*octaveNoise(j.noise, v*j.Frequency, float64(d*16+i), 2, 0.5)
		}
	}
	return out
}

// octaveNoise layers octaves of 2D noise, halving amplitude and doubling
// frequency each time. The result stays in [-1, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	frequency := 1.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
