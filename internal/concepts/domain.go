// Package concepts implements an agent's conceptual space: perceptual
// concepts built from named domains, each summarised by a running prototype,
// its spread and a confidence derived from that spread.
package concepts

import (
	"fmt"
	"math"

	"github.com/talgya/concept-world/internal/metric"
)

// Observation is one domain's feature vector in a percept.
type Observation struct {
	Domain string    `json:"domain"`
	Values []float64 `json:"values"`
}

// Percept is the feature-vector shape every perception model produces:
// an ordered list of domain observations.
type Percept []Observation

// Get returns the values observed for the named domain.
func (p Percept) Get(domain string) ([]float64, bool) {
	for _, o := range p {
		if o.Domain == domain {
			return o.Values, true
		}
	}
	return nil, false
}

// Clone returns a deep copy.
func (p Percept) Clone() Percept {
	out := make(Percept, len(p))
	for i, o := range p {
		out[i] = Observation{Domain: o.Domain, Values: append([]float64(nil), o.Values...)}
	}
	return out
}

// Domain summarises every exemplar a concept has seen in one perceptual
// dimension-set. Prototype is the running mean and Spread the running
// population standard deviation, both maintained incrementally.
type Domain struct {
	Prototype  []float64
	Spread     []float64
	SpreadAvg  float64
	Confidence float64 // 1 - SpreadAvg, not clamped: wide spreads go negative
	Count      int

	m2 []float64 // sum of squared deviations per component
}

func newDomain(values []float64) *Domain {
	return &Domain{
		Prototype:  append([]float64(nil), values...),
		Spread:     make([]float64, len(values)),
		Confidence: 1.0,
		Count:      1,
		m2:         make([]float64, len(values)),
	}
}

// add folds one exemplar into the running mean and deviation.
func (d *Domain) add(values []float64) error {
	if len(values) != len(d.Prototype) {
		return fmt.Errorf("exemplar %d vs prototype %d: %w", len(values), len(d.Prototype), metric.ErrLengthMismatch)
	}
	d.Count++
	n := float64(d.Count)
	for i, x := range values {
		delta := x - d.Prototype[i]
		d.Prototype[i] += delta / n
		d.m2[i] += delta * (x - d.Prototype[i])
		if d.m2[i] < 0 {
			d.m2[i] = 0
		}
		d.Spread[i] = math.Sqrt(d.m2[i] / n)
	}
	d.refreshConfidence()
	return nil
}

func (d *Domain) refreshConfidence() {
	if len(d.Spread) == 0 {
		d.SpreadAvg = 0
	} else {
		d.SpreadAvg = metric.Mean(d.Spread)
	}
	d.Confidence = 1 - d.SpreadAvg
}
