package concepts

import "fmt"

// Snapshot is the exported form of a Space. Only summary statistics
// survive; raw exemplar history does not.
type Snapshot struct {
	Concepts []ConceptSnapshot `json:"concepts"`
}

// ConceptSnapshot is one concept of a Snapshot.
type ConceptSnapshot struct {
	Tag     string           `json:"tag"`
	Domains []DomainSnapshot `json:"domains"`
}

// DomainSnapshot is one domain of a ConceptSnapshot.
type DomainSnapshot struct {
	Name       string    `json:"name"`
	Prototype  []float64 `json:"prototype"`
	Spread     []float64 `json:"spread"`
	SpreadAvg  float64   `json:"spread_avg"`
	Confidence float64   `json:"confidence"`
	Count      int       `json:"count"`
}

// Export captures the space in creation order.
func (s *Space) Export() Snapshot {
	snap := Snapshot{Concepts: make([]ConceptSnapshot, 0, len(s.order))}
	for _, tag := range s.order {
		c := s.concepts[tag]
		cs := ConceptSnapshot{Tag: tag, Domains: make([]DomainSnapshot, 0, len(c.order))}
		for _, name := range c.order {
			d := c.domains[name]
			cs.Domains = append(cs.Domains, DomainSnapshot{
				Name:       name,
				Prototype:  append([]float64(nil), d.Prototype...),
				Spread:     append([]float64(nil), d.Spread...),
				SpreadAvg:  d.SpreadAvg,
				Confidence: d.Confidence,
				Count:      d.Count,
			})
		}
		snap.Concepts = append(snap.Concepts, cs)
	}
	return snap
}

// Import rebuilds a Space from a snapshot. Confidence is recomputed from
// spread. The deviation accumulators are reconstructed from spread and count
// so later exemplars keep updating the statistics as if the history were
// still there.
func Import(snap Snapshot) (*Space, error) {
	s := NewSpace()
	for _, cs := range snap.Concepts {
		if s.Has(cs.Tag) {
			return nil, fmt.Errorf("import %q: %w", cs.Tag, ErrConceptExists)
		}
		c := newConcept(cs.Tag)
		for _, ds := range cs.Domains {
			if len(ds.Spread) != len(ds.Prototype) {
				return nil, fmt.Errorf("import %q domain %q: spread has %d values, prototype %d",
					cs.Tag, ds.Name, len(ds.Spread), len(ds.Prototype))
			}
			count := ds.Count
			if count < 1 {
				count = 1
			}
			d := &Domain{
				Prototype: append([]float64(nil), ds.Prototype...),
				Spread:    append([]float64(nil), ds.Spread...),
				Count:     count,
				m2:        make([]float64, len(ds.Spread)),
			}
			for i, sd := range ds.Spread {
				d.m2[i] = sd * sd * float64(count)
			}
			d.refreshConfidence()
			c.setDomain(ds.Name, d)
		}
		s.concepts[cs.Tag] = c
		s.order = append(s.order, cs.Tag)
	}
	return s, nil
}
