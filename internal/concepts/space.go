package concepts

import (
	"errors"
	"fmt"
	"math"

	"github.com/talgya/concept-world/internal/metric"
)

var (
	ErrConceptExists   = errors.New("concept already exists")
	ErrConceptNotFound = errors.New("concept not found")
)

// Concept is one learned perceptual category.
type Concept struct {
	Tag string

	domains map[string]*Domain
	order   []string
}

func newConcept(tag string) *Concept {
	return &Concept{Tag: tag, domains: make(map[string]*Domain)}
}

// Domain returns the named domain.
func (c *Concept) Domain(name string) (*Domain, bool) {
	d, ok := c.domains[name]
	return d, ok
}

// DomainNames returns the concept's domains in the order they were first seen.
func (c *Concept) DomainNames() []string {
	return append([]string(nil), c.order...)
}

func (c *Concept) setDomain(name string, d *Domain) {
	if _, ok := c.domains[name]; !ok {
		c.order = append(c.order, name)
	}
	c.domains[name] = d
}

// Space is an agent's conceptual space. Iteration follows creation order,
// which is what breaks ties in best-match selection.
type Space struct {
	concepts map[string]*Concept
	order    []string
}

// NewSpace creates an empty conceptual space.
func NewSpace() *Space {
	return &Space{concepts: make(map[string]*Concept)}
}

// Len returns the number of concepts.
func (s *Space) Len() int {
	return len(s.order)
}

// Has reports whether tag names a concept.
func (s *Space) Has(tag string) bool {
	_, ok := s.concepts[tag]
	return ok
}

// Concept returns the concept with the given tag.
func (s *Space) Concept(tag string) (*Concept, bool) {
	c, ok := s.concepts[tag]
	return c, ok
}

// Tags returns every concept tag in creation order.
func (s *Space) Tags() []string {
	return append([]string(nil), s.order...)
}

// CreateConcept seeds a new concept from one percept: each domain's
// prototype is the observed vector, with zero spread and confidence 1.
func (s *Space) CreateConcept(tag string, p Percept) error {
	if _, ok := s.concepts[tag]; ok {
		return fmt.Errorf("create %q: %w", tag, ErrConceptExists)
	}
	c := newConcept(tag)
	for _, o := range p {
		c.setDomain(o.Domain, newDomain(o.Values))
	}
	s.concepts[tag] = c
	s.order = append(s.order, tag)
	return nil
}

// AddExemplar folds a percept into an existing concept. Known domains are
// updated; unknown ones are created from the observation. Nothing is
// changed if any observation has the wrong length.
func (s *Space) AddExemplar(tag string, p Percept) error {
	c, ok := s.concepts[tag]
	if !ok {
		return fmt.Errorf("add exemplar to %q: %w", tag, ErrConceptNotFound)
	}
	lengths := make(map[string]int, len(p))
	for _, o := range p {
		want, seen := lengths[o.Domain]
		if !seen {
			want = len(o.Values)
			if d, ok := c.domains[o.Domain]; ok {
				want = len(d.Prototype)
			}
			lengths[o.Domain] = want
		}
		if len(o.Values) != want {
			return fmt.Errorf("add exemplar to %q domain %q: %w", tag, o.Domain, metric.ErrLengthMismatch)
		}
	}
	for _, o := range p {
		d, ok := c.domains[o.Domain]
		if !ok {
			c.setDomain(o.Domain, newDomain(o.Values))
			continue
		}
		if err := d.add(o.Values); err != nil {
			return fmt.Errorf("add exemplar to %q domain %q: %w", tag, o.Domain, err)
		}
	}
	return nil
}

// BestMatchBySimilarity returns the concept most similar to the percept.
// Similarity sums confidence * exp(-distance) over the domains present in
// both; domains the concept lacks add nothing. ok is false when the space
// is empty.
func (s *Space) BestMatchBySimilarity(p Percept) (tag string, ok bool, err error) {
	return s.bestMatch(p, func(d *Domain, values []float64) (float64, error) {
		dist, err := metric.Euclidean(d.Prototype, values)
		if err != nil {
			return 0, err
		}
		return d.Confidence * math.Exp(-dist), nil
	}, metric.ArgMax[float64])
}

// BestMatchByDistance is the unweighted variant: it sums raw distances over
// shared domains and picks the smallest.
func (s *Space) BestMatchByDistance(p Percept) (tag string, ok bool, err error) {
	return s.bestMatch(p, func(d *Domain, values []float64) (float64, error) {
		return metric.Euclidean(d.Prototype, values)
	}, metric.ArgMin[float64])
}

// BestMatchTolerant sums spread-tolerant distances over shared domains and
// picks the smallest, so an observation inside a concept's spread band
// counts as a perfect fit.
func (s *Space) BestMatchTolerant(p Percept) (tag string, ok bool, err error) {
	return s.bestMatch(p, func(d *Domain, values []float64) (float64, error) {
		return metric.Tolerant(d.Prototype, d.Spread, values)
	}, metric.ArgMin[float64])
}

func (s *Space) bestMatch(p Percept, score func(*Domain, []float64) (float64, error), pick func([]float64) int) (string, bool, error) {
	if len(s.order) == 0 {
		return "", false, nil
	}
	scores := make([]float64, len(s.order))
	for i, tag := range s.order {
		c := s.concepts[tag]
		for _, o := range p {
			d, ok := c.domains[o.Domain]
			if !ok {
				continue
			}
			v, err := score(d, o.Values)
			if err != nil {
				return "", false, fmt.Errorf("match against %q domain %q: %w", tag, o.Domain, err)
			}
			scores[i] += v
		}
	}
	return s.order[pick(scores)], true, nil
}
