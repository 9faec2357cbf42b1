// Package lexicon holds an agent's word forms and their usage statistics.
package lexicon

import (
	"fmt"
	"strconv"
	"strings"
)

// Representation selects how words are spoken. It is fixed for a whole run.
type Representation uint8

const (
	RepresentationTag         Representation = iota // words travel as their tag
	RepresentationCoordinates                       // words travel as coordinates in a word-form space
)

// ParseRepresentation maps a configuration string to a Representation.
func ParseRepresentation(s string) (Representation, error) {
	switch strings.ToLower(s) {
	case "", "tag":
		return RepresentationTag, nil
	case "coordinates", "coords":
		return RepresentationCoordinates, nil
	}
	return 0, fmt.Errorf("unknown word representation %q", s)
}

func (r Representation) String() string {
	if r == RepresentationCoordinates {
		return "coordinates"
	}
	return "tag"
}

// Form is what one agent says to another: a tag under the tag
// representation, coordinates under the coordinate representation.
type Form struct {
	Tag    string `json:"tag,omitempty"`
	Coords []int  `json:"coords,omitempty"`
}

func (f Form) String() string {
	if f.Coords == nil {
		return f.Tag
	}
	parts := make([]string, len(f.Coords))
	for i, c := range f.Coords {
		parts[i] = strconv.Itoa(c)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Word is one entry of a lexicon.
type Word struct {
	Tag       string `json:"tag"`
	Coords    []int  `json:"coords,omitempty"`
	Uses      int    `json:"uses"`
	Successes int    `json:"successes"`
}

// SuccessRatio is Successes/Uses. A word that was never used has ratio 0.
func (w *Word) SuccessRatio() float64 {
	if w.Uses == 0 {
		return 0
	}
	return float64(w.Successes) / float64(w.Uses)
}

// IsSuccessful reports whether the word both works (ratio above threshold)
// and is in use (share of all cycles above minUseFraction). Unused words and
// runs with no cycles are never successful.
func IsSuccessful(w *Word, totalCycles int, threshold, minUseFraction float64) bool {
	if w.Uses == 0 || totalCycles <= 0 {
		return false
	}
	return w.SuccessRatio() > threshold &&
		float64(w.Uses)/float64(totalCycles) > minUseFraction
}

// Topology maps word-form coordinates to a word identity. Nearby
// coordinates may share a tag.
type Topology interface {
	Tag(coords []int) string
}

// GridTopology buckets every coordinate into cells of CellSize.
type GridTopology struct {
	CellSize int
}

// Tag returns "word" followed by the cell index of each coordinate.
func (g GridTopology) Tag(coords []int) string {
	size := g.CellSize
	if size < 1 {
		size = 1
	}
	var b strings.Builder
	b.WriteString("word")
	for _, c := range coords {
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(c / size))
	}
	return b.String()
}
