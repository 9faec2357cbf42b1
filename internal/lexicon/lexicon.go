package lexicon

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/talgya/concept-world/internal/naming"
)

// ErrWordNotFound is returned when a counter is updated for a word the
// lexicon does not hold.
var ErrWordNotFound = errors.New("word not found")

// Options configures how a lexicon mints words.
type Options struct {
	Representation Representation
	Topology       Topology // used under RepresentationCoordinates
	WordLength     int      // letters per minted tag
	CoordDims      int      // coordinates per minted word
	CoordMax       int      // coordinates are drawn from [0, CoordMax]
}

// DefaultOptions mirrors the classic setup: six-letter tags, or five
// coordinates in [0,10] bucketed one-to-one.
func DefaultOptions() Options {
	return Options{
		Representation: RepresentationTag,
		Topology:       GridTopology{CellSize: 1},
		WordLength:     6,
		CoordDims:      5,
		CoordMax:       10,
	}
}

// Lexicon is an ordered collection of words owned by one agent. It shares
// the population's Registry with every other lexicon of the run.
type Lexicon struct {
	opts     Options
	registry *naming.Registry
	rng      *rand.Rand

	words []*Word
	index map[string]*Word
}

// New creates an empty lexicon.
func New(registry *naming.Registry, rng *rand.Rand, opts Options) *Lexicon {
	if opts.Topology == nil {
		opts.Topology = GridTopology{CellSize: 1}
	}
	if opts.WordLength <= 0 {
		opts.WordLength = 6
	}
	return &Lexicon{
		opts:     opts,
		registry: registry,
		rng:      rng,
		index:    make(map[string]*Word),
	}
}

// Representation returns the run-wide word representation.
func (l *Lexicon) Representation() Representation {
	return l.opts.Representation
}

// Len returns the number of words.
func (l *Lexicon) Len() int {
	return len(l.words)
}

// Words returns the words in the order they entered the lexicon.
func (l *Lexicon) Words() []*Word {
	return append([]*Word(nil), l.words...)
}

// Lookup fetches a word by tag.
func (l *Lexicon) Lookup(tag string) (*Word, bool) {
	w, ok := l.index[tag]
	return w, ok
}

// Resolve returns the tag a spoken form refers to.
func (l *Lexicon) Resolve(f Form) string {
	if l.opts.Representation == RepresentationCoordinates && f.Coords != nil {
		return l.opts.Topology.Tag(f.Coords)
	}
	return f.Tag
}

// FormOf returns how the word is spoken under this lexicon's representation.
func (l *Lexicon) FormOf(w *Word) Form {
	if l.opts.Representation == RepresentationCoordinates && w.Coords != nil {
		return Form{Coords: append([]int(nil), w.Coords...)}
	}
	return Form{Tag: w.Tag}
}

// CreateNewWord mints a form no agent in the population has coined yet,
// registers it and adds it to the lexicon.
func (l *Lexicon) CreateNewWord() (*Word, error) {
	if l.opts.Representation == RepresentationTag {
		tag, err := l.registry.Mint(l.opts.WordLength)
		if err != nil {
			return nil, fmt.Errorf("create word: %w", err)
		}
		return l.add(&Word{Tag: tag}), nil
	}

	for attempt := 0; attempt < naming.MaxAttempts; attempt++ {
		coords := naming.RandomCoords(l.rng, l.opts.CoordDims, l.opts.CoordMax)
		tag := l.opts.Topology.Tag(coords)
		if _, local := l.index[tag]; local {
			continue
		}
		if !l.registry.Register(tag) {
			continue
		}
		return l.add(&Word{Tag: tag, Coords: coords}), nil
	}
	return nil, fmt.Errorf("create word in %d dims: %w", l.opts.CoordDims, naming.ErrTagSpaceExhausted)
}

// Adopt adds a form heard from another agent or taught directly. An
// already known form returns the existing word. The form is recorded in the
// registry so it is never minted again.
func (l *Lexicon) Adopt(f Form) *Word {
	tag := l.Resolve(f)
	if w, ok := l.index[tag]; ok {
		return w
	}
	l.registry.Register(tag)
	w := &Word{Tag: tag}
	if f.Coords != nil {
		w.Coords = append([]int(nil), f.Coords...)
	}
	return l.add(w)
}

// RecordUse increments the word's use counter.
func (l *Lexicon) RecordUse(tag string) error {
	w, ok := l.index[tag]
	if !ok {
		return fmt.Errorf("record use of %q: %w", tag, ErrWordNotFound)
	}
	w.Uses++
	return nil
}

// RecordSuccess increments the word's success counter.
func (l *Lexicon) RecordSuccess(tag string) error {
	w, ok := l.index[tag]
	if !ok {
		return fmt.Errorf("record success of %q: %w", tag, ErrWordNotFound)
	}
	w.Successes++
	return nil
}

// SuccessRatio returns the ratio for the tagged word; ok is false if the
// lexicon does not hold it.
func (l *Lexicon) SuccessRatio(tag string) (ratio float64, ok bool) {
	w, ok := l.index[tag]
	if !ok {
		return 0, false
	}
	return w.SuccessRatio(), true
}

// SuccessfulCount counts the words that pass IsSuccessful.
func (l *Lexicon) SuccessfulCount(totalCycles int, threshold, minUseFraction float64) int {
	n := 0
	for _, w := range l.words {
		if IsSuccessful(w, totalCycles, threshold, minUseFraction) {
			n++
		}
	}
	return n
}

func (l *Lexicon) add(w *Word) *Word {
	l.words = append(l.words, w)
	l.index[w.Tag] = w
	return w
}
