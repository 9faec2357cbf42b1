package agents

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/talgya/concept-world/internal/assoc"
	"github.com/talgya/concept-world/internal/concepts"
	"github.com/talgya/concept-world/internal/lexicon"
	"github.com/talgya/concept-world/internal/metric"
	"github.com/talgya/concept-world/internal/naming"
)

// Agent owns one conceptual space, one lexicon and the matrix linking them.
type Agent struct {
	Name string

	// Speaking turns on word production. Until then NameObject answers with raw
	// concept tags.
	Speaking bool

	// Pretrained agents already discriminate well enough that the guessing
	// game re-links words to their closest concept instead of playing a
	// discrimination game first.
	Pretrained bool

	Stats Stats

	// Cycle is the game cycle the agent is currently playing, set by the
	// game loop. It only stamps memories.
	Cycle    int
	Memories []Memory

	cfg       Config
	perceiver Perceiver
	rng       *rand.Rand

	space *concepts.Space
	lex   *lexicon.Lexicon
	links *assoc.Matrix
}

// New creates an agent with empty knowledge. registry is the population's
// shared word registry; perceiver may be nil for agents that perceive
// stimuli unchanged.
func New(name string, cfg Config, registry *naming.Registry, rng *rand.Rand, lexOpts lexicon.Options, perceiver Perceiver) *Agent {
	if cfg.TagLength <= 0 {
		cfg.TagLength = 6
	}
	return &Agent{
		Name:      name,
		cfg:       cfg,
		perceiver: perceiver,
		rng:       rng,
		space:     concepts.NewSpace(),
		lex:       lexicon.New(registry, rng, lexOpts),
		links:     assoc.New("cs_lex", cfg.LateralInhibition),
	}
}

// Space returns the agent's conceptual space.
func (a *Agent) Space() *concepts.Space { return a.space }

// Lexicon returns the agent's lexicon.
func (a *Agent) Lexicon() *lexicon.Lexicon { return a.lex }

// Links returns the concept/word association matrix.
func (a *Agent) Links() *assoc.Matrix { return a.links }

// Config returns the agent's learning parameters.
func (a *Agent) Config() Config { return a.cfg }

// Perceive converts a raw stimulus into the agent's feature vectors.
func (a *Agent) Perceive(stimulus concepts.Percept) concepts.Percept {
	if a.perceiver == nil {
		return stimulus.Clone()
	}
	return a.perceiver.Perceive(stimulus)
}

// PerceiveContext perceives every stimulus of a context, keeping order.
func (a *Agent) PerceiveContext(context []concepts.Percept) []concepts.Percept {
	out := make([]concepts.Percept, len(context))
	for i, s := range context {
		out[i] = a.Perceive(s)
	}
	return out
}

// Recognize returns the concept that best matches the percept under the
// agent's match mode. ok is false when the agent knows no concepts.
func (a *Agent) Recognize(p concepts.Percept) (tag string, ok bool, err error) {
	switch a.cfg.Match {
	case MatchDistance:
		return a.space.BestMatchByDistance(p)
	case MatchTolerant:
		return a.space.BestMatchTolerant(p)
	default:
		return a.space.BestMatchBySimilarity(p)
	}
}

// LoadPercepts seeds the conceptual space with one concept per percept,
// e.g. cluster centroids computed elsewhere.
func (a *Agent) LoadPercepts(percepts []concepts.Percept) error {
	for _, p := range percepts {
		if _, err := a.createConcept(p); err != nil {
			return err
		}
	}
	return nil
}

// LearnWord is direct instruction. A known word moves its best-linked
// concept towards the percept; an unknown word gets a new concept and a link.
func (a *Agent) LearnWord(form lexicon.Form, p concepts.Percept) error {
	tag := a.lex.Resolve(form)
	if _, known := a.lex.Lookup(tag); known {
		if concept, ok := a.links.BestConceptForWord(tag); ok {
			if err := a.space.AddExemplar(concept, p); err != nil {
				return fmt.Errorf("learn word %q: %w", tag, err)
			}
			return nil
		}
	} else {
		a.lex.Adopt(form)
		AddMemory(a, "was taught the word "+tag, importanceAdopt)
	}

	concept, err := a.createConcept(p)
	if err != nil {
		return fmt.Errorf("learn word %q: %w", tag, err)
	}
	a.links.AddLink(concept, tag)
	slog.Debug("word learned", "agent", a.Name, "word", tag, "concept", concept)
	return nil
}

// NameObject returns what the agent calls the percept. Before word production is
// active that is the tag of the best-matching concept; afterwards it is the
// concept's strongest word, minted on demand. An agent without concepts
// first forms one from the percept.
func (a *Agent) NameObject(p concepts.Percept) (lexicon.Form, error) {
	concept, ok, err := a.Recognize(p)
	if err != nil {
		return lexicon.Form{}, fmt.Errorf("name: %w", err)
	}
	if !ok {
		if concept, err = a.createConcept(p); err != nil {
			return lexicon.Form{}, fmt.Errorf("name: %w", err)
		}
	}
	if !a.Speaking {
		return lexicon.Form{Tag: concept}, nil
	}
	return a.WordFor(concept)
}

// WordFor returns the spoken form of the concept's strongest word, minting
// and linking a new word when the concept has none.
func (a *Agent) WordFor(concept string) (lexicon.Form, error) {
	if tag, ok := a.links.BestWordForConcept(concept); ok {
		if w, ok := a.lex.Lookup(tag); ok {
			return a.lex.FormOf(w), nil
		}
	}
	w, err := a.lex.CreateNewWord()
	if err != nil {
		return lexicon.Form{}, fmt.Errorf("word for %q: %w", concept, err)
	}
	a.links.AddLink(concept, w.Tag)
	AddMemory(a, "coined "+w.Tag+" for "+concept, importanceCoin)
	slog.Debug("word coined", "agent", a.Name, "word", w.Tag, "concept", concept)
	return a.lex.FormOf(w), nil
}

// AdoptWord takes a heard word into the lexicon, if needed, and links it to
// concept at the initial weight. Returns the word's tag.
func (a *Agent) AdoptWord(form lexicon.Form, concept string) string {
	tag := a.lex.Resolve(form)
	if _, known := a.lex.Lookup(tag); !known {
		a.lex.Adopt(form)
		AddMemory(a, "picked up "+tag, importanceAdopt)
	}
	a.links.AddLink(concept, tag)
	return tag
}

// ConceptFor resolves a heard form to the concept it is most strongly
// linked to. ok is false if the word is unknown or unlinked.
func (a *Agent) ConceptFor(form lexicon.Form) (string, bool) {
	tag := a.lex.Resolve(form)
	if _, known := a.lex.Lookup(tag); !known {
		return "", false
	}
	return a.links.BestConceptForWord(tag)
}

// AnswerGuessingGame points at the stimulus of the context that lies
// closest to the concept the word names. ok is false when the word does
// not resolve to a concept. The context must already be perceived.
func (a *Agent) AnswerGuessingGame(form lexicon.Form, context []concepts.Percept) (Guess, bool, error) {
	concept, ok := a.ConceptFor(form)
	if !ok {
		return Guess{}, false, nil
	}
	c, ok := a.space.Concept(concept)
	if !ok {
		return Guess{}, false, nil
	}

	distances := make([]float64, len(context))
	for i, stimulus := range context {
		shared := false
		for _, o := range stimulus {
			d, ok := c.Domain(o.Domain)
			if !ok {
				continue
			}
			dist, err := metric.Euclidean(o.Values, d.Prototype)
			if err != nil {
				return Guess{}, false, fmt.Errorf("answer guessing game, stimulus %d: %w", i, err)
			}
			distances[i] += dist
			shared = true
		}
		if !shared {
			distances[i] = math.Inf(1)
		}
	}
	idx := metric.ArgMin(distances)
	if idx < 0 {
		return Guess{}, false, nil
	}
	return Guess{Index: idx, Concept: concept}, true, nil
}

// ApplyFeedback reinforces (success) or weakens (failure) the link between
// the word and the concept by rate, and updates the word's counters.
func (a *Agent) ApplyFeedback(success bool, form lexicon.Form, concept string, rate float64) error {
	tag := a.lex.Resolve(form)
	var err error
	if success {
		err = a.links.IncreaseStrength(tag, concept, rate)
	} else {
		err = a.links.DecreaseStrength(tag, concept, rate)
	}
	if err != nil {
		return fmt.Errorf("feedback for %s: %w", a.Name, err)
	}
	if err := a.lex.RecordUse(tag); err != nil {
		return fmt.Errorf("feedback for %s: %w", a.Name, err)
	}
	if success {
		if err := a.lex.RecordSuccess(tag); err != nil {
			return fmt.Errorf("feedback for %s: %w", a.Name, err)
		}
	}
	return nil
}

// DiscriminationGame tries to single out the topic of a perceived context
// with the agent's own concepts. The game succeeds when the topic's best
// match is unique in the context. On failure the agent forms a new concept
// while its success rate is below the adapt threshold, and otherwise shifts
// the topic's best match towards the topic. Returns the concept used.
func (a *Agent) DiscriminationGame(context []concepts.Percept, topic int) (string, error) {
	if topic < 0 || topic >= len(context) {
		return "", fmt.Errorf("discrimination game: topic %d outside context of %d", topic, len(context))
	}
	if a.space.Len() == 0 {
		return a.createConcept(context[topic])
	}

	matches := make([]string, len(context))
	for i, stimulus := range context {
		tag, _, err := a.Recognize(stimulus)
		if err != nil {
			return "", fmt.Errorf("discrimination game: %w", err)
		}
		matches[i] = tag
	}

	unique := true
	for i, tag := range matches {
		if i != topic && tag == matches[topic] {
			unique = false
			break
		}
	}

	rate := a.Stats.DiscriminationSuccess()
	a.Stats.DiscriminationGames++
	var answer string
	switch {
	case unique:
		a.Stats.DiscriminationSuccesses++
		answer = matches[topic]
	case rate < a.cfg.AdaptThreshold:
		tag, err := a.createConcept(context[topic])
		if err != nil {
			return "", fmt.Errorf("discrimination game: %w", err)
		}
		answer = tag
	default:
		answer = matches[topic]
		if err := a.space.AddExemplar(answer, context[topic]); err != nil {
			return "", fmt.Errorf("discrimination game: %w", err)
		}
	}
	return answer, nil
}

// createConcept forms a concept under a fresh tag unique in this space.
func (a *Agent) createConcept(p concepts.Percept) (string, error) {
	tag, err := naming.RandomTag(a.rng, a.cfg.TagLength, a.space.Has)
	if err != nil {
		return "", err
	}
	if err := a.space.CreateConcept(tag, p); err != nil {
		return "", err
	}
	AddMemory(a, "formed concept "+tag, importanceConcept)
	return tag, nil
}
