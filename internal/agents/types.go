// Package agents composes a conceptual space, a lexicon and the association
// matrix between them into one language-game agent.
//
// An agent is single threaded: its operations are invoked one after the
// other by the game loop. The only state it shares with other agents is the
// population's word registry, reached through its lexicon.
package agents

import (
	"fmt"
	"strings"

	"github.com/talgya/concept-world/internal/concepts"
)

// MatchMode selects how a percept is resolved to a concept.
type MatchMode uint8

const (
	MatchSimilarity MatchMode = iota // confidence-weighted exp(-distance), highest wins
	MatchDistance                    // raw distance, lowest wins
	MatchTolerant                    // spread-tolerant distance, lowest wins
)

// ParseMatchMode maps a configuration string to a MatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(s) {
	case "", "similarity":
		return MatchSimilarity, nil
	case "distance":
		return MatchDistance, nil
	case "tolerant":
		return MatchTolerant, nil
	}
	return 0, fmt.Errorf("unknown match mode %q", s)
}

func (m MatchMode) String() string {
	switch m {
	case MatchDistance:
		return "distance"
	case MatchTolerant:
		return "tolerant"
	default:
		return "similarity"
	}
}

// Config holds the per-agent learning parameters.
type Config struct {
	Match             MatchMode
	TagLength         int     // characters per concept tag
	LearningRate      float64 // association reinforcement step
	AdaptThreshold    float64 // discrimination success below which new concepts are formed
	LateralInhibition bool
}

// DefaultConfig returns the classic parameter set.
func DefaultConfig() Config {
	return Config{
		Match:             MatchSimilarity,
		TagLength:         6,
		LearningRate:      0.1,
		AdaptThreshold:    0.9,
		LateralInhibition: true,
	}
}

// Perceiver turns a raw stimulus into the agent's own feature vectors.
type Perceiver interface {
	Perceive(stimulus concepts.Percept) concepts.Percept
}

// Stats holds an agent's running game counters.
type Stats struct {
	DiscriminationGames     int `json:"discrimination_games"`
	DiscriminationSuccesses int `json:"discrimination_successes"`
	GuessingGames           int `json:"guessing_games"`
	GuessingSuccesses       int `json:"guessing_successes"`
}

// DiscriminationSuccess is the share of discrimination games won, 0 before
// the first game.
func (s Stats) DiscriminationSuccess() float64 {
	if s.DiscriminationGames == 0 {
		return 0
	}
	return float64(s.DiscriminationSuccesses) / float64(s.DiscriminationGames)
}

// GuessingSuccess is the share of guessing games won as hearer, 0 before
// the first game.
func (s Stats) GuessingSuccess() float64 {
	if s.GuessingGames == 0 {
		return 0
	}
	return float64(s.GuessingSuccesses) / float64(s.GuessingGames)
}

// Guess is a hearer's answer in a guessing game: the context index it
// points at and the concept that led it there.
type Guess struct {
	Index   int
	Concept string
}
