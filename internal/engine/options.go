package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/talgya/concept-world/internal/agents"
	"github.com/talgya/concept-world/internal/concepts"
	"github.com/talgya/concept-world/internal/lexicon"
	"github.com/talgya/concept-world/internal/perception"
	"github.com/talgya/concept-world/internal/stimuli"
)

// Mode selects which simulation a run plays.
type Mode uint8

const (
	ModePopulation     Mode = iota // random speaker/hearer pairs from a population
	ModeTeacher                    // a taught agent talks to a learner
	ModeDiscrimination             // one agent plays discrimination games alone
)

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "population":
		return ModePopulation, nil
	case "teacher":
		return ModeTeacher, nil
	case "discrimination", "dg":
		return ModeDiscrimination, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case ModeTeacher:
		return "teacher"
	case ModeDiscrimination:
		return "discrimination"
	default:
		return "population"
	}
}

// Base is the knowledge agents start a run with.
type Base uint8

const (
	BaseNone     Base = iota // empty conceptual space
	BaseDG                   // pretrained by discrimination games
	BasePercepts             // seeded with fixed prototypes
)

// ParseBase maps a configuration string to a Base.
func ParseBase(s string) (Base, error) {
	switch s {
	case "", "none", "cs":
		return BaseNone, nil
	case "dg":
		return BaseDG, nil
	case "percepts", "kmeans":
		return BasePercepts, nil
	}
	return 0, fmt.Errorf("unknown base %q", s)
}

func (b Base) String() string {
	switch b {
	case BaseDG:
		return "dg"
	case BasePercepts:
		return "percepts"
	default:
		return "none"
	}
}

// Lesson is one word taught to the teacher agent.
type Lesson struct {
	Word    string
	Percept concepts.Percept
}

// PerceptionOptions configures how agents perceive stimuli.
type PerceptionOptions struct {
	Cones       bool
	Opponency   bool
	Proportions perception.ProportionMode
	Fixed       perception.Proportions

	JitterAmplitude float64
	JitterFrequency float64
}

// Perceiver returns the spawner hook building each agent's perceiver.
func (p PerceptionOptions) Perceiver() agents.PerceiverFunc {
	return func(i int, rng *rand.Rand) agents.Perceiver {
		var base perception.Perceiver = perception.Identity{}
		if p.Cones {
			base = perception.Cones{
				Proportions: perception.DrawProportions(p.Proportions, p.Fixed, rng),
				Opponency:   p.Opponency,
			}
		}
		if p.JitterAmplitude > 0 {
			return perception.NewJitter(base, rng.Int63(), p.JitterAmplitude, p.JitterFrequency)
		}
		return base
	}
}

// Options is everything a run needs.
type Options struct {
	Mode     Mode
	Agents   int
	Cycles   int
	Replicas int
	Seed     int64

	Stimuli    stimuli.Config
	Agent      agents.Config
	Lexicon    lexicon.Options
	Perception PerceptionOptions

	Base         Base
	BaseGames    int                // discrimination games played by BaseDG
	BasePercepts []concepts.Percept // prototypes loaded by BasePercepts
	Lessons      []Lesson           // taught to the teacher in ModeTeacher

	SuccessThreshold float64 // word success ratio above which a word counts
	MinUseFraction   float64 // share of cycles a word must be used in to count

	ReportEvery int
	Interval    time.Duration
}

// DefaultOptions returns the classic parameter set: ten agents playing
// 5000 games each on wavelength contexts of three stimuli.
func DefaultOptions() Options {
	return Options{
		Mode:     ModePopulation,
		Agents:   10,
		Cycles:   10 * 5000 / 2,
		Replicas: 1,
		Stimuli: stimuli.Config{
			Kind:          stimuli.KindWavelength,
			ContextSize:   3,
			MinSeparation: 40,
		},
		Agent:   agents.DefaultConfig(),
		Lexicon: lexicon.DefaultOptions(),
		Perception: PerceptionOptions{
			Proportions: perception.ProportionsFixed,
			Fixed:       perception.Proportions{1, 1, 1},
		},
		Base:             BaseDG,
		BaseGames:        1000,
		SuccessThreshold: 0.8,
		MinUseFraction:   0.01,
		ReportEvery:      DefaultReportEvery,
	}
}

// Validate checks the options for a run that cannot start.
func (o Options) Validate() error {
	switch {
	case o.Cycles <= 0:
		return fmt.Errorf("cycles must be positive, got %d", o.Cycles)
	case o.Replicas <= 0:
		return fmt.Errorf("replicas must be positive, got %d", o.Replicas)
	case o.Stimuli.ContextSize <= 0:
		return fmt.Errorf("context size must be positive, got %d", o.Stimuli.ContextSize)
	case o.Mode == ModePopulation && o.Agents < 2:
		return fmt.Errorf("a population needs at least 2 agents, got %d", o.Agents)
	case o.Mode == ModeTeacher && len(o.Lessons) == 0:
		return fmt.Errorf("teacher mode needs at least one lesson")
	case o.Base == BasePercepts && len(o.BasePercepts) == 0:
		return fmt.Errorf("base %q needs percepts", o.Base)
	}
	return nil
}
