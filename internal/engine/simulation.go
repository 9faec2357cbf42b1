// Simulation ties one replica's agents, stimuli and statistics together and
// plays one game per cycle.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/concept-world/internal/agents"
	"github.com/talgya/concept-world/internal/lexicon"
	"github.com/talgya/concept-world/internal/naming"
	"github.com/talgya/concept-world/internal/stimuli"
)

// Series is the per-cycle record of a replica. In ModeDiscrimination the
// columns hold discrimination success and the number of concepts.
type Series struct {
	GuessingSuccess []float64 `json:"guessing_success"`
	SuccessfulWords []float64 `json:"successful_words"`
}

// Simulation is one replica: an independent population with its own word
// registry, stimulus source and random streams.
type Simulation struct {
	Replica  int
	Seed     int64
	Options  Options
	Registry *naming.Registry
	Agents   []*agents.Agent
	Series   Series
	Outcomes map[Outcome]int

	// Teacher and learner in ModeTeacher; nil otherwise.
	Teacher *agents.Agent
	Learner *agents.Agent

	Engine *Engine

	gen     *stimuli.Generator
	rng     *rand.Rand
	monitor *Monitor
}

// NewSimulation builds replica number replica. Agents are spawned and given
// their base knowledge; monitor may be nil.
func NewSimulation(opts Options, replica int, monitor *Monitor) (*Simulation, error) {
	seed := opts.Seed + int64(replica)*1000
	s := &Simulation{
		Replica:  replica,
		Seed:     seed,
		Options:  opts,
		Registry: naming.NewRegistry(seed + 100),
		Outcomes: make(map[Outcome]int),
		gen:      stimuli.NewGenerator(opts.Stimuli, seed),
		rng:      rand.New(rand.NewSource(seed + 700)),
		monitor:  monitor,
	}

	spawner := agents.NewSpawner(agents.SpawnConfig{
		Seed:      seed,
		Agent:     opts.Agent,
		Lexicon:   opts.Lexicon,
		Perceiver: opts.Perception.Perceiver(),
	}, s.Registry)

	switch opts.Mode {
	case ModeTeacher:
		s.Teacher = spawner.SpawnOne()
		s.Teacher.Name = "teacher"
		s.Teacher.Speaking = true
		for _, l := range opts.Lessons {
			if err := s.Teacher.LearnWord(lexicon.Form{Tag: l.Word}, s.Teacher.Perceive(l.Percept)); err != nil {
				return nil, fmt.Errorf("replica %d: teach %q: %w", replica, l.Word, err)
			}
		}
		s.Learner = spawner.SpawnOne()
		s.Learner.Name = "learner"
		s.Learner.Speaking = true
		if err := s.loadBase(s.Learner); err != nil {
			return nil, err
		}
		s.Learner.Pretrained = opts.Base != BaseNone
		s.Agents = []*agents.Agent{s.Teacher, s.Learner}

	case ModeDiscrimination:
		s.Agents = spawner.SpawnPopulation(1)

	default:
		s.Agents = spawner.SpawnPopulation(opts.Agents)
		for _, a := range s.Agents {
			if err := s.loadBase(a); err != nil {
				return nil, err
			}
			a.Speaking = true
			a.Pretrained = true
		}
	}

	s.Engine = NewEngine(opts.Cycles)
	s.Engine.ReportEvery = opts.ReportEvery
	s.Engine.Interval = opts.Interval
	s.Engine.OnCycle = s.playCycle
	s.Engine.OnReport = s.report
	if monitor != nil {
		// On the board before any replica can finish.
		monitor.Report(s.Progress())
	}
	return s, nil
}

// loadBase gives an agent its starting knowledge.
func (s *Simulation) loadBase(a *agents.Agent) error {
	switch s.Options.Base {
	case BaseDG:
		if err := Pretrain(a, s.gen, s.rng, s.Options.BaseGames); err != nil {
			return fmt.Errorf("replica %d: pretrain %s: %w", s.Replica, a.Name, err)
		}
	case BasePercepts:
		if err := a.LoadPercepts(s.Options.BasePercepts); err != nil {
			return fmt.Errorf("replica %d: load percepts into %s: %w", s.Replica, a.Name, err)
		}
	}
	return nil
}

// Pretrain plays n discrimination games so the agent starts with concepts.
func Pretrain(a *agents.Agent, gen *stimuli.Generator, rng *rand.Rand, n int) error {
	for i := 0; i < n; i++ {
		ctx, err := gen.Context()
		if err != nil {
			return err
		}
		if _, err := a.DiscriminationGame(a.PerceiveContext(ctx), rng.Intn(len(ctx))); err != nil {
			return err
		}
	}
	slog.Debug("agent pretrained", "agent", a.Name, "games", n,
		"concepts", a.Space().Len(), "success", a.Stats.DiscriminationSuccess())
	return nil
}

// Run plays the replica to the end or until ctx is cancelled.
func (s *Simulation) Run(ctx context.Context) error {
	if err := s.Engine.Run(ctx); err != nil {
		return fmt.Errorf("replica %d: %w", s.Replica, err)
	}
	return nil
}

func (s *Simulation) playCycle(cycle int) error {
	stims, err := s.gen.Context()
	if err != nil {
		return fmt.Errorf("cycle %d: %w", cycle, err)
	}
	topic := s.rng.Intn(len(stims))
	for _, a := range s.Agents {
		a.Cycle = cycle
	}

	switch s.Options.Mode {
	case ModeDiscrimination:
		a := s.Agents[0]
		if _, err := a.DiscriminationGame(a.PerceiveContext(stims), topic); err != nil {
			return fmt.Errorf("cycle %d: %w", cycle, err)
		}
		s.Series.GuessingSuccess = append(s.Series.GuessingSuccess, a.Stats.DiscriminationSuccess())
		s.Series.SuccessfulWords = append(s.Series.SuccessfulWords, float64(a.Space().Len()))
		return nil

	case ModeTeacher:
		out, err := GuessingGame(s.Teacher, s.Learner, stims, topic)
		if err != nil {
			return fmt.Errorf("cycle %d: %w", cycle, err)
		}
		s.Outcomes[out]++
		s.Series.GuessingSuccess = append(s.Series.GuessingSuccess, s.Learner.Stats.GuessingSuccess())
		s.Series.SuccessfulWords = append(s.Series.SuccessfulWords, s.successfulWords([]*agents.Agent{s.Learner}, cycle))
		return nil
	}

	i := s.rng.Intn(len(s.Agents))
	j := s.rng.Intn(len(s.Agents) - 1)
	if j >= i {
		j++
	}
	speaker, hearer := s.Agents[i], s.Agents[j]
	out, err := GuessingGame(speaker, hearer, stims, topic)
	if err != nil {
		return fmt.Errorf("cycle %d: %w", cycle, err)
	}
	s.Outcomes[out]++
	s.Series.GuessingSuccess = append(s.Series.GuessingSuccess, hearer.Stats.GuessingSuccess())
	s.Series.SuccessfulWords = append(s.Series.SuccessfulWords, s.successfulWords(s.Agents, cycle))
	return nil
}

// successfulWords is the mean number of successful words per agent after
// cycle has been played.
func (s *Simulation) successfulWords(pop []*agents.Agent, cycle int) float64 {
	total := 0
	for _, a := range pop {
		total += a.Lexicon().SuccessfulCount(cycle+1, s.Options.SuccessThreshold, s.Options.MinUseFraction)
	}
	return float64(total) / float64(len(pop))
}

// Progress returns the replica's state after its latest cycle.
func (s *Simulation) Progress() Progress {
	p := Progress{
		Replica: s.Replica,
		Cycle:   s.Engine.Cycle,
		Cycles:  s.Engine.Cycles,
		Words:   s.Registry.Len(),
	}
	if n := len(s.Series.GuessingSuccess); n > 0 {
		p.Success = s.Series.GuessingSuccess[n-1]
		p.SuccessfulWords = s.Series.SuccessfulWords[n-1]
	}
	return p
}

func (s *Simulation) report(cycle int) {
	p := s.Progress()
	if s.monitor != nil {
		s.monitor.Report(p)
	}
	slog.Info("replica progress",
		"replica", s.Replica,
		"cycle", cycle,
		"success", fmt.Sprintf("%.3f", p.Success),
		"successful_words", fmt.Sprintf("%.2f", p.SuccessfulWords),
		"words_in_world", p.Words,
	)
}

// Snapshots captures every agent of the replica.
func (s *Simulation) Snapshots() []agents.Snapshot {
	crit := agents.SuccessCriteria{
		TotalCycles:    s.Engine.Cycle,
		Threshold:      s.Options.SuccessThreshold,
		MinUseFraction: s.Options.MinUseFraction,
	}
	out := make([]agents.Snapshot, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = a.Snapshot(crit)
	}
	return out
}
