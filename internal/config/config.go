// Package config handles langsim configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/concept-world/internal/agents"
	"github.com/talgya/concept-world/internal/concepts"
	"github.com/talgya/concept-world/internal/engine"
	"github.com/talgya/concept-world/internal/lexicon"
	"github.com/talgya/concept-world/internal/perception"
	"github.com/talgya/concept-world/internal/stimuli"
)

// Config is the root configuration structure.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Stimuli    StimuliConfig    `yaml:"stimuli"`
	Agent      AgentConfig      `yaml:"agent"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	Perception PerceptionConfig `yaml:"perception"`
	Base       BaseConfig       `yaml:"base"`
	Lessons    []LessonConfig   `yaml:"lessons"`
	Words      WordsConfig      `yaml:"words"`
	Storage    StorageConfig    `yaml:"storage"`
	API        APIConfig        `yaml:"api"`
}

// RunConfig holds the shape of a run.
type RunConfig struct {
	Mode                 string        `yaml:"mode"` // population, teacher or discrimination
	Agents               int           `yaml:"agents"`
	InteractionsPerAgent int           `yaml:"interactions_per_agent"`
	Cycles               int           `yaml:"cycles"` // 0 = derived from agents and interactions
	Replicas             int           `yaml:"replicas"`
	Seed                 int64         `yaml:"seed"` // 0 = fresh seed each run
	ReportEvery          int           `yaml:"report_every"`
	Interval             time.Duration `yaml:"interval"`
}

// StimuliConfig holds context generation settings.
type StimuliConfig struct {
	Kind          string  `yaml:"kind"` // rgb, wav or hri
	ContextSize   int     `yaml:"context_size"`
	MinSeparation float64 `yaml:"min_separation"`
}

// AgentConfig holds per-agent learning settings.
type AgentConfig struct {
	Match             string  `yaml:"match"` // similarity, distance or tolerant
	TagLength         int     `yaml:"tag_length"`
	LearningRate      float64 `yaml:"learning_rate"`
	AdaptThreshold    float64 `yaml:"adapt_threshold"`
	LateralInhibition bool    `yaml:"lateral_inhibition"`
}

// LexiconConfig holds word minting settings.
type LexiconConfig struct {
	Representation string `yaml:"representation"` // tag or coordinates
	WordLength     int    `yaml:"word_length"`
	CoordDims      int    `yaml:"coord_dims"`
	CoordMax       int    `yaml:"coord_max"`
	CellSize       int    `yaml:"cell_size"`
}

// PerceptionConfig holds sensor settings.
type PerceptionConfig struct {
	Cones           bool       `yaml:"cones"`
	Opponency       bool       `yaml:"opponency"`
	Proportions     string     `yaml:"proportions"` // fixed, random or random2
	Fixed           [3]float64 `yaml:"fixed"`
	JitterAmplitude float64    `yaml:"jitter_amplitude"`
	JitterFrequency float64    `yaml:"jitter_frequency"`
}

// BaseConfig holds the knowledge agents start with.
type BaseConfig struct {
	Kind     string              `yaml:"kind"` // none, dg or percepts
	Games    int                 `yaml:"games"`
	Percepts []ObservationConfig `yaml:"percepts"`
}

// ObservationConfig is one single-domain percept.
type ObservationConfig struct {
	Domain string    `yaml:"domain"`
	Values []float64 `yaml:"values"`
}

// LessonConfig is one word taught to the teacher agent.
type LessonConfig struct {
	Word   string    `yaml:"word"`
	Domain string    `yaml:"domain"`
	Values []float64 `yaml:"values"`
}

// WordsConfig holds the criteria for a successful word.
type WordsConfig struct {
	SuccessThreshold float64 `yaml:"success_threshold"`
	MinUseFraction   float64 `yaml:"min_use_fraction"`
}

// StorageConfig holds the results database settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// APIConfig holds the observer API settings.
type APIConfig struct {
	Port   int  `yaml:"port"`   // 0 disables the API
	Linger bool `yaml:"linger"` // keep serving after the run until interrupted
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Mode:                 "population",
			Agents:               10,
			InteractionsPerAgent: 5000,
			Replicas:             1,
			ReportEvery:          engine.DefaultReportEvery,
		},
		Stimuli: StimuliConfig{
			Kind:          "wav",
			ContextSize:   3,
			MinSeparation: 40,
		},
		Agent: AgentConfig{
			Match:             "similarity",
			TagLength:         6,
			LearningRate:      0.1,
			AdaptThreshold:    0.9,
			LateralInhibition: true,
		},
		Lexicon: LexiconConfig{
			Representation: "tag",
			WordLength:     6,
			CoordDims:      5,
			CoordMax:       10,
			CellSize:       1,
		},
		Perception: PerceptionConfig{
			Cones:           true,
			Proportions:     "fixed",
			Fixed:           [3]float64{1, 1, 1},
			JitterFrequency: 1,
		},
		Base: BaseConfig{
			Kind:  "dg",
			Games: 1000,
		},
		Words: WordsConfig{
			SuccessThreshold: 0.8,
			MinUseFraction:   0.01,
		},
		Storage: StorageConfig{
			DBPath: "data/langsim.db",
		},
		API: APIConfig{
			Port: 0,
		},
	}
}

// Load loads configuration from a file. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads config from path, or returns default if not found.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	return Load(path)
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Cycles is the number of games per replica. Unless set explicitly, every
// agent takes part in InteractionsPerAgent games on average, two per game.
func (c *Config) Cycles() int {
	if c.Run.Cycles > 0 {
		return c.Run.Cycles
	}
	return c.Run.Agents * c.Run.InteractionsPerAgent / 2
}

// Options converts the configuration into run options, rejecting unknown
// names and values no run could start with.
func (c *Config) Options() (engine.Options, error) {
	opts := engine.DefaultOptions()
	var err error

	if opts.Mode, err = engine.ParseMode(c.Run.Mode); err != nil {
		return opts, err
	}
	opts.Agents = c.Run.Agents
	opts.Cycles = c.Cycles()
	opts.Replicas = c.Run.Replicas
	opts.Seed = c.Run.Seed
	opts.ReportEvery = c.Run.ReportEvery
	opts.Interval = c.Run.Interval

	kind, err := stimuli.ParseKind(c.Stimuli.Kind)
	if err != nil {
		return opts, err
	}
	opts.Stimuli = stimuli.Config{Kind: kind, ContextSize: c.Stimuli.ContextSize, MinSeparation: c.Stimuli.MinSeparation}

	match, err := agents.ParseMatchMode(c.Agent.Match)
	if err != nil {
		return opts, err
	}
	opts.Agent = agents.Config{
		Match:             match,
		TagLength:         c.Agent.TagLength,
		LearningRate:      c.Agent.LearningRate,
		AdaptThreshold:    c.Agent.AdaptThreshold,
		LateralInhibition: c.Agent.LateralInhibition,
	}

	rep, err := lexicon.ParseRepresentation(c.Lexicon.Representation)
	if err != nil {
		return opts, err
	}
	opts.Lexicon = lexicon.Options{
		Representation: rep,
		Topology:       lexicon.GridTopology{CellSize: c.Lexicon.CellSize},
		WordLength:     c.Lexicon.WordLength,
		CoordDims:      c.Lexicon.CoordDims,
		CoordMax:       c.Lexicon.CoordMax,
	}

	props, err := perception.ParseProportionMode(c.Perception.Proportions)
	if err != nil {
		return opts, err
	}
	opts.Perception = engine.PerceptionOptions{
		Cones:           c.Perception.Cones,
		Opponency:       c.Perception.Opponency,
		Proportions:     props,
		Fixed:           perception.Proportions(c.Perception.Fixed),
		JitterAmplitude: c.Perception.JitterAmplitude,
		JitterFrequency: c.Perception.JitterFrequency,
	}

	if opts.Base, err = engine.ParseBase(c.Base.Kind); err != nil {
		return opts, err
	}
	opts.BaseGames = c.Base.Games
	opts.BasePercepts = nil
	for _, o := range c.Base.Percepts {
		opts.BasePercepts = append(opts.BasePercepts, concepts.Percept{{Domain: o.Domain, Values: o.Values}})
	}
	for _, l := range c.Lessons {
		opts.Lessons = append(opts.Lessons, engine.Lesson{
			Word:    l.Word,
			Percept: concepts.Percept{{Domain: l.Domain, Values: l.Values}},
		})
	}

	opts.SuccessThreshold = c.Words.SuccessThreshold
	opts.MinUseFraction = c.Words.MinUseFraction

	if err := c.Validate(); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

// Validate checks values the run options cannot catch.
func (c *Config) Validate() error {
	switch {
	case c.Agent.LearningRate <= 0 || c.Agent.LearningRate > 1:
		return fmt.Errorf("learning rate must be in (0, 1], got %v", c.Agent.LearningRate)
	case c.Agent.AdaptThreshold < 0 || c.Agent.AdaptThreshold > 1:
		return fmt.Errorf("adapt threshold must be in [0, 1], got %v", c.Agent.AdaptThreshold)
	case c.Stimuli.MinSeparation < 0:
		return fmt.Errorf("min separation must not be negative, got %v", c.Stimuli.MinSeparation)
	case c.Lexicon.WordLength <= 0:
		return fmt.Errorf("word length must be positive, got %d", c.Lexicon.WordLength)
	case c.Base.Kind == "dg" && c.Base.Games <= 0:
		return fmt.Errorf("base dg needs a positive number of games, got %d", c.Base.Games)
	}
	for _, l := range c.Lessons {
		if l.Word == "" || len(l.Values) == 0 {
			return fmt.Errorf("lesson %+v needs a word and values", l)
		}
	}
	return nil
}
