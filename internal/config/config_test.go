package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/concept-world/internal/engine"
	"github.com/talgya/concept-world/internal/perception"
	"github.com/talgya/concept-world/internal/stimuli"
)

// -----------------------------------------------------------------------------
// Defaults
// -----------------------------------------------------------------------------

func TestDefault_Options(t *testing.T) {
	cfg := Default()
	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
	if opts.Cycles != 25000 {
		t.Errorf("cycles = %d, want 25000", opts.Cycles)
	}
	if opts.Mode != engine.ModePopulation || opts.Base != engine.BaseDG || opts.BaseGames != 1000 {
		t.Errorf("mode/base = %v/%v/%d", opts.Mode, opts.Base, opts.BaseGames)
	}
	if opts.Stimuli.Kind != stimuli.KindWavelength || opts.Stimuli.MinSeparation != 40 {
		t.Errorf("stimuli = %+v", opts.Stimuli)
	}
	if !opts.Perception.Cones || opts.Perception.Fixed != (perception.Proportions{1, 1, 1}) {
		t.Errorf("perception = %+v", opts.Perception)
	}
	if opts.Agent.LearningRate != 0.1 || opts.Agent.AdaptThreshold != 0.9 || !opts.Agent.LateralInhibition {
		t.Errorf("agent = %+v", opts.Agent)
	}
}

func TestCycles_Explicit(t *testing.T) {
	cfg := Default()
	cfg.Run.Cycles = 42
	if cfg.Cycles() != 42 {
		t.Errorf("cycles = %d, want 42", cfg.Cycles())
	}
}

// -----------------------------------------------------------------------------
// Load
// -----------------------------------------------------------------------------

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langsim.yaml")
	data := `run:
  mode: teacher
  replicas: 4
  interval: 5ms
stimuli:
  kind: rgb
  min_separation: 0.3
lessons:
  - word: ROTO
    domain: rgb
    values: [1, 0, 0]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Run.Replicas != 4 || cfg.Run.Agents != 10 {
		t.Errorf("run = %+v", cfg.Run)
	}
	if cfg.Run.Interval != 5*time.Millisecond {
		t.Errorf("interval = %v", cfg.Run.Interval)
	}
	if cfg.Stimuli.ContextSize != 3 {
		t.Errorf("context size = %d, want default 3", cfg.Stimuli.ContextSize)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Mode != engine.ModeTeacher || len(opts.Lessons) != 1 || opts.Lessons[0].Word != "ROTO" {
		t.Errorf("teacher options = %v, %+v", opts.Mode, opts.Lessons)
	}
	if opts.Stimuli.Kind != stimuli.KindRGB {
		t.Errorf("kind = %v", opts.Stimuli.Kind)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("/nonexistent/langsim.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("run:\n  agents: [oops\n"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil || cfg.Run.Agents != 10 {
		t.Errorf("empty path: %+v, %v", cfg, err)
	}
	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil || cfg.Run.Agents != 10 {
		t.Errorf("missing file: %+v, %v", cfg, err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "langsim.yaml")
	cfg := Default()
	cfg.Run.Seed = 99
	cfg.Perception.Proportions = "random2"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Run.Seed != 99 || back.Perception.Proportions != "random2" || back.Perception.Fixed != cfg.Perception.Fixed {
		t.Errorf("round trip lost values: %+v", back)
	}
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

func TestOptions_Rejects(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"mode", func(c *Config) { c.Run.Mode = "chaos" }},
		{"kind", func(c *Config) { c.Stimuli.Kind = "smell" }},
		{"match", func(c *Config) { c.Agent.Match = "vibes" }},
		{"representation", func(c *Config) { c.Lexicon.Representation = "glyphs" }},
		{"proportions", func(c *Config) { c.Perception.Proportions = "random3" }},
		{"base", func(c *Config) { c.Base.Kind = "som" }},
		{"learning rate", func(c *Config) { c.Agent.LearningRate = 0 }},
		{"adapt threshold", func(c *Config) { c.Agent.AdaptThreshold = 1.5 }},
		{"separation", func(c *Config) { c.Stimuli.MinSeparation = -1 }},
		{"dg games", func(c *Config) { c.Base.Games = 0 }},
		{"replicas", func(c *Config) { c.Run.Replicas = 0 }},
		{"teacher without lessons", func(c *Config) { c.Run.Mode = "teacher" }},
		{"empty lesson", func(c *Config) { c.Lessons = []LessonConfig{{Word: "X"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			if _, err := cfg.Options(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
