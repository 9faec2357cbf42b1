// Agent spawning: creates the population for one replica, every agent
// sharing the replica's word registry.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/concept-world/internal/lexicon"
	"github.com/talgya/concept-world/internal/naming"
)

// PerceiverFunc builds the perceiver for the i-th spawned agent. Returning
// nil gives an agent that perceives stimuli unchanged.
type PerceiverFunc func(i int, rng *rand.Rand) Perceiver

// SpawnConfig controls population generation.
type SpawnConfig struct {
	Seed      int64
	Agent     Config
	Lexicon   lexicon.Options
	Perceiver PerceiverFunc
}

// Spawner creates agents for one replica.
type Spawner struct {
	cfg      SpawnConfig
	rng      *rand.Rand
	registry *naming.Registry
	nextID   int
}

// NewSpawner creates a spawner whose agents mint words into registry.
func NewSpawner(cfg SpawnConfig, registry *naming.Registry) *Spawner {
	return &Spawner{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed + 300)),
		registry: registry,
	}
}

// SpawnPopulation creates count agents named agent<N>.
func (s *Spawner) SpawnPopulation(count int) []*Agent {
	pop := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		pop = append(pop, s.SpawnOne())
	}
	return pop
}

// SpawnOne creates the next agent. Each agent draws from its own rng seeded
// off the spawner's, so a population is reproducible from SpawnConfig.Seed.
func (s *Spawner) SpawnOne() *Agent {
	id := s.nextID
	s.nextID++

	rng := rand.New(rand.NewSource(s.rng.Int63()))
	var p Perceiver
	if s.cfg.Perceiver != nil {
		p = s.cfg.Perceiver(id, rng)
	}
	return New(fmt.Sprintf("agent%d", id), s.cfg.Agent, s.registry, rng, s.cfg.Lexicon, p)
}
