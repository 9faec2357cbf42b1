package naming

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
)

// Registry is the set of word forms spoken anywhere in one population.
// Every Lexicon of the population holds the same *Registry; minting is
// serialized by its lock so two agents never coin the same form.
type Registry struct {
	mu    sync.Mutex
	rng   *rand.Rand
	words map[string]struct{}
	order []string
}

// NewRegistry creates an empty registry drawing forms from the given seed.
func NewRegistry(seed int64) *Registry {
	return &Registry{
		rng:   rand.New(rand.NewSource(seed)),
		words: make(map[string]struct{}),
	}
}

// Mint draws a new consonant/vowel form of the given length, registers it
// and returns it.
func (r *Registry) Mint(length int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		form := wordForm(r.rng, length)
		if _, taken := r.words[form]; taken {
			continue
		}
		r.add(form)
		slog.Debug("word minted", "form", form, "attempts", attempt+1)
		return form, nil
	}
	return "", fmt.Errorf("mint word of length %d: %w", length, ErrTagSpaceExhausted)
}

// Register records an externally produced form. Returns false if it was
// already known.
func (r *Registry) Register(form string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.words[form]; taken {
		return false
	}
	r.add(form)
	return true
}

// Contains reports whether the form has been spoken in this population.
func (r *Registry) Contains(form string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.words[form]
	return ok
}

// Words returns all registered forms in registration order.
func (r *Registry) Words() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered forms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func (r *Registry) add(form string) {
	r.words[form] = struct{}{}
	r.order = append(r.order, form)
}
