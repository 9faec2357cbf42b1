package naming

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
)

func TestRandomTag_AvoidsUsed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	used := map[string]bool{}
	for i := 0; i < 200; i++ {
		tag, err := RandomTag(rng, 6, func(s string) bool { return used[s] })
		if err != nil {
			t.Fatal(err)
		}
		if len(tag) != 6 {
			t.Fatalf("expected length 6, got %q", tag)
		}
		if used[tag] {
			t.Fatalf("duplicate tag %q", tag)
		}
		for _, c := range tag {
			if !strings.ContainsRune(alphanumeric, c) {
				t.Fatalf("tag %q has character outside the alphabet", tag)
			}
		}
		used[tag] = true
	}
}

func TestRandomTag_Exhausted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := RandomTag(rng, 1, func(string) bool { return true })
	if !errors.Is(err, ErrTagSpaceExhausted) {
		t.Fatalf("expected ErrTagSpaceExhausted, got %v", err)
	}
}

func TestRegistry_MintDistinctAndRegistered(t *testing.T) {
	reg := NewRegistry(7)
	a, err := reg.Mint(6)
	if err != nil {
		t.Fatal(err)
	}
	b, err := reg.Mint(6)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("expected distinct forms, got %q twice", a)
	}
	if !reg.Contains(a) || !reg.Contains(b) {
		t.Error("minted forms should be in the registry")
	}
	if reg.Len() != 2 {
		t.Errorf("expected 2 words, got %d", reg.Len())
	}
}

func TestRegistry_FormAlternatesConsonantVowel(t *testing.T) {
	reg := NewRegistry(3)
	form, err := reg.Mint(6)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range form {
		set := consonants
		if i%2 == 1 {
			set = vowels
		}
		if !strings.ContainsRune(set, c) {
			t.Errorf("position %d of %q: %q not in %q", i, form, c, set)
		}
	}
}

func TestRegistry_MintExhausted(t *testing.T) {
	reg := NewRegistry(1)
	// Length 1 has only len(consonants) forms.
	for i := 0; i < len(consonants); i++ {
		reg.Register(string(consonants[i]))
	}
	if _, err := reg.Mint(1); !errors.Is(err, ErrTagSpaceExhausted) {
		t.Fatalf("expected ErrTagSpaceExhausted, got %v", err)
	}
}

func TestRegistry_ConcurrentMint(t *testing.T) {
	reg := NewRegistry(11)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := reg.Mint(6); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, w := range reg.Words() {
		if seen[w] {
			t.Fatalf("duplicate form %q", w)
		}
		seen[w] = true
	}
	if len(seen) != 400 {
		t.Errorf("expected 400 forms, got %d", len(seen))
	}
}
