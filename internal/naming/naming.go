// Package naming generates concept tags and pronounceable word forms.
// Word forms are unique across a population, tracked by a shared Registry.
package naming

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// MaxAttempts bounds every retry-until-unique loop.
const MaxAttempts = 10000

// ErrTagSpaceExhausted is returned when no unused tag was found within
// MaxAttempts draws. Treat it as a fatal capacity error.
var ErrTagSpaceExhausted = errors.New("tag space exhausted")

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyz1234567890"
	consonants   = "BCDFGHJKLMNPQRSTVW"
	vowels       = "AEIOU"
)

// RandomTag draws an alphanumeric tag of the given length that is not in used.
func RandomTag(rng *rand.Rand, length int, used func(string) bool) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		var b strings.Builder
		b.Grow(length)
		for i := 0; i < length; i++ {
			b.WriteByte(alphanumeric[rng.Intn(len(alphanumeric))])
		}
		tag := b.String()
		if used == nil || !used(tag) {
			return tag, nil
		}
	}
	return "", fmt.Errorf("random tag of length %d: %w", length, ErrTagSpaceExhausted)
}

// wordForm builds one consonant/vowel alternating form, consonant first.
func wordForm(rng *rand.Rand, length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		if i%2 == 0 {
			b.WriteByte(consonants[rng.Intn(len(consonants))])
		} else {
			b.WriteByte(vowels[rng.Intn(len(vowels))])
		}
	}
	return b.String()
}

// RandomCoords draws n integer coordinates in [0, max].
func RandomCoords(rng *rand.Rand, n, max int) []int {
	coords := make([]int, n)
	for i := range coords {
		coords[i] = rng.Intn(max + 1)
	}
	return coords
}
