package perception

import (
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/concept-world/internal/concepts"
)

func wav(w float64) concepts.Percept {
	return concepts.Percept{{Domain: "wav", Values: []float64{w}}}
}

func TestCone_PeakResponse(t *testing.T) {
	for name, c := range map[string]Cone{"S": ConeS, "M": ConeM, "L": ConeL} {
		if got := c.Response(c.B); math.Abs(got-c.A) > 1e-12 {
			t.Errorf("%s cone at peak = %v, want %v", name, got, c.A)
		}
		if c.Response(c.B+50) >= c.Response(c.B) {
			t.Errorf("%s cone does not fall off away from its peak", name)
		}
	}
}

func TestCones_Response(t *testing.T) {
	c := Cones{Proportions: Proportions{1, 1, 1}}
	p := c.Perceive(wav(447.2))
	if len(p) != 1 || p[0].Domain != DomainCone || len(p[0].Values) != 3 {
		t.Fatalf("percept = %+v", p)
	}
	s, m, l := p[0].Values[0], p[0].Values[1], p[0].Values[2]
	if !(s > m && s > l) {
		t.Errorf("at the S peak got s=%v m=%v l=%v", s, m, l)
	}

	half := Cones{Proportions: Proportions{0.5, 1, 1}}.Perceive(wav(447.2))
	if math.Abs(half[0].Values[0]-s/2) > 1e-12 {
		t.Errorf("S response not scaled by its proportion: %v vs %v", half[0].Values[0], s)
	}
}

func TestCones_Opponency(t *testing.T) {
	c := Cones{Proportions: Proportions{1, 1, 1}, Opponency: true}
	p := c.Perceive(wav(620))
	if p[0].Domain != DomainOpponency || len(p[0].Values) != 2 {
		t.Fatalf("percept = %+v", p)
	}
	l, m, s := ConeL.Response(620), ConeM.Response(620), ConeS.Response(620)
	if math.Abs(p[0].Values[0]-(l-m)) > 1e-12 {
		t.Errorf("red-green = %v, want %v", p[0].Values[0], l-m)
	}
	if math.Abs(p[0].Values[1]-(s-(0.5*l+0.5*m))) > 1e-12 {
		t.Errorf("blue-yellow = %v", p[0].Values[1])
	}
}

func TestCones_OtherDomainsUntouched(t *testing.T) {
	in := concepts.Percept{{Domain: "rgb", Values: []float64{0.1, 0.2, 0.3}}}
	out := Cones{Proportions: Proportions{1, 1, 1}}.Perceive(in)
	if out[0].Domain != "rgb" || out[0].Values[2] != 0.3 {
		t.Errorf("rgb changed: %+v", out)
	}
	out[0].Values[0] = 9
	if in[0].Values[0] != 0.1 {
		t.Error("perceive aliases the stimulus")
	}
}

func TestDrawProportions(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	fixed := Proportions{0.33, 0.33, 0.33}
	if got := DrawProportions(ProportionsFixed, fixed, rng); got != fixed {
		t.Errorf("fixed = %v", got)
	}
	for i := 0; i < 100; i++ {
		r := DrawProportions(ProportionsRandom, fixed, rng)
		if r[0] != 0.1 || math.Abs(r[0]+r[1]+r[2]-1) > 1e-12 {
			t.Fatalf("random = %v", r)
		}
		r2 := DrawProportions(ProportionsRandom2, fixed, rng)
		if math.Abs(r2[0]+r2[1]+r2[2]-1) > 1e-12 || r2[1] < 0 || r2[2] < 0 {
			t.Fatalf("random2 = %v", r2)
		}
	}
}

func TestJitter(t *testing.T) {
	in := concepts.Percept{{Domain: "rgb", Values: []float64{0.4, 0.5, 0.6}}}

	off := NewJitter(nil, 1, 0, 1).Perceive(in)
	if off[0].Values[1] != 0.5 {
		t.Errorf("zero amplitude changed value to %v", off[0].Values[1])
	}

	j := NewJitter(Identity{}, 1, 0.05, 4)
	a := j.Perceive(in)
	b := j.Perceive(in)
	for i := range a[0].Values {
		if a[0].Values[i] != b[0].Values[i] {
			t.Errorf("value %d perceived as %v then %v", i, a[0].Values[i], b[0].Values[i])
		}
		if math.Abs(a[0].Values[i]-in[0].Values[i]) > 0.05 {
			t.Errorf("value %d jittered by more than the amplitude", i)
		}
	}
	if in[0].Values[0] != 0.4 {
		t.Error("jitter modified the stimulus")
	}
}
