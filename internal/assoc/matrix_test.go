package assoc

import (
	"errors"
	"math"
	"testing"
)

func weight(t *testing.T, m *Matrix, concept, word string) float64 {
	t.Helper()
	w, ok := m.Weight(concept, word)
	if !ok {
		t.Fatalf("cell (%s,%s) missing", concept, word)
	}
	return w
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

// -----------------------------------------------------------------------------
// Growth
// -----------------------------------------------------------------------------

func TestAddLink_GrowthPreservesCells(t *testing.T) {
	m := New("cs_lex", true)
	m.AddLink("c1", "w1")
	m.AddLink("c2", "w2")
	m.AddLink("c1", "w2")

	if got := weight(t, m, "c1", "w1"); got != 0.5 {
		t.Errorf("cell(c1,w1) = %v, want 0.5", got)
	}
	if got := weight(t, m, "c1", "w2"); got != 0.5 {
		t.Errorf("cell(c1,w2) = %v, want 0.5", got)
	}
	if got := weight(t, m, "c2", "w1"); got != 0 {
		t.Errorf("cell(c2,w1) = %v, want 0", got)
	}
	if got := weight(t, m, "c2", "w2"); got != 0.5 {
		t.Errorf("cell(c2,w2) = %v, want 0.5", got)
	}
	if r, c := m.Size(); r != 2 || c != 2 {
		t.Errorf("size = %dx%d, want 2x2", r, c)
	}
}

func TestAddLink_FourCases(t *testing.T) {
	m := New("cs_lex", false)

	// (1) neither known
	m.AddLink("c1", "w1")
	// (2) concept known, word new
	m.AddLink("c1", "w2")
	if got := weight(t, m, "c1", "w2"); got != 0.5 {
		t.Errorf("case 2: cell = %v", got)
	}
	// (3) word known, concept new
	m.AddLink("c2", "w1")
	if got := weight(t, m, "c2", "w1"); got != 0.5 {
		t.Errorf("case 3: cell = %v", got)
	}
	if got := weight(t, m, "c2", "w2"); got != 0 {
		t.Errorf("case 3: unrelated new cell = %v, want 0", got)
	}
	// (4) both known: reset to 0.5 regardless of prior value
	_ = m.IncreaseStrength("w1", "c1", 0.3)
	m.AddLink("c1", "w1")
	if got := weight(t, m, "c1", "w1"); got != 0.5 {
		t.Errorf("case 4: cell = %v, want 0.5", got)
	}

	if got := m.Concepts(); len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Errorf("concepts = %v", got)
	}
	if got := m.Words(); len(got) != 2 || got[0] != "w1" || got[1] != "w2" {
		t.Errorf("words = %v", got)
	}
}

// -----------------------------------------------------------------------------
// Reinforcement
// -----------------------------------------------------------------------------

func grid(lateral bool) *Matrix {
	m := New("cs_lex", lateral)
	for _, c := range []string{"c1", "c2", "c3"} {
		for _, w := range []string{"w1", "w2", "w3"} {
			m.AddLink(c, w)
		}
	}
	return m
}

func TestIncreaseStrength_LateralInhibition(t *testing.T) {
	m := grid(true)
	_ = m.SetStrength("w3", "c3", 0.05)

	if err := m.IncreaseStrength("w2", "c2", 0.1); err != nil {
		t.Fatal(err)
	}
	for _, c := range []string{"c1", "c2", "c3"} {
		for _, w := range []string{"w1", "w2", "w3"} {
			got := weight(t, m, c, w)
			want := 0.5
			switch {
			case c == "c2" && w == "w2":
				want = 0.6
			case c == "c2" || w == "w2":
				want = 0.4
			case c == "c3" && w == "w3":
				want = 0.05
			}
			if !near(got, want) {
				t.Errorf("cell(%s,%s) = %v, want %v", c, w, got, want)
			}
		}
	}
}

func TestIncreaseStrength_CapAndFloor(t *testing.T) {
	m := grid(true)
	_ = m.SetStrength("w1", "c1", 0.95)
	_ = m.SetStrength("w2", "c1", 0.05)

	if err := m.IncreaseStrength("w1", "c1", 0.1); err != nil {
		t.Fatal(err)
	}
	if got := weight(t, m, "c1", "w1"); got != 1 {
		t.Errorf("capped cell = %v, want 1", got)
	}
	if got := weight(t, m, "c1", "w2"); got != 0 {
		t.Errorf("floored cell = %v, want 0", got)
	}
}

func TestIncreaseStrength_NoInhibition(t *testing.T) {
	m := grid(false)
	_ = m.IncreaseStrength("w2", "c2", 0.1)
	if got := weight(t, m, "c2", "w2"); !near(got, 0.6) {
		t.Errorf("target = %v, want 0.6", got)
	}
	if got := weight(t, m, "c1", "w2"); got != 0.5 {
		t.Errorf("neighbour changed to %v without inhibition", got)
	}
}

func TestDecreaseStrength_OnlyTarget(t *testing.T) {
	m := grid(true)
	_ = m.SetStrength("w1", "c1", 0.05)
	if err := m.DecreaseStrength("w1", "c1", 0.1); err != nil {
		t.Fatal(err)
	}
	if got := weight(t, m, "c1", "w1"); got != 0 {
		t.Errorf("target = %v, want 0", got)
	}
	if got := weight(t, m, "c1", "w2"); got != 0.5 {
		t.Errorf("neighbour = %v, want 0.5", got)
	}
}

func TestStrength_UnknownLabel(t *testing.T) {
	m := grid(true)
	if err := m.IncreaseStrength("nope", "c1", 0.1); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("unknown word: got %v", err)
	}
	if err := m.DecreaseStrength("w1", "nope", 0.1); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("unknown concept: got %v", err)
	}
}

// -----------------------------------------------------------------------------
// Lookup
// -----------------------------------------------------------------------------

func TestBestLookups(t *testing.T) {
	m := grid(false)
	_ = m.IncreaseStrength("w3", "c1", 0.2)
	_ = m.IncreaseStrength("w2", "c3", 0.1)

	if w, ok := m.BestWordForConcept("c1"); !ok || w != "w3" {
		t.Errorf("best word for c1 = %q,%v", w, ok)
	}
	// c2 row is all 0.5: first column wins.
	if w, ok := m.BestWordForConcept("c2"); !ok || w != "w1" {
		t.Errorf("best word for c2 = %q,%v", w, ok)
	}
	if c, ok := m.BestConceptForWord("w2"); !ok || c != "c3" {
		t.Errorf("best concept for w2 = %q,%v", c, ok)
	}
	if _, ok := m.BestConceptForWord("missing"); ok {
		t.Error("unknown word should not resolve")
	}
	if _, ok := m.BestWordForConcept("missing"); ok {
		t.Error("unknown concept should not resolve")
	}
}

func TestWeakLabels(t *testing.T) {
	m := New("cs_lex", false)
	m.AddLink("c1", "w1")
	m.AddLink("c2", "w2")
	_ = m.DecreaseStrength("w2", "c2", 0.45)

	weakC := m.WeakConcepts(0.1)
	if len(weakC) != 1 || weakC[0] != "c2" {
		t.Errorf("weak concepts = %v", weakC)
	}
	weakW := m.WeakWords(0.1)
	if len(weakW) != 1 || weakW[0] != "w2" {
		t.Errorf("weak words = %v", weakW)
	}
}

func TestTableRoundTrip(t *testing.T) {
	m := grid(true)
	_ = m.IncreaseStrength("w1", "c3", 0.2)

	tbl := m.Table()
	if len(tbl.Words) != 3 || len(tbl.Rows) != 3 {
		t.Fatalf("table shape %dx%d", len(tbl.Rows), len(tbl.Words))
	}
	back, err := FromTable("cs_lex", true, tbl)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range m.Concepts() {
		for _, w := range m.Words() {
			if weight(t, m, c, w) != weight(t, back, c, w) {
				t.Errorf("cell (%s,%s) changed in round trip", c, w)
			}
		}
	}

	tbl.Rows[0].Weights = tbl.Rows[0].Weights[:2]
	if _, err := FromTable("bad", true, tbl); err == nil {
		t.Error("expected error for ragged table")
	}
}
