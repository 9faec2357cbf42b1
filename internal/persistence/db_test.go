package persistence

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/talgya/concept-world/internal/agents"
	"github.com/talgya/concept-world/internal/engine"
	"github.com/talgya/concept-world/internal/lexicon"
	"github.com/talgya/concept-world/internal/naming"
	"github.com/talgya/concept-world/internal/stimuli"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "langsim.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func finishedRun(t *testing.T) *engine.Result {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.Agents = 3
	opts.Cycles = 120
	opts.Replicas = 2
	opts.Seed = 5
	opts.BaseGames = 30
	opts.Stimuli = stimuli.Config{Kind: stimuli.KindRGB, ContextSize: 3, MinSeparation: 0.2}
	res, err := engine.Run(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestSaveRun(t *testing.T) {
	db := openTestDB(t)
	res := finishedRun(t)

	if err := db.SaveRun(res); err != nil {
		t.Fatal(err)
	}
	// Saving again replaces rather than duplicates.
	if err := db.SaveRun(res); err != nil {
		t.Fatal(err)
	}

	runs, err := db.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID || runs[0].Cycles != 120 || runs[0].Mode != "population" {
		t.Fatalf("runs = %+v", runs)
	}

	rows, err := db.RunAgents(res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Errorf("stored %d agents, want 6", len(rows))
	}

	progress, err := db.Progress(res.RunID, 50)
	if err != nil {
		t.Fatal(err)
	}
	// cycles 0, 50, 100 and the last one, 119
	if len(progress) != 4 || progress[3].Cycle != 119 {
		t.Errorf("progress = %+v", progress)
	}
	if progress[3].SuccessMean != res.GuessingSuccess[119].Mean {
		t.Errorf("last success %v, want %v", progress[3].SuccessMean, res.GuessingSuccess[119].Mean)
	}

	words, err := db.WordsInWorld(res.RunID, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := res.Replicas[1].Registry.Words()
	if len(words) != len(want) {
		t.Fatalf("words in world = %d, want %d", len(words), len(want))
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, words[i], want[i])
		}
	}
}

func TestSaveRun_UnencodableAgentRollsBack(t *testing.T) {
	db := openTestDB(t)
	res := finishedRun(t)

	a := res.Replicas[0].Agents[0]
	c, _ := a.Space().Concept(a.Space().Tags()[0])
	d, _ := c.Domain(c.DomainNames()[0])
	d.Prototype[0] = math.NaN()

	if err := db.SaveRun(res); err == nil {
		t.Fatal("expected an encoding error for a NaN prototype")
	}
	runs, err := db.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("failed save left %d runs behind", len(runs))
	}
}

func TestLoadAgent_Restores(t *testing.T) {
	db := openTestDB(t)
	res := finishedRun(t)
	if err := db.SaveRun(res); err != nil {
		t.Fatal(err)
	}

	orig := res.Replicas[0].Agents[1]
	snap, err := db.LoadAgent(res.RunID, 0, orig.Name)
	if err != nil {
		t.Fatal(err)
	}
	back, err := agents.Restore(snap, orig.Config(), naming.NewRegistry(1),
		rand.New(rand.NewSource(1)), lexicon.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if back.Space().Len() != orig.Space().Len() || back.Lexicon().Len() != orig.Lexicon().Len() {
		t.Errorf("restored %d concepts/%d words, want %d/%d",
			back.Space().Len(), back.Lexicon().Len(), orig.Space().Len(), orig.Lexicon().Len())
	}
	for _, w := range orig.Lexicon().Words() {
		want, wok := orig.ConceptFor(lexicon.Form{Tag: w.Tag})
		got, gok := back.ConceptFor(lexicon.Form{Tag: w.Tag})
		if want != got || wok != gok {
			t.Errorf("word %s -> %q,%v, want %q,%v", w.Tag, got, gok, want, wok)
		}
	}
	if back.Stats != orig.Stats {
		t.Errorf("stats = %+v, want %+v", back.Stats, orig.Stats)
	}

	mems, err := db.AgentMemories(res.RunID, 0, orig.Name)
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != len(orig.Memories) {
		t.Errorf("memories = %d, want %d", len(mems), len(orig.Memories))
	}

	if _, err := db.LoadAgent(res.RunID, 0, "nobody"); err == nil {
		t.Error("expected error for unknown agent")
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMeta("last_run", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("last_run", "b"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMeta("last_run")
	if err != nil || v != "b" {
		t.Errorf("meta = %q, %v", v, err)
	}
	if _, err := db.GetMeta("missing"); err == nil {
		t.Error("expected error for missing key")
	}
}
