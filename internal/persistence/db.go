// Package persistence provides SQLite-based storage of finished runs: the
// run itself, each agent's knowledge and the aggregated progress series.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/concept-world/internal/agents"
	"github.com/talgya/concept-world/internal/engine"
	"github.com/talgya/concept-world/internal/metric"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		seed INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		cycles INTEGER NOT NULL,
		replicas INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		final_success REAL NOT NULL,
		final_words REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		run_id TEXT NOT NULL,
		replica INTEGER NOT NULL,
		name TEXT NOT NULL,
		percepts INTEGER NOT NULL,
		words INTEGER NOT NULL,
		successful_words INTEGER NOT NULL,
		discrimination_success REAL NOT NULL,
		guessing_success REAL NOT NULL,
		memories_json TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		PRIMARY KEY (run_id, replica, name)
	);

	CREATE TABLE IF NOT EXISTS concepts (
		run_id TEXT NOT NULL,
		replica INTEGER NOT NULL,
		agent TEXT NOT NULL,
		tag TEXT NOT NULL,
		domain TEXT NOT NULL,
		prototype_json TEXT NOT NULL,
		spread_json TEXT NOT NULL,
		spread_avg REAL NOT NULL,
		confidence REAL NOT NULL,
		count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS words (
		run_id TEXT NOT NULL,
		replica INTEGER NOT NULL,
		agent TEXT NOT NULL,
		tag TEXT NOT NULL,
		uses INTEGER NOT NULL,
		successes INTEGER NOT NULL,
		success_ratio REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS links (
		run_id TEXT NOT NULL,
		replica INTEGER NOT NULL,
		agent TEXT NOT NULL,
		concept TEXT NOT NULL,
		word TEXT NOT NULL,
		weight REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS progress (
		run_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		success_mean REAL NOT NULL,
		success_sd REAL NOT NULL,
		words_mean REAL NOT NULL,
		words_sd REAL NOT NULL,
		PRIMARY KEY (run_id, cycle)
	);

	CREATE TABLE IF NOT EXISTS words_in_world (
		run_id TEXT NOT NULL,
		replica INTEGER NOT NULL,
		position INTEGER NOT NULL,
		word TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_concepts_agent ON concepts(run_id, replica, agent);
	CREATE INDEX IF NOT EXISTS idx_words_agent ON words(run_id, replica, agent);
	CREATE INDEX IF NOT EXISTS idx_links_agent ON links(run_id, replica, agent);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// runTables hold rows keyed by run_id, cleared before a run is saved again.
var runTables = []string{"agents", "concepts", "words", "links", "progress", "words_in_world", "runs"}

// SaveRun writes a finished run (full replace of that run's rows).
func (db *DB) SaveRun(res *engine.Result) error {
	slog.Info("saving run", "run", res.RunID, "replicas", len(res.Replicas))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range runTables {
		col := "run_id"
		if table == "runs" {
			col = "id"
		}
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE "+col+" = ?", res.RunID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	finalSuccess, finalWords := 0.0, 0.0
	if n := len(res.GuessingSuccess); n > 0 {
		finalSuccess = res.GuessingSuccess[n-1].Mean
		finalWords = res.SuccessfulWords[n-1].Mean
	}
	_, err = tx.Exec(`INSERT INTO runs
		(id, mode, seed, agents, cycles, replicas, started_at, finished_at, final_success, final_words)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Options.Mode.String(), res.Options.Seed, res.Options.Agents,
		res.Options.Cycles, res.Options.Replicas,
		res.Started.UTC().Format(time.RFC3339), res.Finished.UTC().Format(time.RFC3339),
		finalSuccess, finalWords,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, sim := range res.Replicas {
		if err := saveAgents(tx, res.RunID, sim.Replica, sim.Agents, sim.Snapshots()); err != nil {
			return fmt.Errorf("replica %d: %w", sim.Replica, err)
		}
		for i, w := range sim.Registry.Words() {
			if _, err := tx.Exec("INSERT INTO words_in_world (run_id, replica, position, word) VALUES (?, ?, ?, ?)",
				res.RunID, sim.Replica, i, w); err != nil {
				return fmt.Errorf("insert word in world: %w", err)
			}
		}
	}

	if err := saveProgress(tx, res.RunID, res.GuessingSuccess, res.SuccessfulWords); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("run saved", "run", res.RunID)
	return nil
}

func saveAgents(tx *sqlx.Tx, runID string, replica int, list []*agents.Agent, snaps []agents.Snapshot) error {
	agentStmt, err := tx.Preparex(`INSERT INTO agents
		(run_id, replica, name, percepts, words, successful_words,
		 discrimination_success, guessing_success, memories_json, snapshot_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer agentStmt.Close()

	for i, snap := range snaps {
		memJSON, err := json.Marshal(list[i].Memories)
		if err != nil {
			return fmt.Errorf("encode memories of %s: %w", snap.Name, err)
		}
		snapJSON, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode agent %s: %w", snap.Name, err)
		}
		_, err = agentStmt.Exec(runID, replica, snap.Name, snap.Percepts, snap.Words, snap.Lexicon.Successful,
			snap.Stats.DiscriminationSuccess(), snap.Stats.GuessingSuccess(),
			string(memJSON), string(snapJSON))
		if err != nil {
			return fmt.Errorf("insert agent %s: %w", snap.Name, err)
		}

		for _, c := range snap.Concepts.Concepts {
			for _, d := range c.Domains {
				protoJSON, err := json.Marshal(d.Prototype)
				if err != nil {
					return fmt.Errorf("encode concept %s: %w", c.Tag, err)
				}
				spreadJSON, err := json.Marshal(d.Spread)
				if err != nil {
					return fmt.Errorf("encode concept %s: %w", c.Tag, err)
				}
				_, err = tx.Exec(`INSERT INTO concepts
					(run_id, replica, agent, tag, domain, prototype_json, spread_json, spread_avg, confidence, count)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					runID, replica, snap.Name, c.Tag, d.Name,
					string(protoJSON), string(spreadJSON), d.SpreadAvg, d.Confidence, d.Count)
				if err != nil {
					return fmt.Errorf("insert concept %s: %w", c.Tag, err)
				}
			}
		}

		for _, w := range snap.Lexicon.Words {
			_, err := tx.Exec(`INSERT INTO words
				(run_id, replica, agent, tag, uses, successes, success_ratio)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, replica, snap.Name, w.Tag, w.Uses, w.Successes, w.SuccessRatio)
			if err != nil {
				return fmt.Errorf("insert word %s: %w", w.Tag, err)
			}
		}

		for _, row := range snap.Links.Rows {
			for j, weight := range row.Weights {
				if weight == 0 {
					continue
				}
				_, err := tx.Exec(`INSERT INTO links (run_id, replica, agent, concept, word, weight)
					VALUES (?, ?, ?, ?, ?, ?)`,
					runID, replica, snap.Name, row.Concept, snap.Links.Words[j], weight)
				if err != nil {
					return fmt.Errorf("insert link %s/%s: %w", row.Concept, snap.Links.Words[j], err)
				}
			}
		}
	}
	return nil
}

func saveProgress(tx *sqlx.Tx, runID string, success, words []metric.Point) error {
	stmt, err := tx.Preparex(`INSERT INTO progress
		(run_id, cycle, success_mean, success_sd, words_mean, words_sd)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range success {
		var w metric.Point
		if i < len(words) {
			w = words[i]
		}
		if _, err := stmt.Exec(runID, i, p.Mean, p.SD, w.Mean, w.SD); err != nil {
			return fmt.Errorf("insert progress %d: %w", i, err)
		}
	}
	return nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
